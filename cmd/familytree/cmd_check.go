package main

import (
	"errors"
	"fmt"

	"familytree/domain/lineage"
	pkgerrors "familytree/pkg/errors"

	"github.com/spf13/cobra"
)

// defectsError marks snapshot contract violations so main can exit with exitDefects
type defectsError struct {
	err error
}

func (e *defectsError) Error() string { return e.err.Error() }
func (e *defectsError) Unwrap() error { return e.err }

func newCheckCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report records the tree builder must never receive",
		Long: `Lists records without identity or gender and duplicate keys.
Dangling references, cycles and conflicting spouse links are tolerated by
the builder and only counted in the summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(input)
			if err != nil {
				return err
			}
			defer in.Close()

			out := cmd.OutOrStdout()
			people, err := readSnapshot(in)
			if err != nil {
				var verrs *pkgerrors.ValidationErrors
				if !errors.As(err, &verrs) {
					return err
				}
				for _, e := range verrs.Errors {
					fmt.Fprintf(out, "%s: %s\n", e.Details["field"], e.Message)
				}
				return &defectsError{err: fmt.Errorf("%d defect(s) found", len(verrs.Errors))}
			}

			forest := lineage.Build(people)
			stats := forest.Stats
			fmt.Fprintf(out, "ok: %d persons, %d lineages, %d charted\n", stats.Persons, len(forest.Roots), stats.NodeCount)
			if stats.CycleTruncations > 0 {
				fmt.Fprintf(out, "note: %d cyclic father reference(s) truncated\n", stats.CycleTruncations)
			}
			if stats.DroppedSpouseClaims > 0 {
				fmt.Fprintf(out, "note: %d conflicting spouse claim(s) ignored\n", stats.DroppedSpouseClaims)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "snapshot file, or - for stdin")
	return cmd
}
