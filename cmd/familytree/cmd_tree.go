package main

import (
	"encoding/json"
	"fmt"
	"io"

	"familytree/application/queries"
	"familytree/domain/lineage"
	"familytree/pkg/utils"

	"github.com/spf13/cobra"
)

func newTreeCmd() *cobra.Command {
	var (
		input  string
		asJSON bool
		rootID string
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Render the lineage forest of a snapshot",
		Long: `Reads a JSON array of person records and prints every patrilineal
lineage, eldest root first. Use --input - to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(input)
			if err != nil {
				return err
			}
			defer in.Close()

			people, err := readSnapshot(in)
			if err != nil {
				return &defectsError{err: err}
			}

			forest := lineage.Build(people)
			roots := forest.Roots
			if rootID != "" {
				node := forest.Find(rootID)
				if node == nil {
					return fmt.Errorf("%s is not charted in any lineage", rootID)
				}
				roots = []*lineage.TreeNode{node}
			}

			return writeTree(cmd.OutOrStdout(), queries.NewFamilyTreeResult(roots, forest.Stats, utils.NowRFC3339()), asJSON)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "snapshot file, or - for stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the forest as JSON")
	cmd.Flags().StringVar(&rootID, "root", "", "print only the subtree of this person")
	return cmd
}

func writeTree(w io.Writer, result *queries.FamilyTreeResult, asJSON bool) error {
	if !asJSON {
		return queries.RenderText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
