// Command familytree renders and checks lineage snapshots offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK      = 0
	exitDefects = 1
	exitError   = 2
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "familytree",
		Short:         "Work with patrilineal family tree snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTreeCmd(), newCheckCmd(), newTokenCmd())
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if _, ok := err.(*defectsError); ok {
			os.Exit(exitDefects)
		}
		os.Exit(exitError)
	}
	os.Exit(exitOK)
}
