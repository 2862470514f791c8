// Package cli wires the inbox pipeline into cobra commands. Running the bare
// binary opens the interactive triage board; subcommands cover scripted use.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erewhon/nous-sub005/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "nous",
	Short: "Inbox capture and triage",
	Long:  "Capture quick notes into an inbox, classify them with an LLM, and file them into notebooks and pages.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		return tui.Run(a.pipeline)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
