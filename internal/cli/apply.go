package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var applyJSON bool

var applyCmd = &cobra.Command{
	Use:   "apply <id>...",
	Short: "File items into notebooks and pages",
	Long:  "Apply the suggested (or overridden) destination action for the given inbox items.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.pipeline.ApplyActions(cmd.Context(), ids...)
		if err != nil {
			return fmt.Errorf("apply failed: %w", err)
		}

		if applyJSON {
			return printJSON(result)
		}

		fmt.Printf("Applied %d item(s): %d page(s) created, %d page(s) updated, %d notebook(s) created\n",
			result.ProcessedCount, len(result.CreatedPages), len(result.UpdatedPages), len(result.CreatedNotebooks))
		for _, e := range result.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "JSON output")
	rootCmd.AddCommand(applyCmd)
}
