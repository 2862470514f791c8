package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show inbox counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		summary, err := a.pipeline.RefreshSummary(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load summary: %w", err)
		}

		if summaryJSON {
			return printJSON(summary)
		}

		fmt.Printf("Total:        %d\n", summary.TotalCount)
		fmt.Printf("Unprocessed:  %d\n", summary.UnprocessedCount)
		fmt.Printf("Classified:   %d\n", summary.ClassifiedCount)
		fmt.Printf("Unclassified: %d\n", summary.UnclassifiedCount)
		return nil
	},
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "JSON output")
	rootCmd.AddCommand(summaryCmd)
}
