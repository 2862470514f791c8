package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearProcessedCmd = &cobra.Command{
	Use:   "clear-processed",
	Short: "Remove processed items from the inbox",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.pipeline.ClearProcessed(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear processed items: %w", err)
		}
		fmt.Printf("Cleared %d processed item(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearProcessedCmd)
}
