package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erewhon/nous-sub005/internal/inbox"
)

var (
	listAll  bool
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List inbox items",
	Long:  "List unprocessed inbox items. Use --all to include processed items.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		var items []inbox.Item
		if listAll {
			items, err = a.pipeline.ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list items: %w", err)
			}
		} else {
			items = a.pipeline.Items()
		}

		if listJSON {
			if items == nil {
				items = []inbox.Item{}
			}
			return printJSON(items)
		}

		if len(items) == 0 {
			if listAll {
				fmt.Println("No inbox items.")
			} else {
				fmt.Println("No inbox items (unprocessed).")
			}
			return nil
		}

		printItemTable(items)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include processed items")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "JSON output")
	rootCmd.AddCommand(listCmd)
}

func printItemTable(items []inbox.Item) {
	const titleWidth, statusWidth, tagsWidth = 40, 11, 20

	fmt.Printf("%-*s %-*s %-*s %s\n", titleWidth, "Title", statusWidth, "Status", tagsWidth, "Tags", "Captured")
	for _, item := range items {
		title := truncate(item.Title, titleWidth)
		tags := truncate(hashTags(item.Tags), tagsWidth)
		fmt.Printf("%-*s %-*s %-*s %s\n",
			titleWidth, title,
			statusWidth, itemStatus(item),
			tagsWidth, tags,
			item.CapturedAt.Format("2006-01-02"))
	}
	fmt.Printf("\n%d items total\n", len(items))
}

func itemStatus(item inbox.Item) string {
	switch {
	case item.IsProcessed:
		return "processed"
	case item.Classification != nil:
		return "classified"
	default:
		return "pending"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
