package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify [id...]",
	Short: "Ask the LLM to suggest destinations",
	Long:  "Classify inbox items with the configured LLM. With no ids, every unclassified item is classified.",
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

		classified, err := a.pipeline.ClassifyItems(cmd.Context(), ids...)
		if err != nil {
			return fmt.Errorf("classification failed: %w", err)
		}

		if classifyJSON {
			return printJSON(classified)
		}

		if len(classified) == 0 {
			fmt.Println("Nothing to classify.")
			return nil
		}
		for _, item := range classified {
			c := item.Classification
			if c == nil {
				continue
			}
			fmt.Printf("%s  %q\n", item.ID, item.Title)
			fmt.Printf("  -> %s (%.0f%%): %s\n", c.Action.Type, c.Confidence*100, c.Reasoning)
		}
		return nil
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "JSON output")
	rootCmd.AddCommand(classifyCmd)
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
