package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erewhon/nous-sub005/internal/inbox"
)

var (
	captureContent string
	captureTags    string
	captureFile    string
	captureJSON    bool
)

var captureCmd = &cobra.Command{
	Use:   "capture <title>",
	Short: "Capture a note into the inbox",
	Long:  "Capture a quick note into the inbox for later triage. Content comes from --content or --file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		content := captureContent
		if captureFile != "" {
			data, err := os.ReadFile(captureFile)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", captureFile, err)
			}
			content = string(data)
		}

		item, err := a.pipeline.Capture(cmd.Context(), args[0], content, splitTags(captureTags), inbox.QuickCapture())
		if err != nil {
			return fmt.Errorf("failed to capture: %w", err)
		}

		if captureJSON {
			return printJSON(map[string]any{
				"id":         item.ID,
				"title":      item.Title,
				"tags":       item.Tags,
				"capturedAt": item.CapturedAt,
			})
		}

		fmt.Printf("Captured to inbox: %q\n", item.Title)
		if len(item.Tags) > 0 {
			fmt.Printf("  Tags: %s\n", hashTags(item.Tags))
		}
		fmt.Printf("  ID: %s\n", item.ID)
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureContent, "content", "c", "", "Note content")
	captureCmd.Flags().StringVarP(&captureFile, "file", "f", "", "Read content from a file")
	captureCmd.Flags().StringVarP(&captureTags, "tags", "t", "", "Comma-separated tags")
	captureCmd.Flags().BoolVar(&captureJSON, "json", false, "JSON output")
	rootCmd.AddCommand(captureCmd)
}

// splitTags splits a comma-separated tag list, dropping empty entries.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

func hashTags(tags []string) string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = "#" + tag
	}
	return strings.Join(out, " ")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
