package classifier

import (
	"fmt"
	"strings"

	"github.com/erewhon/nous-sub005/internal/storage"
)

const systemPrompt = `You are an intelligent note filing assistant. Your job is to analyze incoming notes and determine the best place to file them.

You must respond with a JSON object containing your classification decision. Choose ONE of these actions:

1. createPage: Create a new page in an existing notebook
2. appendToPage: Add content to an existing page
3. createNotebook: Create a new notebook for this content (only if no existing notebook fits)
4. keepInInbox: Keep in inbox if unclear where it should go

Response format:
{
    "actionType": "createPage" | "appendToPage" | "createNotebook" | "keepInInbox",
    "confidence": 0.0-1.0,
    "reasoning": "Brief explanation of why this destination was chosen",

    // For createPage:
    "notebookId": "uuid of target notebook",
    "notebookName": "name of target notebook",
    "suggestedTitle": "suggested title for new page",
    "suggestedTags": ["tag1", "tag2"],

    // For appendToPage:
    "notebookId": "uuid of notebook",
    "notebookName": "name of notebook",
    "pageId": "uuid of page",
    "pageTitle": "title of page",

    // For createNotebook:
    "suggestedName": "name for new notebook",
    "suggestedIcon": "emoji icon",

    // For keepInInbox:
    "reason": "why it should stay in inbox"
}

Consider:
- Topic and subject matter of the note
- Existing notebook themes and purposes
- Whether content relates to an existing page
- Tags that might indicate a destination
`

// maxCatalogPages bounds how many recent pages are described to the model.
const maxCatalogPages = 20

// catalog is the destination context shown to the model: what notebooks exist
// and which pages were recently touched.
type catalog struct {
	notebooks []storage.NotebookRecord
	pages     []storage.PageRecord
}

func (c catalog) notebooksContext() string {
	if len(c.notebooks) == 0 {
		return "No notebooks available"
	}
	var b strings.Builder
	for i, nb := range c.notebooks {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s (ID: %s)", nb.Name, nb.ID)
	}
	return b.String()
}

func (c catalog) pagesContext(byID map[string]string) string {
	if len(c.pages) == 0 {
		return "No pages available"
	}
	var b strings.Builder
	for i, p := range c.pages {
		if i >= maxCatalogPages {
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		notebookName := byID[p.NotebookID.String()]
		if notebookName == "" {
			notebookName = "Unknown"
		}
		fmt.Fprintf(&b, "- %q in %s (Page ID: %s, Notebook ID: %s)", p.Title, notebookName, p.ID, p.NotebookID)
	}
	return b.String()
}

// buildUserMessage renders the per-item classification request.
func buildUserMessage(title, content string, tags []string, cat catalog) string {
	tagsStr := "none"
	if len(tags) > 0 {
		tagsStr = strings.Join(tags, ", ")
	}

	byID := make(map[string]string, len(cat.notebooks))
	for _, nb := range cat.notebooks {
		byID[nb.ID.String()] = nb.Name
	}

	return fmt.Sprintf(`Please classify this inbox item:

TITLE: %s

CONTENT:
%s

TAGS: %s

AVAILABLE NOTEBOOKS:
%s

RECENT PAGES:
%s

Analyze this note and determine the best action. Respond with JSON only.`,
		title, content, tagsStr, cat.notebooksContext(), cat.pagesContext(byID))
}
