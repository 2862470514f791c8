// Package inbox defines the data model shared by the capture/triage pipeline,
// the backend service, and the classifier: inbox items, capture sources,
// classification actions, and the batch apply request/result shapes.
package inbox

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceType discriminates CaptureSource variants.
type SourceType string

const (
	SourceQuickCapture SourceType = "quickCapture"
	SourceWebClipper   SourceType = "webClipper"
	SourceEmail        SourceType = "email"
	SourceAPI          SourceType = "api"
	SourceImport       SourceType = "import"
)

// CaptureSource records where an item came from. Type selects the variant;
// only the fields belonging to that variant are populated. Immutable once set
// on an item.
type CaptureSource struct {
	Type SourceType `json:"type"`
	// WebClipper
	URL string `json:"url,omitempty"`
	// Email
	From string `json:"from,omitempty"`
	// API
	Source string `json:"source,omitempty"`
	// Import
	Format string `json:"format,omitempty"`
}

// QuickCapture is the source for items entered through the capture dialog.
func QuickCapture() CaptureSource {
	return CaptureSource{Type: SourceQuickCapture}
}

// WebClipperSource is the source for items clipped from a URL.
func WebClipperSource(url string) CaptureSource {
	return CaptureSource{Type: SourceWebClipper, URL: url}
}

// EmailSource is the source for items forwarded from email.
func EmailSource(from string) CaptureSource {
	return CaptureSource{Type: SourceEmail, From: from}
}

// APISource is the source for items captured programmatically.
func APISource(source string) CaptureSource {
	return CaptureSource{Type: SourceAPI, Source: source}
}

// ImportSource is the source for items imported from another format.
func ImportSource(format string) CaptureSource {
	return CaptureSource{Type: SourceImport, Format: format}
}

// ActionType discriminates ClassificationAction variants.
type ActionType string

const (
	ActionCreatePage     ActionType = "createPage"
	ActionAppendToPage   ActionType = "appendToPage"
	ActionCreateNotebook ActionType = "createNotebook"
	ActionKeepInInbox    ActionType = "keepInInbox"
)

// ClassificationAction is the destination decision for an item. Type selects
// the variant; only that variant's fields are meaningful. Dispatch over Type
// must handle every constant above and error on anything else so a new
// variant cannot silently fall through.
type ClassificationAction struct {
	Type ActionType `json:"type"`

	// CreatePage and AppendToPage
	NotebookID   uuid.UUID `json:"notebookId,omitempty"`
	NotebookName string    `json:"notebookName,omitempty"`

	// CreatePage
	SuggestedTitle string   `json:"suggestedTitle,omitempty"`
	SuggestedTags  []string `json:"suggestedTags,omitempty"`

	// AppendToPage
	PageID    uuid.UUID `json:"pageId,omitempty"`
	PageTitle string    `json:"pageTitle,omitempty"`

	// CreateNotebook
	SuggestedName string `json:"suggestedName,omitempty"`
	SuggestedIcon string `json:"suggestedIcon,omitempty"`

	// KeepInInbox
	Reason string `json:"reason,omitempty"`
}

// CreatePage builds a create-page action targeting an existing notebook.
func CreatePage(notebookID uuid.UUID, notebookName, suggestedTitle string, suggestedTags []string) ClassificationAction {
	return ClassificationAction{
		Type:           ActionCreatePage,
		NotebookID:     notebookID,
		NotebookName:   notebookName,
		SuggestedTitle: suggestedTitle,
		SuggestedTags:  suggestedTags,
	}
}

// AppendToPage builds an append action targeting an existing page.
func AppendToPage(notebookID uuid.UUID, notebookName string, pageID uuid.UUID, pageTitle string) ClassificationAction {
	return ClassificationAction{
		Type:         ActionAppendToPage,
		NotebookID:   notebookID,
		NotebookName: notebookName,
		PageID:       pageID,
		PageTitle:    pageTitle,
	}
}

// CreateNotebook builds a create-notebook action. icon may be empty.
func CreateNotebook(suggestedName, suggestedIcon string) ClassificationAction {
	return ClassificationAction{
		Type:          ActionCreateNotebook,
		SuggestedName: suggestedName,
		SuggestedIcon: suggestedIcon,
	}
}

// KeepInInbox builds the no-op action that leaves an item in the inbox.
func KeepInInbox(reason string) ClassificationAction {
	return ClassificationAction{Type: ActionKeepInInbox, Reason: reason}
}

// Validate checks that the action carries the fields its variant requires.
func (a ClassificationAction) Validate() error {
	switch a.Type {
	case ActionCreatePage:
		if a.NotebookID == uuid.Nil {
			return fmt.Errorf("createPage action requires a notebook id")
		}
	case ActionAppendToPage:
		if a.NotebookID == uuid.Nil || a.PageID == uuid.Nil {
			return fmt.Errorf("appendToPage action requires notebook and page ids")
		}
	case ActionCreateNotebook:
		if a.SuggestedName == "" {
			return fmt.Errorf("createNotebook action requires a suggested name")
		}
	case ActionKeepInInbox:
		// Reason may be empty.
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// Classification is the classifier's suggestion for an item.
type Classification struct {
	Action       ClassificationAction `json:"action"`
	Confidence   float64              `json:"confidence"`
	Reasoning    string               `json:"reasoning"`
	ClassifiedAt time.Time            `json:"classifiedAt"`
}

// Item is a captured, not-yet-filed note awaiting triage.
type Item struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Tags           []string        `json:"tags"`
	CapturedAt     time.Time       `json:"capturedAt"`
	Source         CaptureSource   `json:"source"`
	Classification *Classification `json:"classification,omitempty"`
	IsProcessed    bool            `json:"isProcessed"`
}

// NewItem creates an unprocessed, unclassified item with a fresh id.
func NewItem(title, content string, tags []string, source CaptureSource) Item {
	if tags == nil {
		tags = []string{}
	}
	return Item{
		ID:         uuid.New(),
		Title:      title,
		Content:    content,
		Tags:       tags,
		CapturedAt: time.Now().UTC(),
		Source:     source,
	}
}

// CaptureRequest carries the input for capturing a new item.
type CaptureRequest struct {
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Tags    []string       `json:"tags,omitempty"`
	Source  *CaptureSource `json:"source,omitempty"`
}

// ActionOverride is a user-chosen action that supersedes the classifier's
// suggestion for one item. Only meaningful for unprocessed items.
type ActionOverride struct {
	ItemID uuid.UUID            `json:"itemId"`
	Action ClassificationAction `json:"action"`
}

// ApplyActionsRequest asks the backend to materialize a batch of items.
type ApplyActionsRequest struct {
	ItemIDs   []uuid.UUID      `json:"itemIds"`
	Overrides []ActionOverride `json:"overrides,omitempty"`
}

// ApplyActionsResult reports the outcome of a batch apply. SucceededItemIDs
// lists exactly the items that were materialized and marked processed; Errors
// holds per-item diagnostics in the form "<id>: <cause>". A KeepInInbox item
// produces neither an entry in SucceededItemIDs nor an error.
type ApplyActionsResult struct {
	ProcessedCount   int         `json:"processedCount"`
	SucceededItemIDs []uuid.UUID `json:"succeededItemIds"`
	CreatedPages     []uuid.UUID `json:"createdPages"`
	UpdatedPages     []uuid.UUID `json:"updatedPages"`
	CreatedNotebooks []uuid.UUID `json:"createdNotebooks"`
	Errors           []string    `json:"errors"`
}

// Summary holds aggregate counts recomputed from the backend source of truth.
type Summary struct {
	TotalCount        int `json:"totalCount"`
	UnprocessedCount  int `json:"unprocessedCount"`
	UnclassifiedCount int `json:"unclassifiedCount"`
	ClassifiedCount   int `json:"classifiedCount"`
}
