package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erewhon/nous-sub005/internal/inbox"
)

// decision is the raw JSON shape the model is asked to produce. All fields are
// strings or primitives; ids are validated during conversion.
type decision struct {
	ActionType string  `json:"actionType"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`

	NotebookID   string `json:"notebookId"`
	NotebookName string `json:"notebookName"`

	SuggestedTitle string   `json:"suggestedTitle"`
	SuggestedTags  []string `json:"suggestedTags"`

	PageID    string `json:"pageId"`
	PageTitle string `json:"pageTitle"`

	SuggestedName string `json:"suggestedName"`
	SuggestedIcon string `json:"suggestedIcon"`

	Reason string `json:"reason"`
}

// stripCodeFence extracts the JSON payload from a response that may be wrapped
// in a markdown code block.
func stripCodeFence(s string) string {
	if start := strings.Index(s, "```json"); start >= 0 {
		rest := s[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+len("```"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return strings.TrimSpace(s)
}

// fallbackClassification keeps an item in the inbox when the model's answer
// cannot be used. Low confidence so the UI can surface it for manual review.
func fallbackClassification(reasoning string, now time.Time) inbox.Classification {
	return inbox.Classification{
		Action:       inbox.KeepInInbox("classification failed, review manually"),
		Confidence:   0.3,
		Reasoning:    reasoning,
		ClassifiedAt: now,
	}
}

// parseClassification turns a raw model response into a stored classification.
// Unparseable responses and invalid actions degrade to a keep-in-inbox
// fallback instead of failing the batch.
func parseClassification(raw string, now time.Time) inbox.Classification {
	var d decision
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &d); err != nil {
		return fallbackClassification("could not parse classifier response", now)
	}

	action, err := d.toAction()
	if err != nil {
		return fallbackClassification("classifier returned an invalid action: "+err.Error(), now)
	}

	return inbox.Classification{
		Action:       action,
		Confidence:   clampConfidence(d.Confidence),
		Reasoning:    d.Reasoning,
		ClassifiedAt: now,
	}
}

func (d decision) toAction() (inbox.ClassificationAction, error) {
	var action inbox.ClassificationAction

	switch inbox.ActionType(d.ActionType) {
	case inbox.ActionCreatePage:
		notebookID, err := uuid.Parse(d.NotebookID)
		if err != nil {
			return action, err
		}
		action = inbox.CreatePage(notebookID, d.NotebookName, d.SuggestedTitle, d.SuggestedTags)
	case inbox.ActionAppendToPage:
		notebookID, err := uuid.Parse(d.NotebookID)
		if err != nil {
			return action, err
		}
		pageID, err := uuid.Parse(d.PageID)
		if err != nil {
			return action, err
		}
		action = inbox.AppendToPage(notebookID, d.NotebookName, pageID, d.PageTitle)
	case inbox.ActionCreateNotebook:
		action = inbox.CreateNotebook(d.SuggestedName, d.SuggestedIcon)
	case inbox.ActionKeepInInbox:
		action = inbox.KeepInInbox(d.Reason)
	default:
		return action, fmt.Errorf("unknown action type %q", d.ActionType)
	}

	if err := action.Validate(); err != nil {
		return inbox.ClassificationAction{}, err
	}
	return action, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
