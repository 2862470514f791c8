package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/erewhon/nous-sub005/internal/contextutil"
	"github.com/erewhon/nous-sub005/internal/inbox"
	"github.com/erewhon/nous-sub005/internal/markdown"
	"github.com/erewhon/nous-sub005/internal/storage"
)

// InboxService is the backend of the triage pipeline: it owns the durable
// inbox record and materializes classification actions into pages and
// notebooks.
type InboxService struct {
	items     storage.InboxStore
	notebooks storage.NotebookStore
	pages     storage.PageStore
	logger    *slog.Logger
}

// NewInboxService creates a new InboxService.
func NewInboxService(items storage.InboxStore, notebooks storage.NotebookStore, pages storage.PageStore) *InboxService {
	return &InboxService{
		items:     items,
		notebooks: notebooks,
		pages:     pages,
		logger:    slog.Default(),
	}
}

// Capture validates and stores a new inbox item.
func (s *InboxService) Capture(ctx context.Context, req inbox.CaptureRequest) (inbox.Item, error) {
	logger := contextutil.LoggerFromContext(ctx)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		logger.WarnContext(ctx, "capture rejected: empty title")
		return inbox.Item{}, &ValidationError{Field: "title", Message: "cannot be empty"}
	}

	source := inbox.QuickCapture()
	if req.Source != nil {
		source = *req.Source
	}

	item := inbox.NewItem(title, req.Content, req.Tags, source)
	if err := s.items.Insert(ctx, &item); err != nil {
		logger.ErrorContext(ctx, "failed to store captured item", "error", err)
		return inbox.Item{}, WrapError(err, "failed to store captured item")
	}

	logger.InfoContext(ctx, "item captured", "item_id", item.ID, "source", item.Source.Type)
	return item, nil
}

// List returns all inbox items, newest capture first.
func (s *InboxService) List(ctx context.Context) ([]inbox.Item, error) {
	return s.items.List(ctx)
}

// ListUnprocessed returns unprocessed items, newest capture first.
func (s *InboxService) ListUnprocessed(ctx context.Context) ([]inbox.Item, error) {
	return s.items.ListUnprocessed(ctx)
}

// ListUnclassified returns unprocessed items with no classification.
func (s *InboxService) ListUnclassified(ctx context.Context) ([]inbox.Item, error) {
	return s.items.ListUnclassified(ctx)
}

// Get returns a single item by id.
func (s *InboxService) Get(ctx context.Context, id uuid.UUID) (*inbox.Item, error) {
	return s.items.Get(ctx, id)
}

// SetClassification stores the classifier's suggestion for an item.
func (s *InboxService) SetClassification(ctx context.Context, id uuid.UUID, c inbox.Classification) (*inbox.Item, error) {
	return s.items.SetClassification(ctx, id, c)
}

// Summary recomputes aggregate counts from stored items.
func (s *InboxService) Summary(ctx context.Context) (inbox.Summary, error) {
	return s.items.Summary(ctx)
}

// Delete removes an item from the inbox.
func (s *InboxService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.items.Delete(ctx, id)
}

// ClearProcessed removes all processed items and returns how many were
// removed.
func (s *InboxService) ClearProcessed(ctx context.Context) (int, error) {
	return s.items.ClearProcessed(ctx)
}

// ApplyActions materializes a batch of inbox items. For each item the
// effective action is the caller's override if one is present, otherwise the
// stored classification. Items that fail are reported in Errors keyed by id;
// items that succeed are marked processed and listed in SucceededItemIDs.
// KeepInInbox items are neither: they stay unprocessed and produce no error.
// The batch itself only fails on malformed input, never on per-item failures.
func (s *InboxService) ApplyActions(ctx context.Context, req inbox.ApplyActionsRequest) (inbox.ApplyActionsResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	result := inbox.ApplyActionsResult{
		SucceededItemIDs: []uuid.UUID{},
		CreatedPages:     []uuid.UUID{},
		UpdatedPages:     []uuid.UUID{},
		CreatedNotebooks: []uuid.UUID{},
		Errors:           []string{},
	}

	if len(req.ItemIDs) == 0 {
		return result, &ValidationError{Field: "itemIds", Message: "cannot be empty"}
	}

	overrides := make(map[uuid.UUID]inbox.ClassificationAction, len(req.Overrides))
	for _, o := range req.Overrides {
		overrides[o.ItemID] = o.Action
	}

	for _, itemID := range req.ItemIDs {
		item, err := s.items.Get(ctx, itemID)
		if errors.Is(err, storage.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: item not found", itemID))
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", itemID, err))
			continue
		}
		if item.IsProcessed {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", itemID, ErrAlreadyProcessed))
			continue
		}

		action, ok := overrides[itemID]
		if !ok {
			if item.Classification == nil {
				// No override and no classification: the safe default is to
				// leave the item where it is.
				action = inbox.KeepInInbox("no classification available")
			} else {
				action = item.Classification.Action
			}
		}

		if err := s.applyOne(ctx, item, action, &result); err != nil {
			logger.WarnContext(ctx, "apply failed for item", "item_id", itemID, "action", action.Type, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", itemID, err))
		}
	}

	result.ProcessedCount = len(result.SucceededItemIDs)
	logger.InfoContext(ctx, "apply batch finished",
		"requested", len(req.ItemIDs),
		"succeeded", result.ProcessedCount,
		"failed", len(result.Errors),
	)
	return result, nil
}

// applyOne dispatches one item's action. The switch must stay exhaustive over
// inbox.ActionType; unknown types are an error, never a silent no-op.
func (s *InboxService) applyOne(ctx context.Context, item *inbox.Item, action inbox.ClassificationAction, result *inbox.ApplyActionsResult) error {
	if err := action.Validate(); err != nil {
		return err
	}

	switch action.Type {
	case inbox.ActionCreatePage:
		title := action.SuggestedTitle
		if title == "" {
			title = item.Title
		}
		tags := append(append([]string{}, item.Tags...), action.SuggestedTags...)

		page := &storage.PageRecord{
			NotebookID: action.NotebookID,
			Title:      title,
			Content:    editorContent(item.Content),
			Tags:       tags,
		}
		if err := s.pages.Create(ctx, page); err != nil {
			return fmt.Errorf("failed to create page: %w", err)
		}
		result.CreatedPages = append(result.CreatedPages, page.ID)
		return s.finishItem(ctx, item.ID, result)

	case inbox.ActionAppendToPage:
		page, err := s.pages.Get(ctx, action.NotebookID, action.PageID)
		if err != nil {
			return fmt.Errorf("failed to get page: %w", err)
		}
		page.Content.Blocks = append(page.Content.Blocks, markdown.ToBlocks(item.Content)...)
		if err := s.pages.Update(ctx, page); err != nil {
			return fmt.Errorf("failed to update page: %w", err)
		}
		result.UpdatedPages = append(result.UpdatedPages, page.ID)
		return s.finishItem(ctx, item.ID, result)

	case inbox.ActionCreateNotebook:
		nb := &storage.NotebookRecord{
			Name: action.SuggestedName,
			Icon: action.SuggestedIcon,
		}
		if err := s.notebooks.Create(ctx, nb); err != nil {
			return fmt.Errorf("failed to create notebook: %w", err)
		}
		result.CreatedNotebooks = append(result.CreatedNotebooks, nb.ID)

		page := &storage.PageRecord{
			NotebookID: nb.ID,
			Title:      item.Title,
			Content:    editorContent(item.Content),
			Tags:       append([]string{}, item.Tags...),
		}
		if err := s.pages.Create(ctx, page); err != nil {
			return fmt.Errorf("failed to create page in new notebook: %w", err)
		}
		result.CreatedPages = append(result.CreatedPages, page.ID)
		return s.finishItem(ctx, item.ID, result)

	case inbox.ActionKeepInInbox:
		// The item stays unprocessed; nothing to materialize.
		return nil

	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

func (s *InboxService) finishItem(ctx context.Context, id uuid.UUID, result *inbox.ApplyActionsResult) error {
	if err := s.items.MarkProcessed(ctx, id); err != nil {
		return fmt.Errorf("failed to mark item processed: %w", err)
	}
	result.SucceededItemIDs = append(result.SucceededItemIDs, id)
	return nil
}

func editorContent(md string) storage.EditorData {
	return storage.EditorData{
		Version: "2.28.0",
		Blocks:  markdown.ToBlocks(md),
	}
}
