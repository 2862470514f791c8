// Package pipeline implements the inbox triage pipeline: a local mirror of
// unprocessed inbox items plus the override, selection, and batch-apply
// bookkeeping that sits between capture and the backend services.
//
// The pipeline is the single owner of its item mirror, override registry,
// and selection set. Classification and apply each carry a single-flight
// guard; a concurrent call of the same kind is rejected, not queued. Capture
// and delete carry no guard and may interleave with an in-flight batch —
// classification merges by id, so an item captured mid-batch simply will not
// appear in that batch's results.
package pipeline

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_backend.go -package=mocks github.com/erewhon/nous-sub005/internal/pipeline Backend
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_classifier.go -package=mocks github.com/erewhon/nous-sub005/internal/pipeline Classifier

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/erewhon/nous-sub005/internal/contextutil"
	"github.com/erewhon/nous-sub005/internal/inbox"
)

// Backend is the remote service that owns the durable inbox record and
// materializes apply batches. This interface is defined from the pipeline's
// perspective (consumer-first).
type Backend interface {
	// Capture validates and stores a new inbox item.
	Capture(ctx context.Context, req inbox.CaptureRequest) (inbox.Item, error)
	// List returns all inbox items, newest capture first.
	List(ctx context.Context) ([]inbox.Item, error)
	// ListUnprocessed returns unprocessed items, newest capture first.
	ListUnprocessed(ctx context.Context) ([]inbox.Item, error)
	// ApplyActions materializes a batch of items and reports per-id outcomes.
	ApplyActions(ctx context.Context, req inbox.ApplyActionsRequest) (inbox.ApplyActionsResult, error)
	// Delete removes an item from the durable record.
	Delete(ctx context.Context, id uuid.UUID) error
	// ClearProcessed removes all processed items, returning how many.
	ClearProcessed(ctx context.Context) (int, error)
	// Summary recomputes aggregate counts from the durable record.
	Summary(ctx context.Context) (inbox.Summary, error)
}

// Classifier is the external AI service that suggests a destination action
// per item. It returns only the items it classified (with their stored
// classification attached); skipping items it cannot confidently classify
// is not an error.
type Classifier interface {
	Classify(ctx context.Context, items []inbox.Item) ([]inbox.Item, error)
}

// Pipeline owns the triage state for one window or session. All state is
// guarded by one mutex; the mutex is never held across a backend round-trip.
type Pipeline struct {
	backend    Backend
	classifier Classifier
	logger     *slog.Logger

	mu            sync.Mutex
	items         []inbox.Item // unprocessed items, newest capture first
	overrides     map[uuid.UUID]inbox.ClassificationAction
	selection     map[uuid.UUID]struct{}
	summary       inbox.Summary
	isClassifying bool
	isApplying    bool
	lastErr       error
}

// New creates a Pipeline over the given backend and classifier.
func New(backend Backend, classifier Classifier) *Pipeline {
	return &Pipeline{
		backend:    backend,
		classifier: classifier,
		logger:     slog.Default(),
		overrides:  make(map[uuid.UUID]inbox.ClassificationAction),
		selection:  make(map[uuid.UUID]struct{}),
	}
}

// Load replaces the item mirror with the backend's current unprocessed items
// and refreshes the summary. Called once at startup and whenever the caller
// wants to resynchronize with other writers.
func (p *Pipeline) Load(ctx context.Context) error {
	items, err := p.backend.ListUnprocessed(ctx)
	if err != nil {
		return p.fail(wrapBackend(err, "failed to load inbox items"))
	}

	p.mu.Lock()
	p.items = items
	p.mu.Unlock()

	_, _ = p.RefreshSummary(ctx)
	return nil
}

// Items returns a copy of the active item list, newest capture first.
func (p *Pipeline) Items() []inbox.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]inbox.Item, len(p.items))
	copy(out, p.items)
	return out
}

// ListAll fetches every inbox item from the backend, processed ones included.
// It does not touch the active mirror, which only tracks unprocessed items.
func (p *Pipeline) ListAll(ctx context.Context) ([]inbox.Item, error) {
	items, err := p.backend.List(ctx)
	if err != nil {
		return nil, p.fail(wrapBackend(err, "failed to list inbox items"))
	}
	return items, nil
}

// Summary returns the last refreshed summary.
func (p *Pipeline) Summary() inbox.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

// LastError returns the most recent backend/classifier failure. It is
// retained until superseded by a newer failure or cleared with ClearError;
// successful operations do not clear it.
func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// ClearError discards the retained error.
func (p *Pipeline) ClearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = nil
}

// Capture creates a new inbox item and prepends it to the active list.
// The summary refresh afterwards is best-effort: its failure is recorded but
// does not fail the capture.
func (p *Pipeline) Capture(ctx context.Context, title, content string, tags []string, source inbox.CaptureSource) (inbox.Item, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(title) == "" {
		return inbox.Item{}, &ValidationError{Field: "title", Message: "cannot be empty"}
	}

	item, err := p.backend.Capture(ctx, inbox.CaptureRequest{
		Title:   title,
		Content: content,
		Tags:    tags,
		Source:  &source,
	})
	if err != nil {
		return inbox.Item{}, p.fail(wrapBackend(err, "failed to capture item"))
	}

	p.mu.Lock()
	p.items = append([]inbox.Item{item}, p.items...)
	p.mu.Unlock()

	logger.InfoContext(ctx, "captured item", "item_id", item.ID, "title", item.Title)

	if _, err := p.RefreshSummary(ctx); err != nil {
		logger.WarnContext(ctx, "summary refresh after capture failed", "error", err)
	}
	return item, nil
}

// ClassifyAll requests classification for every currently unclassified item.
func (p *Pipeline) ClassifyAll(ctx context.Context) ([]inbox.Item, error) {
	return p.ClassifyItems(ctx)
}

// ClassifyItems requests classification for the given ids, or for all
// unclassified items when no ids are given. The merge is atomic at the batch
// level: either every returned item replaces its mirror entry, or (on
// failure) the mirror is left exactly as it was. Items absent from the
// response are left untouched; the classifier skipping an item is not an
// error. At most one classification batch may be in flight.
func (p *Pipeline) ClassifyItems(ctx context.Context, ids ...uuid.UUID) ([]inbox.Item, error) {
	logger := contextutil.LoggerFromContext(ctx)

	p.mu.Lock()
	if p.isClassifying {
		p.mu.Unlock()
		return nil, &BusyError{Op: "classification"}
	}
	p.isClassifying = true

	var candidates []inbox.Item
	if len(ids) == 0 {
		for _, item := range p.items {
			if item.Classification == nil {
				candidates = append(candidates, item)
			}
		}
	} else {
		want := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			want[id] = struct{}{}
		}
		for _, item := range p.items {
			if _, ok := want[item.ID]; ok {
				candidates = append(candidates, item)
			}
		}
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.isClassifying = false
		p.mu.Unlock()
	}()

	if len(candidates) == 0 {
		return nil, nil
	}

	classified, err := p.classifier.Classify(ctx, candidates)
	if err != nil {
		return nil, p.fail(wrapBackend(err, "classification failed"))
	}

	p.mu.Lock()
	byID := make(map[uuid.UUID]inbox.Item, len(classified))
	for _, item := range classified {
		byID[item.ID] = item
	}
	// Merge by id without reordering; anything not returned stays untouched.
	for i := range p.items {
		if updated, ok := byID[p.items[i].ID]; ok {
			p.items[i] = updated
		}
	}
	p.mu.Unlock()

	logger.InfoContext(ctx, "classification batch merged", "requested", len(candidates), "classified", len(classified))

	if _, err := p.RefreshSummary(ctx); err != nil {
		logger.WarnContext(ctx, "summary refresh after classify failed", "error", err)
	}
	return classified, nil
}

// SetOverride records a user-chosen action for an item, superseding whatever
// the classifier suggested. It does not touch the item's stored
// classification; overrides are consulted only at apply time.
func (p *Pipeline) SetOverride(id uuid.UUID, action inbox.ClassificationAction) error {
	if err := action.Validate(); err != nil {
		return &ValidationError{Field: "action", Message: err.Error()}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[id] = action
	return nil
}

// ClearOverride removes the override for one item.
func (p *Pipeline) ClearOverride(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.overrides, id)
}

// ClearAllOverrides removes every override.
func (p *Pipeline) ClearAllOverrides() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides = make(map[uuid.UUID]inbox.ClassificationAction)
}

// Override returns the override for an item, if any.
func (p *Pipeline) Override(id uuid.UUID) (inbox.ClassificationAction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	action, ok := p.overrides[id]
	return action, ok
}

// SelectItem adds an item to the selection set.
func (p *Pipeline) SelectItem(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selection[id] = struct{}{}
}

// DeselectItem removes an item from the selection set.
func (p *Pipeline) DeselectItem(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.selection, id)
}

// ToggleItem flips an item's membership in the selection set.
func (p *Pipeline) ToggleItem(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.selection[id]; ok {
		delete(p.selection, id)
	} else {
		p.selection[id] = struct{}{}
	}
}

// SelectAll selects every item currently in the active list.
func (p *Pipeline) SelectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range p.items {
		p.selection[item.ID] = struct{}{}
	}
}

// DeselectAll empties the selection set.
func (p *Pipeline) DeselectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selection = make(map[uuid.UUID]struct{})
}

// IsSelected reports whether an item is in the selection set.
func (p *Pipeline) IsSelected(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.selection[id]
	return ok
}

// SelectedIDs returns the selection in the active list's order.
func (p *Pipeline) SelectedIDs() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectedIDsLocked()
}

func (p *Pipeline) selectedIDsLocked() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.selection))
	for _, item := range p.items {
		if _, ok := p.selection[item.ID]; ok {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// ApplySelected applies the current selection.
func (p *Pipeline) ApplySelected(ctx context.Context) (inbox.ApplyActionsResult, error) {
	return p.ApplyActions(ctx)
}

// ApplyActions submits the given ids (or, with no ids, the current
// selection) to the backend with the overrides restricted to that scope,
// then reconciles the per-id outcome into the active list: exactly the ids
// the backend reports as succeeded are removed; failed ids stay for retry.
//
// A backend response that carries no succeeded-id list is reconciled
// conservatively: with no errors the whole scope is treated as succeeded,
// with errors nothing is removed and a PartialApplyError is retained.
//
// Once the precondition passes, overrides for the whole attempted scope and
// the entire selection set are cleared regardless of outcome — a failed
// override is discarded, not silently retried. At most one apply batch may
// be in flight.
func (p *Pipeline) ApplyActions(ctx context.Context, ids ...uuid.UUID) (inbox.ApplyActionsResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	p.mu.Lock()
	if p.isApplying {
		p.mu.Unlock()
		return inbox.ApplyActionsResult{}, &BusyError{Op: "apply"}
	}

	scope := ids
	if len(scope) == 0 {
		scope = p.selectedIDsLocked()
	}
	if len(scope) == 0 {
		p.mu.Unlock()
		return inbox.ApplyActionsResult{}, &NoSelectionError{}
	}

	p.isApplying = true
	var overrides []inbox.ActionOverride
	for _, id := range scope {
		if action, ok := p.overrides[id]; ok {
			overrides = append(overrides, inbox.ActionOverride{ItemID: id, Action: action})
		}
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.isApplying = false
		// The attempt is over: the whole attempted scope's overrides and the
		// entire selection are discarded, success or not.
		for _, id := range scope {
			delete(p.overrides, id)
		}
		p.selection = make(map[uuid.UUID]struct{})
		p.mu.Unlock()
	}()

	result, err := p.backend.ApplyActions(ctx, inbox.ApplyActionsRequest{
		ItemIDs:   scope,
		Overrides: overrides,
	})
	if err != nil {
		return inbox.ApplyActionsResult{}, p.fail(wrapBackend(err, "apply failed"))
	}

	succeeded := result.SucceededItemIDs
	if succeeded == nil {
		if len(result.Errors) == 0 {
			succeeded = scope
		} else {
			// No per-id outcome and at least one failure: we cannot tell
			// which ids succeeded, so none are removed.
			succeeded = nil
		}
	}

	p.mu.Lock()
	if len(succeeded) > 0 {
		done := make(map[uuid.UUID]struct{}, len(succeeded))
		for _, id := range succeeded {
			done[id] = struct{}{}
		}
		remaining := p.items[:0]
		for _, item := range p.items {
			if _, ok := done[item.ID]; !ok {
				remaining = append(remaining, item)
			}
		}
		p.items = remaining
	}
	if len(result.Errors) > 0 {
		p.lastErr = &PartialApplyError{Errors: result.Errors}
	}
	p.mu.Unlock()

	logger.InfoContext(ctx, "apply reconciled",
		"scope", len(scope),
		"removed", len(succeeded),
		"errors", len(result.Errors),
	)

	if _, err := p.RefreshSummary(ctx); err != nil {
		logger.WarnContext(ctx, "summary refresh after apply failed", "error", err)
	}
	return result, nil
}

// DeleteItem deletes one item: the backend call runs first and the local
// entry is removed only on confirmed success, so a failed delete leaves the
// item visible.
func (p *Pipeline) DeleteItem(ctx context.Context, id uuid.UUID) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.backend.Delete(ctx, id); err != nil {
		return p.fail(wrapBackend(err, "failed to delete item"))
	}

	p.mu.Lock()
	remaining := p.items[:0]
	for _, item := range p.items {
		if item.ID != id {
			remaining = append(remaining, item)
		}
	}
	p.items = remaining
	delete(p.overrides, id)
	delete(p.selection, id)
	p.mu.Unlock()

	if _, err := p.RefreshSummary(ctx); err != nil {
		logger.WarnContext(ctx, "summary refresh after delete failed", "error", err)
	}
	return nil
}

// DeleteSelected deletes every selected item, stopping at the first backend
// failure; items already deleted stay deleted.
func (p *Pipeline) DeleteSelected(ctx context.Context) error {
	for _, id := range p.SelectedIDs() {
		if err := p.DeleteItem(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ClearProcessed removes all processed items from the backend and refreshes
// the summary. The active list holds only unprocessed items, so it is
// unaffected.
func (p *Pipeline) ClearProcessed(ctx context.Context) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	n, err := p.backend.ClearProcessed(ctx)
	if err != nil {
		return 0, p.fail(wrapBackend(err, "failed to clear processed items"))
	}

	if _, err := p.RefreshSummary(ctx); err != nil {
		logger.WarnContext(ctx, "summary refresh after clear failed", "error", err)
	}
	return n, nil
}

// RefreshSummary re-queries the backend's aggregate counts. The summary is
// never derived from the local mirror: other writers may have mutated the
// backend since the last operation.
func (p *Pipeline) RefreshSummary(ctx context.Context) (inbox.Summary, error) {
	summary, err := p.backend.Summary(ctx)
	if err != nil {
		return inbox.Summary{}, p.fail(wrapBackend(err, "failed to refresh summary"))
	}

	p.mu.Lock()
	p.summary = summary
	p.mu.Unlock()
	return summary, nil
}

// fail records err as the retained error and returns it.
func (p *Pipeline) fail(err error) error {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	return err
}
