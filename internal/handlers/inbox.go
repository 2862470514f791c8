package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/erewhon/nous-sub005/internal/contextutil"
	"github.com/erewhon/nous-sub005/internal/inbox"
	"github.com/erewhon/nous-sub005/internal/pipeline"
)

// InboxHandler handles HTTP requests for the inbox triage pipeline.
type InboxHandler struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// NewInboxHandler creates a new InboxHandler.
func NewInboxHandler(p *pipeline.Pipeline) *InboxHandler {
	return &InboxHandler{
		pipeline: p,
		logger:   slog.Default(),
	}
}

// CaptureRequest represents the HTTP request payload for capture.
type CaptureRequest struct {
	Title   string               `json:"title"`
	Content string               `json:"content"`
	Tags    []string             `json:"tags,omitempty"`
	Source  *inbox.CaptureSource `json:"source,omitempty"`
}

// ClassifyRequest represents the HTTP request payload for classification.
// With no item ids, every unclassified item is classified.
type ClassifyRequest struct {
	ItemIDs []uuid.UUID `json:"itemIds,omitempty"`
}

// OverrideRequest represents the HTTP request payload for setting an override.
type OverrideRequest struct {
	ItemID uuid.UUID                  `json:"itemId"`
	Action inbox.ClassificationAction `json:"action"`
}

// SelectionRequest represents the HTTP request payload for selection changes.
type SelectionRequest struct {
	Op     string    `json:"op"`
	ItemID uuid.UUID `json:"itemId,omitempty"`
}

// SelectionResponse returns the selection after a change, in list order.
type SelectionResponse struct {
	SelectedIDs []uuid.UUID `json:"selectedIds"`
}

// ApplyRequest represents the HTTP request payload for apply. With no item
// ids, the current selection is applied.
type ApplyRequest struct {
	ItemIDs []uuid.UUID `json:"itemIds,omitempty"`
}

// ClearProcessedResponse reports how many processed items were removed.
type ClearProcessedResponse struct {
	Cleared int `json:"cleared"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Capture handles POST /api/inbox/capture.
func (h *InboxHandler) Capture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	source := inbox.QuickCapture()
	if req.Source != nil {
		source = *req.Source
	}

	item, err := h.pipeline.Capture(ctx, req.Title, req.Content, req.Tags, source)
	if err != nil {
		h.handlePipelineError(w, ctx, err, "Failed to capture item")
		return
	}

	h.writeJSON(w, ctx, http.StatusCreated, item)
}

// ListItems handles GET /api/inbox/items.
func (h *InboxHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.pipeline.ListAll(ctx)
	if err != nil {
		h.handlePipelineError(w, ctx, err, "Failed to list items")
		return
	}
	if items == nil {
		items = []inbox.Item{}
	}

	h.writeJSON(w, ctx, http.StatusOK, items)
}

// ListUnprocessed handles GET /api/inbox/items/unprocessed. It serves the
// pipeline's active mirror rather than querying the backend.
func (h *InboxHandler) ListUnprocessed(w http.ResponseWriter, r *http.Request) {
	items := h.pipeline.Items()
	if items == nil {
		items = []inbox.Item{}
	}
	h.writeJSON(w, r.Context(), http.StatusOK, items)
}

// Classify handles POST /api/inbox/classify.
func (h *InboxHandler) Classify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An empty body means classify every unclassified item.
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	classified, err := h.pipeline.ClassifyItems(ctx, req.ItemIDs...)
	if err != nil {
		h.handlePipelineError(w, ctx, err, "Failed to classify items")
		return
	}
	if classified == nil {
		classified = []inbox.Item{}
	}

	h.writeJSON(w, ctx, http.StatusOK, classified)
}

// SetOverride handles POST /api/inbox/overrides.
func (h *InboxHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ItemID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "itemId is required")
		return
	}

	if err := h.pipeline.SetOverride(req.ItemID, req.Action); err != nil {
		h.handlePipelineError(w, ctx, err, "Failed to set override")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearOverride handles DELETE /api/inbox/overrides/{id}.
func (h *InboxHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid item id")
		return
	}

	h.pipeline.ClearOverride(id)
	w.WriteHeader(http.StatusNoContent)
}

// ClearAllOverrides handles DELETE /api/inbox/overrides.
func (h *InboxHandler) ClearAllOverrides(w http.ResponseWriter, r *http.Request) {
	h.pipeline.ClearAllOverrides()
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSelection handles POST /api/inbox/selection.
func (h *InboxHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch req.Op {
	case "select":
		if req.ItemID == uuid.Nil {
			h.writeError(w, http.StatusBadRequest, "itemId is required for select")
			return
		}
		h.pipeline.SelectItem(req.ItemID)
	case "deselect":
		if req.ItemID == uuid.Nil {
			h.writeError(w, http.StatusBadRequest, "itemId is required for deselect")
			return
		}
		h.pipeline.DeselectItem(req.ItemID)
	case "toggle":
		if req.ItemID == uuid.Nil {
			h.writeError(w, http.StatusBadRequest, "itemId is required for toggle")
			return
		}
		h.pipeline.ToggleItem(req.ItemID)
	case "selectAll":
		h.pipeline.SelectAll()
	case "deselectAll":
		h.pipeline.DeselectAll()
	default:
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown selection op %q", req.Op))
		return
	}

	h.writeJSON(w, ctx, http.StatusOK, SelectionResponse{SelectedIDs: h.selectedIDs()})
}

// GetSelection handles GET /api/inbox/selection.
func (h *InboxHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r.Context(), http.StatusOK, SelectionResponse{SelectedIDs: h.selectedIDs()})
}

func (h *InboxHandler) selectedIDs() []uuid.UUID {
	ids := h.pipeline.SelectedIDs()
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids
}

// Apply handles POST /api/inbox/apply. A partial failure is still a 200: the
// per-item diagnostics travel in the result's errors field.
func (h *InboxHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An empty body means apply the current selection.
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.pipeline.ApplyActions(ctx, req.ItemIDs...)
	if err != nil {
		h.handlePipelineError(w, ctx, err, "Failed to apply actions")
		return
	}

	h.writeJSON(w, ctx, http.StatusOK, result)
}

// DeleteItem handles DELETE /api/inbox/items/{id}.
func (h *InboxHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid item id")
		return
	}

	if err := h.pipeline.DeleteItem(ctx, id); err != nil {
		h.handlePipelineError(w, ctx, err, "Failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearProcessed handles POST /api/inbox/clear-processed.
func (h *InboxHandler) ClearProcessed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.pipeline.ClearProcessed(ctx)
	if err != nil {
		h.handlePipelineError(w, ctx, err, "Failed to clear processed items")
		return
	}

	h.writeJSON(w, ctx, http.StatusOK, ClearProcessedResponse{Cleared: n})
}

// GetSummary handles GET /api/inbox/summary.
func (h *InboxHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.pipeline.RefreshSummary(ctx)
	if err != nil {
		h.handlePipelineError(w, ctx, err, "Failed to compute summary")
		return
	}

	h.writeJSON(w, ctx, http.StatusOK, summary)
}

// handlePipelineError maps pipeline errors to HTTP status codes.
func (h *InboxHandler) handlePipelineError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "pipeline error", "error", err)

	var validationErr *pipeline.ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	var noSelection *pipeline.NoSelectionError
	if errors.As(err, &noSelection) {
		h.writeError(w, http.StatusBadRequest, noSelection.Error())
		return
	}

	var busy *pipeline.BusyError
	if errors.As(err, &busy) {
		h.writeError(w, http.StatusConflict, busy.Error())
		return
	}

	if errors.Is(err, pipeline.ErrBackend) {
		h.writeError(w, http.StatusBadGateway, "Backend service error")
		return
	}

	h.writeError(w, http.StatusInternalServerError, defaultMsg)
}

func (h *InboxHandler) writeJSON(w http.ResponseWriter, ctx context.Context, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func (h *InboxHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
