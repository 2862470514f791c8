package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/erewhon/nous-sub005/internal/inbox"
	"github.com/erewhon/nous-sub005/internal/pipeline"
	"github.com/erewhon/nous-sub005/internal/service"
	"github.com/erewhon/nous-sub005/internal/storage"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// noopClassifier satisfies the pipeline's classifier dependency for routing
// tests that never reach classification.
type noopClassifier struct{}

func (noopClassifier) Classify(_ context.Context, _ []inbox.Item) ([]inbox.Item, error) {
	return nil, nil
}

func newTestDeps(t *testing.T) *Deps {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	svc := service.NewInboxService(
		storage.NewInboxRepo(db),
		storage.NewNotebookRepo(db),
		storage.NewPageRepo(db),
	)
	return &Deps{
		Pipeline: pipeline.New(svc, noopClassifier{}),
		DB:       db,
	}
}

func TestNewRouter(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "GET /api/health",
			method:     http.MethodGet,
			path:       "/api/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/inbox/capture rejects empty title",
			method:     http.MethodPost,
			path:       "/api/inbox/capture",
			body:       `{"title":"","content":"x"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "POST /api/inbox/capture",
			method:     http.MethodPost,
			path:       "/api/inbox/capture",
			body:       `{"title":"Buy milk","content":"2%"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "GET /api/inbox/items",
			method:     http.MethodGet,
			path:       "/api/inbox/items",
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET /api/inbox/items/unprocessed",
			method:     http.MethodGet,
			path:       "/api/inbox/items/unprocessed",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/inbox/apply with nothing selected",
			method:     http.MethodPost,
			path:       "/api/inbox/apply",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "DELETE /api/inbox/items with bad id",
			method:     http.MethodDelete,
			path:       "/api/inbox/items/not-a-uuid",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "POST /api/inbox/clear-processed",
			method:     http.MethodPost,
			path:       "/api/inbox/clear-processed",
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET /api/inbox/summary",
			method:     http.MethodGet,
			path:       "/api/inbox/summary",
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET /api/inbox/selection",
			method:     http.MethodGet,
			path:       "/api/inbox/selection",
			wantStatus: http.StatusOK,
		},
		{
			name:       "DELETE /api/inbox/overrides",
			method:     http.MethodDelete,
			path:       "/api/inbox/overrides",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "GET /api/inbox/capture method not allowed",
			method:     http.MethodGet,
			path:       "/api/inbox/capture",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = bytes.NewBufferString(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v (body %s)", tt.method, tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRouter_CaptureThenSummary(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	req := httptest.NewRequest(http.MethodPost, "/api/inbox/capture",
		bytes.NewBufferString(`{"title":"Buy milk","content":"2%","tags":["errand"]}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("capture status = %v, body %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/inbox/summary", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %v", w.Code)
	}

	var summary inbox.Summary
	if err := json.NewDecoder(w.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalCount != 1 || summary.UnclassifiedCount != 1 {
		t.Errorf("summary = %+v, want one unclassified item", summary)
	}
}

func TestRouter_HealthReportsDatabaseDown(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps)

	// Closing the pool makes the ping fail
	_ = deps.DB.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %v, want %v", w.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/api/inbox/items", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}
