package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/erewhon/nous-sub005/internal/handlers"
	"github.com/erewhon/nous-sub005/internal/pipeline"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Pipeline *pipeline.Pipeline
	DB       *sql.DB
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	inboxHandler := handlers.NewInboxHandler(deps.Pipeline)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/inbox", func(r chi.Router) {
			r.Post("/capture", inboxHandler.Capture)
			r.Get("/items", inboxHandler.ListItems)
			r.Get("/items/unprocessed", inboxHandler.ListUnprocessed)
			r.Delete("/items/{id}", inboxHandler.DeleteItem)
			r.Post("/classify", inboxHandler.Classify)
			r.Post("/overrides", inboxHandler.SetOverride)
			r.Delete("/overrides/{id}", inboxHandler.ClearOverride)
			r.Delete("/overrides", inboxHandler.ClearAllOverrides)
			r.Get("/selection", inboxHandler.GetSelection)
			r.Post("/selection", inboxHandler.UpdateSelection)
			r.Post("/apply", inboxHandler.Apply)
			r.Post("/clear-processed", inboxHandler.ClearProcessed)
			r.Get("/summary", inboxHandler.GetSummary)
		})
	})

	return r
}
