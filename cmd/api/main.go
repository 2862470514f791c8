package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"github.com/erewhon/nous-sub005/internal/classifier"
	"github.com/erewhon/nous-sub005/internal/config"
	"github.com/erewhon/nous-sub005/internal/http"
	"github.com/erewhon/nous-sub005/internal/pipeline"
	"github.com/erewhon/nous-sub005/internal/service"
	"github.com/erewhon/nous-sub005/internal/storage"
	"github.com/erewhon/nous-sub005/internal/watcher"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.SlogLevel().String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	inboxRepo := storage.NewInboxRepo(db)
	notebookRepo := storage.NewNotebookRepo(db)
	pageRepo := storage.NewPageRepo(db)

	svc := service.NewInboxService(inboxRepo, notebookRepo, pageRepo)

	// The server exposes classify as a first-class route, so a missing key
	// is a startup error rather than a deferred one.
	if err := cfg.RequireAPIKey(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create classifier (external LLM layer)
	cls, err := classifier.New(classifier.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
	}, notebookRepo, pageRepo, inboxRepo)
	if err != nil {
		log.Fatalf("Failed to create classifier: %v", err)
	}

	ctx := context.Background()

	// Assemble the triage pipeline and load the unprocessed mirror
	p := pipeline.New(svc, cls)
	if err := p.Load(ctx); err != nil {
		log.Fatalf("Failed to load inbox: %v", err)
	}
	slog.Info("Inbox pipeline initialized", "items", len(p.Items()))

	// Create router with dependencies
	deps := &http.Deps{
		Pipeline: p,
		DB:       db,
	}
	router := http.NewRouter(deps)

	// Watch a drop directory for capture files when configured
	if cfg.WatchDir != "" {
		w, err := watcher.New(cfg.WatchDir, p)
		if err != nil {
			log.Fatalf("Failed to create watcher: %v", err)
		}
		go func() {
			slog.Info("Watching for capture files", "dir", cfg.WatchDir)
			if err := w.Run(ctx); err != nil {
				slog.Error("Watcher stopped", "error", err)
			}
		}()
	}

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
