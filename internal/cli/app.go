package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/erewhon/nous-sub005/internal/classifier"
	"github.com/erewhon/nous-sub005/internal/config"
	"github.com/erewhon/nous-sub005/internal/inbox"
	"github.com/erewhon/nous-sub005/internal/pipeline"
	"github.com/erewhon/nous-sub005/internal/service"
	"github.com/erewhon/nous-sub005/internal/storage"
)

// app bundles the wired-up dependencies behind every command.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	pipeline *pipeline.Pipeline
}

// newApp loads configuration, opens the database, and assembles the pipeline
// with its mirror already loaded.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	items := storage.NewInboxRepo(db)
	notebooks := storage.NewNotebookRepo(db)
	pages := storage.NewPageRepo(db)

	svc := service.NewInboxService(items, notebooks, pages)

	// The provider client is built on first use so commands that never
	// classify (list, delete, summary) run without an API key configured.
	cls := &lazyClassifier{build: func() (pipeline.Classifier, error) {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
		return classifier.New(classifier.Config{
			Provider: cfg.LLMProvider,
			Model:    cfg.LLMModel,
			APIKey:   cfg.LLMAPIKey,
			BaseURL:  cfg.LLMBaseURL,
		}, notebooks, pages, items)
	}}

	p := pipeline.New(svc, cls)
	if err := p.Load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load inbox: %w", err)
	}

	return &app{cfg: cfg, db: db, pipeline: p}, nil
}

func (a *app) close() {
	_ = a.db.Close()
}

// lazyClassifier defers provider construction until the first classify call.
type lazyClassifier struct {
	build func() (pipeline.Classifier, error)

	once sync.Once
	cls  pipeline.Classifier
	err  error
}

func (l *lazyClassifier) Classify(ctx context.Context, items []inbox.Item) ([]inbox.Item, error) {
	l.once.Do(func() {
		l.cls, l.err = l.build()
	})
	if l.err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", l.err)
	}
	return l.cls.Classify(ctx, items)
}
