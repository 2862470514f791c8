// Package watcher captures files dropped into a watched directory as inbox
// items. Markdown and plain-text files are read, captured through the
// pipeline, and removed from the directory once the capture is confirmed.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/erewhon/nous-sub005/internal/inbox"
)

// Capturer is the part of the pipeline the watcher needs.
type Capturer interface {
	Capture(ctx context.Context, title, content string, tags []string, source inbox.CaptureSource) (inbox.Item, error)
}

// Watcher ingests dropped files from one directory.
type Watcher struct {
	dir      string
	capturer Capturer
	logger   *slog.Logger

	// Editors fire several events per save; each path gets one timer that is
	// pushed back until the writes settle.
	debounce time.Duration
	mu       sync.Mutex
	timers   map[string]*time.Timer
}

// New creates a Watcher over dir. The directory must exist.
func New(dir string, capturer Capturer) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", dir)
	}

	return &Watcher{
		dir:      dir,
		capturer: capturer,
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Run watches the directory until ctx is cancelled. Files already present at
// startup are ingested first so a drop made while the service was down is not
// lost.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		_ = fw.Close()
	}()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.ingestExisting(ctx)

	w.logger.InfoContext(ctx, "watching drop folder", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !capturableFile(event.Name) {
				continue
			}
			w.scheduleIngest(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "watch error", "error", err)
		}
	}
}

// scheduleIngest (re)arms the debounce timer for a path.
func (w *Watcher) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		w.ingest(ctx, path)
	})
}

func (w *Watcher) ingestExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.WarnContext(ctx, "failed to scan drop folder", "dir", w.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !capturableFile(entry.Name()) {
			continue
		}
		w.ingest(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

// ingest captures one dropped file and removes it. The file is only removed
// after the capture is stored, so a failed capture leaves it for retry.
func (w *Watcher) ingest(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		w.logger.WarnContext(ctx, "failed to read dropped file", "path", path, "error", err)
		return
	}

	title := titleFromPath(path)
	_, err = w.capturer.Capture(ctx, title, string(data), nil, inbox.ImportSource(formatFromPath(path)))
	if err != nil {
		w.logger.WarnContext(ctx, "failed to capture dropped file", "path", path, "error", err)
		return
	}

	if err := os.Remove(path); err != nil {
		w.logger.WarnContext(ctx, "failed to remove ingested file", "path", path, "error", err)
		return
	}

	w.logger.InfoContext(ctx, "ingested dropped file", "path", path, "title", title)
}

func capturableFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		return true
	}
	return false
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func formatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".md") {
		return "markdown"
	}
	return "text"
}
