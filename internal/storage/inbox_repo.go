package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erewhon/nous-sub005/internal/inbox"
)

// InboxStore defines the interface for inbox item storage operations.
type InboxStore interface {
	// Get gets an inbox item by id. Returns nil and ErrNotFound if not found.
	Get(ctx context.Context, id uuid.UUID) (*inbox.Item, error)
	// List returns all inbox items, newest capture first.
	List(ctx context.Context) ([]inbox.Item, error)
	// ListUnprocessed returns unprocessed items, newest capture first.
	ListUnprocessed(ctx context.Context) ([]inbox.Item, error)
	// ListUnclassified returns unprocessed items with no classification,
	// newest capture first.
	ListUnclassified(ctx context.Context) ([]inbox.Item, error)
	// Insert stores a new inbox item.
	Insert(ctx context.Context, item *inbox.Item) error
	// SetClassification stores a classification on an item and returns the
	// updated item.
	SetClassification(ctx context.Context, id uuid.UUID, c inbox.Classification) (*inbox.Item, error)
	// MarkProcessed flags an item as processed.
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	// Delete removes an item. Deleting a missing item is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	// ClearProcessed removes all processed items and returns how many were
	// removed.
	ClearProcessed(ctx context.Context) (int, error)
	// Summary computes aggregate counts over all items.
	Summary(ctx context.Context) (inbox.Summary, error)
}

// InboxRepo provides methods for inbox item operations.
// It implements the InboxStore interface.
type InboxRepo struct {
	db *sql.DB
}

// NewInboxRepo creates a new InboxRepo.
func NewInboxRepo(db *sql.DB) *InboxRepo {
	return &InboxRepo{db: db}
}

const itemColumns = "id, title, content, tags, captured_at, source, classification, is_processed"

// Get gets an inbox item by id. Returns nil and ErrNotFound if not found.
func (r *InboxRepo) Get(ctx context.Context, id uuid.UUID) (*inbox.Item, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM inbox_items WHERE id = ?", id.String(),
	)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox item: %w", err)
	}
	return item, nil
}

// List returns all inbox items, newest capture first.
func (r *InboxRepo) List(ctx context.Context) ([]inbox.Item, error) {
	return r.list(ctx, "SELECT "+itemColumns+" FROM inbox_items ORDER BY captured_at DESC")
}

// ListUnprocessed returns unprocessed items, newest capture first.
func (r *InboxRepo) ListUnprocessed(ctx context.Context) ([]inbox.Item, error) {
	return r.list(ctx, "SELECT "+itemColumns+" FROM inbox_items WHERE is_processed = 0 ORDER BY captured_at DESC")
}

// ListUnclassified returns unprocessed items with no classification,
// newest capture first.
func (r *InboxRepo) ListUnclassified(ctx context.Context) ([]inbox.Item, error) {
	return r.list(ctx, "SELECT "+itemColumns+" FROM inbox_items WHERE is_processed = 0 AND classification IS NULL ORDER BY captured_at DESC")
}

func (r *InboxRepo) list(ctx context.Context, query string) ([]inbox.Item, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox items: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []inbox.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inbox item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inbox items: %w", err)
	}

	return items, nil
}

// Insert stores a new inbox item.
func (r *InboxRepo) Insert(ctx context.Context, item *inbox.Item) error {
	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal item tags: %w", err)
	}
	sourceJSON, err := json.Marshal(item.Source)
	if err != nil {
		return fmt.Errorf("failed to marshal item source: %w", err)
	}

	var classificationJSON any
	if item.Classification != nil {
		raw, err := json.Marshal(item.Classification)
		if err != nil {
			return fmt.Errorf("failed to marshal classification: %w", err)
		}
		classificationJSON = string(raw)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO inbox_items (id, title, content, tags, captured_at, source, classification, is_processed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID.String(), item.Title, item.Content, string(tagsJSON),
		item.CapturedAt.UTC().Format(time.RFC3339Nano), string(sourceJSON),
		classificationJSON, item.IsProcessed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert inbox item: %w", err)
	}
	return nil
}

// SetClassification stores a classification on an item and returns the
// updated item.
func (r *InboxRepo) SetClassification(ctx context.Context, id uuid.UUID, c inbox.Classification) (*inbox.Item, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classification: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE inbox_items SET classification = ? WHERE id = ?",
		string(raw), id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update classification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return r.Get(ctx, id)
}

// MarkProcessed flags an item as processed.
func (r *InboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE inbox_items SET is_processed = 1 WHERE id = ?", id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark item processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an item. Deleting a missing item is not an error.
func (r *InboxRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM inbox_items WHERE id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete inbox item: %w", err)
	}
	return nil
}

// ClearProcessed removes all processed items and returns how many were
// removed.
func (r *InboxRepo) ClearProcessed(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM inbox_items WHERE is_processed = 1")
	if err != nil {
		return 0, fmt.Errorf("failed to clear processed items: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	return int(affected), nil
}

// Summary computes aggregate counts over all items.
func (r *InboxRepo) Summary(ctx context.Context) (inbox.Summary, error) {
	var s inbox.Summary
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_processed = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_processed = 0 AND classification IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_processed = 0 AND classification IS NOT NULL THEN 1 ELSE 0 END), 0)
		 FROM inbox_items`,
	).Scan(&s.TotalCount, &s.UnprocessedCount, &s.UnclassifiedCount, &s.ClassifiedCount)
	if err != nil {
		return inbox.Summary{}, fmt.Errorf("failed to compute inbox summary: %w", err)
	}
	return s, nil
}

func scanItem(s scanner) (*inbox.Item, error) {
	var item inbox.Item
	var idStr, tagsJSON, capturedStr, sourceJSON string
	var classificationJSON sql.NullString

	if err := s.Scan(&idStr, &item.Title, &item.Content, &tagsJSON, &capturedStr, &sourceJSON, &classificationJSON, &item.IsProcessed); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid inbox item id %q: %w", idStr, err)
	}
	item.ID = id

	if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item tags: %w", err)
	}
	if err := json.Unmarshal([]byte(sourceJSON), &item.Source); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item source: %w", err)
	}
	if classificationJSON.Valid {
		var c inbox.Classification
		if err := json.Unmarshal([]byte(classificationJSON.String), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal classification: %w", err)
		}
		item.Classification = &c
	}

	item.CapturedAt, err = time.Parse(time.RFC3339Nano, capturedStr)
	if err != nil {
		if item.CapturedAt, err = parseTimestamp(capturedStr); err != nil {
			return nil, fmt.Errorf("failed to parse captured_at timestamp: %w", err)
		}
	}

	return &item, nil
}
