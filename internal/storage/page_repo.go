package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PageStore defines the interface for page storage operations.
type PageStore interface {
	// Get gets a page by notebook id and page id.
	// Returns nil and ErrNotFound if not found.
	Get(ctx context.Context, notebookID, pageID uuid.UUID) (*PageRecord, error)
	// ListByNotebook returns the pages in a notebook, newest first.
	ListByNotebook(ctx context.Context, notebookID uuid.UUID) ([]PageRecord, error)
	// ListRecent returns the most recently updated pages across all notebooks.
	ListRecent(ctx context.Context, limit int) ([]PageRecord, error)
	// Create inserts a new page with empty content.
	Create(ctx context.Context, page *PageRecord) error
	// Update updates a page's title, content, and tags.
	Update(ctx context.Context, page *PageRecord) error
}

// PageRepo provides methods for page operations.
// It implements the PageStore interface.
type PageRepo struct {
	db *sql.DB
}

// NewPageRepo creates a new PageRepo.
func NewPageRepo(db *sql.DB) *PageRepo {
	return &PageRepo{db: db}
}

// Get gets a page by notebook id and page id.
// Returns nil and ErrNotFound if not found.
func (r *PageRepo) Get(ctx context.Context, notebookID, pageID uuid.UUID) (*PageRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, notebook_id, title, content, tags, created_at, updated_at FROM pages WHERE notebook_id = ? AND id = ?",
		notebookID.String(), pageID.String(),
	)

	page, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}
	return page, nil
}

// ListByNotebook returns the pages in a notebook, newest first.
func (r *PageRepo) ListByNotebook(ctx context.Context, notebookID uuid.UUID) ([]PageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, notebook_id, title, content, tags, created_at, updated_at FROM pages WHERE notebook_id = ? ORDER BY updated_at DESC",
		notebookID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectPages(rows)
}

// ListRecent returns the most recently updated pages across all notebooks.
func (r *PageRepo) ListRecent(ctx context.Context, limit int) ([]PageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, notebook_id, title, content, tags, created_at, updated_at FROM pages ORDER BY updated_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent pages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectPages(rows)
}

// Create inserts a new page. Generates an id if one is not set.
func (r *PageRepo) Create(ctx context.Context, page *PageRecord) error {
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	if page.Tags == nil {
		page.Tags = []string{}
	}

	contentJSON, err := json.Marshal(page.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal page content: %w", err)
	}
	tagsJSON, err := json.Marshal(page.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal page tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO pages (id, notebook_id, title, content, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		page.ID.String(), page.NotebookID.String(), page.Title, string(contentJSON), string(tagsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

// Update updates a page's title, content, and tags.
func (r *PageRepo) Update(ctx context.Context, page *PageRecord) error {
	contentJSON, err := json.Marshal(page.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal page content: %w", err)
	}
	tagsJSON, err := json.Marshal(page.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal page tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE pages SET title = ?, content = ?, tags = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		page.Title, string(contentJSON), string(tagsJSON), page.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
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

func collectPages(rows *sql.Rows) ([]PageRecord, error) {
	var pages []PageRecord
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}
	return pages, nil
}

func scanPage(s scanner) (*PageRecord, error) {
	var page PageRecord
	var idStr, notebookStr, contentJSON, tagsJSON, createdStr, updatedStr string

	if err := s.Scan(&idStr, &notebookStr, &page.Title, &contentJSON, &tagsJSON, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid page id %q: %w", idStr, err)
	}
	page.ID = id

	notebookID, err := uuid.Parse(notebookStr)
	if err != nil {
		return nil, fmt.Errorf("invalid notebook id %q: %w", notebookStr, err)
	}
	page.NotebookID = notebookID

	if err := json.Unmarshal([]byte(contentJSON), &page.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page content: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &page.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page tags: %w", err)
	}

	if page.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	if page.UpdatedAt, err = parseTimestamp(updatedStr); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}

	return &page, nil
}
