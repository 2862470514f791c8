package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// NotebookStore defines the interface for notebook storage operations.
type NotebookStore interface {
	// Get gets a notebook by id. Returns nil and ErrNotFound if not found.
	Get(ctx context.Context, id uuid.UUID) (*NotebookRecord, error)
	// List returns all notebooks ordered by name.
	List(ctx context.Context) ([]NotebookRecord, error)
	// Create inserts a new notebook.
	Create(ctx context.Context, nb *NotebookRecord) error
	// Update updates a notebook's name, icon, and color.
	Update(ctx context.Context, nb *NotebookRecord) error
}

// NotebookRepo provides methods for notebook operations.
// It implements the NotebookStore interface.
type NotebookRepo struct {
	db *sql.DB
}

// NewNotebookRepo creates a new NotebookRepo.
func NewNotebookRepo(db *sql.DB) *NotebookRepo {
	return &NotebookRepo{db: db}
}

// Get gets a notebook by id. Returns nil and ErrNotFound if not found.
func (r *NotebookRepo) Get(ctx context.Context, id uuid.UUID) (*NotebookRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, type, COALESCE(icon, ''), COALESCE(color, ''), created_at, updated_at FROM notebooks WHERE id = ?",
		id.String(),
	)

	nb, err := scanNotebook(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query notebook: %w", err)
	}
	return nb, nil
}

// List returns all notebooks ordered by name.
func (r *NotebookRepo) List(ctx context.Context) ([]NotebookRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, type, COALESCE(icon, ''), COALESCE(color, ''), created_at, updated_at FROM notebooks ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notebooks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var notebooks []NotebookRecord
	for rows.Next() {
		nb, err := scanNotebook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notebook: %w", err)
		}
		notebooks = append(notebooks, *nb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notebooks: %w", err)
	}

	return notebooks, nil
}

// Create inserts a new notebook. Generates an id if one is not set.
func (r *NotebookRepo) Create(ctx context.Context, nb *NotebookRecord) error {
	if nb.ID == uuid.Nil {
		nb.ID = uuid.New()
	}
	if nb.Type == "" {
		nb.Type = "standard"
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notebooks (id, name, type, icon, color, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		nb.ID.String(), nb.Name, nb.Type, nb.Icon, nb.Color,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notebook: %w", err)
	}
	return nil
}

// Update updates a notebook's name, icon, and color.
func (r *NotebookRepo) Update(ctx context.Context, nb *NotebookRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notebooks SET name = ?, icon = ?, color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		nb.Name, nb.Icon, nb.Color, nb.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update notebook: %w", err)
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

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanNotebook(s scanner) (*NotebookRecord, error) {
	var nb NotebookRecord
	var idStr, createdStr, updatedStr string

	if err := s.Scan(&idStr, &nb.Name, &nb.Type, &nb.Icon, &nb.Color, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid notebook id %q: %w", idStr, err)
	}
	nb.ID = id

	if nb.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	if nb.UpdatedAt, err = parseTimestamp(updatedStr); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}

	return &nb, nil
}
