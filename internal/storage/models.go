package storage

import (
	"time"

	"github.com/google/uuid"
)

// NotebookRecord represents a notebook row in the database.
type NotebookRecord struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Icon      string    `json:"icon,omitempty"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EditorBlock is a single block of page content in the editor's block format.
type EditorBlock struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// EditorData is the block-structured content of a page.
type EditorData struct {
	Time    int64         `json:"time,omitempty"`
	Version string        `json:"version,omitempty"`
	Blocks  []EditorBlock `json:"blocks"`
}

// PageRecord represents a page row in the database. Content and Tags are
// stored as JSON columns.
type PageRecord struct {
	ID         uuid.UUID  `json:"id"`
	NotebookID uuid.UUID  `json:"notebookId"`
	Title      string     `json:"title"`
	Content    EditorData `json:"content"`
	Tags       []string   `json:"tags"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// parseTimestamp parses the DATETIME strings SQLite hands back, which vary
// between the default format and RFC3339 depending on how the value was set.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
