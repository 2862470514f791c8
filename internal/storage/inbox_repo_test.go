package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/erewhon/nous-sub005/internal/inbox"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func captureTestItem(t *testing.T, repo *InboxRepo, title string, capturedAt time.Time) inbox.Item {
	t.Helper()

	item := inbox.NewItem(title, "content of "+title, []string{"test"}, inbox.QuickCapture())
	item.CapturedAt = capturedAt
	if err := repo.Insert(context.Background(), &item); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return item
}

func TestInboxRepo_InsertAndGet(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))
	ctx := context.Background()

	item := inbox.NewItem("Buy milk", "2% milk from the store", []string{"errand"}, inbox.EmailSource("me@example.com"))
	if err := repo.Insert(ctx, &item); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.Title != "Buy milk" {
		t.Errorf("Get() title = %q, want %q", got.Title, "Buy milk")
	}
	if got.Source.Type != inbox.SourceEmail || got.Source.From != "me@example.com" {
		t.Errorf("Get() source = %+v, want email from me@example.com", got.Source)
	}
	if got.Classification != nil {
		t.Errorf("Get() classification = %+v, want nil", got.Classification)
	}
	if got.IsProcessed {
		t.Error("Get() IsProcessed = true, want false")
	}
	if !got.CapturedAt.Equal(item.CapturedAt) {
		t.Errorf("Get() capturedAt = %v, want %v", got.CapturedAt, item.CapturedAt)
	}
}

func TestInboxRepo_Get_NotFound(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))

	_, err := repo.Get(context.Background(), uuid.New())
	if err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestInboxRepo_List_NewestFirst(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	old := captureTestItem(t, repo, "old", base.Add(-2*time.Hour))
	mid := captureTestItem(t, repo, "mid", base.Add(-1*time.Hour))
	newest := captureTestItem(t, repo, "new", base)

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("List() returned %d items, want 3", len(items))
	}

	wantOrder := []uuid.UUID{newest.ID, mid.ID, old.ID}
	for i, want := range wantOrder {
		if items[i].ID != want {
			t.Errorf("List()[%d].ID = %v, want %v", i, items[i].ID, want)
		}
	}
}

func TestInboxRepo_ListUnclassified(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))
	ctx := context.Background()

	classified := captureTestItem(t, repo, "classified", time.Now().UTC())
	unclassified := captureTestItem(t, repo, "unclassified", time.Now().UTC())

	_, err := repo.SetClassification(ctx, classified.ID, inbox.Classification{
		Action:       inbox.KeepInInbox("unclear"),
		Confidence:   0.4,
		Reasoning:    "not enough context",
		ClassifiedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SetClassification() error = %v", err)
	}

	items, err := repo.ListUnclassified(ctx)
	if err != nil {
		t.Fatalf("ListUnclassified() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != unclassified.ID {
		t.Errorf("ListUnclassified() = %v, want only %v", items, unclassified.ID)
	}
}

func TestInboxRepo_SetClassification(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))
	ctx := context.Background()

	item := captureTestItem(t, repo, "note", time.Now().UTC())
	notebookID := uuid.New()

	updated, err := repo.SetClassification(ctx, item.ID, inbox.Classification{
		Action:       inbox.CreatePage(notebookID, "Projects", "A note", []string{"go"}),
		Confidence:   0.92,
		Reasoning:    "matches the projects notebook",
		ClassifiedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SetClassification() error = %v", err)
	}

	if updated.Classification == nil {
		t.Fatal("SetClassification() returned item without classification")
	}
	action := updated.Classification.Action
	if action.Type != inbox.ActionCreatePage {
		t.Errorf("action type = %v, want createPage", action.Type)
	}
	if action.NotebookID != notebookID {
		t.Errorf("action notebook = %v, want %v", action.NotebookID, notebookID)
	}
	if updated.Classification.Confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", updated.Classification.Confidence)
	}
}

func TestInboxRepo_SetClassification_NotFound(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))

	_, err := repo.SetClassification(context.Background(), uuid.New(), inbox.Classification{
		Action: inbox.KeepInInbox("x"),
	})
	if err != ErrNotFound {
		t.Errorf("SetClassification() error = %v, want ErrNotFound", err)
	}
}

func TestInboxRepo_MarkProcessedAndClear(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))
	ctx := context.Background()

	done := captureTestItem(t, repo, "done", time.Now().UTC())
	pending := captureTestItem(t, repo, "pending", time.Now().UTC())

	if err := repo.MarkProcessed(ctx, done.ID); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}

	unprocessed, err := repo.ListUnprocessed(ctx)
	if err != nil {
		t.Fatalf("ListUnprocessed() error = %v", err)
	}
	if len(unprocessed) != 1 || unprocessed[0].ID != pending.ID {
		t.Errorf("ListUnprocessed() = %v, want only %v", unprocessed, pending.ID)
	}

	cleared, err := repo.ClearProcessed(ctx)
	if err != nil {
		t.Fatalf("ClearProcessed() error = %v", err)
	}
	if cleared != 1 {
		t.Errorf("ClearProcessed() = %d, want 1", cleared)
	}

	if _, err := repo.Get(ctx, done.ID); err != ErrNotFound {
		t.Errorf("Get() after clear error = %v, want ErrNotFound", err)
	}
}

func TestInboxRepo_Delete(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))
	ctx := context.Background()

	item := captureTestItem(t, repo, "gone", time.Now().UTC())

	if err := repo.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, item.ID); err != ErrNotFound {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting a missing item is not an error
	if err := repo.Delete(ctx, uuid.New()); err != nil {
		t.Errorf("Delete() of missing item error = %v", err)
	}
}

func TestInboxRepo_Summary(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))
	ctx := context.Background()

	classified := captureTestItem(t, repo, "classified", time.Now().UTC())
	captureTestItem(t, repo, "unclassified", time.Now().UTC())
	processed := captureTestItem(t, repo, "processed", time.Now().UTC())

	if _, err := repo.SetClassification(ctx, classified.ID, inbox.Classification{
		Action: inbox.CreateNotebook("Ideas", ""),
	}); err != nil {
		t.Fatalf("SetClassification() error = %v", err)
	}
	if err := repo.MarkProcessed(ctx, processed.ID); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}

	summary, err := repo.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	want := inbox.Summary{
		TotalCount:        3,
		UnprocessedCount:  2,
		UnclassifiedCount: 1,
		ClassifiedCount:   1,
	}
	if summary != want {
		t.Errorf("Summary() = %+v, want %+v", summary, want)
	}
}

func TestInboxRepo_Summary_Empty(t *testing.T) {
	repo := NewInboxRepo(newTestDB(t))

	summary, err := repo.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary != (inbox.Summary{}) {
		t.Errorf("Summary() = %+v, want zero counts", summary)
	}
}
