package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/erewhon/nous-sub005/internal/inbox"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "capture title",
			err:  &ValidationError{Field: "title", Message: "cannot be empty"},
			want: "validation error on field title: cannot be empty",
		},
		{
			name: "apply batch",
			err:  &ValidationError{Field: "itemIds", Message: "cannot be empty"},
			want: "validation error on field itemIds: cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ValidationError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	if got := WrapError(nil, "context"); got != nil {
		t.Errorf("WrapError(nil) = %v, want nil", got)
	}

	cause := errors.New("disk full")
	got := WrapError(cause, "failed to store captured item")
	if got == nil {
		t.Fatal("WrapError() = nil, want error")
	}
	if got.Error() != "failed to store captured item: disk full" {
		t.Errorf("WrapError() = %v", got)
	}
	if !errors.Is(got, cause) {
		t.Error("WrapError() should wrap the original error")
	}
}

func TestInboxService_ApplyActions_AlreadyProcessed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	nb := f.notebook(t, "Notes")
	item := f.capture(t, "Filed once", "content")
	if _, err := f.items.SetClassification(ctx, item.ID, inbox.Classification{
		Action: inbox.CreatePage(nb.ID, nb.Name, "", nil),
	}); err != nil {
		t.Fatalf("SetClassification() error = %v", err)
	}

	first, err := f.svc.ApplyActions(ctx, inbox.ApplyActionsRequest{ItemIDs: []uuid.UUID{item.ID}})
	if err != nil {
		t.Fatalf("ApplyActions() error = %v", err)
	}
	if first.ProcessedCount != 1 {
		t.Fatalf("first apply ProcessedCount = %d, want 1", first.ProcessedCount)
	}

	second, err := f.svc.ApplyActions(ctx, inbox.ApplyActionsRequest{ItemIDs: []uuid.UUID{item.ID}})
	if err != nil {
		t.Fatalf("ApplyActions() error = %v", err)
	}
	if len(second.SucceededItemIDs) != 0 {
		t.Errorf("second apply SucceededItemIDs = %v, want none", second.SucceededItemIDs)
	}
	if len(second.Errors) != 1 {
		t.Fatalf("second apply Errors = %v, want one", second.Errors)
	}
	if !strings.Contains(second.Errors[0], ErrAlreadyProcessed.Error()) {
		t.Errorf("error %q should report %q", second.Errors[0], ErrAlreadyProcessed)
	}

	if len(first.CreatedPages) != 1 || len(second.CreatedPages) != 0 {
		t.Errorf("pages created = %d then %d, want 1 then 0",
			len(first.CreatedPages), len(second.CreatedPages))
	}
}

func TestInboxService_ApplyActions_NotFoundDiagnostic(t *testing.T) {
	f := newFixture(t)

	missing := uuid.New()
	result, err := f.svc.ApplyActions(context.Background(), inbox.ApplyActionsRequest{
		ItemIDs: []uuid.UUID{missing},
	})
	if err != nil {
		t.Fatalf("ApplyActions() error = %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want one", result.Errors)
	}
	want := missing.String() + ": item not found"
	if result.Errors[0] != want {
		t.Errorf("error = %q, want %q", result.Errors[0], want)
	}
}
