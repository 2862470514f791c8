package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/erewhon/nous-sub005/internal/inbox"
	"github.com/erewhon/nous-sub005/internal/pipeline"
)

type stubClassifier struct {
	calls int
}

func (s *stubClassifier) Classify(ctx context.Context, items []inbox.Item) ([]inbox.Item, error) {
	s.calls++
	return items, nil
}

func TestLazyClassifier_BuildsOnFirstUse(t *testing.T) {
	stub := &stubClassifier{}
	builds := 0
	lazy := &lazyClassifier{build: func() (pipeline.Classifier, error) {
		builds++
		return stub, nil
	}}

	if builds != 0 {
		t.Fatal("classifier should not be built before the first classify call")
	}

	item := inbox.NewItem("Note", "body", nil, inbox.QuickCapture())
	for i := 0; i < 2; i++ {
		got, err := lazy.Classify(context.Background(), []inbox.Item{item})
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("Classify() returned %d items, want 1", len(got))
		}
	}

	if builds != 1 {
		t.Errorf("build ran %d times, want once", builds)
	}
	if stub.calls != 2 {
		t.Errorf("delegate called %d times, want 2", stub.calls)
	}
}

func TestLazyClassifier_BuildFailureSurfacesOnClassify(t *testing.T) {
	cause := errors.New("no API key set for provider anthropic")
	lazy := &lazyClassifier{build: func() (pipeline.Classifier, error) {
		return nil, cause
	}}

	_, err := lazy.Classify(context.Background(), nil)
	if !errors.Is(err, cause) {
		t.Errorf("Classify() error = %v, want the build failure", err)
	}

	// The failure is cached, not retried with a nil delegate
	_, err = lazy.Classify(context.Background(), nil)
	if !errors.Is(err, cause) {
		t.Errorf("second Classify() error = %v, want the cached build failure", err)
	}
}
