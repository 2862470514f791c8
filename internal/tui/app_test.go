package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/mock/gomock"

	"github.com/erewhon/nous-sub005/internal/inbox"
	"github.com/erewhon/nous-sub005/internal/pipeline"
	"github.com/erewhon/nous-sub005/internal/pipeline/mocks"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestModel(t *testing.T, items ...inbox.Item) (model, *pipeline.Pipeline) {
	t.Helper()

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Summary(gomock.Any()).Return(inbox.Summary{}, nil).AnyTimes()
	backend.EXPECT().ListUnprocessed(gomock.Any()).Return(items, nil)

	p := pipeline.New(backend, mocks.NewMockClassifier(ctrl))
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	m := initialModel(p)
	m.syncItems()
	return m, p
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestUpdate_SpaceTogglesSelection(t *testing.T) {
	item := inbox.NewItem("Note", "body", nil, inbox.QuickCapture())
	m, p := newTestModel(t, item)

	newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m = newModel.(model)

	if !p.IsSelected(item.ID) {
		t.Error("space should select the cursor item")
	}
	if entry, ok := m.list.SelectedItem().(triageItem); !ok || !entry.selected {
		t.Error("list entry should render as selected")
	}

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m = newModel.(model)
	if p.IsSelected(item.ID) {
		t.Error("space should deselect an already selected item")
	}
}

func TestUpdate_SelectAllAndNone(t *testing.T) {
	a := inbox.NewItem("a", "", nil, inbox.QuickCapture())
	b := inbox.NewItem("b", "", nil, inbox.QuickCapture())
	m, p := newTestModel(t, a, b)

	newModel, _ := m.Update(keyMsg('a'))
	m = newModel.(model)
	if got := len(p.SelectedIDs()); got != 2 {
		t.Errorf("selected %d items after 'a', want 2", got)
	}

	newModel, _ = m.Update(keyMsg('n'))
	if _, ok := newModel.(model); !ok {
		t.Fatal("Update() should return a model")
	}
	if got := len(p.SelectedIDs()); got != 0 {
		t.Errorf("selected %d items after 'n', want 0", got)
	}
}

func TestUpdate_QQuits(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(keyMsg('q'))
	if cmd == nil {
		t.Fatal("expected quit command when pressing q")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Errorf("cmd() = %v, want tea.QuitMsg", msg)
	}
}

func TestTriageItem_Description(t *testing.T) {
	item := inbox.NewItem("Note", "some quick thought", nil, inbox.QuickCapture())

	entry := triageItem{item: item}
	if got := entry.Description(); got != "some quick thought" {
		t.Errorf("Description() = %q, want the content snippet", got)
	}

	item.Classification = &inbox.Classification{
		Action:     inbox.CreateNotebook("Recipes", ""),
		Confidence: 0.8,
	}
	entry = triageItem{item: item}
	if got := entry.Description(); !strings.Contains(got, `new notebook "Recipes"`) || !strings.Contains(got, "80%") {
		t.Errorf("Description() = %q, want suggestion with confidence", got)
	}

	override := inbox.KeepInInbox("later")
	entry.override = &override
	if got := entry.Description(); !strings.Contains(got, "override: keep in inbox") {
		t.Errorf("Description() = %q, want override label", got)
	}
}

func TestView_ShowsSummaryAndHelp(t *testing.T) {
	item := inbox.NewItem("Note", "body", nil, inbox.QuickCapture())
	m, _ := newTestModel(t, item)
	m.list.SetSize(80, 20)

	view := m.View()
	if !strings.Contains(view, "[space]select") {
		t.Error("view should include the key help line")
	}
	if !strings.Contains(view, "selected") {
		t.Error("view should include the summary bar")
	}
}
