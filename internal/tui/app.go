// Package tui is the interactive triage board: captured items in a list,
// spacebar selection, and single keys for classify, apply, and delete.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erewhon/nous-sub005/internal/inbox"
	"github.com/erewhon/nous-sub005/internal/pipeline"
)

const opTimeout = 2 * time.Minute

type model struct {
	pipeline *pipeline.Pipeline
	list     list.Model
	width    int
	height   int
	status   string
	err      error
}

type triageItem struct {
	item     inbox.Item
	selected bool
	override *inbox.ClassificationAction
}

func (t triageItem) Title() string {
	check := "[ ]"
	if t.selected {
		check = "[x]"
	}
	return fmt.Sprintf("%s %s", check, t.item.Title)
}

func (t triageItem) Description() string {
	if t.override != nil {
		return "override: " + actionLabel(*t.override)
	}
	if t.item.Classification != nil {
		c := t.item.Classification
		return fmt.Sprintf("%s (%.0f%%)", actionLabel(c.Action), c.Confidence*100)
	}
	snippet := t.item.Content
	if len(snippet) > 80 {
		snippet = snippet[:80] + "..."
	}
	if snippet == "" {
		snippet = "(no content)"
	}
	return snippet
}

func (t triageItem) FilterValue() string {
	return t.item.Title + " " + t.item.Content
}

func actionLabel(a inbox.ClassificationAction) string {
	switch a.Type {
	case inbox.ActionCreatePage:
		return fmt.Sprintf("new page %q in %s", a.SuggestedTitle, a.NotebookName)
	case inbox.ActionAppendToPage:
		return fmt.Sprintf("append to %q in %s", a.PageTitle, a.NotebookName)
	case inbox.ActionCreateNotebook:
		return fmt.Sprintf("new notebook %q", a.SuggestedName)
	case inbox.ActionKeepInInbox:
		return "keep in inbox"
	default:
		return string(a.Type)
	}
}

func initialModel(p *pipeline.Pipeline) model {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Inbox"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return model{
		pipeline: p,
		list:     l,
	}
}

type loadedMsg struct {
	err error
}

type classifiedMsg struct {
	count int
	err   error
}

type appliedMsg struct {
	result inbox.ApplyActionsResult
	err    error
}

type deletedMsg struct {
	err error
}

func (m model) Init() tea.Cmd {
	return m.load
}

func (m model) load() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return loadedMsg{err: m.pipeline.Load(ctx)}
}

func (m model) classify() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	classified, err := m.pipeline.ClassifyAll(ctx)
	return classifiedMsg{count: len(classified), err: err}
}

func (m model) apply() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	result, err := m.pipeline.ApplySelected(ctx)
	return appliedMsg{result: result, err: err}
}

func (m model) deleteSelected() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return deletedMsg{err: m.pipeline.DeleteSelected(ctx)}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			if item, ok := m.list.SelectedItem().(triageItem); ok {
				m.pipeline.ToggleItem(item.item.ID)
				m.syncItems()
			}
			return m, nil
		case "a":
			m.pipeline.SelectAll()
			m.syncItems()
			return m, nil
		case "n":
			m.pipeline.DeselectAll()
			m.syncItems()
			return m, nil
		case "c":
			m.status = "classifying..."
			return m, m.classify
		case "p":
			m.status = "applying..."
			return m, m.apply
		case "d":
			m.status = "deleting..."
			return m, m.deleteSelected
		case "r":
			m.status = "reloading..."
			return m, m.load
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)

	case loadedMsg:
		m.err = msg.err
		m.status = ""
		m.syncItems()

	case classifiedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = fmt.Sprintf("classified %d item(s)", msg.count)
		} else {
			m.status = ""
		}
		m.syncItems()

	case appliedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = applySummary(msg.result)
		} else {
			m.status = ""
		}
		m.syncItems()

	case deletedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = "deleted"
		} else {
			m.status = ""
		}
		m.syncItems()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func applySummary(result inbox.ApplyActionsResult) string {
	s := fmt.Sprintf("applied %d item(s)", result.ProcessedCount)
	if len(result.Errors) > 0 {
		s += fmt.Sprintf(", %d failed", len(result.Errors))
	}
	return s
}

// syncItems rebuilds the list from the pipeline's current state, keeping the
// cursor where it was.
func (m *model) syncItems() {
	items := m.pipeline.Items()
	listItems := make([]list.Item, 0, len(items))
	for _, item := range items {
		entry := triageItem{
			item:     item,
			selected: m.pipeline.IsSelected(item.ID),
		}
		if action, ok := m.pipeline.Override(item.ID); ok {
			entry.override = &action
		}
		listItems = append(listItems, entry)
	}

	cursor := m.list.Index()
	m.list.SetItems(listItems)
	if cursor >= len(listItems) {
		cursor = len(listItems) - 1
	}
	if cursor >= 0 {
		m.list.Select(cursor)
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.list.View())
	b.WriteString("\n")

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("86"))

	errStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	summary := m.pipeline.Summary()
	bar := fmt.Sprintf("%d items · %d unclassified · %d selected",
		summary.UnprocessedCount, summary.UnclassifiedCount, len(m.pipeline.SelectedIDs()))
	if m.status != "" {
		bar += " · " + statusStyle.Render(m.status)
	}
	if m.err != nil {
		bar += " · " + errStyle.Render(m.err.Error())
	}
	b.WriteString(bar)
	b.WriteString("\n")

	help := "[space]select [a]ll [n]one [c]lassify [p]apply [d]elete [r]eload [q]uit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// Run starts the triage TUI over an already loaded pipeline.
func Run(p *pipeline.Pipeline) error {
	prog := tea.NewProgram(initialModel(p), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
