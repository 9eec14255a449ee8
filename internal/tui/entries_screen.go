package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/timekeeper/internal/app"
	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/repository"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const entriesLookbackDays = 30

// EntriesModel displays a scrollable list of recent timesheet entries
type EntriesModel struct {
	ctx  context.Context
	app  *app.App
	user string

	entries    []*domain.TimesheetEntry
	cursor     int
	offset     int
	maxVisible int
	loading    bool
	err        error
	statusMsg  string

	confirmDelete bool
}

type entriesDataMsg struct {
	entries []*domain.TimesheetEntry
	err     error
}

type entryDeletedMsg struct {
	id  string
	err error
}

// NewEntriesModel creates a new entries screen model
func NewEntriesModel(ctx context.Context, a *app.App) tea.Model {
	return &EntriesModel{
		ctx:        ctx,
		app:        a,
		user:       a.UserID(),
		maxVisible: 15,
		loading:    true,
	}
}

// IsCapturingInput returns true while a delete confirmation is pending
func (m *EntriesModel) IsCapturingInput() bool {
	return m.confirmDelete
}

func (m *EntriesModel) Init() tea.Cmd {
	return m.loadEntries()
}

func (m *EntriesModel) loadEntries() tea.Cmd {
	return func() tea.Msg {
		since := m.app.Clock.Now().AddDate(0, 0, -entriesLookbackDays)
		entries, err := m.app.EntryService.ListEntries(m.ctx, repository.EntryFilter{
			UserID:    &m.user,
			StartDate: &since,
		})
		return entriesDataMsg{entries: entries, err: err}
	}
}

func (m *EntriesModel) deleteSelected() tea.Cmd {
	id := m.entries[m.cursor].ID
	return func() tea.Msg {
		err := m.app.EntryService.DeleteEntry(m.ctx, m.user, id)
		return entryDeletedMsg{id: id, err: err}
	}
}

func (m *EntriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadEntries()

	case entriesDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.entries = msg.entries
			if m.cursor >= len(m.entries) {
				m.cursor = max(0, len(m.entries)-1)
			}
			m.clampOffset()
		}
		return m, nil

	case entryDeletedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Deleted entry %s", shortID(msg.id))
		m.loading = true
		return m, m.loadEntries()

	case tea.KeyMsg:
		if m.confirmDelete {
			m.confirmDelete = false
			if msg.String() == "y" || msg.String() == "Y" {
				return m, m.deleteSelected()
			}
			m.statusMsg = "Delete cancelled"
			return m, nil
		}
		if m.loading {
			return m, nil
		}

		m.statusMsg = ""
		m.err = nil

		switch {
		case key.Matches(msg, DefaultKeyMap.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, DefaultKeyMap.Down):
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case key.Matches(msg, DefaultKeyMap.Delete):
			if len(m.entries) > 0 {
				m.confirmDelete = true
			}
		case key.Matches(msg, DefaultKeyMap.Refresh):
			m.loading = true
			return m, m.loadEntries()
		case key.Matches(msg, DefaultKeyMap.New):
			return m, switchScreen(ScreenTimer)
		}
		m.clampOffset()
	}

	return m, nil
}

// clampOffset keeps the cursor inside the visible window
func (m *EntriesModel) clampOffset() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.maxVisible {
		m.offset = m.cursor - m.maxVisible + 1
	}
}

func (m *EntriesModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Entries (last %d days)", entriesLookbackDays)) + "\n\n")

	if m.loading {
		b.WriteString("Loading entries...")
		return b.String()
	}
	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n")
	}
	if m.statusMsg != "" {
		b.WriteString(statusStyle.Render("  "+m.statusMsg) + "\n\n")
	}
	if len(m.entries) == 0 {
		b.WriteString("No entries recorded yet.\n\n")
		b.WriteString(helpStyle.Render("n: new timer  g: refresh"))
		return b.String()
	}

	loc := m.app.Clock.Now().Location()
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("  %-16s %-8s %-12s %-30s %10s", "START", "HOURS", "CASE", "DESCRIPTION", "AMOUNT")) + "\n")

	end := min(m.offset+m.maxVisible, len(m.entries))
	var totalMinutes int64
	var totalAmount float64
	for _, e := range m.entries {
		totalMinutes += e.DurationMinutes
		totalAmount += e.TotalAmount
	}
	for i := m.offset; i < end; i++ {
		e := m.entries[i]
		line := fmt.Sprintf("  %-16s %-8s %-12s %-30s %10s",
			e.StartTime.In(loc).Format("2006-01-02 15:04"),
			formatHours(e.Hours()),
			truncateStr(refOr(e.CaseID, "-"), 12),
			truncateStr(e.Description, 30),
			formatMoney(e.TotalAmount),
		)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	totals := fmt.Sprintf("%d entries  %s  %s", len(m.entries),
		formatHours(float64(totalMinutes)/60), formatMoney(totalAmount))
	b.WriteString("\n" + boxStyle.Render(totals) + "\n\n")

	if m.confirmDelete {
		e := m.entries[m.cursor]
		b.WriteString(timerPausedStyle.Render(fmt.Sprintf("Delete %q (%s)? [y/N]", truncateStr(e.Description, 40), formatHours(e.Hours()))))
		return b.String()
	}
	b.WriteString(helpStyle.Render("↑/↓: move  d: delete  n: new timer  g: refresh"))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
