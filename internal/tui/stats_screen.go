package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/andy/timekeeper/internal/app"
	"github.com/andy/timekeeper/internal/domain"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatsModel shows aggregated hours for the current user or everyone
type StatsModel struct {
	ctx  context.Context
	app  *app.App
	user string

	allUsers bool
	stats    *domain.TimesheetStats
	loading  bool
	err      error
}

type statsDataMsg struct {
	stats *domain.TimesheetStats
	err   error
}

var toggleAllUsers = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all users"))

// NewStatsModel creates a new stats screen model
func NewStatsModel(ctx context.Context, a *app.App) tea.Model {
	return &StatsModel{ctx: ctx, app: a, user: a.UserID(), loading: true}
}

func (m *StatsModel) Init() tea.Cmd {
	return m.loadStats()
}

func (m *StatsModel) loadStats() tea.Cmd {
	var filter domain.StatsFilter
	if !m.allUsers {
		user := m.user
		filter.UserID = &user
	}
	return func() tea.Msg {
		stats, err := m.app.StatsService.GetTimesheetStats(m.ctx, filter)
		return statsDataMsg{stats: stats, err: err}
	}
}

func (m *StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadStats()

	case statsDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.stats = msg.stats
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, toggleAllUsers):
			m.allUsers = !m.allUsers
			m.loading = true
			return m, m.loadStats()
		case key.Matches(msg, DefaultKeyMap.Refresh):
			m.loading = true
			return m, m.loadStats()
		case key.Matches(msg, DefaultKeyMap.New):
			return m, switchScreen(ScreenTimer)
		}
	}
	return m, nil
}

func (m *StatsModel) View() string {
	scope := m.user
	if m.allUsers {
		scope = "all users"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Timesheet Stats") + subtitleStyle.Render("  "+scope) + "\n\n")

	if m.loading {
		b.WriteString("Loading stats...")
		return b.String()
	}
	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		return b.String()
	}

	s := m.stats
	periods := lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Today", s.DailyHours),
		statBox("This week", s.WeeklyHours),
		statBox("This month", s.MonthlyHours),
		statBox("All time", s.TotalHours),
	)
	b.WriteString(periods + "\n\n")

	fmt.Fprintf(&b, "Sessions: %d   Average: %s\n\n", s.TotalSessions, formatHours(s.AverageSessionLength))

	b.WriteString(breakdown("By case", s.CaseHours))
	b.WriteString(breakdown("By task", s.TaskHours))

	b.WriteString(helpStyle.Render("a: toggle all users  n: new timer  g: refresh"))
	return b.String()
}

func statBox(label string, hours float64) string {
	return boxStyle.Render(subtitleStyle.Render(label) + "\n" + timerValueStyle.Render(formatHours(hours)))
}

func breakdown(title string, hours map[string]float64) string {
	if len(hours) == 0 {
		return ""
	}
	keys := make([]string, 0, len(hours))
	for k := range hours {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if hours[keys[i]] != hours[keys[j]] {
			return hours[keys[i]] > hours[keys[j]]
		}
		return keys[i] < keys[j]
	})

	var b strings.Builder
	b.WriteString(labelStyle.Render(title) + "\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-24s %s\n", truncateStr(k, 24), formatHours(hours[k]))
	}
	b.WriteString("\n")
	return b.String()
}
