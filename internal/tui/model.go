package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/timekeeper/internal/app"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen identifies which screen is active
type Screen int

const (
	ScreenTimer Screen = iota
	ScreenEntries
	ScreenStats
)

func (s Screen) String() string {
	switch s {
	case ScreenTimer:
		return "Timer"
	case ScreenEntries:
		return "Entries"
	case ScreenStats:
		return "Stats"
	default:
		return "Unknown"
	}
}

// Model is the root model that holds all screens
type Model struct {
	ctx  context.Context
	app  *app.App
	user string

	currentScreen Screen
	width         int
	height        int

	timer   tea.Model
	entries tea.Model
	stats   tea.Model

	quitArmed bool
	quitMsg   string
	err       error
}

// New creates the root model, starting on the timer screen
func New(ctx context.Context, a *app.App) Model {
	return Model{
		ctx:           ctx,
		app:           a,
		user:          a.UserID(),
		currentScreen: ScreenTimer,
		timer:         NewTimerModel(ctx, a),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.timer.Init()
}

// initScreen lazy-initializes a screen on first visit,
// and sends a RefreshDataMsg on subsequent visits so screens reload data.
func (m *Model) initScreen(screen Screen) tea.Cmd {
	refresh := func() tea.Msg { return RefreshDataMsg{} }
	switch screen {
	case ScreenTimer:
		return refresh
	case ScreenEntries:
		if m.entries == nil {
			m.entries = NewEntriesModel(m.ctx, m.app)
			return m.entries.Init()
		}
		return refresh
	case ScreenStats:
		if m.stats == nil {
			m.stats = NewStatsModel(m.ctx, m.app)
			return m.stats.Init()
		}
		return refresh
	}
	return nil
}

// InputCapturer is implemented by screens that capture keyboard input (e.g. text forms).
// When active, global navigation keys are suppressed.
type InputCapturer interface {
	IsCapturingInput() bool
}

func (m *Model) screen(s Screen) tea.Model {
	switch s {
	case ScreenTimer:
		return m.timer
	case ScreenEntries:
		return m.entries
	case ScreenStats:
		return m.stats
	}
	return nil
}

func (m *Model) setScreen(s Screen, model tea.Model) {
	switch s {
	case ScreenTimer:
		m.timer = model
	case ScreenEntries:
		m.entries = model
	case ScreenStats:
		m.stats = model
	}
}

// activeScreenCapturingInput returns true if the current screen is capturing text input
func (m *Model) activeScreenCapturingInput() bool {
	if ic, ok := m.screen(m.currentScreen).(InputCapturer); ok {
		return ic.IsCapturingInput()
	}
	return false
}

// checkActiveTimer asks the store whether a timer is still in flight
func (m *Model) checkActiveTimer() tea.Cmd {
	return func() tea.Msg {
		t, err := m.app.TimerService.GetActiveTimer(m.ctx, m.user)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return activeTimerMsg{active: t != nil}
	}
}

// Update implements tea.Model - routes keys to screens
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		armed := m.quitArmed
		m.quitArmed = false
		m.quitMsg = ""
		m.err = nil

		if !m.activeScreenCapturingInput() {
			switch {
			case key.Matches(msg, DefaultKeyMap.Quit):
				if armed {
					return m, tea.Quit
				}
				return m, m.checkActiveTimer()

			case key.Matches(msg, DefaultKeyMap.Timer):
				return m.switchTo(ScreenTimer)

			case key.Matches(msg, DefaultKeyMap.Entries):
				return m.switchTo(ScreenEntries)

			case key.Matches(msg, DefaultKeyMap.Stats):
				return m.switchTo(ScreenStats)
			}
		}

	case activeTimerMsg:
		if !msg.active {
			return m, tea.Quit
		}
		// The timer lives in the store, so quitting only needs a confirmation
		m.quitArmed = true
		m.quitMsg = "A timer is still active and keeps running after exit. Press q again to quit."
		return m, nil

	case SwitchScreenMsg:
		return m.switchTo(msg.Screen)

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	// Ticks belong to the timer screen even while another screen is shown
	target := m.currentScreen
	if _, ok := msg.(TimerTickMsg); ok {
		target = ScreenTimer
	}

	current := m.screen(target)
	if current == nil {
		return m, nil
	}
	updated, cmd := current.Update(msg)
	m.setScreen(target, updated)
	return m, cmd
}

func (m Model) switchTo(s Screen) (tea.Model, tea.Cmd) {
	m.currentScreen = s
	cmd := m.initScreen(s)
	return m, cmd
}

// View implements tea.Model - renders header + current screen + footer
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := headerStyle.Render(fmt.Sprintf("timekeeper - %s  (%s)", m.currentScreen.String(), m.user))
	footer := footerStyle.Render("[T]imer  [E]ntries  [S]tats  [Q]uit")

	content := "Loading..."
	if s := m.screen(m.currentScreen); s != nil {
		content = s.View()
	}

	errorDisplay := ""
	if m.quitMsg != "" {
		errorDisplay = lipgloss.NewStyle().
			Foreground(warningColor).
			Render(fmt.Sprintf("\n%s", m.quitMsg))
	} else if m.err != nil {
		errorDisplay = errStyle.Render(fmt.Sprintf("\nError: %s", m.err.Error()))
	}

	innerWidth := m.width - 6 // border (2) + padding (4)
	if innerWidth < 20 {
		innerWidth = 20
	}
	dividerWidth := innerWidth - 12
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := lipgloss.NewStyle().Foreground(borderColor).Render(strings.Repeat("─", dividerWidth))

	body := fmt.Sprintf("%s\n%s\n\n%s%s\n\n%s\n%s", header, divider, content, errorDisplay, divider, footer)

	frame := appBorderStyle.
		Width(innerWidth).
		Height(m.height - 4)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, frame.Render(body))
}
