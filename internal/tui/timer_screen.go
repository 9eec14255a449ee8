package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andy/timekeeper/internal/app"
	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/service"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// TimerTickMsg is sent every second while a timer is running
type TimerTickMsg struct{}

// tickTimer returns a command that sends TimerTickMsg every second
func tickTimer() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return TimerTickMsg{}
	})
}

// start form field indices
const (
	timerFieldDescription = iota
	timerFieldCase
	timerFieldTask
	timerFieldCount
)

type timerLoadedMsg struct {
	timer *domain.Timer
	err   error
}

type timerStoppedMsg struct {
	result *service.StopResult
}

// TimerModel shows the user's active timer and its controls
type TimerModel struct {
	ctx  context.Context
	app  *app.App
	user string

	timer     *domain.Timer
	err       error
	statusMsg string
	ticking   bool

	// Start form
	formOpen   bool
	fields     []textinput.Model
	fieldFocus int
}

// NewTimerModel creates a new TimerModel
func NewTimerModel(ctx context.Context, a *app.App) tea.Model {
	return &TimerModel{ctx: ctx, app: a, user: a.UserID()}
}

// IsCapturingInput returns true while the start form is open
func (m *TimerModel) IsCapturingInput() bool {
	return m.formOpen
}

func (m *TimerModel) Init() tea.Cmd {
	return m.loadTimer()
}

func (m *TimerModel) loadTimer() tea.Cmd {
	return func() tea.Msg {
		t, err := m.app.TimerService.GetActiveTimer(m.ctx, m.user)
		return timerLoadedMsg{timer: t, err: err}
	}
}

// setTimer stores t and starts the ticker when it is running
func (m *TimerModel) setTimer(t *domain.Timer) tea.Cmd {
	m.timer = t
	if t != nil && t.IsRunning() && !m.ticking {
		m.ticking = true
		return tickTimer()
	}
	return nil
}

func (m *TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok && m.formOpen {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case RefreshDataMsg:
		return m, m.loadTimer()

	case timerLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, m.setTimer(msg.timer)

	case timerStoppedMsg:
		m.timer = nil
		if msg.result.Entry != nil {
			m.statusMsg = fmt.Sprintf("Entry saved: %s (%s)",
				formatHours(msg.result.Entry.Hours()), formatMoney(msg.result.Entry.TotalAmount))
		} else {
			m.statusMsg = "Timer stopped without an entry"
		}
		return m, nil

	case TimerTickMsg:
		m.ticking = false
		if m.timer == nil || !m.timer.IsRunning() {
			return m, nil
		}
		// Reload so a stop from the CLI shows up here
		return m, m.loadTimer()

	case tea.KeyMsg:
		m.err = nil
		m.statusMsg = ""

		switch {
		case key.Matches(msg, DefaultKeyMap.New):
			m.initForm()
			return m, m.fields[timerFieldDescription].Focus()
		case m.timer == nil:
			return m, nil
		case key.Matches(msg, DefaultKeyMap.Pause):
			return m, m.transition(m.app.TimerService.Pause)
		case key.Matches(msg, DefaultKeyMap.Resume):
			return m, m.transition(m.app.TimerService.Resume)
		case key.Matches(msg, DefaultKeyMap.Stop):
			return m, m.stopTimer(true)
		case key.Matches(msg, DefaultKeyMap.Discard):
			return m, m.stopTimer(false)
		}

	default:
		if m.formOpen {
			return m.updateForm(msg)
		}
	}

	return m, nil
}

func (m *TimerModel) transition(op func(ctx context.Context, userID, timerID string) (*domain.Timer, error)) tea.Cmd {
	id := m.timer.ID
	return func() tea.Msg {
		t, err := op(m.ctx, m.user, id)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return timerLoadedMsg{timer: t}
	}
}

func (m *TimerModel) stopTimer(save bool) tea.Cmd {
	id := m.timer.ID
	return func() tea.Msg {
		result, err := m.app.TimerService.Stop(m.ctx, m.user, id, service.StopOptions{SaveEntry: save})
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return timerStoppedMsg{result: result}
	}
}

func (m *TimerModel) initForm() {
	m.fields = make([]textinput.Model, timerFieldCount)

	m.fields[timerFieldDescription] = textinput.New()
	m.fields[timerFieldDescription].Placeholder = "What are you working on?"
	m.fields[timerFieldDescription].CharLimit = 200
	m.fields[timerFieldDescription].Width = 50

	m.fields[timerFieldCase] = textinput.New()
	m.fields[timerFieldCase].Placeholder = "Optional case ID"
	m.fields[timerFieldCase].CharLimit = 64
	m.fields[timerFieldCase].Width = 30

	m.fields[timerFieldTask] = textinput.New()
	m.fields[timerFieldTask].Placeholder = "Optional task ID"
	m.fields[timerFieldTask].CharLimit = 64
	m.fields[timerFieldTask].Width = 30

	m.fieldFocus = timerFieldDescription
	m.formOpen = true
}

func (m *TimerModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.formOpen = false
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % timerFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + timerFieldCount) % timerFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == timerFieldCount-1 {
				return m, m.startTimer()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.startTimer()
		}
	}

	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *TimerModel) startTimer() tea.Cmd {
	in := service.StartInput{
		UserID:      m.user,
		CaseID:      inputRef(m.fields[timerFieldCase]),
		TaskID:      inputRef(m.fields[timerFieldTask]),
		Description: m.fields[timerFieldDescription].Value(),
	}
	if strings.TrimSpace(in.Description) == "" {
		m.err = fmt.Errorf("description is required")
		return nil
	}
	m.formOpen = false
	return func() tea.Msg {
		t, err := m.app.TimerService.Start(m.ctx, in)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return timerLoadedMsg{timer: t}
	}
}

func inputRef(in textinput.Model) *string {
	v := strings.TrimSpace(in.Value())
	if v == "" {
		return nil
	}
	return &v
}

func (m *TimerModel) View() string {
	if m.formOpen {
		return m.viewForm()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Active Timer") + "\n\n")

	if m.statusMsg != "" {
		b.WriteString(statusStyle.Render("  "+m.statusMsg) + "\n\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n")
	}

	if m.timer == nil {
		b.WriteString("No active timer.\n\n")
		b.WriteString(helpStyle.Render("n: start a timer"))
		return b.String()
	}

	now := m.app.Clock.Now()
	elapsed := m.timer.Elapsed(now)

	state := timerRunningStyle.Render("RUNNING")
	if m.timer.Status == domain.TimerStatusPaused {
		state = timerPausedStyle.Render("PAUSED")
	}

	fmt.Fprintf(&b, "State:       %s\n", state)
	fmt.Fprintf(&b, "Description: %s\n", m.timer.Description)
	fmt.Fprintf(&b, "Case:        %s\n", refOr(m.timer.CaseID, "-"))
	fmt.Fprintf(&b, "Task:        %s\n", refOr(m.timer.TaskID, "-"))
	fmt.Fprintf(&b, "Started:     %s\n", m.timer.CreatedAt.In(now.Location()).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Elapsed:     %s\n", timerValueStyle.Render(formatClock(elapsed)))
	if m.timer.TotalPausedMillis > 0 {
		paused := time.Duration(m.timer.TotalPausedMillis) * time.Millisecond
		fmt.Fprintf(&b, "Paused:      %s\n", formatClock(paused))
	}
	if rate := m.app.Config.DefaultRate(); rate != nil {
		minutes := domain.MillisToMinutes(elapsed.Milliseconds())
		fmt.Fprintf(&b, "Value:       %s at %s/hr\n",
			formatMoney(domain.Amount(minutes, rate)), formatMoney(*rate))
	}

	b.WriteString("\n" + helpStyle.Render("p: pause  r: resume  x: stop and save  d: discard  n: start another"))
	return b.String()
}

func (m *TimerModel) viewForm() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Start Timer") + "\n")
	if m.timer != nil {
		b.WriteString(subtitleStyle.Render("  Starting replaces the active timer without saving it.") + "\n")
	}
	b.WriteString("\n")

	labels := []string{"Description:", "Case:", "Task:"}
	for i, label := range labels {
		indicator := "  "
		style := subtitleStyle
		if i == m.fieldFocus {
			indicator = "> "
			style = labelStyle
		}
		fmt.Fprintf(&b, "%s%s\n  %s\n\n", indicator, style.Render(label), m.fields[i].View())
	}

	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n")
	}

	b.WriteString(helpStyle.Render("  tab/shift+tab: navigate fields  ctrl+s: start  enter: next/start  esc: cancel"))
	return b.String()
}
