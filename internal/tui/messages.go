package tui

import tea "github.com/charmbracelet/bubbletea"

// SwitchScreenMsg requests a screen change
type SwitchScreenMsg struct {
	Screen Screen
}

func switchScreen(s Screen) tea.Cmd {
	return func() tea.Msg { return SwitchScreenMsg{Screen: s} }
}

// RefreshDataMsg requests data refresh
type RefreshDataMsg struct{}

// ErrorMsg carries error information
type ErrorMsg struct {
	Err error
}

// activeTimerMsg reports whether the user has a timer in flight
type activeTimerMsg struct {
	active bool
}

