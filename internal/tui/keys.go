package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit key.Binding
	Back key.Binding

	// Navigation
	Timer   key.Binding
	Entries key.Binding
	Stats   key.Binding

	// Actions
	Select  key.Binding
	New     key.Binding
	Delete  key.Binding
	Refresh key.Binding

	// Timer controls
	Pause   key.Binding
	Resume  key.Binding
	Stop    key.Binding
	Discard key.Binding

	// Movement
	Up   key.Binding
	Down key.Binding
}

var DefaultKeyMap = KeyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Timer:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "timer")),
	Entries: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "entries")),
	Stats:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stats")),
	Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Refresh: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "refresh")),
	Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
	Resume:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
	Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
	Discard: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discard")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}
