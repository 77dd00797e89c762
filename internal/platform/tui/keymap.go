package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/screenstate/internal/app"
	"github.com/vovakirdan/screenstate/internal/screen"
)

// DashboardKeyMap defines the key bindings for the dashboard.
type DashboardKeyMap struct {
	Pause       key.Binding
	Focus       key.Binding
	ScreenOff   key.Binding
	ScreenOn    key.Binding
	UserPresent key.Binding
	Running     key.Binding
	Unlocked    key.Binding
	Sleeping    key.Binding
	Help        key.Binding
	Quit        key.Binding

	readOnly bool
}

// ShortHelp returns key bindings for the short help view.
func (k DashboardKeyMap) ShortHelp() []key.Binding {
	if k.readOnly {
		return []key.Binding{k.Quit}
	}
	return []key.Binding{k.Pause, k.Focus, k.ScreenOff, k.ScreenOn, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k DashboardKeyMap) FullHelp() [][]key.Binding {
	if k.readOnly {
		return [][]key.Binding{{k.Quit}}
	}
	return [][]key.Binding{
		{k.Pause, k.Focus},
		{k.ScreenOff, k.ScreenOn, k.UserPresent},
		{k.Running, k.Unlocked, k.Sleeping},
		{k.Help, k.Quit},
	}
}

// DefaultDashboardKeyMap returns default key bindings.
func DefaultDashboardKeyMap() DashboardKeyMap {
	return DashboardKeyMap{
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause/resume"),
		),
		Focus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "focus"),
		),
		ScreenOff: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "screen off"),
		),
		ScreenOn: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "screen on"),
		),
		UserPresent: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "user present"),
		),
		Running: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "app running"),
		),
		Unlocked: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "unlocked"),
		),
		Sleeping: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "screen off"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ReadOnly returns a copy of the key map that only offers quitting.
func (k DashboardKeyMap) ReadOnly() DashboardKeyMap {
	k.readOnly = true
	return k
}

// lifecycle tracks the host flags toggled from the keyboard.
type lifecycle struct {
	paused  bool
	focused bool
}

// MapKey translates a key press to an app event. Toggle keys flip lc.
// Returns nil for keys that do not produce an event.
func (k DashboardKeyMap) MapKey(msg tea.KeyMsg, lc *lifecycle) app.Event {
	if k.readOnly {
		return nil
	}

	switch {
	case key.Matches(msg, k.Pause):
		lc.paused = !lc.paused
		return app.PauseEvent{Paused: lc.paused}
	case key.Matches(msg, k.Focus):
		lc.focused = !lc.focused
		return app.FocusEvent{Focused: lc.focused}
	case key.Matches(msg, k.ScreenOff):
		return app.ScreenEvent{Signal: screen.SignalScreenOff}
	case key.Matches(msg, k.ScreenOn):
		return app.ScreenEvent{Signal: screen.SignalScreenOn}
	case key.Matches(msg, k.UserPresent):
		return app.ScreenEvent{Signal: screen.SignalUserPresent}
	case key.Matches(msg, k.Running):
		return app.PresetAppRunning
	case key.Matches(msg, k.Unlocked):
		return app.PresetUnlocked
	case key.Matches(msg, k.Sleeping):
		return app.PresetScreenOff
	}
	return nil
}
