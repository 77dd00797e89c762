// Package tui provides the Bubble Tea dashboard for the screen-state tracker
// and the SSH server that serves it to remote viewers.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/screenstate/internal/screen"
)

// TickMsg triggers a snapshot refresh.
type TickMsg time.Time

// TransitionMsg carries a state transition from the app.
type TransitionMsg screen.Transition

// closedMsg is sent when the app stops publishing transitions.
type closedMsg struct{}

// tickCmd returns a command that sends a TickMsg after interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitTransition blocks until the next transition arrives on ch.
func waitTransition(ch <-chan screen.Transition) tea.Cmd {
	return func() tea.Msg {
		tr, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return TransitionMsg(tr)
	}
}
