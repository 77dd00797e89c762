package app

import "github.com/vovakirdan/screenstate/internal/screen"

// Event is a host lifecycle or platform signal delivered to the app loop.
type Event interface {
	appEvent()
}

// PauseEvent mirrors the host pause callback.
type PauseEvent struct {
	Paused bool
}

func (PauseEvent) appEvent() {}

// FocusEvent mirrors the host focus callback.
type FocusEvent struct {
	Focused bool
}

func (FocusEvent) appEvent() {}

// ForegroundEvent reports foreground state without a lifecycle callback,
// so no proactive save happens.
type ForegroundEvent struct {
	Foreground bool
}

func (ForegroundEvent) appEvent() {}

// ScreenEvent carries a native screen signal.
type ScreenEvent struct {
	Signal screen.Signal
}

func (ScreenEvent) appEvent() {}

// ApplyEvent sets both tracker inputs in a single derivation pass.
type ApplyEvent struct {
	Foreground bool
	ScreenOn   bool
}

func (ApplyEvent) appEvent() {}

// QuitEvent stops the loop after saving the in-progress interval.
type QuitEvent struct{}

func (QuitEvent) appEvent() {}

type snapshotRequest struct {
	reply chan Snapshot
}

func (snapshotRequest) appEvent() {}

// Presets for the three tracked states, matching the debug shortcuts.
var (
	PresetAppRunning = ApplyEvent{Foreground: true, ScreenOn: true}
	PresetUnlocked   = ApplyEvent{Foreground: false, ScreenOn: true}
	PresetScreenOff  = ApplyEvent{Foreground: false, ScreenOn: false}
)
