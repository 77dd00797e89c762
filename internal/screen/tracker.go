package screen

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Transition is emitted every time the derived state changes.
type Transition struct {
	Previous DeviceState   // State that just ended
	Next     DeviceState   // State that just began
	Duration time.Duration // How long Previous lasted; zero when Previous is Unknown
	At       time.Time     // When the change happened
}

// Observer receives transition notifications.
// Observers run synchronously inside the tracker's update and must not block.
type Observer interface {
	OnTransition(tr Transition)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(tr Transition)

// OnTransition calls f(tr).
func (f ObserverFunc) OnTransition(tr Transition) {
	f(tr)
}

type subscription struct {
	id       int
	observer Observer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithProbe sets the platform screen probe used on lifecycle changes.
func WithProbe(p ScreenProbe) Option {
	return func(t *Tracker) {
		t.probe = p
	}
}

// Tracker maintains the current device state and the time it began.
//
// A Tracker is not safe for concurrent use; the owner must serialize all
// calls (see internal/app).
type Tracker struct {
	clock  Clock
	probe  ScreenProbe
	logger *log.Logger

	current    DeviceState
	startedAt  time.Time
	foreground bool
	screenOn   bool

	initialized bool

	subs   []subscription
	nextID int

	// notifying is set while observers run; inputs reported meanwhile
	// mark pending and are derived once notification completes.
	notifying bool
	pending   bool
}

// NewTracker creates a tracker in the Unknown state.
func NewTracker(logger *log.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	t := &Tracker{
		clock:      SystemClock{},
		logger:     logger.WithPrefix("screen"),
		current:    StateUnknown,
		foreground: true,
		screenOn:   true,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.startedAt = t.clock.Now()
	return t
}

// Initialize probes the screen, marks the app as foreground and derives the
// first state. The resulting Unknown -> AppRunning transition has zero duration.
// Calling Initialize again is a no-op.
func (t *Tracker) Initialize() {
	if t.initialized {
		return
	}
	t.screenOn = true
	t.probeScreen()
	t.foreground = true
	t.rederive()

	t.initialized = true
	t.logger.Info("tracker initialized", "state", t.current)
}

// Shutdown marks the tracker as stopped. Inputs are still accepted afterwards.
func (t *Tracker) Shutdown() {
	if !t.initialized {
		return
	}
	t.initialized = false
	t.logger.Info("tracker shutdown", "state", t.current)
}

// IsInitialized reports whether Initialize has run without a later Shutdown.
func (t *Tracker) IsInitialized() bool {
	return t.initialized
}

// Subscribe registers an observer and returns a function that removes it.
func (t *Tracker) Subscribe(o Observer) (unsubscribe func()) {
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription{id: id, observer: o})

	return func() {
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

// ReportForeground records whether the app is in the foreground.
func (t *Tracker) ReportForeground(foreground bool) {
	t.foreground = foreground
	t.rederive()
}

// ReportScreenSignal records a screen event from the platform bridge.
func (t *Tracker) ReportScreenSignal(sig Signal) {
	t.logger.Debug("screen signal", "signal", sig)
	t.screenOn = sig.ScreenOn()
	t.rederive()
}

// ReportPause handles the host pause callback. Going to the background
// re-checks the real screen state before deriving.
func (t *Tracker) ReportPause(paused bool) {
	t.logger.Debug("pause", "paused", paused)
	t.foreground = !paused
	if paused {
		t.probeScreen()
	}
	t.rederive()
}

// ReportFocus handles the host focus callback. Regaining focus re-checks
// the real screen state before deriving.
func (t *Tracker) ReportFocus(focused bool) {
	t.logger.Debug("focus", "focused", focused)
	t.foreground = focused
	if focused {
		t.probeScreen()
	}
	t.rederive()
}

// Apply sets both inputs and derives once. Use it when the platform reports
// foreground loss and screen-off as a single event.
func (t *Tracker) Apply(foreground, screenOn bool) {
	t.foreground = foreground
	t.screenOn = screenOn
	t.rederive()
}

// Current returns the current state.
func (t *Tracker) Current() DeviceState {
	return t.current
}

// Inputs returns the latest foreground and screen-on inputs.
func (t *Tracker) Inputs() (foreground, screenOn bool) {
	return t.foreground, t.screenOn
}

// StateStartTime returns when the current state began.
func (t *Tracker) StateStartTime() time.Time {
	return t.startedAt
}

// Elapsed returns how long the current state has lasted.
// It is zero while the state is Unknown.
func (t *Tracker) Elapsed() time.Duration {
	if t.current == StateUnknown {
		return 0
	}
	return since(t.startedAt, t.clock.Now())
}

// ResetStateStartTime restarts timing of the current state without emitting
// a transition. Call it after the elapsed time has been saved elsewhere.
func (t *Tracker) ResetStateStartTime() {
	if t.current == StateUnknown {
		return
	}
	t.startedAt = t.clock.Now()
	t.logger.Debug("state start time reset", "state", t.current)
}

// probeScreen refreshes screenOn from the platform probe, if any.
// Probe failures keep the previous value.
func (t *Tracker) probeScreen() {
	if t.probe == nil {
		return
	}
	on, err := t.probe.IsInteractive()
	if err != nil {
		t.logger.Warn("failed to check screen state", "error", err)
		return
	}
	t.screenOn = on
}

// rederive applies the derivation rule to the current inputs and emits a
// transition if the state changed.
func (t *Tracker) rederive() {
	if t.notifying {
		t.pending = true
		return
	}

	for {
		t.pending = false

		next := Derive(t.foreground, t.screenOn)
		if next == t.current {
			return
		}

		now := t.clock.Now()
		var d time.Duration
		if t.current != StateUnknown {
			d = since(t.startedAt, now)
		}

		tr := Transition{
			Previous: t.current,
			Next:     next,
			Duration: d,
			At:       now,
		}
		t.logger.Debug("state changed",
			"from", tr.Previous,
			"to", tr.Next,
			"lasted", tr.Duration.Round(100*time.Millisecond),
		)

		t.current = next
		t.startedAt = now
		t.notify(tr)

		if !t.pending {
			return
		}
	}
}

func (t *Tracker) notify(tr Transition) {
	// Copy so observers may unsubscribe while being notified
	subs := make([]subscription, len(t.subs))
	copy(subs, t.subs)

	t.notifying = true
	defer func() { t.notifying = false }()

	for _, s := range subs {
		s.observer.OnTransition(tr)
	}
}

// since returns now - start, clamped to zero.
func since(start, now time.Time) time.Duration {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return d
}
