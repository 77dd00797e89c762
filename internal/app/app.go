// Package app is the composition root: it owns the tracker, the manager and
// the stores, and runs the single loop that all state changes go through.
//
// Adapters and UI goroutines never touch the tracker directly. They send
// events with Dispatch and read state with Snapshot; both are served by the
// loop goroutine started with Run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/screenstate/internal/config"
	"github.com/vovakirdan/screenstate/internal/gamestate"
	"github.com/vovakirdan/screenstate/internal/metrics"
	"github.com/vovakirdan/screenstate/internal/screen"
	"github.com/vovakirdan/screenstate/internal/storage"
)

// ErrAlreadyRunning is returned when Run is called more than once.
var ErrAlreadyRunning = errors.New("app: already running")

const (
	eventBuffer      = 64
	transitionBuffer = 16
)

// Snapshot is a read-only view of tracker and totals at one instant.
type Snapshot struct {
	State       screen.DeviceState
	Elapsed     time.Duration
	Totals      storage.Totals
	Initialized bool
	At          time.Time
}

// Option configures an App.
type Option func(*App)

// WithClock overrides the tracker clock.
func WithClock(c screen.Clock) Option {
	return func(a *App) {
		a.clock = c
	}
}

// WithProbe sets the platform screen probe.
func WithProbe(p screen.ScreenProbe) Option {
	return func(a *App) {
		a.probe = p
	}
}

// WithStore replaces the totals file store.
func WithStore(s gamestate.TotalsStore) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithMetrics publishes accumulations to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// App wires the tracker, manager and stores together.
type App struct {
	cfg    config.Config
	logger *log.Logger

	clock   screen.Clock
	probe   screen.ScreenProbe
	store   gamestate.TotalsStore
	journal *storage.Journal
	metrics *metrics.Metrics

	tracker *screen.Tracker
	manager *gamestate.Manager

	events   chan Event
	done     chan struct{}
	running  atomic.Bool
	stopping atomic.Bool // set once the loop has taken its last event
	final    Snapshot    // set before done is closed

	subMu      sync.Mutex
	subs       map[int]chan screen.Transition
	subID      int
	subsClosed bool
}

// New builds an App from cfg. The totals store defaults to the file in
// cfg.Data.Dir; the journal is opened when history is enabled.
func New(cfg config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		clock:  screen.SystemClock{},
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		subs:   make(map[int]chan screen.Transition),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		store, err := storage.NewFileStore(cfg.Data.Dir, logger)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.store = store
	}

	if cfg.History.Enabled {
		journal, err := storage.OpenJournal(cfg.JournalPath())
		if err != nil {
			// History is optional; totals still work without it
			logger.Warn("could not open history journal", "path", cfg.JournalPath(), "error", err)
		} else {
			a.journal = journal
		}
	}

	trackerOpts := []screen.Option{screen.WithClock(a.clock)}
	if a.probe != nil {
		trackerOpts = append(trackerOpts, screen.WithProbe(a.probe))
	}
	a.tracker = screen.NewTracker(logger, trackerOpts...)

	var managerOpts []gamestate.Option
	if a.journal != nil {
		managerOpts = append(managerOpts, gamestate.WithJournal(a.journal))
	}
	if a.metrics != nil {
		managerOpts = append(managerOpts, gamestate.WithRecorder(a.metrics))
	}
	a.manager = gamestate.NewManager(a.tracker, a.store, logger, managerOpts...)

	return a, nil
}

// Config returns the configuration the app was built with.
func (a *App) Config() config.Config {
	return a.cfg
}

// Journal returns the history journal, or nil when history is disabled.
func (a *App) Journal() *storage.Journal {
	return a.journal
}

// Run initializes the tracker and manager, processes events until ctx is
// cancelled or a QuitEvent arrives, then saves and shuts down.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(a.done)

	a.init()
	defer a.shutdown()

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("context cancelled, stopping")
			return nil

		case ev := <-a.events:
			if a.handle(ev) {
				return nil
			}
		}
	}
}

// Done is closed once Run has returned.
func (a *App) Done() <-chan struct{} {
	return a.done
}

// Dispatch queues an event for the loop. It returns false once the loop is
// stopping or has stopped. Events still queued when the loop stops are
// discarded.
func (a *App) Dispatch(ev Event) bool {
	if a.stopping.Load() || a.stopped() {
		return false
	}
	select {
	case a.events <- ev:
		return true
	case <-a.done:
		return false
	}
}

// Snapshot returns the current state as seen by the loop. Requests share the
// event queue, so a snapshot taken after Dispatch reflects that event. After
// the loop has stopped it returns the final snapshot taken at shutdown.
func (a *App) Snapshot() Snapshot {
	if a.stopped() {
		return a.final
	}
	reply := make(chan Snapshot, 1)
	select {
	case a.events <- snapshotRequest{reply: reply}:
	case <-a.done:
		return a.final
	}
	select {
	case s := <-reply:
		return s
	case <-a.done:
		return a.final
	}
}

func (a *App) stopped() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Subscribe returns a channel receiving every transition and a function to
// stop receiving. Transitions are dropped if the subscriber falls behind.
// The channel is closed when the loop stops.
func (a *App) Subscribe() (<-chan screen.Transition, func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	ch := make(chan screen.Transition, transitionBuffer)
	if a.subsClosed {
		close(ch)
		return ch, func() {}
	}

	a.subID++
	id := a.subID
	a.subs[id] = ch

	return ch, func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		if c, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(c)
		}
	}
}

func (a *App) init() {
	a.tracker.Subscribe(screen.ObserverFunc(a.broadcast))
	a.tracker.Initialize()
	a.manager.Initialize()

	if a.metrics != nil {
		a.metrics.SetTotals(a.manager.Totals())
	}
	a.logger.Info("screenstate started", "state", a.tracker.Current())
}

func (a *App) shutdown() {
	a.stopping.Store(true)
	a.manager.OnQuit()
	a.final = a.snapshot()

	a.manager.Shutdown()
	a.tracker.Shutdown()

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close history journal", "error", err)
		}
	}

	a.subMu.Lock()
	for id, ch := range a.subs {
		delete(a.subs, id)
		close(ch)
	}
	a.subsClosed = true
	a.subMu.Unlock()

	a.logger.Info("screenstate stopped",
		"running", fmt.Sprintf("%.1fs", a.final.Totals.RunningTime),
		"screen_off", fmt.Sprintf("%.1fs", a.final.Totals.ScreenOffTime),
		"unlocked", fmt.Sprintf("%.1fs", a.final.Totals.UnlockedTime),
	)
}

// handle applies one event. Lifecycle callbacks reach the manager before the
// tracker so the in-progress interval is saved first. Returns true on quit.
func (a *App) handle(ev Event) bool {
	switch ev := ev.(type) {
	case PauseEvent:
		a.manager.OnPause(ev.Paused)
		a.tracker.ReportPause(ev.Paused)
	case FocusEvent:
		a.manager.OnFocus(ev.Focused)
		a.tracker.ReportFocus(ev.Focused)
	case ForegroundEvent:
		a.tracker.ReportForeground(ev.Foreground)
	case ScreenEvent:
		a.tracker.ReportScreenSignal(ev.Signal)
	case ApplyEvent:
		a.tracker.Apply(ev.Foreground, ev.ScreenOn)
	case snapshotRequest:
		ev.reply <- a.snapshot()
	case QuitEvent:
		a.logger.Debug("quit requested")
		return true
	default:
		a.logger.Warn("ignoring unknown event", "type", fmt.Sprintf("%T", ev))
	}
	return false
}

func (a *App) snapshot() Snapshot {
	return Snapshot{
		State:       a.tracker.Current(),
		Elapsed:     a.tracker.Elapsed(),
		Totals:      a.manager.Totals(),
		Initialized: a.tracker.IsInitialized() && a.manager.IsInitialized(),
		At:          a.clock.Now(),
	}
}

// broadcast fans a transition out to subscribers without blocking the loop.
func (a *App) broadcast(tr screen.Transition) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	for _, ch := range a.subs {
		select {
		case ch <- tr:
		default:
		}
	}
}
