// Package gamestate accumulates tracked screen-state durations into
// persisted totals.
//
// The Manager listens to tracker transitions and writes every completed
// interval through to the store immediately. Because host pause/focus
// callbacks can arrive before the tracker has seen the matching input, the
// Manager also saves the in-progress interval ahead of a suspension and
// resets the tracker's start time so the same span is never counted twice.
package gamestate

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/screenstate/internal/screen"
	"github.com/vovakirdan/screenstate/internal/storage"
)

// TotalsStore loads and saves the totals record.
type TotalsStore interface {
	Load() storage.Totals
	Save(t storage.Totals) error
}

// Journal receives every accumulated interval. Optional.
type Journal interface {
	Record(e storage.JournalEntry) (int64, error)
}

// Recorder receives accumulation and save outcomes, typically metrics. Optional.
type Recorder interface {
	ObserveTransition(tr screen.Transition)
	ObserveAccumulation(state screen.DeviceState, source storage.Source, totals storage.Totals)
	ObserveSave(err error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithJournal appends every accumulated interval to j.
func WithJournal(j Journal) Option {
	return func(m *Manager) {
		m.journal = j
	}
}

// WithRecorder reports accumulations and saves to r.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// Manager owns accumulation and persistence of totals.
// Like the tracker it is not safe for concurrent use.
type Manager struct {
	tracker  *screen.Tracker
	store    TotalsStore
	journal  Journal
	recorder Recorder
	logger   *log.Logger

	totals      storage.Totals
	loaded      bool
	initialized bool
	unsubscribe func()
}

// NewManager creates a manager for tracker backed by store.
func NewManager(tracker *screen.Tracker, store TotalsStore, logger *log.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := &Manager{
		tracker: tracker,
		store:   store,
		logger:  logger.WithPrefix("gamestate"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize subscribes to tracker transitions. Calling it again is a no-op.
func (m *Manager) Initialize() {
	if m.initialized {
		return
	}
	m.EnsureLoaded()
	m.unsubscribe = m.tracker.Subscribe(m)
	m.initialized = true
	m.logger.Info("manager initialized")
}

// Shutdown unsubscribes from the tracker. Calling it again is a no-op.
func (m *Manager) Shutdown() {
	if !m.initialized {
		return
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.initialized = false
	m.logger.Info("manager shutdown")
}

// IsInitialized reports whether the manager is subscribed to the tracker.
func (m *Manager) IsInitialized() bool {
	return m.initialized
}

// EnsureLoaded loads the totals record on first use.
// A missing or corrupt file yields zeroed totals.
func (m *Manager) EnsureLoaded() {
	if m.loaded {
		return
	}
	if m.store != nil {
		m.totals = m.store.Load()
	}
	m.loaded = true
}

// Totals returns a copy of the current totals, loading them if needed.
func (m *Manager) Totals() storage.Totals {
	m.EnsureLoaded()
	return m.totals
}

// OnTransition accumulates the interval that just ended.
func (m *Manager) OnTransition(tr screen.Transition) {
	if m.recorder != nil {
		m.recorder.ObserveTransition(tr)
	}

	if tr.Previous == screen.StateUnknown || tr.Duration <= 0 {
		m.logger.Debug("skipped accumulation",
			"previous", tr.Previous,
			"duration", tr.Duration,
		)
		return
	}

	before := m.Totals().Get(tr.Previous)
	m.accumulate(tr.Previous, tr.Duration, storage.SourceTransition, tr.At)
	m.logger.Info("interval saved",
		"state", tr.Previous,
		"added", seconds(tr.Duration),
		"total", fmt.Sprintf("%.1fs -> %.1fs", before, m.totals.Get(tr.Previous)),
		"now", tr.Next,
	)
}

// OnPause handles the host pause callback. Both pausing and resuming save
// the in-progress interval before the tracker sees the change.
func (m *Manager) OnPause(paused bool) {
	if paused {
		m.logger.Debug("app paused, saving current state time")
	} else {
		m.logger.Debug("app resumed, saving current state time")
	}
	m.SaveCurrentStateTime()
}

// OnFocus handles the host focus callback. Both losing and gaining focus
// save the in-progress interval before the tracker sees the change.
func (m *Manager) OnFocus(focused bool) {
	if focused {
		m.logger.Debug("app gained focus, saving current state time")
	} else {
		m.logger.Debug("app lost focus, saving current state time")
	}
	m.SaveCurrentStateTime()
}

// OnQuit saves the in-progress interval and writes the totals one last time.
func (m *Manager) OnQuit() {
	m.SaveCurrentStateTime()
	if m.store != nil && m.loaded {
		m.save()
	}
}

// SaveCurrentStateTime accumulates the elapsed time of the current state,
// persists it and restarts the tracker's timing of that state.
func (m *Manager) SaveCurrentStateTime() {
	if !m.initialized || m.tracker == nil {
		return
	}

	state := m.tracker.Current()
	if state == screen.StateUnknown {
		return
	}

	elapsed := m.tracker.Elapsed()
	if elapsed <= 0 {
		return
	}

	end := m.tracker.StateStartTime().Add(elapsed)
	m.accumulate(state, elapsed, storage.SourceProactive, end)
	m.tracker.ResetStateStartTime()

	m.logger.Info("current state time saved",
		"state", state,
		"added", seconds(elapsed),
		"total", fmt.Sprintf("%.1fs", m.totals.Get(state)),
	)
}

func (m *Manager) accumulate(state screen.DeviceState, d time.Duration, source storage.Source, at time.Time) {
	m.EnsureLoaded()
	if !m.totals.Add(state, d.Seconds()) {
		return
	}

	m.save()

	if m.journal != nil {
		entry := storage.JournalEntry{
			State:   state,
			Seconds: d.Seconds(),
			Source:  source,
			EndedAt: at,
		}
		if _, err := m.journal.Record(entry); err != nil {
			m.logger.Warn("failed to journal interval", "state", state, "error", err)
		}
	}
	if m.recorder != nil {
		m.recorder.ObserveAccumulation(state, source, m.totals)
	}
}

// save writes the totals through. Failures are logged by the store and the
// in-memory totals stay authoritative until the next successful save.
func (m *Manager) save() {
	if m.store == nil {
		return
	}
	err := m.store.Save(m.totals)
	if err != nil {
		m.logger.Warn("totals kept in memory until next save", "error", err)
	}
	if m.recorder != nil {
		m.recorder.ObserveSave(err)
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
