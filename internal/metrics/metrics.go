// Package metrics exposes screen-state totals and tracker activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/screenstate/internal/screen"
	"github.com/vovakirdan/screenstate/internal/storage"
)

// Metrics holds the collectors and the registry they are registered with.
// It implements gamestate.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	TotalSeconds   *prometheus.GaugeVec
	Transitions    *prometheus.CounterVec
	Saves          *prometheus.CounterVec
	ProactiveSaves prometheus.Counter
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TotalSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "screenstate_total_seconds",
				Help: "Cumulative seconds spent in each device state",
			},
			[]string{"state"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screenstate_transitions_total",
				Help: "State transitions by the state that ended",
			},
			[]string{"from"},
		),
		Saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screenstate_saves_total",
				Help: "Totals file writes by result",
			},
			[]string{"result"},
		),
		ProactiveSaves: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "screenstate_proactive_saves_total",
				Help: "Intervals saved ahead of a suspension signal",
			},
		),
	}

	m.registry.MustRegister(
		m.TotalSeconds,
		m.Transitions,
		m.Saves,
		m.ProactiveSaves,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SetTotals publishes the given totals.
func (m *Metrics) SetTotals(t storage.Totals) {
	for _, s := range screen.TrackedStates {
		m.TotalSeconds.WithLabelValues(s.String()).Set(t.Get(s))
	}
}

// ObserveTransition counts a state transition.
func (m *Metrics) ObserveTransition(tr screen.Transition) {
	m.Transitions.WithLabelValues(tr.Previous.String()).Inc()
}

// ObserveAccumulation publishes totals after an interval was added.
func (m *Metrics) ObserveAccumulation(_ screen.DeviceState, source storage.Source, totals storage.Totals) {
	if source == storage.SourceProactive {
		m.ProactiveSaves.Inc()
	}
	m.SetTotals(totals)
}

// ObserveSave counts a totals write.
func (m *Metrics) ObserveSave(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Saves.WithLabelValues(result).Inc()
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
