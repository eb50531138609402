package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/penwyp/go-fleet-replay/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "replay"

// Metrics are the prometheus collectors of one playback session. They live in
// a registry owned by the session so several sessions can coexist.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	entries      *prometheus.CounterVec
	pageSwaps    *prometheus.CounterVec
	fetchErrors  prometheus.Counter
	tickDuration prometheus.Histogram
	state        prometheus.Gauge
	clockTime    prometheus.Gauge
}

// New creates and registers the collectors of a session
func New(session string) *Metrics {
	labels := prometheus.Labels{"session": session}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "entries_applied_total",
			Help:        "Change entries applied, by direction.",
			ConstLabels: labels,
		}, []string{"direction"}),
		pageSwaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "page_swaps_total",
			Help:        "Page window swaps, by direction.",
			ConstLabels: labels,
		}, []string{"direction"}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "fetch_errors_total",
			Help:        "History page fetches that failed.",
			ConstLabels: labels,
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "tick_duration_seconds",
			Help:        "Time spent processing one playback tick.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "clock_state",
			Help:        "Current playback clock state.",
			ConstLabels: labels,
		}),
		clockTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "clock_time_seconds",
			Help:        "Current simulation time of the playback clock.",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(m.entries, m.pageSwaps, m.fetchErrors, m.tickDuration, m.state, m.clockTime)
	return m
}

func direction(forward bool) string {
	if forward {
		return "forward"
	}
	return "backward"
}

// EntryApplied counts one applied change entry
func (m *Metrics) EntryApplied(forward bool) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(direction(forward)).Inc()
}

// PageSwapped counts one page window swap
func (m *Metrics) PageSwapped(forward bool) {
	if m == nil {
		return
	}
	m.pageSwaps.WithLabelValues(direction(forward)).Inc()
}

// FetchFailed counts one failed page fetch
func (m *Metrics) FetchFailed() {
	if m == nil {
		return
	}
	m.fetchErrors.Inc()
}

// ObserveTick records the duration of one tick
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

// SetState records the clock state
func (m *Metrics) SetState(state int) {
	if m == nil {
		return
	}
	m.state.Set(float64(state))
}

// SetTime records the clock time
func (m *Metrics) SetTime(t float64) {
	if m == nil {
		return
	}
	m.clockTime.Set(t)
}

// Registry exposes the session registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the session metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	util.LogInfo("Metrics available at http://" + addr + "/metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
