package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Result label values.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
	ResultHit    = "hit"
	ResultMiss   = "miss"
)

// Metrics provides Prometheus metrics for script parsing and the profile
// registry. A nil or disabled *Metrics is safe to use and records nothing.
type Metrics struct {
	config MetricsConfig

	scriptsParsed      *prometheus.CounterVec
	profilesRegistered prometheus.Gauge
	lookups            *prometheus.CounterVec
	loadDuration       *prometheus.HistogramVec
	reloads            *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector on a private registry.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.HistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		scriptsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scripts_parsed_total",
				Help:      "Total number of capability scripts parsed",
			},
			[]string{"result"},
		),
		profilesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "profiles_registered",
				Help:      "Current number of named capability profiles in the registry",
			},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Total number of registry lookups",
			},
			[]string{"result"},
		),
		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Duration of bulk loads in seconds",
				Buckets:   buckets,
			},
			[]string{"archive"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_total",
				Help:      "Total number of reloads triggered by file changes",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.scriptsParsed,
		m.profilesRegistered,
		m.lookups,
		m.loadDuration,
		m.reloads,
	)

	return m, nil
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// RecordScriptParsed counts one parsed script, successful or not.
func (m *Metrics) RecordScriptParsed(ok bool) {
	if !m.enabled() {
		return
	}
	m.scriptsParsed.WithLabelValues(result(ok, ResultOK, ResultFailed)).Inc()
}

// SetProfilesRegistered sets the registry size.
func (m *Metrics) SetProfilesRegistered(n int) {
	if !m.enabled() {
		return
	}
	m.profilesRegistered.Set(float64(n))
}

// RecordLookup counts a lookup hit or miss.
func (m *Metrics) RecordLookup(hit bool) {
	if !m.enabled() {
		return
	}
	m.lookups.WithLabelValues(result(hit, ResultHit, ResultMiss)).Inc()
}

// RecordLoad observes the duration of a bulk load from one archive type.
func (m *Metrics) RecordLoad(archiveType string, d time.Duration) {
	if !m.enabled() {
		return
	}
	m.loadDuration.WithLabelValues(archiveType).Observe(d.Seconds())
}

// RecordReload counts a watch-triggered reload.
func (m *Metrics) RecordReload(ok bool) {
	if !m.enabled() {
		return
	}
	m.reloads.WithLabelValues(result(ok, ResultOK, ResultFailed)).Inc()
}

// Registry exposes the private registry, nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func result(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// Timer measures an operation.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes the metrics endpoint on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	if !m.enabled() {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Str("path", path).Msg("Serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
