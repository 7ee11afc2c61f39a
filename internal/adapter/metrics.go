package adapter

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	m "mutate.dev/pkg/mutate/internal/model"
)

const metricsNamespace = "mutate"

// Metrics provides Prometheus metrics for mutation runs. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	runs           *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	patches        *prometheus.CounterVec
	workspaceSyncs prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	metrics := &Metrics{
		registry: registry,

		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Total number of pipeline steps executed",
			},
			[]string{"step", "log"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of pipeline steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"step"},
		),
		patches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "patches_total",
				Help:      "Total number of patches that reached a terminal state",
			},
			[]string{"state"},
		),
		workspaceSyncs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "workspace_syncs_total",
				Help:      "Total number of workspace copies made from a project tree",
			},
		),
	}

	registry.MustRegister(
		metrics.runs,
		metrics.stepDuration,
		metrics.patches,
		metrics.workspaceSyncs,
	)

	return metrics
}

// ObserveRun records one executed pipeline step.
func (mt *Metrics) ObserveRun(run m.Run) {
	if mt == nil {
		return
	}

	mt.runs.WithLabelValues(run.Step.String(), string(run.Log)).Inc()
	mt.stepDuration.WithLabelValues(run.Step.String()).Observe(run.Duration.Seconds())
}

// ObservePatch records a patch reaching state.
func (mt *Metrics) ObservePatch(state m.PatchState) {
	if mt == nil {
		return
	}

	mt.patches.WithLabelValues(string(state)).Inc()
}

// ObserveSync records a full workspace copy.
func (mt *Metrics) ObserveSync() {
	if mt == nil {
		return
	}

	mt.workspaceSyncs.Inc()
}

// Registry exposes the underlying registry.
func (mt *Metrics) Registry() *prometheus.Registry {
	if mt == nil {
		return nil
	}

	return mt.registry
}

// Handler returns the HTTP handler serving the metrics in the Prometheus
// exposition format.
func (mt *Metrics) Handler() http.Handler {
	if mt == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(mt.registry, promhttp.HandlerOpts{})
}

// NewMetricsServer builds the HTTP server exposing /metrics on addr.
func NewMetricsServer(addr string, metrics *Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
