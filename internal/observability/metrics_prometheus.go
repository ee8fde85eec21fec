package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports operation latency and outcome counts.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	results  *prometheus.CounterVec
}

// NewPrometheusRecorder registers its collectors, together with the Go and
// process collectors, on a private registry.
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	if namespace == "" {
		namespace = "ecoresiduos"
	}
	reg := prometheus.NewRegistry()
	r := &PrometheusRecorder{
		registry: reg,
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of aggregation, chart, report and export operations.",
			Buckets:   []float64{.005, .025, .1, .3, 1, 3, 10, 30},
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Completed operations by outcome.",
		}, []string{"operation", "status"}),
	}
	reg.MustRegister(
		r.duration,
		r.results,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe records an operation outcome.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// Registry exposes the registry for tests and additional collectors.
func (r *PrometheusRecorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// MultiRecorder fans an observation out to several recorders.
type MultiRecorder []MetricsRecorder

// Observe forwards to every non-nil recorder.
func (m MultiRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		if r != nil {
			r.Observe(ctx, operation, success, duration)
		}
	}
}
