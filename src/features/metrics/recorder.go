package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lrcsync"

// Recorder counts run outcomes and provider requests on its own registry so
// they can be exported as a node_exporter textfile once the run ends.
type Recorder struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	lastRun  prometheus.Gauge
}

// NewRecorder creates a recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Processed audio files by outcome kind and detail.",
		}, []string{"kind", "detail"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Lyrics provider requests by operation and result.",
		}, []string{"operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Lyrics provider request latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	r.registry.MustRegister(r.outcomes, r.requests, r.latency, r.lastRun)
	return r
}

// RecordOutcome counts one processed file. detail is the skip reason or
// write result, empty for outcomes without one.
func (r *Recorder) RecordOutcome(kind, detail string) {
	r.outcomes.WithLabelValues(kind, detail).Inc()
}

// ObserveRequest counts one provider request and its latency.
func (r *Recorder) ObserveRequest(operation, result string, elapsed time.Duration) {
	r.requests.WithLabelValues(operation, result).Inc()
	r.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// WriteTextfile stamps the run end and writes every metric to path in the
// Prometheus text format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	r.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
