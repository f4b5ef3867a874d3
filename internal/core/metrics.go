package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"anchorcore/internal/action"
)

var _ action.Recorder = (*PrometheusRecorder)(nil)

// PrometheusRecorder counts dispatched actions by outcome and observes their
// latency.
type PrometheusRecorder struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the action metrics on reg. A nil reg
// creates unregistered collectors.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "anchorcore",
				Subsystem: "action",
				Name:      "requests_total",
				Help:      "Dispatched actions by outcome.",
			},
			[]string{"action", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "anchorcore",
				Subsystem: "action",
				Name:      "duration_seconds",
				Help:      "Time spent dispatching an action, lock wait included.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"action"},
		),
	}
}

// ObserveAction implements action.Recorder.
func (r *PrometheusRecorder) ObserveAction(name, outcome string, elapsed time.Duration) {
	r.requests.WithLabelValues(name, outcome).Inc()
	r.duration.WithLabelValues(name).Observe(elapsed.Seconds())
}
