// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Invocation counters and durations are collected in a private registry
// and pushed to a Pushgateway on Flush instead of being exposed on a
// scrape endpoint. The engine name is the Pushgateway grouping job.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/NeoOrigin/flint-sub000/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	invocations *prometheus.CounterVec // flint_invocations_total
	duration    *prometheus.SummaryVec // flint_invocation_duration_seconds
	rows        *prometheus.CounterVec // flint_rows_total
	batches     prometheus.Counter     // flint_sink_batches_total
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (usually the engine name).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "flint"
	}

	reg := prometheus.NewRegistry()

	invocations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.InvocationsTotal,
			Help: "Controller invocations, partitioned by action and status.",
		},
		[]string{"action", "status"},
	)
	duration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.InvocationDuration,
			Help:       "Wall time of controller invocations in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"action", "status"},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows moved per stream (input, output, error, sink).",
		},
		[]string{"stream"},
	)
	batches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metrics.SinkBatchesTotal,
			Help: "Batches copied into the output sink.",
		},
	)

	for _, c := range []prometheus.Collector{invocations, duration, rows, batches} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:  gatewayURL,
		jobName:     jobName,
		reg:         reg,
		invocations: invocations,
		duration:    duration,
		rows:        rows,
		batches:     batches,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.InvocationsTotal:
		if b.invocations == nil {
			return
		}
		b.invocations.WithLabelValues(labels["action"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rows == nil {
			return
		}
		b.rows.WithLabelValues(labels["stream"]).Add(delta)

	case metrics.SinkBatchesTotal:
		if b.batches == nil {
			return
		}
		b.batches.Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.InvocationDuration || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(labels["action"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
