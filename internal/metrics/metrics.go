// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from controller invocations.
//
// The package exposes a narrow interface (Backend) focused on counters and
// timing data. A global backend defaults to a no-op implementation, so
// metrics are always safe to call even when no real backend is configured.
// Concrete systems (Prometheus Pushgateway, DogStatsD) live in subpackages
// and are installed with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by this package.
const (
	InvocationsTotal   = "flint_invocations_total"
	InvocationDuration = "flint_invocation_duration_seconds"
	RowsTotal          = "flint_rows_total"
	SinkBatchesTotal   = "flint_sink_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// Outcome classifies an invocation for the status label: "ok" for a zero
// exit, "nonzero" for any other exit and "error" when the process could not
// be run or waited for.
func Outcome(exit int, err error) string {
	switch {
	case err != nil:
		return "error"
	case exit == 0:
		return "ok"
	}
	return "nonzero"
}

// RecordInvocation counts one controller invocation and records its wall
// time.
func RecordInvocation(engine, action string, exit int, err error, d time.Duration) {
	lbls := Labels{
		"engine": engine,
		"action": action,
		"status": Outcome(exit, err),
	}
	b := current()
	b.IncCounter(InvocationsTotal, 1, lbls)
	b.ObserveHistogram(InvocationDuration, d.Seconds(), lbls)
}

// RecordRows counts rows moved over one stream ("input", "output",
// "error", "sink").
func RecordRows(engine, stream string, n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(n), Labels{
		"engine": engine,
		"stream": stream,
	})
}

// RecordSinkBatches counts batches flushed to the output sink.
func RecordSinkBatches(engine string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(SinkBatchesTotal, float64(delta), Labels{
		"engine": engine,
	})
}
