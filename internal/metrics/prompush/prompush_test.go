package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/NeoOrigin/flint-sub000/internal/metrics"
)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric did not contain Counter value")
	}
	return m.GetCounter().GetValue()
}

// readSummaryCountSum reads sample count and sum from a SummaryVec.
func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("SummaryVec.WithLabelValues(...) does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	if m.GetSummary() == nil {
		t.Fatalf("metric did not contain Summary value")
	}
	sum := m.GetSummary()
	return sum.GetSampleCount(), sum.GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing gateway URL returns error", jobName: "wh", wantErr: true},
		{name: "empty job name uses default", gatewayURL: "http://pushgateway:9091", wantJobName: "flint"},
		{name: "explicit job name is preserved", jobName: "warehouse", gatewayURL: "http://pushgateway:9091", wantJobName: "warehouse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				if err == nil || b != nil {
					t.Fatalf("NewBackend(%q, %q) = %v, %v; want error", tt.jobName, tt.gatewayURL, b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend(%q, %q) error = %v", tt.jobName, tt.gatewayURL, err)
			}
			if b.jobName != tt.wantJobName || b.gatewayURL != tt.gatewayURL {
				t.Fatalf("backend = %q %q", b.jobName, b.gatewayURL)
			}
			if b.invocations == nil || b.duration == nil || b.rows == nil || b.batches == nil {
				t.Fatalf("collectors not initialised")
			}
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		apply func(b *Backend)
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "invocations by action and status",
			apply: func(b *Backend) {
				b.IncCounter(metrics.InvocationsTotal, 1, metrics.Labels{"action": "create", "status": "ok"})
				b.IncCounter(metrics.InvocationsTotal, 2, metrics.Labels{"action": "create", "status": "ok"})
			},
			check: func(t *testing.T, b *Backend) {
				if got := readCounterValue(t, b.invocations.WithLabelValues("create", "ok")); got != 3 {
					t.Fatalf("invocations = %v, want 3", got)
				}
			},
		},
		{
			name: "rows by stream",
			apply: func(b *Backend) {
				b.IncCounter(metrics.RowsTotal, 5, metrics.Labels{"stream": "output"})
			},
			check: func(t *testing.T, b *Backend) {
				if got := readCounterValue(t, b.rows.WithLabelValues("output")); got != 5 {
					t.Fatalf("rows = %v, want 5", got)
				}
			},
		},
		{
			name: "sink batches",
			apply: func(b *Backend) {
				b.IncCounter(metrics.SinkBatchesTotal, 2, nil)
				b.IncCounter(metrics.SinkBatchesTotal, 0.5, nil)
			},
			check: func(t *testing.T, b *Backend) {
				if got := readCounterValue(t, b.batches); got != 2.5 {
					t.Fatalf("batches = %v, want 2.5", got)
				}
			},
		},
		{
			name: "unknown metric name is ignored",
			apply: func(b *Backend) {
				b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})
			},
			check: func(t *testing.T, b *Backend) {
				if got := readCounterValue(t, b.batches); got != 0 {
					t.Fatalf("batches = %v, want 0", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend("wh", "http://example.com")
			if err != nil {
				t.Fatalf("NewBackend() error = %v", err)
			}
			tt.apply(b)
			tt.check(t, b)
		})
	}
}

func TestZeroBackendIsSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.InvocationsTotal, 1, metrics.Labels{"action": "a", "status": "ok"})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"stream": "output"})
	b.IncCounter(metrics.SinkBatchesTotal, 1, nil)
	b.ObserveHistogram(metrics.InvocationDuration, 1, nil)
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("wh", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	lbls := metrics.Labels{"action": "drop", "status": "nonzero"}
	b.ObserveHistogram(metrics.InvocationDuration, 1.5, lbls)
	b.ObserveHistogram("other_metric", 2.0, lbls)

	count, sum := readSummaryCountSum(t, b.duration, "drop", "nonzero")
	if count != 1 || sum != 1.5 {
		t.Fatalf("summary = %d/%v, want 1/1.5", count, sum)
	}
}

// TestFlush verifies that Flush pushes the registry to the configured
// Pushgateway URL.
func TestFlush(t *testing.T) {
	t.Parallel()

	type pushRequestInfo struct {
		method  string
		path    string
		bodyLen int
	}
	reqCh := make(chan pushRequestInfo, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushRequestInfo{method: r.Method, path: r.URL.Path, bodyLen: len(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("wh", server.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.InvocationsTotal, 1, metrics.Labels{"action": "create", "status": "ok"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got pushRequestInfo
	select {
	case got = <-reqCh:
	default:
		t.Fatalf("Flush() did not result in any HTTP request to the Pushgateway")
	}
	if got.method != http.MethodPut || got.path != "/metrics/job/wh" || got.bodyLen == 0 {
		t.Fatalf("push request = %+v", got)
	}
}

func BenchmarkIncCounterInvocation(b *testing.B) {
	backend, err := NewBackend("wh", "http://example.com")
	if err != nil {
		b.Fatalf("NewBackend() error = %v", err)
	}
	labels := metrics.Labels{"action": "create", "status": "ok"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.IncCounter(metrics.InvocationsTotal, 1, labels)
	}
}
