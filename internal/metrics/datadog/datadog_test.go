package datadog

import (
	"reflect"
	"testing"

	"github.com/NeoOrigin/flint-sub000/internal/metrics"
)

type fakeClient struct {
	counts []string
	hists  []string
	tags   [][]string
	closed bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, rate float64) error {
	f.counts = append(f.counts, name)
	f.tags = append(f.tags, tags)
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, rate float64) error {
	f.hists = append(f.hists, name)
	f.tags = append(f.tags, tags)
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestBackendForwardsWithSortedTags(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	lbls := metrics.Labels{"status": "ok", "action": "create", "engine": "wh"}
	b.IncCounter(metrics.InvocationsTotal, 1, lbls)
	b.ObserveHistogram(metrics.InvocationDuration, 0.2, lbls)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if !reflect.DeepEqual(fc.counts, []string{metrics.InvocationsTotal}) ||
		!reflect.DeepEqual(fc.hists, []string{metrics.InvocationDuration}) {
		t.Fatalf("calls = %v %v", fc.counts, fc.hists)
	}
	want := []string{"action:create", "engine:wh", "status:ok"}
	if !reflect.DeepEqual(fc.tags[0], want) {
		t.Fatalf("tags = %v; want %v", fc.tags[0], want)
	}
	if !fc.closed {
		t.Fatalf("Flush should close the client")
	}
}

func TestZeroBackendIsSafe(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if labelsToTags(nil) != nil {
		t.Fatalf("no labels should give no tags")
	}
}
