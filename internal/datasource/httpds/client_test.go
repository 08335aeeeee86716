package httpds

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(retries int) *Client {
	c := NewClient(Config{
		MaxRetries:     retries,
		Timeout:        2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	c.sleep = func(time.Duration) {}
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{InsecureSkipVerify: true, MaxRetries: -1})
	if c.httpClient.Timeout != 30*time.Second || c.maxRetries != 0 {
		t.Fatalf("timeout=%v retries=%d", c.httpClient.Timeout, c.maxRetries)
	}
	if c.initialBackoff != 200*time.Millisecond || c.maxBackoff != 5*time.Second {
		t.Fatalf("backoff=%v..%v", c.initialBackoff, c.maxBackoff)
	}
	tr, ok := c.httpClient.Transport.(*http.Transport)
	if !ok || tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("transport = %#v", c.httpClient.Transport)
	}
}

func TestCustomTransportIsUsedAsIs(t *testing.T) {
	t.Parallel()

	custom := &http.Transport{TLSClientConfig: &tls.Config{}}
	c := NewClient(Config{Transport: custom, InsecureSkipVerify: true})
	if c.httpClient.Transport != custom || custom.TLSClientConfig.InsecureSkipVerify {
		t.Fatal("custom transport was replaced or modified")
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		retries    int
		statuses   []int // served in order; the last one repeats
		wantHits   int32
		wantStatus int
		wantErr    bool
	}{
		{name: "success without retry", retries: 3, statuses: []int{200}, wantHits: 1, wantStatus: 200},
		{name: "5xx then success", retries: 3, statuses: []int{500, 502, 200}, wantHits: 3, wantStatus: 200},
		{name: "429 is retried", retries: 1, statuses: []int{429, 200}, wantHits: 2, wantStatus: 200},
		{name: "gives up after retries", retries: 2, statuses: []int{503}, wantHits: 3, wantErr: true},
		{name: "4xx is final", retries: 5, statuses: []int{404}, wantHits: 1, wantStatus: 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&hits, 1))
				if r.Header.Get("X-Engine") != "deploy" {
					w.WriteHeader(http.StatusTeapot)
					return
				}
				w.WriteHeader(tt.statuses[min(n, len(tt.statuses))-1])
			}))
			defer srv.Close()

			c := fastClient(tt.retries)
			c.baseHeaders = http.Header{"X-Engine": {"deploy"}}
			resp, err := c.Get(context.Background(), srv.URL, nil)
			if tt.wantErr {
				if err == nil {
					resp.Body.Close()
					t.Fatal("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Fatalf("Get error: %v", err)
				}
				resp.Body.Close()
				if resp.StatusCode != tt.wantStatus {
					t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
				}
			}
			if got := atomic.LoadInt32(&hits); got != tt.wantHits {
				t.Fatalf("hits = %d, want %d", got, tt.wantHits)
			}
		})
	}
}

func TestGet_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := fastClient(0).Get(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestSourceOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "id,name\n1,ann\n")
	}))
	defer srv.Close()

	rc, err := NewSource(fastClient(0), srv.URL+"/rows.csv").Open(context.Background())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "id,name\n1,ann\n" {
		t.Fatalf("body = %q", body)
	}

	if _, err := NewSource(fastClient(0), srv.URL+"/missing").Open(context.Background()); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		initial time.Duration
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{100 * time.Millisecond, 0, time.Second, 100 * time.Millisecond},
		{100 * time.Millisecond, 1, time.Second, 200 * time.Millisecond},
		{100 * time.Millisecond, 2, time.Second, 400 * time.Millisecond},
		{600 * time.Millisecond, 1, time.Second, time.Second},
		{2 * time.Second, 0, time.Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.initial.String()+"/attempt="+strconv.Itoa(tt.attempt), func(t *testing.T) {
			t.Parallel()
			if got := backoffDuration(tt.initial, tt.attempt, tt.max); got != tt.want {
				t.Fatalf("backoffDuration(%v, %d, %v) = %v, want %v", tt.initial, tt.attempt, tt.max, got, tt.want)
			}
		})
	}
}

func TestSleepWithContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithContext(ctx, func(time.Duration) {}, 100*time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
