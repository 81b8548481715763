package resilience_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/hitchpath/hitchpath/internal/provider/resilience"
)

// upstream answers with the queued statuses in order, repeating the last.
type upstream struct {
	mu       sync.Mutex
	statuses []int
	bodies   []string
	calls    atomic.Int32
}

func newUpstream(t *testing.T, statuses ...int) (*upstream, string) {
	t.Helper()
	u := &upstream{statuses: statuses}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		n := int(u.calls.Add(1))

		u.mu.Lock()
		u.bodies = append(u.bodies, string(b))
		status := u.statuses[min(n, len(u.statuses))-1]
		u.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return u, srv.URL
}

// tolerant never trips within a single test.
func tolerant(name string) *resilience.CircuitBreakerConfig {
	cb := resilience.DefaultCircuitBreakerConfig(name)
	cb.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.Requests >= 100 }
	return &cb
}

var fastRetry = resilience.Retry{Max: 5, Initial: 5 * time.Millisecond, Ceiling: 20 * time.Millisecond}

func newClient(name string, retry resilience.Retry) *resilience.Client {
	return resilience.NewClient(resilience.ClientConfig{
		Name:    name,
		Timeout: 2 * time.Second,
		Retry:   retry,
		Breaker: tolerant(name),
	})
}

func get(t *testing.T, client *resilience.Client, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	if resp != nil {
		t.Cleanup(func() { resp.Body.Close() })
	}
	return resp, err
}

func TestClient_Attempts(t *testing.T) {
	tests := []struct {
		name       string
		retry      resilience.Retry
		statuses   []int
		wantStatus int
		wantCalls  int32
	}{
		{"success", fastRetry, []int{200}, 200, 1},
		{"retries 5xx until success", fastRetry, []int{502, 503, 200}, 200, 3},
		{"4xx is final", fastRetry, []int{401}, 401, 1},
		{"exhausted retries return last 5xx", resilience.Retry{Max: 2, Initial: time.Millisecond}, []int{500, 502, 503}, 503, 3},
		{"zero policy sends once", resilience.Retry{}, []int{503, 200}, 503, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, url := newUpstream(t, tt.statuses...)

			resp, err := get(t, newClient("jwks", tt.retry), url)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, u.calls.Load())
		})
	}
}

func TestClient_ReplaysBodyOnRetry(t *testing.T) {
	u, url := newUpstream(t, 500, 200)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader([]byte(`{"q":1}`)))
	require.NoError(t, err)
	resp, err := newClient("jwks", fastRetry).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	u.mu.Lock()
	defer u.mu.Unlock()
	assert.Equal(t, []string{`{"q":1}`, `{"q":1}`}, u.bodies)
}

func TestClient_CircuitOpensAfterFailures(t *testing.T) {
	u, url := newUpstream(t, 500)

	cb := resilience.DefaultCircuitBreakerConfig("mistral")
	cb.OnStateChange = resilience.LogStateChanges(zerolog.Nop())
	client := resilience.NewClient(resilience.ClientConfig{Name: "mistral", Timeout: time.Second, Breaker: &cb})

	for range 5 {
		_, _ = get(t, client, url)
	}
	require.Equal(t, gobreaker.StateOpen, client.CircuitBreakerState())

	resp, err := get(t, client, url)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(5), u.calls.Load())
}

func TestClient_CallerCancellationDoesNotTrip(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cb := resilience.DefaultCircuitBreakerConfig("mistral")
	registry := resilience.NewRegistry()
	client := resilience.NewClient(resilience.ClientConfig{Name: "mistral", Timeout: 5 * time.Second, Breaker: &cb, Registry: registry})

	for range 6 {
		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
		require.NoError(t, err)
		time.AfterFunc(10*time.Millisecond, cancel)

		resp, err := client.Do(req)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, context.Canceled)
		cancel()
	}

	assert.Equal(t, gobreaker.StateClosed, client.CircuitBreakerState())
	assert.Zero(t, client.CircuitBreakerCounts().TotalFailures)
	snap, ok := registry.Snapshot("mistral")
	require.True(t, ok)
	assert.Empty(t, snap.LastError)
}

func TestCallerCanceled(t *testing.T) {
	assert.True(t, resilience.CallerCanceled(context.Canceled))
	assert.False(t, resilience.CallerCanceled(context.DeadlineExceeded))
	assert.False(t, resilience.CallerCanceled(&resilience.ServerError{StatusCode: 502}))
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	client := resilience.NewClient(resilience.ClientConfig{Name: "mistral", Timeout: 50 * time.Millisecond})
	_, err := get(t, client, srv.URL)
	assert.Error(t, err)
}

func TestClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := newClient("mistral", fastRetry).Do(req)
	assert.Nil(t, resp)
	assert.Error(t, err)
}

func TestClient_ReportsToRegistry(t *testing.T) {
	u, url := newUpstream(t, 200, 500)
	registry := resilience.NewRegistry()
	client := resilience.NewClient(resilience.ClientConfig{Name: "mistral", Breaker: tolerant("mistral"), Registry: registry})

	_, err := get(t, client, url)
	require.NoError(t, err)
	snap, ok := registry.Snapshot("mistral")
	require.True(t, ok)
	assert.False(t, snap.LastSuccess.IsZero())
	assert.True(t, snap.LastFailure.IsZero())

	_, err = get(t, client, url)
	require.NoError(t, err)
	snap, _ = registry.Snapshot("mistral")
	assert.False(t, snap.LastFailure.IsZero())
	assert.Contains(t, snap.LastError, "Internal Server Error")
	assert.Equal(t, int32(2), u.calls.Load())
}

func TestClient_SpanPerAttempt(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, url := newUpstream(t, 502, 200)
	_, err := get(t, newClient("google-jwks", fastRetry), url)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "google-jwks GET", s.Name())
		assert.Equal(t, trace.SpanKindClient, s.SpanKind())
	}
}

func TestDefaultReadyToTrip(t *testing.T) {
	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"no requests", gobreaker.Counts{}, false},
		{"too few requests", gobreaker.Counts{Requests: 4, TotalFailures: 4}, false},
		{"low failure rate", gobreaker.Counts{Requests: 10, TotalFailures: 4}, false},
		{"half failing", gobreaker.Counts{Requests: 10, TotalFailures: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resilience.DefaultReadyToTrip(tt.counts))
		})
	}
}
