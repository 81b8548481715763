package resilience

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

// ErrCircuitOpen is returned without calling the server while the breaker
// rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Retry bounds how network errors and 5xx responses are retried. The zero
// value sends every request once, which is what non-idempotent or expensive
// calls such as text generation need.
type Retry struct {
	// Max is the number of retries after the first attempt.
	Max uint64
	// Initial and Ceiling bound the exponential backoff between attempts.
	Initial time.Duration
	Ceiling time.Duration
}

// RetryLookups is the policy for cheap idempotent GETs.
var RetryLookups = Retry{Max: 3, Initial: 100 * time.Millisecond, Ceiling: 2 * time.Second}

func (p Retry) backoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		bo.InitialInterval = p.Initial
	}
	if p.Ceiling > 0 {
		bo.MaxInterval = p.Ceiling
	}
	bo.MaxElapsedTime = 0
	return bo
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Name identifies the dependency in the registry, breaker logs and spans.
	Name string
	// Timeout applies to each attempt. Defaults to 10s.
	Timeout time.Duration
	Retry   Retry
	// Breaker defaults to DefaultCircuitBreakerConfig(Name).
	Breaker *CircuitBreakerConfig
	// Registry, when set, tracks the client and every call outcome.
	Registry *Registry
	// Transport defaults to http.DefaultTransport. It is always wrapped so
	// each attempt gets a client span.
	Transport http.RoundTripper
}

// Client sends HTTP requests to one dependency through a circuit breaker.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	retry    Retry
	registry *Registry
}

// NewClient creates a client and, if cfg.Registry is set, registers it.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	breaker := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		breaker = *cfg.Breaker
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	c := &Client{
		name: cfg.Name,
		http: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return cfg.Name + " " + r.Method
				})),
		},
		breaker:  NewCircuitBreaker[*http.Response](breaker), //nolint:bodyclose // type parameter
		retry:    cfg.Retry,
		registry: cfg.Registry,
	}
	if c.registry != nil {
		c.registry.Track(c.name, c)
	}
	return c
}

// Name returns the dependency name.
func (c *Client) Name() string { return c.name }

// Do sends req, retrying transient failures under the client's Retry policy
// and the request context. While the breaker is open it fails fast with
// ErrCircuitOpen. A 5xx still failing after the last attempt is returned as a
// response rather than an error so the caller can read its body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var (
		last    *http.Response
		attempt int
	)
	operation := func() error {
		attempt++
		try, err := replay(req, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			return c.send(try)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if resp != nil {
			discard(last)
			last = resp
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.retry.backoff(), c.retry.Max), req.Context())
	err := backoff.Retry(operation, policy)
	c.observe(err)
	if err != nil && last == nil {
		return nil, err
	}
	return last, nil
}

// send performs one attempt. 5xx responses come back with a *ServerError so
// they count against the breaker.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp, &ServerError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// replay returns the request for the given attempt, rewinding its body
// after the first.
func replay(req *http.Request, attempt int) (*http.Request, error) {
	try := req.Clone(req.Context())
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return try, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}
	try.Body = body
	return try, nil
}

func discard(resp *http.Response) {
	if resp == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (c *Client) observe(err error) {
	if c.registry != nil && !CallerCanceled(err) {
		c.registry.Observe(c.name, err)
	}
}

// ServerError is a 5xx response from the dependency.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the breaker's current state.
func (c *Client) CircuitBreakerState() gobreaker.State { return c.breaker.State() }

// CircuitBreakerCounts returns the breaker's counts for the current generation.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts { return c.breaker.Counts() }
