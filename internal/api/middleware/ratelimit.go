package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/hitchpath/hitchpath/internal/api/models"
)

// Limit is a fixed number of requests allowed per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

var (
	// AccountLimit guards the unauthenticated account endpoints per client IP.
	AccountLimit = Limit{Requests: 10, Window: time.Minute}
	// StandardLimit applies per user to every authenticated endpoint.
	StandardLimit = Limit{Requests: 100, Window: time.Minute}
	// GenerationLimit is shared per user by every endpoint that calls the LLM.
	GenerationLimit = Limit{Requests: 20, Window: time.Minute}
)

// PerIP limits requests by client address. chi's RealIP middleware must run
// first for proxied traffic.
func (l Limit) PerIP() func(http.Handler) http.Handler {
	return l.keyed(httprate.KeyByRealIP)
}

// PerUser limits requests by authenticated user, falling back to the client
// address for anonymous requests.
func (l Limit) PerUser() func(http.Handler) http.Handler {
	return l.keyed(func(r *http.Request) (string, error) {
		if id := GetUserID(r.Context()); id != "" {
			return "user:" + id, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

// Unless applies mw only to requests for which skip reports false.
func Unless(skip func(*http.Request) bool, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

func (l Limit) keyed(key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(l.Requests, l.Window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(l.exceeded),
	)
}

// exceeded writes a 429 problem. httprate does not hand the reset time to the
// limit handler, so Retry-After is the whole window.
func (l Limit) exceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", strconv.Itoa(int(l.Window.Seconds())))
	reject(w, r, models.NewTooManyRequests("", "Rate limit exceeded. Please try again later."))
}
