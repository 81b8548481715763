package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitchpath/hitchpath/internal/api/middleware"
)

type limitClient struct {
	h http.Handler
}

func (c limitClient) send(addr, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/chatbot", http.NoBody)
	req.RemoteAddr = addr
	if userID != "" {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), middleware.Principal{UserID: userID}))
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	return w
}

func (c limitClient) codes(addr, userID string, n int) []int {
	out := make([]int, n)
	for i := range n {
		out[i] = c.send(addr, userID).Code
	}
	return out
}

const (
	allowed = http.StatusOK
	limited = http.StatusTooManyRequests
)

func TestLimit_PerIP(t *testing.T) {
	c := limitClient{middleware.Limit{Requests: 3, Window: time.Minute}.PerIP()(okHandler())}

	assert.Equal(t, []int{allowed, allowed, allowed, limited}, c.codes("10.0.0.1:4000", "", 4))
	assert.Equal(t, []int{allowed, allowed}, c.codes("10.0.0.2:4000", "", 2), "other addresses keep their own bucket")
	// The port is not part of the key.
	assert.Equal(t, limited, c.send("10.0.0.1:5000", "").Code)
}

func TestLimit_PerUser(t *testing.T) {
	c := limitClient{middleware.Limit{Requests: 2, Window: time.Minute}.PerUser()(okHandler())}

	// One user across several addresses shares a bucket.
	assert.Equal(t, allowed, c.send("192.168.1.1:1", "usr_1").Code)
	assert.Equal(t, allowed, c.send("192.168.1.2:1", "usr_1").Code)
	assert.Equal(t, limited, c.send("192.168.1.3:1", "usr_1").Code)

	assert.Equal(t, allowed, c.send("192.168.1.1:1", "usr_2").Code)

	// Anonymous requests are keyed by address and ignore user buckets.
	assert.Equal(t, []int{allowed, allowed, limited}, c.codes("192.168.1.1:1", "", 3))
}

func TestUnless(t *testing.T) {
	limit := middleware.Limit{Requests: 1, Window: time.Minute}.PerUser()
	skipUser2 := func(r *http.Request) bool { return middleware.GetUserID(r.Context()) == "usr_2" }
	c := limitClient{middleware.Unless(skipUser2, limit)(okHandler())}

	assert.Equal(t, []int{allowed, limited}, c.codes("10.0.0.1:1", "usr_1", 2))
	assert.Equal(t, []int{allowed, allowed, allowed}, c.codes("10.0.0.1:1", "usr_2", 3))
}

func TestLimit_ExceededProblem(t *testing.T) {
	h := middleware.RequestID(middleware.Limit{Requests: 1, Window: 90 * time.Second}.PerIP()(okHandler()))
	c := limitClient{h}

	require.Equal(t, allowed, c.send("203.0.113.1:1", "").Code)
	w := c.send("203.0.113.1:1", "")

	require.Equal(t, limited, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "90", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["type"], "too-many-requests")
	assert.Equal(t, "/api/chatbot", body["instance"])
	assert.Contains(t, body["error"], "Rate limit exceeded")
	assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), body["traceId"])
}

func TestLimit_Defaults(t *testing.T) {
	assert.Equal(t, middleware.Limit{Requests: 10, Window: time.Minute}, middleware.AccountLimit)
	assert.Equal(t, middleware.Limit{Requests: 100, Window: time.Minute}, middleware.StandardLimit)
	assert.Equal(t, middleware.Limit{Requests: 20, Window: time.Minute}, middleware.GenerationLimit)
}
