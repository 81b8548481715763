package mistral_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitchpath/hitchpath/internal/llm"
	"github.com/hitchpath/hitchpath/internal/llm/mistral"
	"github.com/hitchpath/hitchpath/internal/provider/resilience"
)

func newClient(t *testing.T, handler http.HandlerFunc) (*mistral.Client, *resilience.Registry) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	registry := resilience.NewRegistry()
	return mistral.NewClient(mistral.Config{
		APIKey:   "test-key",
		BaseURL:  server.URL + "/",
		Timeout:  2 * time.Second,
		Registry: registry,
		Logger:   zerolog.Nop(),
	}), registry
}

func TestComplete_SendsRequest(t *testing.T) {
	var got map[string]any
	client, registry := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"steps\":[]}"}}]}`))
	})

	req := llm.UserPrompt("plan please")
	req.JSON = true
	req.Temperature = llm.Temperature(0.3)
	req.MaxTokens = 20

	text, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"steps":[]}`, text)

	assert.Equal(t, "open-mistral-nemo", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	assert.InDelta(t, 0.3, got["temperature"], 0.0001)
	assert.InDelta(t, 20, got["max_tokens"], 0.0001)
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": "plan please"}, msgs[0])

	_, tracked := registry.Snapshot(mistral.ProviderName)
	assert.True(t, tracked)
}

func TestComplete_OmitsOptionalFields(t *testing.T) {
	var got map[string]any
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	})

	_, err := client.Complete(context.Background(), llm.UserPrompt("hello"))
	require.NoError(t, err)

	assert.NotContains(t, got, "response_format")
	assert.NotContains(t, got, "temperature")
	assert.NotContains(t, got, "max_tokens")
}

func TestComplete_ServerErrorIsSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	client, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.Complete(context.Background(), llm.UserPrompt("hello"))

	var httpErr *mistral.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "upstream down", httpErr.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_EmptyReply(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), llm.UserPrompt("hello"))
	assert.ErrorIs(t, err, mistral.ErrEmptyReply)
}
