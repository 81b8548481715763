// Package mistral is a chat-completions client for the Mistral API.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/llm"
	"github.com/hitchpath/hitchpath/internal/provider/resilience"
)

// ProviderName is the name used for the circuit breaker and health registry.
const ProviderName = "mistral"

const (
	defaultBaseURL = "https://api.mistral.ai/v1"
	defaultModel   = "open-mistral-nemo"
)

// ErrEmptyReply aliases llm.ErrEmptyReply for callers that only import this package.
var ErrEmptyReply = llm.ErrEmptyReply

// HTTPError is a non-2xx answer from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("mistral: status %d: %s", e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Registry *resilience.Registry
	Logger   zerolog.Logger
}

// Client implements llm.Completer.
type Client struct {
	http    *resilience.Client
	baseURL string
	apiKey  string
	model   string
}

var _ llm.Completer = (*Client)(nil)

// NewClient creates a Mistral client. Every completion is a single attempt
// guarded by the provider circuit breaker.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	cb := resilience.DefaultCircuitBreakerConfig(ProviderName)
	cb.OnStateChange = resilience.LogStateChanges(cfg.Logger)

	return &Client{
		http: resilience.NewClient(resilience.ClientConfig{
			Name:     ProviderName,
			Timeout:  timeout,
			Breaker:  &cb,
			Registry: cfg.Registry,
		}),
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
	}
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the request to /chat/completions and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	body := completionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling mistral: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	for _, choice := range out.Choices {
		if strings.TrimSpace(choice.Message.Content) != "" {
			return choice.Message.Content, nil
		}
	}
	return "", ErrEmptyReply
}
