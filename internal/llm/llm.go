// Package llm holds the AI review clients and the registry that selects one
// by provider name.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.7
	DefaultTimeout     = 120 * time.Second
)

var (
	ErrStreamingUnsupported = errors.New("provider does not support streaming")
	ErrUnknownProvider      = errors.New("unknown provider")
)

// Request is one review call. Explain is empty when no plan is available.
type Request struct {
	SQL            string
	Explain        string
	Schema         string
	SystemPrompt   string
	PromptTemplate string
	MaxTokens      int
	Temperature    float64
	Model          string
}

// Chunk is one streamed fragment. A chunk with Err set is always the last
// one sent before the channel closes.
type Chunk struct {
	Text string
	Err  error
}

type Client interface {
	Review(ctx context.Context, req Request) (string, error)
}

// Streamer is implemented by clients that can stream partial output.
type Streamer interface {
	ReviewStream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// Config is what a Factory needs to build a client for one provider row.
type Config struct {
	Provider   string
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("%s authentication failed (status %d): check the API key: %s", e.Provider, e.StatusCode, e.Body)
	case http.StatusNotFound:
		return fmt.Sprintf("%s endpoint or model not found (status %d): check the endpoint URL and model name: %s", e.Provider, e.StatusCode, e.Body)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("%s rate limit exceeded (status %d): retry later or check the account quota: %s", e.Provider, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
	}
}

func normalize(req Request) Request {
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	if req.SystemPrompt == "" {
		req.SystemPrompt = DefaultSystemPrompt
	}
	return req
}
