package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultAnthropicEndpoint = "https://api.anthropic.com/v1"
	anthropicVersion         = "2023-06-01"
)

// Anthropic speaks the messages API.
type Anthropic struct {
	name   string
	url    string
	apiKey string
	client *http.Client
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewAnthropic(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultAnthropicEndpoint
	}
	if !strings.HasSuffix(endpoint, "/messages") {
		endpoint += "/messages"
	}

	return &Anthropic{
		name:   cfg.Provider,
		url:    endpoint,
		apiKey: cfg.APIKey,
		client: cfg.httpClient(),
	}, nil
}

func (c *Anthropic) request(req Request, stream bool) anthropicRequest {
	req = normalize(req)
	return anthropicRequest{
		Model:       req.Model,
		System:      req.SystemPrompt,
		Messages:    []chatMessage{{Role: "user", Content: BuildPrompt(req.PromptTemplate, req)}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (c *Anthropic) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

func (c *Anthropic) Review(ctx context.Context, req Request) (string, error) {
	resp, err := post(ctx, c.client, c.name, c.url, c.headers(), c.request(req, false))
	if err != nil {
		return "", err
	}

	var out anthropicResponse
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func (c *Anthropic) ReviewStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	headers := c.headers()
	headers["Accept"] = "text/event-stream"

	resp, err := post(ctx, c.client, c.name, c.url, headers, c.request(req, true))
	if err != nil {
		return nil, err
	}

	return streamChunks(ctx, resp.Body, func(emit func(string) bool) error {
		return readSSE(resp.Body, func(_, data string) (bool, error) {
			var ev anthropicEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return false, nil
			}

			switch ev.Type {
			case "content_block_delta":
				if ev.Delta.Text == "" {
					return false, nil
				}
				return !emit(ev.Delta.Text), nil
			case "message_stop":
				return true, nil
			case "error":
				return true, errors.New(c.name + " stream error: " + ev.Error.Message)
			}
			return false, nil
		})
	}), nil
}
