package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultOpenAIEndpoint   = "https://api.openai.com/v1"
	DefaultDeepSeekEndpoint = "https://api.deepseek.com/v1"
)

// OpenAI speaks the chat completions API. DeepSeek and other compatible
// services use it with a different endpoint.
type OpenAI struct {
	name   string
	url    string
	apiKey string
	client *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func newOpenAIFactory(defaultEndpoint string) Factory {
	return func(cfg Config) (Client, error) {
		c, err := NewOpenAI(cfg, defaultEndpoint)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func NewOpenAI(cfg Config, defaultEndpoint string) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}

	return &OpenAI{
		name:   cfg.Provider,
		url:    endpoint,
		apiKey: cfg.APIKey,
		client: cfg.httpClient(),
	}, nil
}

func (c *OpenAI) request(req Request, stream bool) chatRequest {
	req = normalize(req)
	return chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: BuildPrompt(req.PromptTemplate, req)},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (c *OpenAI) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func (c *OpenAI) Review(ctx context.Context, req Request) (string, error) {
	resp, err := post(ctx, c.client, c.name, c.url, c.headers(), c.request(req, false))
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.name)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *OpenAI) ReviewStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	headers := c.headers()
	headers["Accept"] = "text/event-stream"

	resp, err := post(ctx, c.client, c.name, c.url, headers, c.request(req, true))
	if err != nil {
		return nil, err
	}

	return streamChunks(ctx, resp.Body, func(emit func(string) bool) error {
		return readSSE(resp.Body, func(_, data string) (bool, error) {
			if data == "[DONE]" {
				return true, nil
			}

			var chunk chatStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return false, nil
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				return false, nil
			}
			return !emit(chunk.Choices[0].Delta.Content), nil
		})
	}), nil
}
