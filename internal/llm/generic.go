package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Generic posts an OpenAI-shaped body to an arbitrary endpoint and accepts
// several common response shapes. It does not stream.
type Generic struct {
	name   string
	url    string
	apiKey string
	client *http.Client
}

type genericResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Output *struct {
		Text string `json:"text"`
	} `json:"output"`
	Result *string `json:"result"`
}

func NewGeneric(cfg Config) (Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%s endpoint is required", cfg.Provider)
	}
	return &Generic{
		name:   cfg.Provider,
		url:    cfg.Endpoint,
		apiKey: cfg.APIKey,
		client: cfg.httpClient(),
	}, nil
}

func (c *Generic) Review(ctx context.Context, req Request) (string, error) {
	req = normalize(req)
	model := req.Model
	if model == "" {
		model = "default-model"
	}

	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: BuildPrompt(req.PromptTemplate, req)},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	resp, err := post(ctx, c.client, c.name, c.url, map[string]string{"Authorization": "Bearer " + c.apiKey}, payload)
	if err != nil {
		return "", err
	}

	var raw json.RawMessage
	if err := decodeJSON(resp, &raw); err != nil {
		return "", err
	}
	return extractGeneric(raw)
}

func extractGeneric(raw json.RawMessage) (string, error) {
	var out genericResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw), nil
	}

	switch {
	case len(out.Choices) > 0:
		return out.Choices[0].Message.Content, nil
	case out.Output != nil:
		return out.Output.Text, nil
	case out.Result != nil:
		return *out.Result, nil
	}
	return string(raw), nil
}
