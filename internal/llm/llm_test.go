package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan Chunk) (string, error) {
	t.Helper()
	var b strings.Builder
	var last error
	for c := range ch {
		if c.Err != nil {
			last = c.Err
			continue
		}
		require.NoError(t, last, "chunk after error")
		b.WriteString(c.Text)
	}
	return b.String(), last
}

func TestBuildPrompt(t *testing.T) {
	tpl := "SQL={{SQL_STATEMENT}} PLAN={{EXPLAIN_RESULT}} SCHEMA=[{{TABLE_SCHEMA}}] again {{SQL_STATEMENT}}"

	got := BuildPrompt(tpl, Request{SQL: "SELECT 1"})
	assert.Equal(t, "SQL=SELECT 1 PLAN="+NoExplainPlaceholder+" SCHEMA=[] again SELECT 1", got)

	got = BuildPrompt(tpl, Request{SQL: "SELECT 1", Explain: "[{}]", Schema: "t(id int)"})
	assert.Equal(t, "SQL=SELECT 1 PLAN=[{}] SCHEMA=[t(id int)] again SELECT 1", got)
}

func TestBuildPrompt_DefaultTemplate(t *testing.T) {
	got := BuildPrompt("  ", Request{SQL: "SELECT now()"})
	assert.Contains(t, got, "SELECT now()")
	assert.Contains(t, got, NoExplainPlaceholder)
	assert.NotContains(t, got, "{{")
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"OpenAI", "DEEPSEEK", " claude ", "Anthropic"} {
		c, err := r.New(Config{Provider: name, APIKey: "k"})
		require.NoError(t, err, name)
		assert.NotNil(t, c)
	}

	c, err := r.New(Config{Provider: "Qwen", APIKey: "k", Endpoint: "http://localhost/x"})
	require.NoError(t, err)
	_, isStreamer := c.(Streamer)
	assert.False(t, isStreamer)
}

func TestRegistry_Unknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.New(Config{Provider: "mystery"})
	require.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "openai")
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("Local", func(cfg Config) (Client, error) {
		called = true
		return NewGeneric(Config{Provider: cfg.Provider, Endpoint: "http://x"})
	})

	_, err := r.New(Config{Provider: "local"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, r.Providers(), "local")
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(Config{Provider: "openai"}, DefaultOpenAIEndpoint)
	assert.Error(t, err)
}

func TestOpenAI_Review(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"looks fine"}}]}`)
	}))
	defer srv.Close()

	c, err := NewOpenAI(Config{Provider: "openai", Endpoint: srv.URL + "/v1/", APIKey: "sk-test"}, DefaultOpenAIEndpoint)
	require.NoError(t, err)

	out, err := c.Review(context.Background(), Request{SQL: "SELECT 1", Model: "gpt-4o", Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "looks fine", out)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, 0.2, got.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, DefaultSystemPrompt, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "SELECT 1")
}

func TestOpenAI_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, "authentication"},
		{http.StatusNotFound, "not found"},
		{http.StatusTooManyRequests, "rate limit"},
		{http.StatusInternalServerError, "API error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"nope"}`, tt.status)
			}))
			defer srv.Close()

			c, err := NewOpenAI(Config{Provider: "openai", Endpoint: srv.URL, APIKey: "k"}, "")
			require.NoError(t, err)

			_, err = c.Review(context.Background(), Request{SQL: "SELECT 1"})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOpenAI_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewOpenAI(Config{Provider: "openai", Endpoint: url, APIKey: "k"}, "")
	require.NoError(t, err)

	_, err = c.Review(context.Background(), Request{SQL: "SELECT 1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network connection")
}

func TestOpenAI_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, ": keep-alive\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"content":"Add "}}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"content":"an index."}}]}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"content":"ignored"}}]}`+"\n\n")
	}))
	defer srv.Close()

	c, err := NewOpenAI(Config{Provider: "openai", Endpoint: srv.URL, APIKey: "k"}, "")
	require.NoError(t, err)

	ch, err := c.ReviewStream(context.Background(), Request{SQL: "SELECT 1"})
	require.NoError(t, err)

	text, streamErr := collect(t, ch)
	assert.NoError(t, streamErr)
	assert.Equal(t, "Add an index.", text)
}

func TestOpenAI_StreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewOpenAI(Config{Provider: "deepseek", Endpoint: srv.URL, APIKey: "k"}, "")
	require.NoError(t, err)

	_, err = c.ReviewStream(context.Background(), Request{SQL: "SELECT 1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "deepseek", apiErr.Provider)
}

func TestAnthropic_Review(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "be terse", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		fmt.Fprint(w, `{"content":[{"type":"text","text":"part one, "},{"type":"text","text":"part two"}]}`)
	}))
	defer srv.Close()

	c, err := NewAnthropic(Config{Provider: "claude", Endpoint: srv.URL + "/v1", APIKey: "sk-ant"})
	require.NoError(t, err)

	out, err := c.Review(context.Background(), Request{SQL: "SELECT 1", SystemPrompt: "be terse"})
	require.NoError(t, err)
	assert.Equal(t, "part one, part two", out)
}

func TestAnthropic_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		io.WriteString(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello\"}}\n\n")
		io.WriteString(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\" world\"}}\n\n")
		io.WriteString(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	c, err := NewAnthropic(Config{Provider: "claude", Endpoint: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	ch, err := c.(Streamer).ReviewStream(context.Background(), Request{SQL: "SELECT 1"})
	require.NoError(t, err)

	text, streamErr := collect(t, ch)
	assert.NoError(t, streamErr)
	assert.Equal(t, "Hello world", text)
}

func TestAnthropic_StreamErrorIsLast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"partial\"}}\n\n")
		io.WriteString(w, "data: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	}))
	defer srv.Close()

	c, err := NewAnthropic(Config{Provider: "claude", Endpoint: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	ch, err := c.(Streamer).ReviewStream(context.Background(), Request{SQL: "SELECT 1"})
	require.NoError(t, err)

	text, streamErr := collect(t, ch)
	assert.Equal(t, "partial", text)
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "Overloaded")
}

func TestGeneric_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"choices", `{"choices":[{"message":{"content":"from choices"}}]}`, "from choices"},
		{"output", `{"output":{"text":"from output"}}`, "from output"},
		{"result", `{"result":"from result"}`, "from result"},
		{"unknown", `{"answer":"x"}`, `{"answer":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req chatRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "default-model", req.Model)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c, err := NewGeneric(Config{Provider: "generic", Endpoint: srv.URL, APIKey: "k"})
			require.NoError(t, err)

			out, err := c.Review(context.Background(), Request{SQL: "SELECT 1"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGeneric_RequiresEndpoint(t *testing.T) {
	_, err := NewGeneric(Config{Provider: "qwen"})
	assert.Error(t, err)
}

func TestReadSSE_MultiLineAndTrailing(t *testing.T) {
	in := "event: a\ndata: one\ndata: two\n\ndata: tail"
	var events, datas []string
	err := readSSE(strings.NewReader(in), func(event, data string) (bool, error) {
		events = append(events, event)
		datas = append(datas, data)
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", ""}, events)
	assert.Equal(t, []string{"one\ntwo", "tail"}, datas)
}

func TestReadSSE_CallbackError(t *testing.T) {
	boom := errors.New("boom")
	err := readSSE(strings.NewReader("data: x\n\ndata: y\n\n"), func(string, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}
