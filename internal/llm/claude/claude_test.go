package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-agents/internal/api"
	"stock-agents/internal/llm"
	"stock-agents/internal/types"
)

func TestProviderComplete(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"content":[{"type":"thinking","text":"hmm"},{"type":"text","text":" {\"summary\":\"ok\"} "}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	p, err := New(Config{APIKey: "key-1", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), llm.Request{
		System:      "sys",
		Prompt:      "prompt",
		Model:       "claude-test",
		Temperature: types.Float(0.2),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, out)

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.Equal(t, "sys", got.System)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, message{Role: "user", Content: "prompt"}, got.Messages[0])
}

func TestProviderErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"type":"error"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		p, err := New(Config{APIKey: "bad", BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = p.Complete(context.Background(), llm.Request{Prompt: "x", Model: DefaultModel})

		var statusErr *api.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	})

	t.Run("no text blocks", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"content":[],"stop_reason":"max_tokens"}`))
		}))
		defer srv.Close()

		p, err := New(Config{APIKey: "k", BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = p.Complete(context.Background(), llm.Request{Prompt: "x", Model: DefaultModel})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_tokens")
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err)
	})
}
