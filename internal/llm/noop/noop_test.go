package noop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-agents/internal/llm"
	"stock-agents/internal/types"
)

func TestNoopAlwaysFails(t *testing.T) {
	svc := llm.NewService()
	svc.Register(New(), llm.Settings{Enabled: true})
	svc.Register(Named("claude", "api key missing"), llm.Settings{Enabled: true})

	_, err := svc.Chat(context.Background(), "noop", types.ChatRequest{Prompt: "p"})
	require.ErrorIs(t, err, llm.ErrNoProviderConfigured)

	_, err = svc.Chat(context.Background(), "claude", types.ChatRequest{Prompt: "p"})
	require.ErrorIs(t, err, llm.ErrNoProviderConfigured)
	assert.Contains(t, err.Error(), "api key missing")
}
