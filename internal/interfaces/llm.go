package interfaces

import (
	"context"

	"stock-agents/internal/types"
)

// ChatClient sends one prompt to a named language-model provider.
type ChatClient interface {
	Chat(ctx context.Context, provider string, req types.ChatRequest) (types.ChatResult, error)
}
