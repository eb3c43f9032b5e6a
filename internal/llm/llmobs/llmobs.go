package llmobs

import (
	"context"
	"time"

	"stock-agents/internal/interfaces"
	"stock-agents/internal/logger"
	"stock-agents/internal/trace"
	"stock-agents/internal/types"
)

// observableChat wraps a ChatClient with logging and tracing
type observableChat struct {
	chat interfaces.ChatClient
}

var _ interfaces.ChatClient = (*observableChat)(nil)

func Wrap(chat interfaces.ChatClient) interfaces.ChatClient {
	return &observableChat{chat: chat}
}

func (oc *observableChat) Chat(ctx context.Context, provider string, req types.ChatRequest) (types.ChatResult, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Chat")
	defer span.End()

	start := time.Now()
	if logger.IsDebugEnabled() {
		// Skip 1 so the record points at the caller, not this wrapper
		logger.DebugSkip(ctx, 1, "Requesting completion",
			"provider", provider,
			"model_hint", req.Model,
			"prompt_length", len(req.Prompt),
			"prompt_head", head(req.Prompt, 80),
			"use_internet", req.UseInternet,
		)
	}

	res, err := oc.chat.Chat(ctx, provider, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err,
			"provider", provider,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return types.ChatResult{}, err
	}

	logger.DebugSkip(ctx, 1, "Completion received",
		"provider", res.Provider,
		"model", res.Model,
		"content_length", len(res.Content),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// head returns at most n runes of s.
func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
