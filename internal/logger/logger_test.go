package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, cfg LogConfig) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg.Output = &buf
	require.NoError(t, InitWithConfig(cfg))
	t.Cleanup(func() { _ = InitWithConfig(LogConfig{Level: "INFO"}) })
	return &buf
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLevelsAndFields(t *testing.T) {
	buf := capture(t, LogConfig{Level: "WARN", Format: "json"})
	ctx := context.Background()

	Info(ctx, "hidden")
	WarnSkip(ctx, 0, "provider slow", "provider", "openai")
	ErrorWithErr(ctx, "fetch failed", errors.New("timeout"), "symbol", "sh600519")

	recs := records(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, "openai", recs[0]["provider"])
	assert.Equal(t, "ERROR", recs[1]["level"])
	assert.Equal(t, "timeout", recs[1]["error"])
	assert.Equal(t, "sh600519", recs[1]["symbol"])
	assert.False(t, IsDebugEnabled())
}

func TestDetailedLoggingEnablesDebugWithSource(t *testing.T) {
	buf := capture(t, LogConfig{Level: "INFO", Format: "json", DetailedLogging: true})
	require.True(t, IsDebugEnabled())

	DebugSkip(context.Background(), 0, "prompt built", "agent", "commander")

	recs := records(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "DEBUG", recs[0]["level"])
	src, ok := recs[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, src["file"], "logger_test.go")
}

func TestDebugSkipIsSilentWithoutDetailedLogging(t *testing.T) {
	buf := capture(t, LogConfig{Level: "DEBUG", Format: "text"})
	DebugSkip(context.Background(), 0, "dropped")
	assert.Empty(t, buf.String())
}
