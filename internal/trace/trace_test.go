package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	tracer, tracerProvider, enabled = nil, nil, false
}

func TestDisabledTracingIsANoop(t *testing.T) {
	t.Cleanup(reset)
	require.NoError(t, Init(Config{}))
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "noop")
	span.End()
	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
	assert.NoError(t, Shutdown(context.Background()))
}

func TestSpansAreExportedOnShutdown(t *testing.T) {
	t.Cleanup(reset)
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Enabled: true, Output: &buf, Version: "test"}))

	ctx, span := StartSpan(context.Background(), "orchestrator.RunFull")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "orchestrator.RunFull")
	assert.Contains(t, buf.String(), serviceName)
}
