package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestCtxZapLogger_TraceIDFromContextValue(t *testing.T) {
	log, logs := NewObserved("cache", zapcore.DebugLevel)

	log.InfoCtx(WithTraceID(context.Background(), "t-1"), "hello", zap.Int("n", 1))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "t-1", fields["trace_id"])
	assert.Equal(t, int64(1), fields["n"])
	assert.Equal(t, "cache", fields["module"])
}

func TestCtxZapLogger_TraceIDPrefersSpan(t *testing.T) {
	log, logs := NewObserved("cache", zapcore.DebugLevel)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(WithTraceID(context.Background(), "ignored"), sc)

	log.WarnCtx(ctx, "span")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, traceID.String(), logs.All()[0].ContextMap()["trace_id"])
}

func TestCtxZapLogger_With(t *testing.T) {
	log, logs := NewObserved("pattern", zapcore.DebugLevel)

	child := log.With(zap.String("pattern", "write_behind"))
	child.Error("flush failed")
	log.Debug("plain")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "write_behind", logs.All()[0].ContextMap()["pattern"])
	_, ok := logs.All()[1].ContextMap()["pattern"]
	assert.False(t, ok)
	assert.Equal(t, "pattern", child.Module())
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.ErrorCtx(context.Background(), "dropped")
		log.With(zap.String("k", "v")).Info("dropped")
	})
}

func TestCaptureStacktrace_Depth(t *testing.T) {
	stack := CaptureStacktrace(1, 2)
	assert.NotEmpty(t, stack)
	// two frames, each "func\n\tfile:line"
	assert.Equal(t, 3, countNewlines(stack))
}

func countNewlines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

func TestAdapters(t *testing.T) {
	log, logs := NewObserved("adapters", zapcore.DebugLevel)

	sl := log.ForScheduler()
	sl.Debug("job scheduled", "name", "flush")
	sl.Info("started")
	sl.Warn("slow job", "elapsed", "2s")
	sl.Error("job failed", "err", "boom")
	log.Printf("worker panic: %v", "oops")

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, "job scheduled", entries[0].Message)
	assert.Equal(t, "flush", entries[0].ContextMap()["name"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "worker panic: oops", entries[4].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[4].Level)
}
