package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRunID_Length(t *testing.T) {
	id := NewRunID()
	assert.Len(t, id, 8)
}

func TestNewRunID_Unique(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for range 100 {
		ids[NewRunID()] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestWithRunID_and_RunID_Roundtrip(t *testing.T) {
	ctx := WithRunID(context.Background(), "abc12345")
	id, ok := RunID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc12345", id)
}

func TestRunID_Missing(t *testing.T) {
	id, ok := RunID(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestRunID_EmptyString(t *testing.T) {
	ctx := WithRunID(context.Background(), "")
	id, ok := RunID(ctx)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestHandler_AddsRunID(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewHandler(inner)
	logger := slog.New(handler)

	ctx := WithRunID(context.Background(), "test1234")
	logger.InfoContext(ctx, "test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "run_id=test1234")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "test message")
}

func TestHandler_NoRunID_WhenMissing(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewHandler(inner)
	logger := slog.New(handler)

	logger.InfoContext(context.Background(), "no run id")

	output := buf.String()
	assert.NotContains(t, output, "run_id")
}

func TestHandler_WithAttrs_PreservesRunID(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewHandler(inner)
	logger := slog.New(handler).With("component", "test")

	ctx := WithRunID(context.Background(), "attr1234")
	logger.InfoContext(ctx, "with attrs")

	output := buf.String()
	assert.Contains(t, output, "run_id=attr1234")
	assert.Contains(t, output, "component=test")
}
