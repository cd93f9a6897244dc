package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", false)

	ctx := WithItem(WithRunID(context.Background(), "run-1"), "https://example.com/case-01")
	log.With("stage", "translate").InfoContext(ctx, "stage recovered")

	out := buf.String()
	assert.Contains(t, out, "run_id=run-1")
	assert.Contains(t, out, "item=https://example.com/case-01")
	assert.Contains(t, out, "stage=translate")
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "warn", false).Info("hidden")
	assert.Empty(t, buf.String())

	New(&buf, "warn", true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
