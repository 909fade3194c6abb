package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/docsteps/internal/ports"
)

func newTestLogger(buf *bytes.Buffer, opts ...ConsoleLoggerOption) *ConsoleLogger {
	base := []ConsoleLoggerOption{
		WithOutput(buf),
		WithLevel(ports.LevelDebug),
		WithTimestamp(false),
		WithLevelLabel(false),
	}
	return NewConsoleLogger(append(base, opts...)...)
}

func TestConsoleLogger_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, WithLevelLabel(true))

	logger.Info(context.Background(), "step finished", ports.Step("redis"), ports.F("duration", "1s"))

	assert.Equal(t, "[INFO] step finished step=redis duration=1s\n", buf.String())
}

func TestConsoleLogger_QuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info(context.Background(), "running", ports.F("command", "echo hi"), ports.F("empty", ""))

	assert.Equal(t, "running command=\"echo hi\" empty=\"\"\n", buf.String())
}

func TestConsoleLogger_Prefix(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, WithPrefix("docsteps:"))

	logger.Warn(context.Background(), "cleanup command failed")

	assert.Equal(t, "docsteps: cleanup command failed\n", buf.String())
}

func TestConsoleLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, WithJSONFormat(true), WithLevelLabel(true))

	logger.Error(context.Background(), "step failed", ports.Step("app"), ports.F("kind", "COMMAND_FAILED"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "step failed", entry["msg"])
	assert.Equal(t, "app", entry["step"])
	assert.Equal(t, "COMMAND_FAILED", entry["kind"])
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, WithLevel(ports.LevelWarn))
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	assert.Zero(t, buf.Len())

	logger.Warn(ctx, "warn message")
	assert.Contains(t, buf.String(), "warn message")

	logger.SetLevel(ports.LevelDebug)
	logger.Debug(ctx, "now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestConsoleLogger_WithDoesNotModifyOriginal(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	derived := logger.With(ports.F("run", "abc"))
	ctx := context.Background()

	logger.Info(ctx, "original")
	derived.Info(ctx, "derived")

	assert.Equal(t, "original\nderived run=abc\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    ports.Level
		wantErr bool
	}{
		{"debug", ports.LevelDebug, false},
		{"INFO", ports.LevelInfo, false},
		{"", ports.LevelInfo, false},
		{"warning", ports.LevelWarn, false},
		{"error", ports.LevelError, false},
		{"loud", ports.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := NewConsoleLogger()
	ctx := ports.ContextWithLogger(context.Background(), logger)

	assert.Same(t, logger, ports.LoggerFromContext(ctx))
	assert.Same(t, logger, ports.LoggerFromContextOr(context.Background(), logger))
}
