package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Field{Key: "port", Value: 6379}, F("port", 6379))
	assert.Equal(t, Field{Key: "step", Value: "redis"}, Step("redis"))
	assert.Equal(t, Field{Key: "error", Value: "boom"}, Err(errors.New("boom")))
	assert.Equal(t, Field{Key: "error", Value: ""}, Err(nil))
}

func TestLoggerFromContextOr(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Nil(t, LoggerFromContext(ctx))
	assert.Nil(t, LoggerFromContextOr(ctx, nil))
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	Discard.Info(ctx, "dropped", F("k", "v"))
	Discard.SetLevel(LevelDebug)

	assert.Same(t, Discard, Discard.With(F("k", "v")))
	assert.Equal(t, LevelInfo, Discard.Level())
	assert.Same(t, Discard, LoggerFromContextOr(ctx, Discard))
}
