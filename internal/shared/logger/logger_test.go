package logger

import (
	"testing"

	"github.com/groveshop/storefront/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		log, err := New(&config.LogConfig{Level: "info", Format: "json"})
		assert.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("console format", func(t *testing.T) {
		log, err := New(&config.LogConfig{Level: "debug", Format: "console"})
		assert.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := New(&config.LogConfig{Level: "loud"})
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
