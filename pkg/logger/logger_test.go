package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luqian/astock-screener/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: "info", want: zerolog.InfoLevel},
		{in: "warn", want: zerolog.WarnLevel},
		{in: "warning", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "fatal", want: zerolog.FatalLevel},
		{in: "ERROR", want: zerolog.ErrorLevel},
		{in: "nonsense", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestNewWithFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Env:   "development",
		Log:   config.LogConfig{Level: "info", Format: "json"},
		Paths: config.PathsConfig{LogDir: dir},
	}

	log, err := NewWithFile(cfg, "run")
	require.NoError(t, err)

	log.Info("hello")
	log.WithField("trade_date", "20250207").Warn("heads up")

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "trade_date")
	assert.Contains(t, string(data), `"env":"development"`)
}

func TestNewWithFileBadDir(t *testing.T) {
	cfg := &config.Config{
		Log:   config.LogConfig{Level: "info", Format: "json"},
		Paths: config.PathsConfig{LogDir: filepath.Join(t.TempDir(), "does", "not", "exist")},
	}
	_, err := NewWithFile(cfg, "run")
	assert.Error(t, err)
}
