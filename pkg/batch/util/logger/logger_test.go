package logger_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"weatheretl/pkg/batch/util/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  logger.LogLevel
		known bool
	}{
		{"debug", logger.LevelDebug, true},
		{" INFO ", logger.LevelInfo, true},
		{"warning", logger.LevelWarn, true},
		{"Error", logger.LevelError, true},
		{"fatal", logger.LevelFatal, true},
		{"verbose", logger.LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := logger.ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, ok)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)
	defer logger.SetLogLevel("INFO")

	logger.SetLogLevel("WARN")
	assert.Equal(t, logger.LevelWarn, logger.Level())

	logger.Infof("hidden %d", 1)
	logger.Warnf("shown %d", 2)
	logger.Errorf("shown %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "[WARN] shown 2")
	assert.Contains(t, out, "[ERROR] shown 3")
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	logger.SetLogLevel("loud")
	assert.Equal(t, logger.LevelInfo, logger.Level())
	assert.Contains(t, buf.String(), "loud")
}
