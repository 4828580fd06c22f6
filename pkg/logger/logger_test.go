package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	line := strings.TrimSpace(buf.String())
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test", "debug")

	log.WithFields(map[string]interface{}{
		"ticker": "AAA",
		"score":  42.5,
	}).Info("Candidate scored")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "Candidate scored", entry["message"])
	assert.Equal(t, "AAA", entry["ticker"])
	assert.Equal(t, 42.5, entry["score"])
	assert.Equal(t, "test", entry["env"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test", "info")

	log.WithError(errors.New("provider timeout")).Error("Tick abandoned")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "provider timeout", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test", "warn")

	log.Debug("hidden")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("visible")
	assert.Contains(t, buf.String(), "visible")

	// restore for other tests
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func TestNewWithLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner.log")
	cfg := &config.Config{Env: "test", LogLevel: "info", LogFormat: "json", LogFile: path}

	log := New(cfg)
	require.NotNil(t, log)
	log.Info("written to file")

	assert.FileExists(t, path)
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.WithField("k", "v").Info("discarded")
	})
}
