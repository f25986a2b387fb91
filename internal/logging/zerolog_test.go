package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestZeroLogger_KeyValues(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "debug", Output: buf})

	log.Info("login failed", "identifier", "alice", "reason", "bad password")

	entry := lastLine(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "login failed", entry["message"])
	assert.Equal(t, "alice", entry["identifier"])
	assert.Equal(t, "bad password", entry["reason"])
	assert.Contains(t, entry, "time")
}

func TestZeroLogger_Printf(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Output: buf})

	log.Warn("sweep kept %d buckets", 3)
	assert.Equal(t, "sweep kept 3 buckets", lastLine(t, buf)["message"])
}

func TestZeroLogger_ErrorsAndOddArgs(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Output: buf})

	log.Error("store failure", "error", errors.New("boom"), "dangling")

	entry := lastLine(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "dangling", entry["extra"])
}

func TestZeroLogger_LevelFilter(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		info    bool
		warning bool
	}{
		{level: "debug", debug: true, info: true, warning: true},
		{level: "info", info: true, warning: true},
		{level: "warn", warning: true},
		{level: "nonsense", info: true, warning: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := New(Options{Level: tt.level, Output: buf})

			log.Debug("d")
			assert.Equal(t, tt.debug, bytes.Contains(buf.Bytes(), []byte(`"message":"d"`)))
			log.Info("i")
			assert.Equal(t, tt.info, bytes.Contains(buf.Bytes(), []byte(`"message":"i"`)))
			log.Warn("w")
			assert.Equal(t, tt.warning, bytes.Contains(buf.Bytes(), []byte(`"message":"w"`)))
		})
	}
}

func TestZeroLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Output: buf}).With("component", "review")

	log.Info("gateway reviewed", "id", 7)

	entry := lastLine(t, buf)
	assert.Equal(t, "review", entry["component"])
	assert.Equal(t, float64(7), entry["id"])
}

func TestZeroLogger_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Output: buf, Pretty: true})

	log.Info("started", "addr", ":8080")
	assert.Contains(t, buf.String(), "started")
	assert.Contains(t, buf.String(), "addr=")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}
