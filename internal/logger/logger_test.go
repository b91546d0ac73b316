package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{" warn ", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"verbose", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GetLevel(tt.in), "input %q", tt.in)
	}
}

func TestSetup_JSONOutputRespectsLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	log := Setup(Config{Level: "warn", Output: &buf})

	log.Info("dropped")
	log.Warn("kept", "application_id", 7)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.EqualValues(t, 7, entry["application_id"])
}

func TestSetup_TextFormat(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup(Config{Level: "info", Format: "text", Output: &buf})
	slog.Info("hello", "applicant_id", "42")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "applicant_id=42")
}
