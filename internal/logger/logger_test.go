package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{"error", LevelError},
		{"none", LevelNone},
		{"off", LevelNone},
		{" error ", LevelError},
		{"invalid", LevelInfo}, // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestNewLoggerWritesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "mealcalc.log")

	l, err := New(LevelInfo, logPath, "api")
	require.NoError(t, err)

	l.Info("meal %s stored", "abc")
	l.Debug("should not appear")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "[INFO] [api] meal abc stored")
	assert.NotContains(t, text, "should not appear")
}

func TestWithPrefixSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(LevelWarn, &buf, "server")
	child := parent.WithPrefix("ws")

	child.Info("hidden")
	parent.SetLevel(LevelDebug)
	child.Debug("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[server:ws] visible")
}

func TestLoggerNoneDiscards(t *testing.T) {
	l, err := New(LevelNone, "", "test")
	require.NoError(t, err)
	l.Error("nothing")
	assert.NoError(t, l.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	l, err := New(LevelInfo, filepath.Join(t.TempDir(), "x.log"), "")
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	l.Info("after close")
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(LevelInfo, &buf, "mcp")

	sl := Slog(l).With("tool", "calculate").WithGroup("req")
	sl.Info("call", "formula", "2+2", slog.Group("user", "id", 7))
	sl.Debug("dropped")

	out := buf.String()
	assert.Contains(t, out, "[INFO] [mcp] call tool=calculate req.formula=2+2 req.user.id=7")
	assert.NotContains(t, out, "dropped")
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(LevelDebug, &buf, "")

	StdLogger(l, slog.LevelError).Print("http: TLS handshake error")
	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "[ERROR] http: TLS handshake error")
}
