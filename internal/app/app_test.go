package app

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/codefionn/mealcalc/internal/config"
	"github.com/codefionn/mealcalc/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(logger.LevelNone, io.Discard, "")
}

func TestNewAnalyzerMockWhenConfigured(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analysis.Mock = true
	cfg.Analysis.APIKey = "sk-test"

	a, err := NewAnalyzer(cfg, quietLogger())
	require.NoError(t, err)
	assert.True(t, a.Mocked())
	assert.Equal(t, "mock", a.Mode())
}

func TestNewAnalyzerMockWithoutKey(t *testing.T) {
	cfg := config.DefaultConfig()

	a, err := NewAnalyzer(cfg, quietLogger())
	require.NoError(t, err)
	assert.True(t, a.Mocked())
}

func TestNewAnalyzerWithKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analysis.APIKey = "sk-test"
	cfg.Analysis.RequestsPerMinute = 30

	a, err := NewAnalyzer(cfg, quietLogger())
	require.NoError(t, err)
	assert.False(t, a.Mocked())
	assert.Equal(t, "llm:gpt-4o", a.Mode())
}

func TestNewAnalyzerUnknownProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analysis.Provider = "nope"
	cfg.Analysis.APIKey = "sk-test"

	_, err := NewAnalyzer(cfg, quietLogger())
	assert.Error(t, err)
}

func TestLoadConfigAppliesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"history_days": 14, "listen_addr": ":9000"}`), 0600))

	t.Setenv("MEALCALC_LISTEN_ADDR", ":9100")
	t.Setenv("MEALCALC_MOCK", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.HistoryDays)
	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.True(t, cfg.Analysis.Mock)
}
