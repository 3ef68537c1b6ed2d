package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const appName = "mealcalc"

// Supported analysis providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// AnalysisConfig controls the LLM used for meal analysis
type AnalysisConfig struct {
	Provider          string  `json:"provider"` // "openai", "anthropic" or "google"
	Model             string  `json:"model"`
	APIKey            string  `json:"api_key,omitempty"`
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
	Mock              bool    `json:"mock"`             // Always answer with generated data
	FallbackToMock    bool    `json:"fallback_to_mock"` // Answer with generated data when the API call fails
	RequestsPerMinute int     `json:"requests_per_minute,omitempty"`
	TokensPerMinute   int     `json:"tokens_per_minute,omitempty"`
}

// Config represents application configuration
type Config struct {
	ListenAddr      string         `json:"listen_addr"`
	DatabasePath    string         `json:"database_path"`
	TimeZone        string         `json:"time_zone"` // IANA name used to bucket meals into days
	HistoryDays     int            `json:"history_days"`
	AllowedOrigins  []string       `json:"allowed_origins"`
	CacheTTL        int            `json:"cache_ttl_seconds"`
	MaxCacheEntries int            `json:"max_cache_entries"`
	DefaultTimeout  int            `json:"default_timeout_seconds"`
	LogLevel        string         `json:"log_level"` // debug, info, warn, error, none
	LogPath         string         `json:"log_path,omitempty"`
	Analysis        AnalysisConfig `json:"analysis"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", appName)
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", appName)
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":3001",
		DatabasePath:    filepath.Join(defaultStateDir(), appName+".db"),
		TimeZone:        "UTC",
		HistoryDays:     7,
		AllowedOrigins:  []string{"*"},
		CacheTTL:        300,
		MaxCacheEntries: 100,
		DefaultTimeout:  30,
		LogLevel:        "info",
		Analysis: AnalysisConfig{
			Provider:       ProviderOpenAI,
			Model:          "gpt-4o",
			MaxTokens:      1000,
			Temperature:    0.2,
			FallbackToMock: true,
		},
	}
}

// Load loads configuration from file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	// Unmarshal into default config (overrides only provided fields)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	defaults := DefaultConfig()
	if config.DatabasePath == "" {
		config.DatabasePath = defaults.DatabasePath
	}
	if config.TimeZone == "" {
		config.TimeZone = defaults.TimeZone
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.Analysis.Provider == "" {
		config.Analysis.Provider = defaults.Analysis.Provider
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = defaults.AllowedOrigins
	}

	return config, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides configuration values from environment variables read
// through getenv (os.Getenv in production).
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		c.ListenAddr = ":" + port
	}
	str("MEALCALC_LISTEN_ADDR", &c.ListenAddr)
	str("MEALCALC_DB", &c.DatabasePath)
	str("MEALCALC_TIME_ZONE", &c.TimeZone)
	str("MEALCALC_LOG_LEVEL", &c.LogLevel)
	str("MEALCALC_LOG_PATH", &c.LogPath)
	str("MEALCALC_PROVIDER", &c.Analysis.Provider)
	str("MEALCALC_MODEL", &c.Analysis.Model)

	if v := strings.TrimSpace(getenv("MEALCALC_MOCK")); v != "" {
		if mock, err := strconv.ParseBool(v); err == nil {
			c.Analysis.Mock = mock
		}
	}

	if c.Analysis.APIKey == "" {
		for _, key := range apiKeyEnvVars(c.Analysis.Provider) {
			if v := strings.TrimSpace(getenv(key)); v != "" {
				c.Analysis.APIKey = v
				break
			}
		}
	}
}

func apiKeyEnvVars(provider string) []string {
	switch provider {
	case ProviderAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	case ProviderGoogle:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		return []string{"OPENAI_API_KEY"}
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Analysis.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
	default:
		return fmt.Errorf("unknown analysis provider %q", c.Analysis.Provider)
	}
	if c.HistoryDays <= 0 {
		return fmt.Errorf("history_days must be positive, got %d", c.HistoryDays)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// RequestTimeout returns DefaultTimeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.DefaultTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.DefaultTimeout) * time.Second
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}
