// Package app wires configuration, the LLM client and the analyzer shared by
// the mealcalc binaries.
package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/codefionn/mealcalc/internal/config"
	"github.com/codefionn/mealcalc/internal/llm"
	"github.com/codefionn/mealcalc/internal/logger"
	"github.com/codefionn/mealcalc/internal/nutrition"
)

// LoadConfig reads .env (if present), the config file at path (the default
// path when empty) and the environment overrides, in that order.
func LoadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// NewAnalyzer builds the meal analyzer for cfg. Without an API key the
// analyzer runs in mock mode.
func NewAnalyzer(cfg *config.Config, log *logger.Logger) (*nutrition.Analyzer, error) {
	ac := cfg.Analysis
	analyzerCfg := nutrition.AnalyzerConfig{
		Mock:            ac.Mock,
		FallbackToMock:  ac.FallbackToMock,
		MaxTokens:       ac.MaxTokens,
		Temperature:     ac.Temperature,
		CacheTTL:        cfg.CacheTTLDuration(),
		MaxCacheEntries: cfg.MaxCacheEntries,
	}

	if ac.Mock {
		log.Info("Analysis runs in mock mode")
		return nutrition.NewAnalyzer(nil, analyzerCfg, log), nil
	}

	client, err := llm.NewClient(ac.Provider, ac.APIKey, ac.Model)
	if errors.Is(err, llm.ErrNoAPIKey) {
		log.Warn("No API key for provider %s, analysis runs in mock mode", ac.Provider)
		return nutrition.NewAnalyzer(nil, analyzerCfg, log), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", ac.Provider, err)
	}

	if ac.RequestsPerMinute > 0 || ac.TokensPerMinute > 0 {
		client = llm.NewRateLimitedClient(client, llm.IntervalForRequestsPerMinute(ac.RequestsPerMinute), ac.TokensPerMinute)
	}

	log.Info("Analysis uses %s model %s", ac.Provider, client.GetModelName())
	return nutrition.NewAnalyzer(client, analyzerCfg, log), nil
}
