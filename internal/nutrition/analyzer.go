package nutrition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/codefionn/mealcalc/internal/consts"
	"github.com/codefionn/mealcalc/internal/llm"
	"github.com/codefionn/mealcalc/internal/logger"
)

const unknownDishName = "Неизвестное блюдо"

// AnalyzerConfig controls how an Analyzer talks to the model.
type AnalyzerConfig struct {
	Mock            bool // never call the model
	FallbackToMock  bool // answer with mock data when the model call fails
	MaxTokens       int
	Temperature     float64
	CacheTTL        time.Duration
	MaxCacheEntries int
	// RandSource seeds mock data; nil uses a random seed.
	RandSource rand.Source
}

// Analyzer estimates the nutrition of meal descriptions and photos.
type Analyzer struct {
	client llm.Client
	cfg    AnalyzerConfig
	cache  *analysisCache
	mock   *mockGenerator
	log    *logger.Logger
}

// NewAnalyzer creates an analyzer. A nil client puts it in mock mode.
func NewAnalyzer(client llm.Client, cfg AnalyzerConfig, log *logger.Logger) *Analyzer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = consts.DefaultMaxTokens
	}
	if log == nil {
		log = logger.Global()
	}
	return &Analyzer{
		client: client,
		cfg:    cfg,
		cache:  newAnalysisCache(cfg.CacheTTL, cfg.MaxCacheEntries),
		mock:   newMockGenerator(cfg.RandSource),
		log:    log.WithPrefix("analyzer"),
	}
}

// Mocked reports whether every analysis is generated locally.
func (a *Analyzer) Mocked() bool {
	return a.client == nil || a.cfg.Mock
}

// Mode describes the analyzer backend for health checks.
func (a *Analyzer) Mode() string {
	if a.Mocked() {
		return "mock"
	}
	return "llm:" + a.client.GetModelName()
}

// AnalyzeText analyzes a free-text meal description. Only an empty
// description is returned as an error; model failures are reported inside
// the result.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (*AnalysisResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	req := &llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []*llm.Message{{Role: "user", Content: textPrompt(text)}},
	}
	return a.analyze(ctx, fingerprint("text", []byte(strings.ToLower(text))), req), nil
}

// AnalyzePhoto analyzes a meal photo. An empty mimeType is sniffed from the
// data.
func (a *Analyzer) AnalyzePhoto(ctx context.Context, image []byte, mimeType string) (*AnalysisResult, error) {
	if len(image) == 0 {
		return nil, ErrEmptyInput
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("unsupported photo type %q", mimeType)
	}

	req := &llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []*llm.Message{{
			Role:    "user",
			Content: photoPrompt(),
			Images:  []*llm.Image{{MimeType: mimeType, Data: image}},
		}},
	}
	return a.analyze(ctx, fingerprint("photo", image), req), nil
}

func (a *Analyzer) analyze(ctx context.Context, key uint64, req *llm.CompletionRequest) *AnalysisResult {
	if a.Mocked() {
		return &AnalysisResult{Success: true, Analysis: a.mock.analysis(), Mocked: true}
	}

	if cached, ok := a.cache.get(key); ok {
		a.log.Debug("cache hit for %016x", key)
		return &AnalysisResult{Success: true, Analysis: cached}
	}

	req.MaxTokens = a.cfg.MaxTokens
	req.Temperature = a.cfg.Temperature

	analysis, err := a.complete(ctx, req)
	if err != nil {
		if a.cfg.FallbackToMock && !errors.Is(err, context.Canceled) {
			a.log.Warn("analysis failed, answering with mock data: %v", err)
			return &AnalysisResult{Success: true, Analysis: a.mock.analysis(), Mocked: true, Error: err.Error()}
		}
		a.log.Error("analysis failed: %v", err)
		return &AnalysisResult{Success: false, Error: err.Error()}
	}

	a.cache.put(key, analysis)
	return &AnalysisResult{Success: true, Analysis: analysis}
}

func (a *Analyzer) complete(ctx context.Context, req *llm.CompletionRequest) (*FoodAnalysis, error) {
	resp, err := a.client.CompleteWithRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	var analysis FoodAnalysis
	if err := llm.ExtractJSON(resp.Content, &analysis); err != nil {
		return nil, err
	}
	Normalize(&analysis)
	return &analysis, nil
}

// Normalize clamps model output to sane ranges: non-finite or negative
// amounts become 0, the health score is kept within 0..100 and an empty name
// gets a placeholder.
func Normalize(f *FoodAnalysis) {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		f.Name = unknownDishName
	}
	f.Commentary = strings.TrimSpace(f.Commentary)
	f.Calories = nonNegative(f.Calories)
	f.Protein = nonNegative(f.Protein)
	f.Fats = nonNegative(f.Fats)
	f.Carbs = nonNegative(f.Carbs)
	f.HealthScore = math.Min(nonNegative(f.HealthScore), 100)
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
