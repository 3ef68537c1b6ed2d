package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/codefionn/mealcalc/internal/logger"
	"github.com/codefionn/mealcalc/internal/nutrition"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	lastText  string
	lastImage []byte
	lastMime  string
	result    *nutrition.AnalysisResult
}

func (s *stubAnalyzer) AnalyzeText(_ context.Context, text string) (*nutrition.AnalysisResult, error) {
	s.lastText = text
	return s.result, nil
}

func (s *stubAnalyzer) AnalyzePhoto(_ context.Context, image []byte, mimeType string) (*nutrition.AnalysisResult, error) {
	s.lastImage = image
	s.lastMime = mimeType
	return s.result, nil
}

func (s *stubAnalyzer) Mode() string { return "stub" }

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestCalculateTool(t *testing.T) {
	res, err := handleCalculate(context.Background(), callRequest("calculate", map[string]any{"formula": "(2+3)*4"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "(2+3)*4 = 20", resultText(t, res))
}

func TestCalculateToolSpoken(t *testing.T) {
	res, err := handleCalculate(context.Background(), callRequest("calculate", map[string]any{
		"formula": "9 minus 4", "spoken": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, "9-4 = 5", resultText(t, res))
}

func TestCalculateToolErrors(t *testing.T) {
	res, err := handleCalculate(context.Background(), callRequest("calculate", map[string]any{"formula": "1/0"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "DivisionByZero")

	res, err = handleCalculate(context.Background(), callRequest("calculate", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAnalyzeMealTool(t *testing.T) {
	stub := &stubAnalyzer{result: &nutrition.AnalysisResult{
		Success:  true,
		Analysis: &nutrition.FoodAnalysis{Name: "Омлет", Calories: 320, HealthScore: 70},
	}}
	handler := analyzeMealHandler(stub, time.Second, logger.NewWithWriter(logger.LevelNone, io.Discard, ""))

	res, err := handler(context.Background(), callRequest("analyze_meal", map[string]any{"description": "омлет из двух яиц"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "омлет из двух яиц", stub.lastText)

	var decoded nutrition.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &decoded))
	assert.Equal(t, "Омлет", decoded.Analysis.Name)

	image := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})
	res, err = handler(context.Background(), callRequest("analyze_meal", map[string]any{"image": image}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "image/jpeg", stub.lastMime)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, stub.lastImage)
}

func TestAnalyzeMealToolValidation(t *testing.T) {
	stub := &stubAnalyzer{result: &nutrition.AnalysisResult{Success: false, Error: "rate limited"}}
	handler := analyzeMealHandler(stub, time.Second, logger.NewWithWriter(logger.LevelNone, io.Discard, ""))

	res, err := handler(context.Background(), callRequest("analyze_meal", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = handler(context.Background(), callRequest("analyze_meal", map[string]any{"description": "суп"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "rate limited")
}

func TestNewMCPServerRegistersTools(t *testing.T) {
	s := newMCPServer(&stubAnalyzer{}, time.Second, logger.NewWithWriter(logger.LevelNone, io.Discard, ""))
	require.NotNil(t, s)
	assert.Equal(t, "analyze_meal", analyzeMealTool("stub").Name)
	assert.Contains(t, analyzeMealTool("stub").Description, "(stub)")
	assert.Equal(t, "calculate", calculateTool().Name)
}
