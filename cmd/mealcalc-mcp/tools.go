package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codefionn/mealcalc/internal/calc"
	"github.com/codefionn/mealcalc/internal/consts"
	"github.com/codefionn/mealcalc/internal/logger"
	"github.com/codefionn/mealcalc/internal/nutrition"
	"github.com/codefionn/mealcalc/internal/web"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// mealAnalyzer is the part of the analyzer the tools use.
type mealAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (*nutrition.AnalysisResult, error)
	AnalyzePhoto(ctx context.Context, image []byte, mimeType string) (*nutrition.AnalysisResult, error)
	Mode() string
}

func newMCPServer(analyzer mealAnalyzer, timeout time.Duration, log *logger.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"mealcalc-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	s.AddTool(calculateTool(), handleCalculate)
	s.AddTool(analyzeMealTool(analyzer.Mode()), analyzeMealHandler(analyzer, timeout, log))
	return s
}

func calculateTool() mcp.Tool {
	return mcp.NewTool("calculate",
		mcp.WithDescription("Evaluate an arithmetic formula with + - * / and parentheses"),
		mcp.WithString("formula",
			mcp.Required(),
			mcp.Description("Formula to evaluate, e.g. '(120+80)*2/3'"),
		),
		mcp.WithBoolean("spoken",
			mcp.Description("Translate spoken operators such as 'plus' or 'умножить на' first"),
			mcp.DefaultBool(false),
		),
	)
}

func handleCalculate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formula, err := request.RequireString("formula")
	if err != nil {
		return mcp.NewToolResultError("formula is required"), nil
	}
	if len(formula) > consts.MaxFormulaLength {
		return mcp.NewToolResultError("formula is too long"), nil
	}
	if request.GetBool("spoken", false) {
		formula = calc.TranslateSpoken(formula)
	}

	value, err := calc.Evaluate(formula)
	if err != nil {
		msg := fmt.Sprintf("Error evaluating %s: %v", formula, err)
		if kind, ok := calc.KindOf(err); ok {
			msg = fmt.Sprintf("%s (%s)", msg, kind)
		}
		return mcp.NewToolResultError(msg), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s = %s", formula, calc.FormatResult(value))), nil
}

func analyzeMealTool(mode string) mcp.Tool {
	return mcp.NewTool("analyze_meal",
		mcp.WithDescription("Estimate calories, protein, fats, carbs and a health score of a meal ("+mode+")"),
		mcp.WithString("description",
			mcp.Description("Free-text description of the meal"),
		),
		mcp.WithString("image",
			mcp.Description("Meal photo as a base64 data URL; used instead of description"),
		),
	)
}

func analyzeMealHandler(analyzer mealAnalyzer, timeout time.Duration, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		description := strings.TrimSpace(request.GetString("description", ""))
		image := strings.TrimSpace(request.GetString("image", ""))
		if description == "" && image == "" {
			return mcp.NewToolResultError("description or image is required"), nil
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var (
			result *nutrition.AnalysisResult
			err    error
		)
		if image != "" {
			data, mimeType, decodeErr := web.DecodeDataURL(image)
			if decodeErr != nil {
				return mcp.NewToolResultError(decodeErr.Error()), nil
			}
			result, err = analyzer.AnalyzePhoto(ctx, data, mimeType)
		} else {
			result, err = analyzer.AnalyzeText(ctx, description)
		}
		if err != nil {
			if errors.Is(err, nutrition.ErrEmptyInput) {
				return mcp.NewToolResultError("nothing to analyze"), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !result.Success {
			log.Warn("analyze_meal failed: %s", result.Error)
			return mcp.NewToolResultError("analysis failed: " + result.Error), nil
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
