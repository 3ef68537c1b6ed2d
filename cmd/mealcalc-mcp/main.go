package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/codefionn/mealcalc/internal/app"
	"github.com/codefionn/mealcalc/internal/logger"
	"github.com/mark3labs/mcp-go/server"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("mealcalc-mcp", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		configPath = fs.String("config", "", "Path to the config file")
		addr       = fs.String("addr", "", "Serve streamable HTTP on this address instead of stdio")
		mock       = fs.Bool("mock", false, "Answer analysis requests with generated data")
		showVer    = fs.Bool("version", false, "Show version information")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVer {
		fmt.Println("mealcalc-mcp v" + version)
		return nil
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *mock {
		cfg.Analysis.Mock = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// stdout carries the protocol in stdio mode; logs go to stderr or the log file.
	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Global().WithPrefix("mcp")
	defer logger.Global().Close()

	analyzer, err := app.NewAnalyzer(cfg, log)
	if err != nil {
		return err
	}

	mcpServer := newMCPServer(analyzer, cfg.RequestTimeout(), log)

	if *addr == "" {
		log.Info("Serving MCP over stdio")
		return server.ServeStdio(mcpServer, server.WithErrorLogger(logger.StdLogger(log, slog.LevelError)))
	}

	httpServer := server.NewStreamableHTTPServer(mcpServer, server.WithLogger(mcpLogger{log}))
	log.Info("Serving MCP over HTTP on %s", *addr)
	return httpServer.Start(*addr)
}

// mcpLogger adapts the logger to the printf interface mcp-go expects.
type mcpLogger struct {
	log *logger.Logger
}

func (l mcpLogger) Infof(format string, v ...any)  { l.log.Info(format, v...) }
func (l mcpLogger) Errorf(format string, v ...any) { l.log.Error(format, v...) }
