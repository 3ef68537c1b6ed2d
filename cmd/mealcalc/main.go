package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codefionn/mealcalc/internal/app"
	"github.com/codefionn/mealcalc/internal/config"
	"github.com/codefionn/mealcalc/internal/logger"
	"github.com/codefionn/mealcalc/internal/storage"
	"github.com/codefionn/mealcalc/internal/web"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath string
	addr       string
	dbPath     string
	logLevel   string
	mock       bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (*options, error) {
	fs := flag.NewFlagSet("mealcalc", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "Path to the config file (default "+config.GetConfigPath()+")")
	fs.StringVar(&opts.addr, "addr", "", "Listen address, overrides config and PORT")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite database path")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, none")
	fs.BoolVar(&opts.mock, "mock", false, "Answer analysis requests with generated data")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options]\n\n", fs.Name())
		fmt.Fprintln(fs.Output(), "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func run(args []string) (err error) {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := app.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.ListenAddr = opts.addr
	}
	if opts.dbPath != "" {
		cfg.DatabasePath = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.mock {
		cfg.Analysis.Mock = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Global()
	defer func() {
		if err != nil {
			log.Error("Fatal error: %v", err)
		}
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	log.Info("mealcalc starting")
	log.Debug("Configuration: listen=%s db=%s tz=%s provider=%s", cfg.ListenAddr, cfg.DatabasePath, cfg.TimeZone, cfg.Analysis.Provider)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.DatabasePath, loc)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	analyzer, err := app.NewAnalyzer(cfg, log)
	if err != nil {
		return err
	}

	server := web.NewServer(analyzer, store, web.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		AnalysisTimeout: cfg.RequestTimeout(),
		HistoryDays:     cfg.HistoryDays,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			log.Info("Shutdown requested")
		}
		return nil
	})

	return g.Wait()
}
