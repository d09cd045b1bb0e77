package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lwei/csi800-data/internal/config"
	"github.com/lwei/csi800-data/internal/model"
	"github.com/lwei/csi800-data/internal/plan"
	"github.com/lwei/csi800-data/internal/provider"
	"github.com/lwei/csi800-data/internal/store"
	"github.com/lwei/csi800-data/internal/syncer"
	"github.com/lwei/csi800-data/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/sync.local.yaml", "path to config file")
	startDate := flag.String("start", "", "explicit start date for bounded mode (YYYY-MM-DD or YYYYMMDD)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}

	// Mode is the single positional argument; incremental is the
	// everyday default.
	modeArg := "incremental"
	if flag.NArg() > 0 {
		modeArg = flag.Arg(0)
	}

	// Load configuration first so the log level applies everywhere.
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting sync",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"mode", modeArg,
		"index", cfg.Provider.IndexCode,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	db, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database connected")

	writer := store.NewWriter(store.WriterConfig{
		Table:     cfg.Sync.Table,
		BatchSize: cfg.Sync.BatchSize,
		Retries:   cfg.Sync.WriteRetries,
		Backoff:   cfg.Sync.WriteBackoff,
	}, db, logger)

	if err := writer.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		return 1
	}

	// Upstream client
	client := provider.NewClient(
		cfg.Provider.RosterURL,
		cfg.Provider.KlineURL,
		provider.WithLogger(logger),
		provider.WithTimeout(cfg.Provider.Timeout),
		provider.WithRetries(cfg.Provider.MaxRetries, cfg.Provider.RetryBackoff),
	)

	planner := plan.New(cfg.Sync.LookbackDays)
	runner := syncer.New(syncer.Config{
		Concurrency: cfg.Sync.Concurrency,
		RunTimeout:  cfg.Sync.RunTimeout,
	}, client, client, writer, logger)

	var result *model.RunResult
	if modeArg == "verify" {
		result, err = runner.Verify(ctx, planner, writer)
	} else {
		mode, perr := plan.ParseMode(modeArg)
		if perr != nil {
			logger.Error("invalid mode", "mode", modeArg, "error", perr)
			return 2
		}
		p, perr := planner.Plan(mode, *startDate)
		if perr != nil {
			logger.Error("failed to plan run", "error", perr)
			return 2
		}
		result, err = runner.Run(ctx, p)
	}
	if err != nil {
		logger.Error("sync run failed", "error", err)
		return 1
	}

	// A run where too large a share of the roster failed exits
	// non-zero so schedulers notice.
	ratio := result.FailureRatio()
	if ratio > cfg.Sync.MaxFailureRatio {
		logger.Error("failure ratio above threshold",
			"ratio", fmt.Sprintf("%.3f", ratio),
			"threshold", cfg.Sync.MaxFailureRatio,
			"failed_codes", result.FailedCodes(),
		)
		return 1
	}

	logger.Info("sync finished",
		"run_id", result.RunID,
		"rows_written", result.RowsWritten,
		"failed", len(result.Errors),
	)
	return 0
}

// logLevel maps the configured level name to slog; unknown names fall
// back to info.
func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
