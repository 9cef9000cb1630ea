package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stale-sweep/internal/config"
	"stale-sweep/internal/exitcodes"
	"stale-sweep/internal/history"
	"stale-sweep/internal/logging"
	"stale-sweep/internal/metrics"
	"stale-sweep/internal/scheduler"
	"stale-sweep/internal/sweep"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	root := flag.String("root", "", "Root directory to sweep (default: working directory)")
	dirNames := flag.String("dir", "", "Comma-separated directory names to remove (default: __pycache__)")
	extensions := flag.String("ext", "", "Comma-separated file extensions to remove (default: .pyc)")
	dryRun := flag.Bool("dry-run", false, "Report matches without deleting anything")
	daemon := flag.Bool("daemon", false, "Run continuously on the configured interval")
	pause := flag.Bool("pause", false, "Wait for Enter before exiting (interactive use)")
	failOnError := flag.Bool("fail-on-error", false, "Exit non-zero if any removal failed")
	flag.Parse()

	cfg, err := buildConfig(*configPath, *root, *dirNames, *extensions)
	if err != nil {
		log.Printf("ERROR: Failed to load config: %v", err)
		os.Exit(exitcodes.InvalidConfig)
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *pause {
		cfg.PauseOnExit = true
	}
	if *failOnError {
		cfg.FailOnError = true
	}

	// Initialize logger: the daemon writes to the rotating log file,
	// one-shot runs log to stdout only.
	var logger *log.Logger
	if *daemon {
		logger = logging.NewWithConfig(cfg)
	} else {
		logger = logging.New()
	}

	if cfg.DryRun {
		logger.Println("DRY RUN MODE: No files will be deleted")
	}

	// Initialize metrics (Prometheus)
	metrics.Init()

	// Initialize removal history database
	var db *history.DB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening removal history database: %s", cfg.DatabasePath)
		db, err = history.Open(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	code := exitcodes.Success
	if *daemon {
		code = runDaemon(ctx, cfg, logger, db)
	} else {
		code = runOnce(ctx, cfg, logger, db)
	}

	if cfg.PauseOnExit {
		fmt.Print("Press Enter to exit...")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
	}

	os.Exit(code)
}

// buildConfig loads the config file when given, otherwise synthesizes a
// config from the flags with the working directory as the default root.
func buildConfig(configPath, root, dirNames, extensions string) (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	// Flag overrides apply on top of either source.
	if root != "" {
		cfg.Roots = []string{root}
	}
	if dirNames != "" {
		cfg.Rule.DirNames = splitList(dirNames)
	}
	if extensions != "" {
		cfg.Rule.Extensions = splitList(extensions)
	}

	if err := cfg.ValidateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runOnce(ctx context.Context, cfg *config.Config, logger *log.Logger, db *history.DB) int {
	summary, err := scheduler.RunOnceWithDB(ctx, cfg, logger, db)
	if err != nil {
		logger.Printf("ERROR: Sweep failed: %v", err)
		if errors.Is(err, sweep.ErrInvalidRoot) {
			return exitcodes.InvalidConfig
		}
		return exitcodes.RuntimeError
	}
	if cfg.FailOnError && summary.Failed > 0 {
		logger.Printf("Sweep finished with %d failed removals", summary.Failed)
		return exitcodes.RemovalFailures
	}
	logger.Println("Sweep completed successfully")
	return exitcodes.Success
}

func runDaemon(ctx context.Context, cfg *config.Config, logger *log.Logger, db *history.DB) int {
	logger.Println("stale-sweep daemon starting...")

	// Manual sweeps: SIGUSR1 or POST /trigger on the metrics server.
	trigger := make(chan os.Signal, 1)
	signal.Notify(trigger, syscall.SIGUSR1)
	metrics.SetTriggerChannel(trigger)

	if cfg.Prometheus.Port > 0 {
		addr := cfg.PrometheusAddress()
		logger.Printf("Starting Prometheus metrics on %s", addr)
		metrics.StartServer(addr, logger)
		defer metrics.Shutdown(context.Background(), logger)
	}

	if err := scheduler.RunWithDB(ctx, cfg, logger, db, trigger); err != nil && err != context.Canceled {
		logger.Printf("ERROR: Scheduler failed: %v", err)
		return exitcodes.RuntimeError
	}

	logger.Println("stale-sweep daemon stopped")
	return exitcodes.Success
}
