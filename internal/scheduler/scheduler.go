package scheduler

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"stale-sweep/internal/config"
	"stale-sweep/internal/disk"
	"stale-sweep/internal/history"
	"stale-sweep/internal/limiter"
	"stale-sweep/internal/metrics"
	"stale-sweep/internal/safety"
	"stale-sweep/internal/sweep"
)

var errNilConfig = errors.New("nil config")

// RunOnce performs a single sweep pass over all configured roots
func RunOnce(ctx context.Context, cfg *config.Config, logger *log.Logger) (sweep.Summary, error) {
	return RunOnceWithDB(ctx, cfg, logger, nil)
}

// RunOnceWithDB performs a single sweep pass and records every removal
// attempt into the history database when one is provided.
//
// An invalid root does not abort the remaining roots; it is logged, counted,
// and reported through the returned error after all roots were attempted.
func RunOnceWithDB(ctx context.Context, cfg *config.Config, logger *log.Logger, db *history.DB) (sweep.Summary, error) {
	var total sweep.Summary

	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return total, errNilConfig
	}

	select {
	case <-ctx.Done():
		return total, ctx.Err()
	default:
	}

	var cpuLimiter *limiter.CPULimiter
	if cfg.ResourceLimits.MaxCPUPercent > 0 {
		cpuLimiter = limiter.NewCPULimiter(cfg.ResourceLimits.MaxCPUPercent)
	}

	start := time.Now()
	metrics.RecordSweepRun()
	updateFreeSpaceMetrics(cfg, logger)

	rule, err := sweep.NewRule(cfg.Rule.DirNames, cfg.Rule.Extensions)
	if err != nil {
		metrics.ErrorsTotal.Inc()
		return total, err
	}

	sweeper := sweep.NewSweeper(logger, cfg.DryRun)
	sweeper.SetValidator(safety.NewValidator(cfg.Roots, cfg.ProtectedPaths))
	if cfg.NFSTimeout > 0 {
		sweeper.SetNFSTimeout(time.Duration(cfg.NFSTimeout) * time.Second)
	}

	var firstErr error

	for _, root := range cfg.Roots {
		if cfg.NFSTimeout > 0 && disk.IsNFSStale(root, time.Duration(cfg.NFSTimeout)*time.Second) {
			logger.Printf("skipping root on stale mount: %s", root)
			metrics.ErrorsTotal.Inc()
			continue
		}

		if cpuLimiter != nil {
			cpuLimiter.Throttle()
		}

		records, err := sweeper.Sweep(ctx, root, rule)
		if err != nil && !errors.Is(err, sweep.ErrInvalidRoot) {
			// Context cancellation; stop the pass.
			recordPass(cfg, root, records, db, logger, &total)
			return total, err
		}
		if err != nil {
			logger.Printf("sweep failed for root %s: %v", root, err)
			metrics.ErrorsTotal.Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		recordPass(cfg, root, records, db, logger, &total)
	}

	elapsed := time.Since(start).Seconds()
	metrics.SweepDuration.Observe(elapsed)

	logger.Printf("pass complete: removed=%d failed=%d freed=%d bytes duration=%.3fs",
		total.Removed, total.Failed, total.BytesFreed, elapsed)
	return total, firstErr
}

// recordPass folds one root's records into history, metrics, and the running summary
func recordPass(cfg *config.Config, root string, records []sweep.Record, db *history.DB, logger *log.Logger, total *sweep.Summary) {
	for _, rec := range records {
		if db != nil {
			if err := db.RecordRemoval(root, rec, cfg.DryRun); err != nil {
				// Don't fail the sweep if history writes fail.
				logger.Printf("failed to record removal to history: %v", err)
			}
		}

		if rec.Failed() {
			metrics.RemovalErrorsTotal.Inc()
			continue
		}
		if !cfg.DryRun {
			metrics.EntriesRemovedTotal.Inc()
			metrics.BytesFreedTotal.Add(float64(rec.Size))
			metrics.RecordRootRemoval(root, rec.Size)
		}
	}

	s := sweep.Summarize(records)
	total.Removed += s.Removed
	total.Failed += s.Failed
	total.BytesFreed += s.BytesFreed
}

// Run sweeps on the configured interval until the context is canceled.
// A send on trigger forces an immediate pass between ticks.
func Run(ctx context.Context, cfg *config.Config, logger *log.Logger, trigger chan os.Signal) error {
	return RunWithDB(ctx, cfg, logger, nil, trigger)
}

// RunWithDB is Run with history recording
func RunWithDB(ctx context.Context, cfg *config.Config, logger *log.Logger, db *history.DB, trigger chan os.Signal) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errNilConfig
	}

	if _, err := RunOnceWithDB(ctx, cfg, logger, db); err != nil {
		logger.Printf("error running pass: %v", err)
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := RunOnceWithDB(ctx, cfg, logger, db); err != nil {
				logger.Printf("error running pass: %v", err)
			}
		case sig := <-trigger:
			logger.Printf("manual sweep triggered (%v)", sig)
			if _, err := RunOnceWithDB(ctx, cfg, logger, db); err != nil {
				logger.Printf("error running pass: %v", err)
			}
		}
	}
}

// updateFreeSpaceMetrics refreshes the per-root free space gauges
func updateFreeSpaceMetrics(cfg *config.Config, logger *log.Logger) {
	for _, root := range cfg.Roots {
		freePercent, err := disk.GetFreePercent(root)
		if err != nil {
			logger.Printf("failed to get disk usage for %s: %v", root, err)
			continue
		}
		metrics.UpdateRootFreeSpace(root, freePercent)
	}
}
