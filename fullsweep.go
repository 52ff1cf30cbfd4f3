// Package fullsweep wires one CI step together: bound the shared build
// cache, discover and run every test target in the workspace, and report a
// single aggregate verdict.
package fullsweep

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fullsweep/fullsweep/cacheguard"
	"github.com/fullsweep/fullsweep/history"
	"github.com/fullsweep/fullsweep/metrics"
	"github.com/fullsweep/fullsweep/registry"
	"github.com/fullsweep/fullsweep/reporting"
	"github.com/fullsweep/fullsweep/runner"
	"github.com/fullsweep/fullsweep/types"
)

// Fullsweep orchestrates the test cycle and owns the sinks its results flow
// into.
type Fullsweep struct {
	config    *Config
	version   string
	registry  *registry.Registry
	runner    runner.TestRunner
	scheduler TestScheduler

	fileSink    *reporting.FileSink
	historyDB   history.Connection
	historySink reporting.Sink

	// result holds the most recent completed run. It is written by the
	// scheduler's cycle and safe to read after Start returns in run-once
	// mode.
	result *types.RunResult

	ctx context.Context
	log log.Logger
}

// New assembles the orchestrator from configuration. The history sink is
// attached only when a DSN is configured.
func New(ctx context.Context, config *Config, version string) (*Fullsweep, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.New()
		config.Log.Error("No logger provided, using default")
	}

	config.Log.Debug("Creating fullsweep",
		"workspace", config.WorkspaceRoot,
		"cacheDir", config.CacheDir,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"concurrency", config.Concurrency,
		"serial", config.Serial)

	reg, err := registry.NewRegistry(registry.Config{
		Log:            config.Log,
		WorkspaceRoot:  config.WorkspaceRoot,
		ConfigFile:     config.ConfigFile,
		DefaultTimeout: config.DefaultTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	concurrency := config.Concurrency
	if config.Serial {
		concurrency = 1
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		WorkspaceRoot:    config.WorkspaceRoot,
		Registry:         reg,
		GoBinary:         config.GoBinary,
		CacheDir:         config.CacheDir,
		Concurrency:      concurrency,
		ProgressInterval: config.ProgressInterval,
		Log:              config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}

	fileSink, err := reporting.NewFileSink(config.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact sink: %w", err)
	}

	f := &Fullsweep{
		config:    config,
		version:   version,
		registry:  reg,
		runner:    testRunner,
		scheduler: NewDefaultTestScheduler(config.RunInterval, config.RunOnce, config.Log),
		fileSink:  fileSink,
		log:       config.Log,
	}

	if config.HistoryDSN != "" {
		db, err := history.New(ctx, config.HistoryDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to history database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ensure history schema: %w", err)
		}
		f.historyDB = db
		f.historySink = history.NewSink(db, config.Log)
	}

	return f, nil
}

// Start runs the test cycle, once or at the configured interval. In
// run-once mode the returned error is the step's verdict: nil for pass, a
// typed error for everything else.
func (f *Fullsweep) Start(ctx context.Context) error {
	f.ctx = ctx

	if f.config.RunOnce {
		f.log.Info("Starting fullsweep in run-once mode")
	} else {
		f.log.Info("Starting fullsweep in continuous mode", "interval", f.config.RunInterval)
	}

	f.scheduler.RegisterCallback(f.runTests)
	if err := f.scheduler.Start(ctx); err != nil {
		return err
	}

	if f.config.RunOnce {
		return f.verdict(ctx)
	}
	return nil
}

// Stop stops the fullsweep service.
func (f *Fullsweep) Stop(ctx context.Context) error {
	f.log.Info("Stopping fullsweep")
	if err := f.scheduler.Stop(); err != nil {
		return err
	}
	if f.historyDB != nil {
		if err := f.historyDB.Close(); err != nil {
			f.log.Error("Failed to close history database", "error", err)
		}
		f.historyDB = nil
	}
	f.log.Info("fullsweep stopped")
	return nil
}

// Stopped returns true if the service is stopped.
func (f *Fullsweep) Stopped() bool {
	return f.scheduler.Stopped()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (f *Fullsweep) WaitForShutdown(ctx context.Context) error {
	return f.scheduler.WaitForShutdown(ctx)
}

// Result returns the most recent completed run result.
func (f *Fullsweep) Result() *types.RunResult {
	return f.result
}

// verdict converts the finished run into the step's terminal error so the
// CLI can map exit codes.
func (f *Fullsweep) verdict(ctx context.Context) error {
	if f.result == nil {
		return NewRuntimeError(errors.New("run produced no result"))
	}
	switch f.result.Status {
	case types.RunStatusFail:
		return NewTestFailureError(fmt.Sprintf("%d of %d targets failed",
			len(f.result.FailedTargets()), f.result.Stats.Total))
	case types.RunStatusCancelled:
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return NewCancelledError(cause)
	default:
		return nil
	}
}

// runTests executes one full cycle: cache guard, discovery and execution,
// artifacts, history, console table. Only infrastructure failures return an
// error; test failures are data on the recorded result.
func (f *Fullsweep) runTests() error {
	ctx := f.ctx

	var guardReport *cacheguard.Report
	if f.config.CacheDir != "" {
		report, err := cacheguard.Enforce(ctx, f.config.CacheDir, f.config.CacheLimitBytes)
		if err != nil {
			// An unbounded cache can fill the CI disk; never run on top of
			// a failed guard.
			f.log.Error("Cache guard failed", "error", err)
			metrics.RecordErrorDetails("cache guard", err)
			return NewRuntimeError(fmt.Errorf("enforcing cache limit: %w", err))
		}
		guardReport = &report
		metrics.RecordCacheGuard(report)
		f.log.Info("Cache guard completed",
			"outcome", report.Outcome,
			"path", report.Path,
			"size_bytes", report.SizeBytes,
			"threshold_bytes", report.ThresholdBytes)
	}

	f.log.Info("Running all tests...")
	result, err := f.runner.RunAllTests(ctx)
	if err != nil {
		// This is a runtime error (not a test failure).
		f.log.Error("Runtime error running tests", "error", err)
		metrics.RecordErrorDetails("test run", err)
		return NewRuntimeError(err)
	}
	f.result = result
	metrics.RecordRun(result)

	summary := &reporting.RunSummary{Run: result, Guard: guardReport, Version: f.version}
	if err := f.fileSink.Record(ctx, summary); err != nil {
		f.log.Error("Failed to write run artifacts", "error", err)
		metrics.RecordErrorDetails("artifact sink", err)
		return NewRuntimeError(fmt.Errorf("writing run artifacts: %w", err))
	}
	if f.historySink != nil {
		// History is telemetry; its failure must not fail the step.
		if err := f.historySink.Record(ctx, summary); err != nil {
			f.log.Warn("Failed to record run history", "error", err)
			metrics.RecordErrorDetails("history sink", err)
		}
	}

	f.printResultsTable(summary)
	f.log.Info("Test run completed",
		"run_id", result.RunID,
		"status", result.Status,
		"targets", result.Stats.Total,
		"failed", result.Stats.Failed,
		"artifacts", f.fileSink.RunDir(result.RunID))
	return nil
}

// printResultsTable prints the run results to the console.
func (f *Fullsweep) printResultsTable(summary *reporting.RunSummary) {
	if summary.Guard != nil {
		fmt.Println(reporting.GuardLine(summary.Guard))
	}
	reporting.PrintTable(os.Stdout, summary.Run)
}
