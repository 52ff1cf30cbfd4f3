// Package runner executes every discovered test target of a workspace and
// aggregates the outcomes. Failing tests never stop the remaining targets;
// only infrastructure failures abort a run.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fullsweep/fullsweep/discovery"
	"github.com/fullsweep/fullsweep/metrics"
	"github.com/fullsweep/fullsweep/registry"
	"github.com/fullsweep/fullsweep/types"
)

// TestRunner defines the interface for running the workspace's tests.
type TestRunner interface {
	RunAllTests(ctx context.Context) (*types.RunResult, error)
}

// Config holds configuration for creating a new runner.
type Config struct {
	WorkspaceRoot    string
	Registry         *registry.Registry
	GoBinary         string        // path to the Go binary used for test execution
	CacheDir         string        // build cache handed to children as GOCACHE, empty inherits
	Concurrency      int           // number of concurrent targets, 0 = auto-determine
	ProgressInterval time.Duration // 0 disables periodic progress updates
	Log              log.Logger
}

type runner struct {
	workspaceRoot    string
	registry         *registry.Registry
	goBinary         string
	cacheDir         string
	concurrency      int
	progressInterval time.Duration
	log              log.Logger
	tracer           trace.Tracer
}

// NewTestRunner creates a new test runner instance.
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.WorkspaceRoot == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must not be negative")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.GoBinary == "" {
		cfg.GoBinary = DefaultGoBinary
	}

	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = min(runtime.NumCPU(), MaxAutoConcurrency)
	}

	cfg.Log.Debug("NewTestRunner()",
		"workspaceRoot", cfg.WorkspaceRoot,
		"goBinary", cfg.GoBinary,
		"concurrency", concurrency,
		"cacheDir", cfg.CacheDir)

	return &runner{
		workspaceRoot:    cfg.WorkspaceRoot,
		registry:         cfg.Registry,
		goBinary:         cfg.GoBinary,
		cacheDir:         cfg.CacheDir,
		concurrency:      concurrency,
		progressInterval: cfg.ProgressInterval,
		log:              cfg.Log,
		tracer:           otel.Tracer("test runner"),
	}, nil
}

// RunAllTests implements the TestRunner interface. Every target discovered
// under the workspace is attempted exactly once. The returned error is
// reserved for infrastructure failures; test failures are data on the
// result. A cancelled run returns the completed portion with a cancelled
// status and no error.
func (r *runner) RunAllTests(ctx context.Context) (*types.RunResult, error) {
	runID := uuid.New().String()
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "test run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID))

	r.log.Debug("Running all tests", "run_id", runID, "workspace", r.workspaceRoot)

	targets, err := discovery.Discover(ctx, r.workspaceRoot)
	if err != nil {
		return nil, err
	}
	targets = r.filterExcluded(targets)

	result := &types.RunResult{
		RunID:         runID,
		WorkspaceRoot: r.workspaceRoot,
		Status:        types.RunStatusPass,
		Stats:         types.ResultStats{StartTime: start},
	}

	if len(targets) == 0 {
		// An empty workspace passes vacuously.
		r.log.Warn("No test targets discovered", "workspace", r.workspaceRoot)
		return r.finalize(result, start), nil
	}

	r.log.Info("Starting test execution",
		"run_id", runID,
		"targets", len(targets),
		"concurrency", r.concurrency)

	progress := NewNoOpProgressIndicator()
	if r.progressInterval > 0 {
		console := NewConsoleProgressIndicator(r.log, r.progressInterval)
		defer console.Stop()
		progress = console
	}
	progress.StartRun(len(targets))

	p := pool.NewWithResults[*types.TargetResult]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(r.concurrency)
	for _, target := range targets {
		p.Go(func(taskCtx context.Context) (*types.TargetResult, error) {
			progress.StartTarget(target.Package)
			targetResult, err := r.runTarget(taskCtx, target)
			if err != nil {
				return nil, err
			}
			progress.CompleteTarget(target.Package, targetResult.Status)
			return targetResult, nil
		})
	}

	targetResults, err := p.Wait()
	sort.Slice(targetResults, func(i, j int) bool {
		return targetResults[i].Target.Package < targetResults[j].Target.Package
	})
	result.Targets = targetResults
	for _, targetResult := range targetResults {
		result.Stats.Record(targetResult.Status)
	}

	if err != nil {
		if ctx.Err() != nil {
			r.log.Warn("Test run cancelled",
				"run_id", runID,
				"completed", len(targetResults),
				"targets", len(targets))
			result.Status = types.RunStatusCancelled
			return r.finalize(result, start), nil
		}
		return nil, err
	}

	result.Status = determineRunStatus(targetResults)
	return r.finalize(result, start), nil
}

func (r *runner) finalize(result *types.RunResult, start time.Time) *types.RunResult {
	result.Stats.EndTime = time.Now()
	result.Duration = time.Since(start)
	return result
}

// filterExcluded drops targets matching the registry's exclude patterns.
func (r *runner) filterExcluded(targets []types.TestTarget) []types.TestTarget {
	if len(r.registry.Excludes()) == 0 {
		return targets
	}
	var kept []types.TestTarget
	for _, target := range targets {
		if r.registry.Excluded(target.Dir) {
			r.log.Debug("Skipping excluded target", "package", target.Package, "dir", target.Dir)
			continue
		}
		kept = append(kept, target)
	}
	return kept
}

// runTarget executes one target via go test -json and folds the event
// stream into a TargetResult. Failing tests, build failures and timeouts
// are all result data; only a target that cannot be spawned is an error.
func (r *runner) runTarget(ctx context.Context, target types.TestTarget) (*types.TargetResult, error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("target %s", target.Package))
	defer span.End()

	timeout := r.registry.TimeoutFor(target.Dir)

	// The child enforces its own -timeout; the parent deadline is slightly
	// longer so the child can fire first.
	runCtx, cancel := context.WithTimeout(ctx, timeout+timeoutGrace)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.goBinary, buildTestArgs(target, timeout)...)
	cmd.Dir = target.ModuleDir
	cmd.Env = r.testEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Info("Running target", "package", target.Package, "tests", target.TestCount)
	r.log.Debug("Running test command",
		"dir", cmd.Dir,
		"command", cmd.String(),
		"timeout", timeout)

	startTime := time.Now()
	runErr := cmd.Run()
	duration := time.Since(startTime)

	if err := ctx.Err(); err != nil {
		// The whole run is being torn down; this target has no outcome.
		return nil, err
	}

	result := parseTargetOutput(target, stdout.Bytes())
	result.Duration = duration

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Status = types.TestStatusFail
		result.TimedOut = true
		result.Error = fmt.Errorf("target timed out after %v", timeout)
	case runErr != nil:
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, NewExecutionError(fmt.Errorf("running %s: %w", target.Package, runErr))
		}
		classifyExitFailure(result, exitErr, stderr.String())
	}
	if result.Status == types.TestStatusFail && strings.Contains(result.Output, testTimedOutMarker) {
		result.TimedOut = true
	}

	metrics.RecordTarget(result.Status)
	span.SetAttributes(
		attribute.String("target.package", target.Package),
		attribute.String("target.status", string(result.Status)),
		attribute.Float64("target.duration_seconds", result.Duration.Seconds()),
	)

	r.log.Info("Target finished",
		"package", target.Package,
		"status", result.Status,
		"passed", result.Stats.Passed,
		"failed", result.Stats.Failed,
		"skipped", result.Stats.Skipped,
		"duration", duration)

	return result, nil
}

// classifyExitFailure marks a target failed from a non-zero go test exit.
// Exit code 1 is an ordinary test failure; anything else means the tests
// never ran (build failure, vet error) and is recorded as an error status.
func classifyExitFailure(result *types.TargetResult, exitErr *exec.ExitError, stderr string) {
	code := exitErr.ExitCode()
	switch {
	case code == 1 && result.Stats.Failed > 0:
		// The parsed events already carry the failure detail.
	case code == 1:
		result.Status = types.TestStatusFail
		result.Error = fmt.Errorf("go test exited with code %d", code)
	default:
		result.Status = types.TestStatusError
		result.Error = fmt.Errorf("go test exited with code %d", code)
	}
	if stderr != "" {
		if result.Error != nil {
			result.Error = fmt.Errorf("%w\nstderr: %s", result.Error, stderr)
		} else {
			result.Error = fmt.Errorf("stderr: %s", stderr)
		}
		result.Output += stderr
	}
}

// buildTestArgs constructs the go test invocation for one target.
func buildTestArgs(target types.TestTarget, timeout time.Duration) []string {
	args := []string{TestCommand, target.Package}

	// Always disable result caching; CI wants a real execution.
	args = append(args, CountFlag, DisableCacheCount)

	if timeout != 0 {
		args = append(args, TimeoutFlag, timeout.String())
	}

	// Verbose JSON output for reliable parsing.
	args = append(args, VerboseFlag, JSONFlag)

	return args
}

// testEnv hands the guarded cache directory to the child as its GOCACHE so
// every target shares the bounded cache. The Go build cache handles
// concurrent writers itself.
func (r *runner) testEnv() []string {
	if r.cacheDir == "" {
		return nil // inherit the parent environment untouched
	}
	return append(os.Environ(), "GOCACHE="+r.cacheDir)
}
