// Package reporting renders run results for humans and machines: the
// console table, the per-run artifact tree, and the sink interface shared
// with the history backend.
package reporting

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fullsweep/fullsweep/cacheguard"
	"github.com/fullsweep/fullsweep/types"
)

// RunSummary bundles everything one invocation produced: the aggregate test
// result plus the cache guard report when the guard ran.
type RunSummary struct {
	Run     *types.RunResult
	Guard   *cacheguard.Report // nil when no cache directory is configured
	Version string
}

// Sink consumes one finished run.
type Sink interface {
	Record(ctx context.Context, summary *RunSummary) error
}

// runJSON is the machine-readable summary written to summary.json.
type runJSON struct {
	RunID           string       `json:"run_id"`
	Version         string       `json:"version,omitempty"`
	WorkspaceRoot   string       `json:"workspace_root"`
	Status          string       `json:"status"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	DurationSeconds float64      `json:"duration_seconds"`
	Targets         statsJSON    `json:"targets"`
	CacheGuard      *guardJSON   `json:"cache_guard,omitempty"`
	Results         []targetJSON `json:"results"`
}

type statsJSON struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type guardJSON struct {
	Outcome         string  `json:"outcome"`
	Path            string  `json:"path"`
	SizeBytes       uint64  `json:"size_bytes"`
	ThresholdBytes  uint64  `json:"threshold_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type targetJSON struct {
	Package         string    `json:"package"`
	Dir             string    `json:"dir"`
	Status          string    `json:"status"`
	Tests           statsJSON `json:"tests"`
	DurationSeconds float64   `json:"duration_seconds"`
	TimedOut        bool      `json:"timed_out,omitempty"`
	Error           string    `json:"error,omitempty"`
}

func buildRunJSON(summary *RunSummary) runJSON {
	run := summary.Run
	out := runJSON{
		RunID:           run.RunID,
		Version:         summary.Version,
		WorkspaceRoot:   run.WorkspaceRoot,
		Status:          string(run.Status),
		StartTime:       run.Stats.StartTime,
		EndTime:         run.Stats.EndTime,
		DurationSeconds: run.Duration.Seconds(),
		Targets: statsJSON{
			Total:   run.Stats.Total,
			Passed:  run.Stats.Passed,
			Failed:  run.Stats.Failed,
			Skipped: run.Stats.Skipped,
		},
		Results: make([]targetJSON, 0, len(run.Targets)),
	}
	if summary.Guard != nil {
		out.CacheGuard = &guardJSON{
			Outcome:         string(summary.Guard.Outcome),
			Path:            summary.Guard.Path,
			SizeBytes:       summary.Guard.SizeBytes,
			ThresholdBytes:  summary.Guard.ThresholdBytes,
			DurationSeconds: summary.Guard.Duration.Seconds(),
		}
	}
	for _, target := range run.Targets {
		tj := targetJSON{
			Package: target.Target.Package,
			Dir:     target.Target.Dir,
			Status:  string(target.Status),
			Tests: statsJSON{
				Total:   target.Stats.Total,
				Passed:  target.Stats.Passed,
				Failed:  target.Stats.Failed,
				Skipped: target.Stats.Skipped,
			},
			DurationSeconds: target.Duration.Seconds(),
			TimedOut:        target.TimedOut,
		}
		if target.Error != nil {
			tj.Error = target.Error.Error()
		}
		out.Results = append(out.Results, tj)
	}
	return out
}

// WriteTextSummary writes the human-readable run summary.
func WriteTextSummary(w io.Writer, summary *RunSummary) {
	run := summary.Run

	header := fmt.Sprintf("fullsweep run %s", run.RunID)
	if summary.Version != "" {
		header += fmt.Sprintf(" (%s)", summary.Version)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "Workspace: %s\n", run.WorkspaceRoot)
	fmt.Fprintf(w, "Status:    %s\n", run.Status)
	fmt.Fprintf(w, "Targets:   %d total, %d passed, %d failed, %d skipped\n",
		run.Stats.Total, run.Stats.Passed, run.Stats.Failed, run.Stats.Skipped)
	fmt.Fprintf(w, "Duration:  %s\n", formatDuration(run.Duration))
	if summary.Guard != nil {
		fmt.Fprintln(w, GuardLine(summary.Guard))
	}

	failed := run.FailedTargets()
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(w, "\nFailed targets:\n")
	for _, target := range failed {
		line := fmt.Sprintf("  %s (%d failed", target.Target.Package, target.Stats.Failed)
		if target.TimedOut {
			line += ", timed out"
		}
		line += ")"
		fmt.Fprintln(w, line)
		if msg := extractKeyErrorMessage(target.Error); msg != "" {
			fmt.Fprintf(w, "      %s\n", msg)
		}
	}
}

// GuardLine renders a one-line human summary of a cache guard report.
func GuardLine(report *cacheguard.Report) string {
	switch report.Outcome {
	case cacheguard.OutcomeSkipped:
		return fmt.Sprintf("Cache guard: %s does not exist, nothing to bound", report.Path)
	case cacheguard.OutcomeCleared:
		return fmt.Sprintf("Cache guard: cleared %s (%s over the %s limit)",
			report.Path, formatBytes(report.SizeBytes), formatBytes(report.ThresholdBytes))
	default:
		return fmt.Sprintf("Cache guard: %s within limit (%s of %s)",
			report.Path, formatBytes(report.SizeBytes), formatBytes(report.ThresholdBytes))
	}
}

// formatBytes renders a byte count in a human-readable unit.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// extractKeyErrorMessage pulls the most useful line out of a target error
// for compact display.
func extractKeyErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	for _, marker := range []string{"panic:", "--- FAIL:", "FAIL:"} {
		if idx := strings.Index(errStr, marker); idx != -1 {
			line := errStr[idx:]
			if nl := strings.Index(line, "\n"); nl != -1 {
				line = line[:nl]
			}
			return line
		}
	}
	if nl := strings.Index(errStr, "\n"); nl != -1 {
		errStr = errStr[:nl]
	}
	if len(errStr) > 80 {
		return errStr[:77] + "..."
	}
	return errStr
}
