package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/fullsweep/fullsweep/types"
)

const (
	// RunDirPrefix names per-run artifact directories under the base dir.
	RunDirPrefix = "run-"
	// LatestMarkerFile holds the name of the most recent run directory.
	LatestMarkerFile = "latest"

	SummaryJSONFilename = "summary.json"
	SummaryLogFilename  = "summary.log"

	AllLogsDirname    = "all"
	FailedLogsDirname = "failed"
)

// FileSink writes the per-run artifact tree:
//
//	<base>/run-<id>/summary.json
//	<base>/run-<id>/summary.log
//	<base>/run-<id>/all/<package>.log
//	<base>/run-<id>/failed/<package>.log
//	<base>/latest
type FileSink struct {
	baseDir string
}

// NewFileSink creates a sink rooted at baseDir, creating the directory if
// needed.
func NewFileSink(baseDir string) (*FileSink, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory %s: %w", baseDir, err)
	}
	return &FileSink{baseDir: baseDir}, nil
}

var _ Sink = (*FileSink)(nil)

// RunDir returns the artifact directory for a run ID.
func (s *FileSink) RunDir(runID string) string {
	return filepath.Join(s.baseDir, RunDirPrefix+runID)
}

// Record implements Sink. Artifacts are the step's primary output, so any
// write failure is returned to the caller. Local writes ignore ctx so a
// cancelled run still leaves its partial results on disk.
func (s *FileSink) Record(ctx context.Context, summary *RunSummary) error {
	run := summary.Run
	runDir := s.RunDir(run.RunID)
	allDir := filepath.Join(runDir, AllLogsDirname)
	failedDir := filepath.Join(runDir, FailedLogsDirname)
	for _, dir := range []string{runDir, allDir, failedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := s.writeSummaryJSON(runDir, summary); err != nil {
		return err
	}
	if err := s.writeSummaryLog(runDir, summary); err != nil {
		return err
	}

	for _, target := range run.Targets {
		name := targetLogFilename(target.Target)
		content := []byte(stripansi.Strip(target.Output))
		if err := os.WriteFile(filepath.Join(allDir, name), content, 0o644); err != nil {
			return fmt.Errorf("writing target log %s: %w", name, err)
		}
		if target.Status == types.TestStatusFail || target.Status == types.TestStatusError {
			if err := os.WriteFile(filepath.Join(failedDir, name), content, 0o644); err != nil {
				return fmt.Errorf("writing failed target log %s: %w", name, err)
			}
		}
	}

	marker := filepath.Join(s.baseDir, LatestMarkerFile)
	if err := os.WriteFile(marker, []byte(RunDirPrefix+run.RunID+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing latest marker: %w", err)
	}
	return nil
}

func (s *FileSink) writeSummaryJSON(runDir string, summary *RunSummary) error {
	data, err := json.MarshalIndent(buildRunJSON(summary), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	path := filepath.Join(runDir, SummaryJSONFilename)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (s *FileSink) writeSummaryLog(runDir string, summary *RunSummary) error {
	var b strings.Builder
	WriteTextSummary(&b, summary)
	path := filepath.Join(runDir, SummaryLogFilename)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// targetLogFilename flattens a package path into a safe file name.
func targetLogFilename(target types.TestTarget) string {
	var b strings.Builder
	for _, r := range target.Package {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String() + ".log"
}
