// Package cacheguard bounds the size of a persistent build-artifact cache.
// CI runs share the cache across invocations for speed only; once it grows
// past a configured threshold the whole directory is removed so the
// toolchain rebuilds it from empty. Whole-directory removal is deliberate:
// the cache is reconstructible, and rebuild-from-empty is simpler to audit
// than partial eviction.
package cacheguard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Outcome is the terminal state of one Enforce call.
type Outcome string

const (
	// OutcomeSkipped means the cache path does not exist. Not an error.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeWithinLimit means the cache was measured and left untouched.
	OutcomeWithinLimit Outcome = "within-limit"
	// OutcomeCleared means the cache exceeded the threshold and was removed.
	OutcomeCleared Outcome = "cleared"
)

// Report describes what Enforce found and did.
type Report struct {
	Outcome        Outcome
	Path           string
	SizeBytes      uint64
	ThresholdBytes uint64
	Duration       time.Duration
}

// Enforce computes the recursive total size of regular files under path and
// removes the directory in its entirety when the total exceeds
// thresholdBytes. A missing path yields OutcomeSkipped. Enforce never
// creates, modifies or removes anything outside path, and running it twice
// with no intervening writes yields OutcomeWithinLimit or OutcomeSkipped
// the second time.
func Enforce(ctx context.Context, path string, thresholdBytes uint64) (report Report, err error) {
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	report = Report{Path: path, ThresholdBytes: thresholdBytes}
	if path == "" {
		return report, errors.New("cache path must not be empty")
	}
	if thresholdBytes == 0 {
		return report, errors.New("cache threshold must be positive")
	}

	if _, statErr := os.Stat(path); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			report.Outcome = OutcomeSkipped
			return report, nil
		}
		return report, fmt.Errorf("inspecting cache %s: %w", path, statErr)
	}

	size, err := dirSize(ctx, path)
	if err != nil {
		return report, fmt.Errorf("measuring cache %s: %w", path, err)
	}
	report.SizeBytes = size

	if size <= thresholdBytes {
		report.Outcome = OutcomeWithinLimit
		return report, nil
	}

	if err := os.RemoveAll(path); err != nil {
		return report, fmt.Errorf("clearing cache %s: %w", path, err)
	}
	report.Outcome = OutcomeCleared
	return report, nil
}

// dirSize sums the sizes of regular files under root. Symlinks are not
// followed and contribute nothing. Entries that vanish mid-walk are treated
// as absent rather than as errors, since the cache may be written
// concurrently by unrelated tooling between readdir and stat.
func dirSize(ctx context.Context, root string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	return total, err
}
