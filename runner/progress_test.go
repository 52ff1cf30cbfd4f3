package runner

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"

	"github.com/fullsweep/fullsweep/types"
)

func TestNoOpProgressIndicator(t *testing.T) {
	progress := NewNoOpProgressIndicator()

	// All calls are harmless no-ops.
	progress.StartRun(10)
	progress.StartTarget("example.com/ws/alpha")
	progress.CompleteTarget("example.com/ws/alpha", types.TestStatusPass)
}

func TestConsoleProgressTracking(t *testing.T) {
	progress := NewConsoleProgressIndicator(log.New(), time.Hour)
	defer progress.Stop()

	progress.StartRun(3)
	progress.StartTarget("example.com/ws/alpha")
	progress.StartTarget("example.com/ws/beta")

	progress.mu.RLock()
	assert.Equal(t, 3, progress.totalTargets)
	assert.Len(t, progress.runningTargets, 2)
	progress.mu.RUnlock()

	progress.CompleteTarget("example.com/ws/alpha", types.TestStatusPass)
	progress.CompleteTarget("example.com/ws/beta", types.TestStatusFail)

	progress.mu.RLock()
	assert.Equal(t, 2, progress.completedTargets)
	assert.Equal(t, 1, progress.failedTargets)
	assert.Empty(t, progress.runningTargets)
	progress.mu.RUnlock()
}

func TestConsoleProgressStopIdempotent(t *testing.T) {
	progress := NewConsoleProgressIndicator(log.New(), time.Hour)
	progress.Stop()
	progress.Stop()
}

func TestFormatRunningTargets(t *testing.T) {
	assert.Equal(t, "none", formatRunningTargets(nil, 3))

	now := time.Now()
	running := map[string]time.Time{
		"example.com/ws/slow":   now.Add(-90 * time.Second),
		"example.com/ws/fast":   now.Add(-2 * time.Second),
		"example.com/ws/medium": now.Add(-30 * time.Second),
	}

	formatted := formatRunningTargets(running, 3)
	assert.Contains(t, formatted, "example.com/ws/slow")

	// Longest-running first.
	slowIdx := len("example.com/ws/slow")
	assert.Equal(t, "example.com/ws/slow", formatted[:slowIdx])
}

func TestFormatRunningTargetsCapped(t *testing.T) {
	now := time.Now()
	running := map[string]time.Time{
		"a": now.Add(-5 * time.Second),
		"b": now.Add(-4 * time.Second),
		"c": now.Add(-3 * time.Second),
		"d": now.Add(-2 * time.Second),
		"e": now.Add(-1 * time.Second),
	}

	formatted := formatRunningTargets(running, 3)
	assert.Contains(t, formatted, "+2 more")
	assert.Contains(t, formatted, "a (")
	assert.NotContains(t, formatted, "e (")
}
