package runner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fullsweep/fullsweep/types"
)

// ProgressIndicator receives execution updates for periodic reporting.
type ProgressIndicator interface {
	StartRun(totalTargets int)
	StartTarget(pkg string)
	CompleteTarget(pkg string, status types.TestStatus)
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartRun(totalTargets int)                          {}
func (n *noOpProgressIndicator) StartTarget(pkg string)                             {}
func (n *noOpProgressIndicator) CompleteTarget(pkg string, status types.TestStatus) {}

// consoleProgressIndicator logs periodic progress updates while targets run.
type consoleProgressIndicator struct {
	logger   log.Logger
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex

	totalTargets     int
	completedTargets int
	failedTargets    int
	runStartTime     time.Time

	// Track currently running targets
	runningTargets map[string]time.Time // package -> start time
}

// NewConsoleProgressIndicator creates a progress indicator that logs updates
// at the given interval.
func NewConsoleProgressIndicator(logger log.Logger, updateInterval time.Duration) *consoleProgressIndicator {
	if updateInterval <= 0 {
		updateInterval = 30 * time.Second
	}

	indicator := &consoleProgressIndicator{
		logger:         logger,
		ticker:         time.NewTicker(updateInterval),
		stopCh:         make(chan struct{}),
		runningTargets: make(map[string]time.Time),
	}

	go indicator.progressReporter()

	return indicator
}

func (c *consoleProgressIndicator) StartRun(totalTargets int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalTargets = totalTargets
	c.completedTargets = 0
	c.failedTargets = 0
	c.runStartTime = time.Now()
	c.runningTargets = make(map[string]time.Time)
}

func (c *consoleProgressIndicator) StartTarget(pkg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runningTargets[pkg] = time.Now()
}

func (c *consoleProgressIndicator) CompleteTarget(pkg string, status types.TestStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.runningTargets, pkg)
	c.completedTargets++
	if status == types.TestStatusFail || status == types.TestStatusError {
		c.failedTargets++
	}
}

func (c *consoleProgressIndicator) progressReporter() {
	for {
		select {
		case <-c.ticker.C:
			c.reportProgress()
		case <-c.stopCh:
			return
		}
	}
}

func (c *consoleProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var percentComplete float64
	if c.totalTargets > 0 {
		percentComplete = float64(c.completedTargets) * 100.0 / float64(c.totalTargets)
	}

	c.logger.Info("Progress update",
		"completed", c.completedTargets,
		"total", c.totalTargets,
		"failed", c.failedTargets,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"elapsed", time.Since(c.runStartTime).Truncate(time.Second),
		"running", len(c.runningTargets),
		"longestRunning", formatRunningTargets(c.runningTargets, 3),
	)
}

// Stop stops the periodic reporter. Safe to call more than once.
func (c *consoleProgressIndicator) Stop() {
	c.stopOnce.Do(func() {
		c.ticker.Stop()
		close(c.stopCh)
	})
}

// formatRunningTargets renders the longest-running targets first, capped at
// maxShow entries.
func formatRunningTargets(runningTargets map[string]time.Time, maxShow int) string {
	if len(runningTargets) == 0 {
		return "none"
	}

	type runningTarget struct {
		pkg     string
		elapsed time.Duration
	}
	running := make([]runningTarget, 0, len(runningTargets))
	for pkg, started := range runningTargets {
		running = append(running, runningTarget{pkg: pkg, elapsed: time.Since(started)})
	}
	sort.Slice(running, func(i, j int) bool {
		return running[i].elapsed > running[j].elapsed
	})

	shown := len(running)
	if shown > maxShow {
		shown = maxShow
	}
	parts := make([]string, 0, shown+1)
	for _, rt := range running[:shown] {
		parts = append(parts, fmt.Sprintf("%s (%s)", rt.pkg, rt.elapsed.Truncate(time.Second)))
	}
	if extra := len(running) - shown; extra > 0 {
		parts = append(parts, fmt.Sprintf("+%d more", extra))
	}
	return strings.Join(parts, ", ")
}
