package types

import "time"

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusSkip  TestStatus = "skip"
	TestStatusError TestStatus = "error"
)

// RunStatus is the terminal state of a whole run. It is distinct from
// TestStatus because a run can end cancelled, which no single test can.
type RunStatus string

const (
	RunStatusPass      RunStatus = "pass"
	RunStatusFail      RunStatus = "fail"
	RunStatusCancelled RunStatus = "cancelled"
)

// TestResult captures the outcome of a single test function.
type TestResult struct {
	Name     string
	Status   TestStatus
	Duration time.Duration
	Output   string
	SubTests map[string]*TestResult // keyed by full subtest name, e.g. "TestFoo/case"
}

// ResultStats accumulates pass/fail/skip counts. It is used both per target
// (counting tests) and per run (counting targets).
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

// Record counts one outcome. An error status counts as a failure.
func (s *ResultStats) Record(status TestStatus) {
	s.Total++
	switch status {
	case TestStatusPass:
		s.Passed++
	case TestStatusSkip:
		s.Skipped++
	default:
		s.Failed++
	}
}

func (s *ResultStats) Duration() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// TargetResult is the aggregate outcome of one test target.
type TargetResult struct {
	Target   TestTarget
	Status   TestStatus
	Tests    map[string]*TestResult // top-level tests, keyed by name
	Stats    ResultStats
	Duration time.Duration
	Output   string // combined human-readable test output
	Error    error  // non-test problem reported by the harness, e.g. a build failure
	TimedOut bool
}

// RunResult is the outcome of one full workspace run. It is built fresh for
// every invocation and never read back by a later one.
type RunResult struct {
	RunID         string
	WorkspaceRoot string
	Status        RunStatus
	Stats         ResultStats
	Targets       []*TargetResult
	Duration      time.Duration
}

// FailedTargets returns the targets that did not pass or skip.
func (r *RunResult) FailedTargets() []*TargetResult {
	var failed []*TargetResult
	for _, t := range r.Targets {
		if t.Status == TestStatusFail || t.Status == TestStatusError {
			failed = append(failed, t)
		}
	}
	return failed
}
