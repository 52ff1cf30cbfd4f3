package runner

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/fullsweep/fullsweep/types"
)

// Actions emitted by the go test -json event stream.
// See https://pkg.go.dev/cmd/test2json
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// testTimedOutMarker appears in the output when the child's -timeout fires.
const testTimedOutMarker = "panic: test timed out"

// TestEvent is a single event from the go test -json stream.
type TestEvent struct {
	Time    time.Time
	Action  string
	Package string
	Test    string
	Output  string
	Elapsed float64
}

// parseTargetOutput folds a go test -json event stream into a TargetResult.
// Lines that are not valid JSON (build failure output mostly) are kept as
// plain output.
func parseTargetOutput(target types.TestTarget, output []byte) *types.TargetResult {
	result := &types.TargetResult{
		Target: target,
		Status: types.TestStatusPass,
		Tests:  make(map[string]*types.TestResult),
	}

	var (
		combined   strings.Builder
		pkgFailed  bool
		pkgSkipped bool
		startTimes = make(map[string]time.Time)
	)

	for _, line := range bytes.Split(output, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var event TestEvent
		if err := json.Unmarshal(line, &event); err != nil {
			combined.Write(line)
			combined.WriteByte('\n')
			continue
		}
		if event.Output != "" {
			combined.WriteString(event.Output)
		}
		if event.Test == "" {
			switch event.Action {
			case ActionFail:
				pkgFailed = true
			case ActionSkip:
				// "no test files" and -run mismatches skip the package.
				pkgSkipped = true
			}
			continue
		}
		processTestEvent(result, event, startTimes)
	}

	allSkipped := len(result.Tests) > 0
	anyFailed := pkgFailed
	for _, test := range result.Tests {
		result.Stats.Record(test.Status)
		for _, sub := range test.SubTests {
			result.Stats.Record(sub.Status)
		}
		if test.Status == types.TestStatusFail {
			anyFailed = true
		}
		if test.Status != types.TestStatusSkip {
			allSkipped = false
		}
	}

	result.Status = determineStatusFromFlags(allSkipped, anyFailed)
	if len(result.Tests) == 0 && pkgSkipped && !pkgFailed {
		result.Status = types.TestStatusSkip
	}
	result.Output = combined.String()
	return result
}

// processTestEvent applies one event to the result, creating the test entry
// on first sight. Subtests are keyed by their full name under the top-level
// test's SubTests map.
func processTestEvent(result *types.TargetResult, event TestEvent, startTimes map[string]time.Time) {
	name, _, isSubTest := strings.Cut(event.Test, "/")
	top := result.Tests[name]
	if top == nil {
		top = &types.TestResult{
			Name:     name,
			Status:   types.TestStatusPass,
			SubTests: make(map[string]*types.TestResult),
		}
		result.Tests[name] = top
	}

	test := top
	if isSubTest {
		sub := top.SubTests[event.Test]
		if sub == nil {
			sub = &types.TestResult{
				Name:   event.Test,
				Status: types.TestStatusPass,
			}
			top.SubTests[event.Test] = sub
		}
		test = sub
	}

	switch event.Action {
	case ActionStart, ActionRun:
		startTimes[event.Test] = event.Time
	case ActionPass:
		test.Status = types.TestStatusPass
		test.Duration = eventDuration(event, startTimes)
	case ActionFail:
		test.Status = types.TestStatusFail
		test.Duration = eventDuration(event, startTimes)
		if isSubTest {
			// A failing subtest fails its parent even when the parent's
			// terminal event goes missing in a truncated stream.
			top.Status = types.TestStatusFail
		}
	case ActionSkip:
		test.Status = types.TestStatusSkip
		test.Duration = eventDuration(event, startTimes)
	case ActionOutput:
		test.Output += event.Output
	}
}

// eventDuration prefers the reported Elapsed; when it is missing the delta
// against the recorded run event time is used.
func eventDuration(event TestEvent, startTimes map[string]time.Time) time.Duration {
	if event.Elapsed > 0 {
		return time.Duration(event.Elapsed * float64(time.Second))
	}
	if start, ok := startTimes[event.Test]; ok && !event.Time.IsZero() && !start.IsZero() {
		return event.Time.Sub(start)
	}
	return 0
}

func determineStatusFromFlags(allSkipped, anyFailed bool) types.TestStatus {
	if anyFailed {
		return types.TestStatusFail
	}
	if allSkipped {
		return types.TestStatusSkip
	}
	return types.TestStatusPass
}

// determineRunStatus aggregates target outcomes: any failing or errored
// target fails the run, otherwise it passes. Skips never affect the
// verdict.
func determineRunStatus(targets []*types.TargetResult) types.RunStatus {
	for _, target := range targets {
		if target.Status == types.TestStatusFail || target.Status == types.TestStatusError {
			return types.RunStatusFail
		}
	}
	return types.RunStatusPass
}
