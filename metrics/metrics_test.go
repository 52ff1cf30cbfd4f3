package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/fullsweep/fullsweep/cacheguard"
	"github.com/fullsweep/fullsweep/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
		{
			name: "error with multiple underscores",
			err:  errors.New("test__error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errToLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	// just test that it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RecordError panic'd")
		}
	}()

	RecordError("test_error")
}

func TestRecordErrorDetails(t *testing.T) {
	// Test with nil error
	RecordErrorDetails("test", nil)

	// Test with actual error
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordTarget(t *testing.T) {
	before := testutil.ToFloat64(targetsTotal.WithLabelValues("pass"))

	RecordTarget(types.TestStatusPass)
	RecordTarget(types.TestStatusFail)
	RecordTarget(types.TestStatusSkip)

	assert.Equal(t, before+1, testutil.ToFloat64(targetsTotal.WithLabelValues("pass")))
}

func TestRecordRun(t *testing.T) {
	result := &types.RunResult{
		RunID:  "run1",
		Status: types.RunStatusFail,
		Stats:  types.ResultStats{Total: 3, Passed: 1, Failed: 1, Skipped: 1},
		Targets: []*types.TargetResult{
			{Status: types.TestStatusPass},
			{Status: types.TestStatusFail},
			{Status: types.TestStatusSkip},
		},
		Duration: 90 * time.Second,
	}

	before := testutil.ToFloat64(runsTotal.WithLabelValues("fail"))
	RecordRun(result)

	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues("fail")))
	assert.Equal(t, float64(90), testutil.ToFloat64(lastRunDuration))
	assert.Equal(t, float64(1), testutil.ToFloat64(lastRunTargets.WithLabelValues("pass")))
	assert.Equal(t, float64(1), testutil.ToFloat64(lastRunTargets.WithLabelValues("fail")))
	assert.Equal(t, float64(1), testutil.ToFloat64(lastRunTargets.WithLabelValues("skip")))
	assert.Equal(t, float64(0), testutil.ToFloat64(lastRunTargets.WithLabelValues("error")))
}

func TestRecordCacheGuard(t *testing.T) {
	clearsBefore := testutil.ToFloat64(cacheClearsTotal)

	RecordCacheGuard(cacheguard.Report{
		Outcome:        cacheguard.OutcomeWithinLimit,
		SizeBytes:      2048,
		ThresholdBytes: 4096,
	})
	assert.Equal(t, float64(2048), testutil.ToFloat64(cacheSizeBytes))
	assert.Equal(t, clearsBefore, testutil.ToFloat64(cacheClearsTotal))

	RecordCacheGuard(cacheguard.Report{
		Outcome:        cacheguard.OutcomeCleared,
		SizeBytes:      8192,
		ThresholdBytes: 4096,
	})
	assert.Equal(t, float64(8192), testutil.ToFloat64(cacheSizeBytes))
	assert.Equal(t, clearsBefore+1, testutil.ToFloat64(cacheClearsTotal))
}
