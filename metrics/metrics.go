package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fullsweep/fullsweep/cacheguard"
	"github.com/fullsweep/fullsweep/types"
)

const (
	MetricsNamespace = "fullsweep"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of completed test runs by status",
	}, []string{
		"status",
	})

	targetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "targets_total",
		Help:      "Count of executed test targets by status",
	}, []string{
		"status",
	})

	lastRunTargets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "last_run_targets",
		Help:      "Number of targets in the most recent run by status",
	}, []string{
		"status",
	})

	lastRunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "last_run_duration_seconds",
		Help:      "Wall-clock duration of the most recent run in seconds",
	})

	cacheSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "cache_size_bytes",
		Help:      "Measured size of the build cache before enforcement",
	})

	cacheClearsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "cache_clears_total",
		Help:      "Count of cache clears performed by the cache guard",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordTarget counts one executed test target.
func RecordTarget(status types.TestStatus) {
	if Debug {
		log.Debug("metric inc",
			"m", "targets_total",
			"status", status,
		)
	}
	targetsTotal.WithLabelValues(string(status)).Inc()
}

// RecordRun records the aggregate outcome of one completed run.
func RecordRun(result *types.RunResult) {
	if Debug {
		log.Debug("metric record",
			"m", "runs_total",
			"status", result.Status,
			"targets", result.Stats.Total,
			"duration", result.Duration,
		)
	}
	runsTotal.WithLabelValues(string(result.Status)).Inc()
	lastRunDuration.Set(result.Duration.Seconds())

	counts := make(map[types.TestStatus]int)
	for _, target := range result.Targets {
		counts[target.Status]++
	}
	for _, status := range []types.TestStatus{
		types.TestStatusPass,
		types.TestStatusFail,
		types.TestStatusSkip,
		types.TestStatusError,
	} {
		lastRunTargets.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// RecordCacheGuard records the outcome of one cache guard enforcement.
func RecordCacheGuard(report cacheguard.Report) {
	if Debug {
		log.Debug("metric record",
			"m", "cache_size_bytes",
			"outcome", report.Outcome,
			"size", report.SizeBytes,
		)
	}
	cacheSizeBytes.Set(float64(report.SizeBytes))
	if report.Outcome == cacheguard.OutcomeCleared {
		cacheClearsTotal.Inc()
	}
}
