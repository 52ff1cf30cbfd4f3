package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fullsweep/fullsweep/logging"
	"github.com/fullsweep/fullsweep/service"
)

const EnvVarPrefix = "FULLSWEEP"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Workspace = &cli.StringFlag{
		Name:    "workspace",
		Value:   ".",
		Usage:   "Workspace root to discover test targets under",
		EnvVars: prefixEnvVars("WORKSPACE"),
	}
	CacheDir = &cli.StringFlag{
		Name:    "cache-dir",
		Value:   "",
		Usage:   "Build cache directory shared across runs. Empty disables the cache guard.",
		EnvVars: prefixEnvVars("CACHE_DIR"),
	}
	CacheLimitMB = &cli.Uint64Flag{
		Name:    "cache-limit-mb",
		Value:   10240,
		Usage:   "Cache guard threshold in MiB. The cache is removed entirely once it grows past this.",
		EnvVars: prefixEnvVars("CACHE_LIMIT_MB"),
	}
	GoBinary = &cli.StringFlag{
		Name:    "go-binary",
		Value:   "go",
		Usage:   "Go binary used to run tests",
		EnvVars: prefixEnvVars("GO_BINARY"),
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   10 * time.Minute,
		Usage:   "Default timeout for one test target. Overridable per directory in the workspace config.",
		EnvVars: prefixEnvVars("TIMEOUT"),
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   0,
		Usage:   "Number of concurrent test workers (0 = auto-determine based on CPU count)",
		EnvVars: prefixEnvVars("CONCURRENCY"),
	}
	Serial = &cli.BoolFlag{
		Name:    "serial",
		Value:   false,
		Usage:   "Run test targets one at a time instead of in parallel",
		EnvVars: prefixEnvVars("SERIAL"),
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		Usage:   "Interval between test runs (e.g. '1h'). Zero means run once and exit.",
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "logs",
		Usage:   "Directory for per-run artifacts (summary and per-target logs)",
		EnvVars: prefixEnvVars("LOG_DIR"),
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		Usage:   "Interval between progress updates during a run. Zero disables them.",
		EnvVars: prefixEnvVars("PROGRESS_INTERVAL"),
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		Usage:   "Workspace config file. Defaults to .fullsweep.yaml under the workspace root when present.",
		EnvVars: prefixEnvVars("CONFIG"),
	}
	HistoryDSN = &cli.StringFlag{
		Name:    "history-dsn",
		Value:   "",
		Usage:   "Postgres DSN for the run history sink. Empty disables history.",
		EnvVars: prefixEnvVars("HISTORY_DSN"),
	}
	TracingEnabled = &cli.BoolFlag{
		Name:    "tracing.enabled",
		Value:   false,
		Usage:   "Enable OpenTelemetry trace export (exporter configured via standard OTEL_* env vars)",
		EnvVars: prefixEnvVars("TRACING_ENABLED"),
	}
)

var defaultFlags = []cli.Flag{
	Workspace,
	CacheDir,
	CacheLimitMB,
	GoBinary,
	Timeout,
	Concurrency,
	Serial,
	RunInterval,
	LogDir,
	ProgressInterval,
	ConfigFile,
	HistoryDSN,
	TracingEnabled,
}

// Flags contains the list of configuration options available to the binary.
var Flags []cli.Flag

func init() {
	Flags = append(Flags, defaultFlags...)
	Flags = append(Flags, logging.CLIFlags(EnvVarPrefix)...)
	Flags = append(Flags, service.CLIFlags(EnvVarPrefix)...)
}

// CheckRequired validates that flag values are coherent before the
// application starts.
func CheckRequired(ctx *cli.Context) error {
	if ctx.String(Workspace.Name) == "" {
		return fmt.Errorf("flag %s must not be empty", Workspace.Name)
	}
	if ctx.Duration(Timeout.Name) <= 0 {
		return fmt.Errorf("flag %s must be positive", Timeout.Name)
	}
	if ctx.Int(Concurrency.Name) < 0 {
		return fmt.Errorf("flag %s must not be negative", Concurrency.Name)
	}
	if ctx.String(CacheDir.Name) != "" && ctx.Uint64(CacheLimitMB.Name) == 0 {
		return fmt.Errorf("flag %s must be positive when %s is set", CacheLimitMB.Name, CacheDir.Name)
	}
	return nil
}
