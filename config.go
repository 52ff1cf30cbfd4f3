package fullsweep

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/fullsweep/fullsweep/flags"
)

// Config holds the application configuration
type Config struct {
	WorkspaceRoot    string
	CacheDir         string        // empty disables the cache guard
	CacheLimitBytes  uint64        // cache guard threshold
	GoBinary         string        // Go binary used for test execution
	DefaultTimeout   time.Duration // per-target timeout unless overridden by the workspace config
	Concurrency      int           // concurrent test workers (0 = auto-determine)
	Serial           bool          // run targets one at a time
	RunInterval      time.Duration // interval between test runs
	RunOnce          bool          // exit after one test run
	LogDir           string        // directory for per-run artifacts
	ProgressInterval time.Duration // interval between progress updates (0 disables)
	ConfigFile       string        // explicit workspace config path
	HistoryDSN       string        // Postgres DSN for the history sink, empty disables it
	Log              log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	workspace := ctx.String(flags.Workspace.Name)
	absWorkspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for workspace '%s': %w", workspace, err)
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	absLogDir, err := filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	cacheDir := ctx.String(flags.CacheDir.Name)
	var cacheLimitBytes uint64
	if cacheDir != "" {
		cacheDir, err = filepath.Abs(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for cache directory '%s': %w", cacheDir, err)
		}
		limitMB := ctx.Uint64(flags.CacheLimitMB.Name)
		if limitMB == 0 {
			return nil, errors.New("cache limit must be positive when a cache directory is set")
		}
		cacheLimitBytes = limitMB << 20
	}

	timeout := ctx.Duration(flags.Timeout.Name)
	if timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}

	concurrency := ctx.Int(flags.Concurrency.Name)
	if concurrency < 0 {
		return nil, errors.New("concurrency must not be negative")
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	if runInterval < 0 {
		return nil, errors.New("run interval must not be negative")
	}

	return &Config{
		WorkspaceRoot:    absWorkspace,
		CacheDir:         cacheDir,
		CacheLimitBytes:  cacheLimitBytes,
		GoBinary:         ctx.String(flags.GoBinary.Name),
		DefaultTimeout:   timeout,
		Concurrency:      concurrency,
		Serial:           ctx.Bool(flags.Serial.Name),
		RunInterval:      runInterval,
		RunOnce:          runInterval == 0,
		LogDir:           absLogDir,
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		ConfigFile:       ctx.String(flags.ConfigFile.Name),
		HistoryDSN:       ctx.String(flags.HistoryDSN.Name),
		Log:              log,
	}, nil
}
