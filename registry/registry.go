// Package registry loads the optional per-workspace config file: exclude
// patterns that filter discovered targets and timeout overrides for slow
// packages.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"
)

// DefaultConfigName is looked up under the workspace root when no explicit
// config file is given.
const DefaultConfigName = ".fullsweep.yaml"

// Registry manages the workspace configuration
type Registry struct {
	config         Config
	excludes       []string
	defaultTimeout time.Duration
	timeouts       map[string]time.Duration
	mu             sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log           log.Logger
	WorkspaceRoot string
	// ConfigFile is an explicit config path. Empty means "use the default
	// name under the workspace root if it exists".
	ConfigFile     string
	DefaultTimeout time.Duration
}

// Duration wraps time.Duration so the yaml config can say "30m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("timeout must be a duration string: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

type fileConfig struct {
	Exclude  []string            `yaml:"exclude,omitempty"`
	Timeout  Duration            `yaml:"timeout,omitempty"`
	Timeouts map[string]Duration `yaml:"timeouts,omitempty"`
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.WorkspaceRoot == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	if cfg.DefaultTimeout <= 0 {
		return nil, fmt.Errorf("default timeout must be positive")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		config:         cfg,
		defaultTimeout: cfg.DefaultTimeout,
		timeouts:       make(map[string]time.Duration),
	}

	if err := r.load(); err != nil {
		return nil, fmt.Errorf("failed to load workspace config: %w", err)
	}

	cfg.Log.Debug("Registry loaded",
		"len(excludes)", len(r.excludes),
		"len(timeouts)", len(r.timeouts),
		"defaultTimeout", r.defaultTimeout)

	return r, nil
}

func (r *Registry) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfgPath := r.config.ConfigFile
	explicit := cfgPath != ""
	if !explicit {
		cfgPath = filepath.Join(r.config.WorkspaceRoot, DefaultConfigName)
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			// No config file is a valid workspace.
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", cfgPath, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", cfgPath, err)
	}

	for _, pattern := range fc.Exclude {
		if _, err := path.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}
	r.excludes = fc.Exclude

	if fc.Timeout != 0 {
		if fc.Timeout < 0 {
			return fmt.Errorf("timeout must be positive, got %s", time.Duration(fc.Timeout))
		}
		r.defaultTimeout = time.Duration(fc.Timeout)
	}

	for dir, timeout := range fc.Timeouts {
		if timeout <= 0 {
			return fmt.Errorf("timeout for %q must be positive, got %s", dir, time.Duration(timeout))
		}
		r.timeouts[path.Clean(filepath.ToSlash(dir))] = time.Duration(timeout)
	}

	return nil
}

// Excluded reports whether a target directory (relative to the workspace
// root, slash-separated) is excluded. A pattern excludes the directory it
// matches and everything beneath it.
func (r *Registry) Excluded(dir string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dir = path.Clean(filepath.ToSlash(dir))
	for _, pattern := range r.excludes {
		for d := dir; d != "." && d != "/"; d = path.Dir(d) {
			if ok, _ := path.Match(pattern, d); ok {
				return true
			}
		}
	}
	return false
}

// TimeoutFor returns the per-package timeout override for dir, or the
// default timeout.
func (r *Registry) TimeoutFor(dir string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if timeout, ok := r.timeouts[path.Clean(filepath.ToSlash(dir))]; ok {
		return timeout
	}
	return r.defaultTimeout
}

// Excludes returns the configured exclude patterns.
func (r *Registry) Excludes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.excludes
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}
