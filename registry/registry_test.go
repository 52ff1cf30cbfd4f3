package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewRegistryWithoutConfigFile(t *testing.T) {
	r, err := NewRegistry(Config{
		WorkspaceRoot:  t.TempDir(),
		DefaultTimeout: 5 * time.Minute,
	})
	require.NoError(t, err)

	assert.Empty(t, r.Excludes())
	assert.False(t, r.Excluded("pkg/util"))
	assert.Equal(t, 5*time.Minute, r.TimeoutFor("pkg/util"))
}

func TestNewRegistryReadsWorkspaceConfig(t *testing.T) {
	workspace := t.TempDir()
	writeConfig(t, workspace, DefaultConfigName, `
exclude:
  - "e2e"
  - "fixtures/*"
timeout: 15m
timeouts:
  "integration/db": 30m
`)

	r, err := NewRegistry(Config{
		WorkspaceRoot:  workspace,
		DefaultTimeout: 5 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"e2e", "fixtures/*"}, r.Excludes())
	assert.Equal(t, 15*time.Minute, r.TimeoutFor("pkg/util"), "file timeout overrides the default")
	assert.Equal(t, 30*time.Minute, r.TimeoutFor("integration/db"))
}

func TestNewRegistryExplicitConfigPath(t *testing.T) {
	other := t.TempDir()
	cfgPath := writeConfig(t, other, "ci.yaml", "exclude: [\"slow\"]\n")

	r, err := NewRegistry(Config{
		WorkspaceRoot:  t.TempDir(),
		ConfigFile:     cfgPath,
		DefaultTimeout: time.Minute,
	})
	require.NoError(t, err)
	assert.True(t, r.Excluded("slow"))
}

func TestNewRegistryExplicitConfigMissing(t *testing.T) {
	_, err := NewRegistry(Config{
		WorkspaceRoot:  t.TempDir(),
		ConfigFile:     filepath.Join(t.TempDir(), "nope.yaml"),
		DefaultTimeout: time.Minute,
	})
	assert.Error(t, err, "an explicitly requested config file must exist")
}

func TestExcluded(t *testing.T) {
	workspace := t.TempDir()
	writeConfig(t, workspace, DefaultConfigName, `
exclude:
  - "e2e"
  - "gen/*"
`)

	r, err := NewRegistry(Config{
		WorkspaceRoot:  workspace,
		DefaultTimeout: time.Minute,
	})
	require.NoError(t, err)

	tests := []struct {
		dir  string
		want bool
	}{
		{dir: "e2e", want: true},
		{dir: "e2e/deep/nested", want: true},
		{dir: "gen/proto", want: true},
		{dir: "gen/proto/v2", want: true},
		{dir: "pkg/e2e-helpers", want: false},
		{dir: "gen", want: false},
		{dir: ".", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Excluded(tt.dir))
		})
	}
}

func TestNewRegistryRejectsInvalidPattern(t *testing.T) {
	workspace := t.TempDir()
	writeConfig(t, workspace, DefaultConfigName, "exclude: [\"[\"]\n")

	_, err := NewRegistry(Config{WorkspaceRoot: workspace, DefaultTimeout: time.Minute})
	assert.ErrorContains(t, err, "invalid exclude pattern")
}

func TestNewRegistryRejectsBadDuration(t *testing.T) {
	workspace := t.TempDir()
	writeConfig(t, workspace, DefaultConfigName, "timeout: soon\n")

	_, err := NewRegistry(Config{WorkspaceRoot: workspace, DefaultTimeout: time.Minute})
	assert.ErrorContains(t, err, "parsing duration")
}

func TestNewRegistryRejectsNegativeTimeout(t *testing.T) {
	workspace := t.TempDir()
	writeConfig(t, workspace, DefaultConfigName, "timeouts:\n  pkg: -5m\n")

	_, err := NewRegistry(Config{WorkspaceRoot: workspace, DefaultTimeout: time.Minute})
	assert.ErrorContains(t, err, "must be positive")
}

func TestNewRegistryValidatesConfig(t *testing.T) {
	_, err := NewRegistry(Config{DefaultTimeout: time.Minute})
	assert.ErrorContains(t, err, "workspace root is required")

	_, err = NewRegistry(Config{WorkspaceRoot: t.TempDir()})
	assert.ErrorContains(t, err, "default timeout must be positive")
}
