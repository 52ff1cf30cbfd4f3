package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoTests = `package feature

import "testing"

func TestOne(t *testing.T) {}

func TestTwo(t *testing.T) {}
`

const oneTestWithMain = `package util

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

func TestHelperBehavior(t *testing.T) {}
`

const benchOnly = `package bench

import "testing"

func BenchmarkThing(b *testing.B) {}

func helper() {}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeModule(t *testing.T, dir, modulePath string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "go.mod"), "module "+modulePath+"\n\ngo 1.22\n")
}

func TestDiscoverSingleModule(t *testing.T) {
	ws := t.TempDir()
	writeModule(t, ws, "example.com/ws")
	writeFile(t, filepath.Join(ws, "feature", "feature_test.go"), twoTests)
	writeFile(t, filepath.Join(ws, "util", "util_test.go"), oneTestWithMain)
	writeFile(t, filepath.Join(ws, "bench", "bench_test.go"), benchOnly)
	writeFile(t, filepath.Join(ws, "notests", "code.go"), "package notests\n")

	targets, err := Discover(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	// Sorted by package path.
	assert.Equal(t, "example.com/ws/feature", targets[0].Package)
	assert.Equal(t, "feature", targets[0].Dir)
	assert.Equal(t, "example.com/ws", targets[0].Module)
	assert.Equal(t, ws, targets[0].ModuleDir)
	assert.Equal(t, 2, targets[0].TestCount)

	// TestMain is not a test function.
	assert.Equal(t, "example.com/ws/util", targets[1].Package)
	assert.Equal(t, 1, targets[1].TestCount)
}

func TestDiscoverModuleRootPackage(t *testing.T) {
	ws := t.TempDir()
	writeModule(t, ws, "example.com/ws")
	writeFile(t, filepath.Join(ws, "root_test.go"), twoTests)

	targets, err := Discover(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "example.com/ws", targets[0].Package)
	assert.Equal(t, ".", targets[0].Dir)
}

func TestDiscoverNestedModules(t *testing.T) {
	ws := t.TempDir()
	writeModule(t, ws, "example.com/parent")
	writeFile(t, filepath.Join(ws, "pkg", "pkg_test.go"), twoTests)

	sub := filepath.Join(ws, "sub")
	writeModule(t, sub, "example.com/sub")
	writeFile(t, filepath.Join(sub, "inner", "inner_test.go"), oneTestWithMain)

	targets, err := Discover(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, "example.com/parent/pkg", targets[0].Package)
	assert.Equal(t, "example.com/parent", targets[0].Module)
	assert.Equal(t, ws, targets[0].ModuleDir)

	// The nested module owns its own tests; the parent walk must not claim
	// them as example.com/parent/sub/inner.
	assert.Equal(t, "example.com/sub/inner", targets[1].Package)
	assert.Equal(t, "example.com/sub", targets[1].Module)
	assert.Equal(t, sub, targets[1].ModuleDir)
	assert.Equal(t, "sub/inner", targets[1].Dir)
}

func TestDiscoverSkipsConventionalDirs(t *testing.T) {
	ws := t.TempDir()
	writeModule(t, ws, "example.com/ws")
	writeFile(t, filepath.Join(ws, "vendor", "dep", "dep_test.go"), twoTests)
	writeFile(t, filepath.Join(ws, "pkg", "testdata", "fixture_test.go"), twoTests)
	writeFile(t, filepath.Join(ws, ".hidden", "hidden_test.go"), twoTests)
	writeFile(t, filepath.Join(ws, "_tools", "tools_test.go"), twoTests)
	writeFile(t, filepath.Join(ws, "pkg", "pkg_test.go"), twoTests)

	targets, err := Discover(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "example.com/ws/pkg", targets[0].Package)
}

func TestDiscoverEmptyWorkspace(t *testing.T) {
	targets, err := Discover(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestDiscoverModuleWithoutTests(t *testing.T) {
	ws := t.TempDir()
	writeModule(t, ws, "example.com/ws")
	writeFile(t, filepath.Join(ws, "pkg", "code.go"), "package pkg\n")

	targets, err := Discover(context.Background(), ws)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, IsDiscoveryError(err))
}

func TestDiscoverRootIsFile(t *testing.T) {
	ws := t.TempDir()
	file := filepath.Join(ws, "file")
	writeFile(t, file, "not a directory")

	_, err := Discover(context.Background(), file)
	require.Error(t, err)
	assert.True(t, IsDiscoveryError(err))
	assert.Contains(t, err.Error(), "not a directory")
}

func TestDiscoverMalformedGoMod(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "go.mod"), "this is not a go.mod\n")
	writeFile(t, filepath.Join(ws, "pkg", "pkg_test.go"), twoTests)

	_, err := Discover(context.Background(), ws)
	require.Error(t, err)
	assert.True(t, IsDiscoveryError(err))
}

func TestDiscoverUnparsableTestFile(t *testing.T) {
	ws := t.TempDir()
	writeModule(t, ws, "example.com/ws")
	writeFile(t, filepath.Join(ws, "broken", "broken_test.go"), "package broken\n\nfunc TestBroken(t *testing.T) {\n")

	targets, err := Discover(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, targets, 1)

	// The target is kept so the run surfaces the build failure; the count
	// is unknown.
	assert.Equal(t, "example.com/ws/broken", targets[0].Package)
	assert.Equal(t, 0, targets[0].TestCount)
}

func TestDiscoverCancelledContext(t *testing.T) {
	ws := t.TempDir()
	writeModule(t, ws, "example.com/ws")
	writeFile(t, filepath.Join(ws, "pkg", "pkg_test.go"), twoTests)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Discover(ctx, ws)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsDiscoveryError(err))
}

func TestIsDiscoveryError(t *testing.T) {
	assert.False(t, IsDiscoveryError(nil))
	assert.False(t, IsDiscoveryError(errors.New("plain")))

	err := NewDiscoveryError(errors.New("walk failed"))
	assert.True(t, IsDiscoveryError(err))
	assert.Contains(t, err.Error(), "discovery error: walk failed")

	wrapped := NewDiscoveryError(os.ErrPermission)
	assert.True(t, errors.Is(wrapped, os.ErrPermission))
}
