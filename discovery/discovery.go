// Package discovery enumerates the test targets of a workspace: every Go
// package with test functions, across every module reachable from the
// workspace root.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"

	"github.com/fullsweep/fullsweep/types"
)

// DiscoveryError means the workspace could not be enumerated at all. It is
// distinct from an empty workspace, which is a valid zero-target result.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error: %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

func NewDiscoveryError(err error) *DiscoveryError {
	return &DiscoveryError{Err: err}
}

func IsDiscoveryError(err error) bool {
	var discoveryErr *DiscoveryError
	return err != nil && errors.As(err, &discoveryErr)
}

// Discover walks the workspace and returns one target per Go package that
// declares test functions. Modules are scanned concurrently; the returned
// targets are sorted by package path so runs are deterministic.
func Discover(ctx context.Context, workspaceRoot string) ([]types.TestTarget, error) {
	info, err := os.Stat(workspaceRoot)
	if err != nil {
		return nil, NewDiscoveryError(fmt.Errorf("reading workspace root %s: %w", workspaceRoot, err))
	}
	if !info.IsDir() {
		return nil, NewDiscoveryError(fmt.Errorf("workspace root %s is not a directory", workspaceRoot))
	}

	moduleDirs, err := findModuleDirs(workspaceRoot)
	if err != nil {
		return nil, NewDiscoveryError(err)
	}

	var (
		mu      sync.Mutex
		targets []types.TestTarget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, moduleDir := range moduleDirs {
		g.Go(func() error {
			found, err := scanModule(gctx, workspaceRoot, moduleDir, moduleDirs)
			if err != nil {
				return err
			}
			mu.Lock()
			targets = append(targets, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, NewDiscoveryError(err)
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Package < targets[j].Package
	})
	return targets, nil
}

// findModuleDirs returns every directory under root holding a go.mod,
// skipping vendor, testdata, hidden and underscore directories.
func findModuleDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "go.mod" {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning for modules: %w", err)
	}
	return dirs, nil
}

// skipDir reports whether a directory lies outside the Go build space.
func skipDir(name string) bool {
	if name == "vendor" || name == "testdata" {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// scanModule walks one module and returns its test targets. Directories
// belonging to modules nested under this one are skipped; they get scanned
// as their own module.
func scanModule(ctx context.Context, workspaceRoot, moduleDir string, moduleDirs []string) ([]types.TestTarget, error) {
	goModPath := filepath.Join(moduleDir, "go.mod")
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", goModPath, err)
	}
	modFile, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", goModPath, err)
	}
	if modFile.Module == nil || modFile.Module.Mod.Path == "" {
		return nil, fmt.Errorf("%s does not declare a module path", goModPath)
	}
	modulePath := modFile.Module.Mod.Path

	nested := make(map[string]bool)
	for _, dir := range moduleDirs {
		if dir != moduleDir && strings.HasPrefix(dir, moduleDir+string(filepath.Separator)) {
			nested[dir] = true
		}
	}

	var targets []types.TestTarget
	fset := token.NewFileSet()
	err = filepath.WalkDir(moduleDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != moduleDir && (skipDir(d.Name()) || nested[path]) {
			return filepath.SkipDir
		}
		count, hasTests, err := countTestFunctions(fset, path)
		if err != nil {
			return err
		}
		if !hasTests {
			return nil
		}
		target, err := newTarget(workspaceRoot, moduleDir, modulePath, path, count)
		if err != nil {
			return err
		}
		targets = append(targets, target)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return targets, nil
}

// countTestFunctions parses the *_test.go files of one directory and counts
// top-level TestXxx functions, excluding TestMain. A file that fails to
// parse still marks the directory as a target with an unknown count; the
// run will surface the build failure when the target executes.
func countTestFunctions(fset *token.FileSet, dir string) (int, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, false, fmt.Errorf("reading %s: %w", dir, err)
	}

	var count int
	var parseFailed bool
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, entry.Name()), nil, 0)
		if err != nil {
			parseFailed = true
			continue
		}
		for _, decl := range f.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok || funcDecl.Recv != nil {
				continue
			}
			name := funcDecl.Name.Name
			if strings.HasPrefix(name, "Test") && name != "TestMain" {
				count++
			}
		}
	}
	if parseFailed {
		return 0, true, nil
	}
	return count, count > 0, nil
}

func newTarget(workspaceRoot, moduleDir, modulePath, pkgDir string, testCount int) (types.TestTarget, error) {
	relToWorkspace, err := filepath.Rel(workspaceRoot, pkgDir)
	if err != nil {
		return types.TestTarget{}, fmt.Errorf("resolving %s against workspace root: %w", pkgDir, err)
	}
	relToModule, err := filepath.Rel(moduleDir, pkgDir)
	if err != nil {
		return types.TestTarget{}, fmt.Errorf("resolving %s against module root: %w", pkgDir, err)
	}

	pkg := modulePath
	if relToModule != "." {
		pkg = modulePath + "/" + filepath.ToSlash(relToModule)
	}
	return types.TestTarget{
		Module:    modulePath,
		Package:   pkg,
		Dir:       filepath.ToSlash(relToWorkspace),
		ModuleDir: moduleDir,
		TestCount: testCount,
	}, nil
}
