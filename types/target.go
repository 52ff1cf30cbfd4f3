package types

import "strings"

// TestTarget is one discoverable unit of tests: a Go package with at least
// one test file, together with the module that owns it.
type TestTarget struct {
	// Module is the module path from the owning go.mod.
	Module string
	// Package is the full import path of the test package.
	Package string
	// Dir is the package directory relative to the workspace root.
	Dir string
	// ModuleDir is the absolute path of the owning module's root directory.
	ModuleDir string
	// TestCount is the number of top-level Test functions found during
	// discovery. Zero means the count is unknown (e.g. a test file that
	// does not parse); the target still runs.
	TestCount int
}

func (t TestTarget) String() string {
	return t.Package
}

// DisplayName returns a shortened name suitable for table output.
func (t TestTarget) DisplayName() string {
	if t.Dir == "" || t.Dir == "." {
		parts := strings.Split(t.Package, "/")
		return parts[len(parts)-1]
	}
	return t.Dir
}
