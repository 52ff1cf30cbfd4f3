package reporting

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileSink(t *testing.T) {
	_, err := NewFileSink("")
	assert.Error(t, err)

	base := filepath.Join(t.TempDir(), "logs")
	sink, err := NewFileSink(base)
	require.NoError(t, err)
	assert.DirExists(t, base)
	assert.Equal(t, filepath.Join(base, "run-abc"), sink.RunDir("abc"))
}

func TestFileSinkRecord(t *testing.T) {
	base := t.TempDir()
	sink, err := NewFileSink(base)
	require.NoError(t, err)

	run := sampleRun()
	run.Targets[1].Output = "=== RUN TestFails\n\x1b[31m--- FAIL: TestFails\x1b[0m\n"
	summary := &RunSummary{Run: run, Version: "v1.2.3"}

	require.NoError(t, sink.Record(context.Background(), summary))

	runDir := sink.RunDir(run.RunID)
	assert.FileExists(t, filepath.Join(runDir, SummaryJSONFilename))
	assert.FileExists(t, filepath.Join(runDir, SummaryLogFilename))

	// Every target has a log under all/, only the failing one under failed/.
	allDir := filepath.Join(runDir, AllLogsDirname)
	failedDir := filepath.Join(runDir, FailedLogsDirname)
	allEntries, err := os.ReadDir(allDir)
	require.NoError(t, err)
	assert.Len(t, allEntries, 3)
	failedEntries, err := os.ReadDir(failedDir)
	require.NoError(t, err)
	require.Len(t, failedEntries, 1)
	assert.Equal(t, "example.com-ws-beta.log", failedEntries[0].Name())

	// ANSI escapes are stripped from persisted logs.
	content, err := os.ReadFile(filepath.Join(failedDir, "example.com-ws-beta.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "--- FAIL: TestFails")
	assert.NotContains(t, string(content), "\x1b[31m")

	// The summary decodes and carries the verdict.
	data, err := os.ReadFile(filepath.Join(runDir, SummaryJSONFilename))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "fail", decoded["status"])
	assert.Equal(t, run.RunID, decoded["run_id"])

	// The latest marker points at this run.
	marker, err := os.ReadFile(filepath.Join(base, LatestMarkerFile))
	require.NoError(t, err)
	assert.Equal(t, RunDirPrefix+run.RunID, strings.TrimSpace(string(marker)))
}

func TestFileSinkLatestMarkerFollowsNewestRun(t *testing.T) {
	base := t.TempDir()
	sink, err := NewFileSink(base)
	require.NoError(t, err)

	first := sampleRun()
	first.RunID = "run-one"
	require.NoError(t, sink.Record(context.Background(), &RunSummary{Run: first}))

	second := sampleRun()
	second.RunID = "run-two"
	require.NoError(t, sink.Record(context.Background(), &RunSummary{Run: second}))

	marker, err := os.ReadFile(filepath.Join(base, LatestMarkerFile))
	require.NoError(t, err)
	assert.Equal(t, "run-run-two", strings.TrimSpace(string(marker)))

	// Both artifact directories are retained.
	assert.DirExists(t, sink.RunDir("run-one"))
	assert.DirExists(t, sink.RunDir("run-two"))
}

func TestTargetLogFilename(t *testing.T) {
	run := sampleRun()
	assert.Equal(t, "example.com-ws-alpha.log", targetLogFilename(run.Targets[0].Target))
}
