package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fullsweep/fullsweep/types"
)

// PrintTable renders the per-target result table. The table style follows
// the verdict: green for pass, yellow for cancelled, red for fail.
func PrintTable(w io.Writer, run *types.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Workspace Test Results (%s)", formatDuration(run.Duration)))

	t.AppendHeader(table.Row{
		"Package", "Duration", "Tests", "Passed", "Failed", "Skipped", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Package", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	var totalTests, totalPassed, totalFailed, totalSkipped int
	for _, target := range run.Targets {
		totalTests += target.Stats.Total
		totalPassed += target.Stats.Passed
		totalFailed += target.Stats.Failed
		totalSkipped += target.Stats.Skipped

		t.AppendRow(table.Row{
			target.Target.Package,
			formatDuration(target.Duration),
			target.Stats.Total,
			target.Stats.Passed,
			target.Stats.Failed,
			target.Stats.Skipped,
			getResultString(target.Status, target.TimedOut),
			extractKeyErrorMessage(target.Error),
		})
	}

	switch run.Status {
	case types.RunStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.RunStatusCancelled:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// The footer renders uppercased, so pre-uppercase the status to keep
	// the glyph spacing intact.
	t.AppendFooter(table.Row{
		"TOTAL",
		formatDuration(run.Duration),
		totalTests,
		totalPassed,
		totalFailed,
		totalSkipped,
		strings.ToUpper(getRunResultString(run.Status)),
		"",
	})

	t.Render()
}

// getResultString returns a glyphed status string for one target.
func getResultString(status types.TestStatus, timedOut bool) string {
	switch {
	case timedOut:
		return "✗ timeout"
	case status == types.TestStatusPass:
		return "✓ pass"
	case status == types.TestStatusSkip:
		return "- skip"
	case status == types.TestStatusError:
		return "✗ error"
	default:
		return "✗ fail"
	}
}

// getRunResultString returns a glyphed status string for the whole run.
func getRunResultString(status types.RunStatus) string {
	switch status {
	case types.RunStatusPass:
		return "✓ pass"
	case types.RunStatusCancelled:
		return "- cancelled"
	default:
		return "✗ fail"
	}
}

// formatDuration formats the duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
