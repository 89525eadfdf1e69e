package reporting

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-bintest/index"
	"github.com/ethereum-optimism/infra/op-bintest/runner"
	"github.com/ethereum-optimism/infra/op-bintest/types"
)

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// FormatExecutables renders the indexed executables, followed by the reported artifacts
// that were dropped, as ASCII tables
func FormatExecutables(entries []types.ArtifactEntry, dropped []index.Dropped) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle("Executables")
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Name", "Package", "Version", "Path"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Kind", AutoMerge: true},
		{Name: "Path", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, e := range entries {
		t.AppendRow(table.Row{e.Kind, e.Name, dash(e.Package), dash(e.Version), e.Path})
	}
	t.AppendFooter(table.Row{"TOTAL", len(entries), "", "", ""})
	t.Render()

	if len(dropped) == 0 {
		return buf.String()
	}

	buf.WriteString("\n")
	d := table.NewWriter()
	d.SetOutputMirror(&buf)
	d.SetTitle("Dropped artifacts")
	d.SetStyle(table.StyleLight)
	d.AppendHeader(table.Row{"Kind", "Name", "Reason", "Detail"})
	d.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Detail", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, rec := range dropped {
		d.AppendRow(table.Row{dash(rec.Record.Kind.String()), dash(rec.Record.TargetName), rec.Reason, rec.Detail})
	}
	d.Render()

	return buf.String()
}

// FormatOutcome renders a plain text summary of a build
func FormatOutcome(o *runner.Outcome) string {
	var summary strings.Builder

	fmt.Fprintf(&summary, "BUILD SUMMARY\n")
	fmt.Fprintf(&summary, "=============\n")
	fmt.Fprintf(&summary, "Session: %s\n", o.SessionID)
	fmt.Fprintf(&summary, "Command: %s\n", strings.Join(o.Command, " "))
	fmt.Fprintf(&summary, "Directory: %s\n", o.Dir)
	fmt.Fprintf(&summary, "Duration: %s\n", formatDuration(o.Duration))
	fmt.Fprintf(&summary, "State: %s\n\n", strings.ToUpper(string(o.State)))

	switch o.State {
	case runner.StateSpawnFailed:
		fmt.Fprintf(&summary, "Spawn error: %v\n", o.SpawnErr)
		return summary.String()
	case runner.StateFailed:
		fmt.Fprintf(&summary, "Exit code: %d\n\n", o.ExitCode)
	}

	fmt.Fprintf(&summary, "Output:\n")
	fmt.Fprintf(&summary, "  Stdout lines:  %d\n", o.Stats.StdoutLines)
	fmt.Fprintf(&summary, "  Stderr lines:  %d\n", o.Stats.StderrLines)
	fmt.Fprintf(&summary, "  Artifacts:     %d\n", o.Stats.Artifacts)
	fmt.Fprintf(&summary, "  Indexed:       %d\n", o.Stats.Indexed)
	fmt.Fprintf(&summary, "  Dropped:       %d\n", o.Stats.Dropped)
	fmt.Fprintf(&summary, "  Messages:      %d\n", o.Stats.Messages)
	fmt.Fprintf(&summary, "  Unrecognized:  %d\n", o.Stats.Unrecognized)
	if o.Stats.SkippedLines > 0 {
		fmt.Fprintf(&summary, "  Skipped lines: %d\n", o.Stats.SkippedLines)
	}

	if len(o.Diagnostics) > 0 {
		fmt.Fprintf(&summary, "\nDiagnostics:\n")
		for _, diag := range o.Diagnostics {
			for _, line := range strings.Split(diag, "\n") {
				fmt.Fprintf(&summary, "  %s\n", line)
			}
		}
	}

	return summary.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
