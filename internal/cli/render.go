package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderReport prints the derivation summary and the insight table
func renderReport(w io.Writer, r featurizeReport) {
	_, _ = fmt.Fprintf(w, "%s rows written to %s (reference date %s)\n",
		humanize.Comma(int64(r.Rows)), r.Output, r.ReferenceDate)
	_, _ = fmt.Fprintf(w, "New columns: %s\n", strings.Join(r.NewColumns, ", "))
	if len(r.Skipped) > 0 {
		_, _ = fmt.Fprintf(w, "Skipped rules: %s\n", strings.Join(r.Skipped, ", "))
	}
	for _, warning := range r.Warnings {
		_, _ = fmt.Fprintf(w, "Warning: %s\n", warning)
	}

	if len(r.Insights) == 0 {
		_, _ = fmt.Fprintln(w, "(no insights)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Column", "Insight"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, WidthMax: 80},
	})
	for i, in := range r.Insights {
		t.AppendRow(table.Row{i + 1, in.Column, in.Text})
	}
	t.Render()
}
