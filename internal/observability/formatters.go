// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/weekly-report-agent/internal/ledger"
	"github.com/jonathan/weekly-report-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxRowsToShow is the number of sample rows shown per table
	maxRowsToShow = 3
)

// Printer handles formatted output for the command surface.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSnapshot outputs a human-readable summary of a collected snapshot.
func (p *Printer) PrintSnapshot(snapshot *types.Snapshot) {
	if snapshot == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sources:  %d   Tables: %d   Rows: %d\n",
		len(snapshot.SourceOrder), snapshot.NonEmptyTables(), snapshot.TotalRows())

	for _, name := range snapshot.SourceOrder {
		source, ok := snapshot.Sources[name]
		if !ok {
			continue
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%s\n", source.Title)
		for _, tabName := range source.TabOrder {
			table := source.Tabs[tabName]
			fmt.Fprintf(&sb, "  • %s (%d rows)\n", tabName, table.DataRows())
			for i, row := range table.Rows {
				if i >= maxRowsToShow {
					fmt.Fprintf(&sb, "      ... and %d more\n", table.DataRows()-maxRowsToShow)
					break
				}
				fmt.Fprintf(&sb, "      %s\n", strings.Join(firstCells(row, 4), " | "))
			}
		}
	}

	if len(snapshot.Errors) > 0 {
		sb.WriteString("\nUnavailable sources:\n")
		for _, e := range snapshot.Errors {
			fmt.Fprintf(&sb, "  ✗ %s: %s\n", e.SourceID, e.Message)
		}
	}

	p.printBox("COLLECTED SNAPSHOT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintHistory outputs the execution log, most recent first.
func (p *Printer) PrintHistory(records []ledger.ExecutionRecord) {
	if len(records) == 0 {
		p.printBox("EXECUTION HISTORY", "No executions recorded.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-10s %-6s %-9s %-20s %s\n", "RUN", "PHASE", "OUTCOME", "AT", "ERROR")
	for _, rec := range records {
		errSummary := rec.ErrorSummary
		if errSummary == "" {
			errSummary = "-"
		}
		fmt.Fprintf(&sb, "%-10s %-6s %-9s %-20s %s\n",
			rec.RunKey,
			strings.ToLower(string(rec.Phase)),
			strings.ToLower(string(rec.Outcome)),
			rec.AttemptAt.Format("2006-01-02 15:04:05"),
			errSummary)
	}

	p.printBox("EXECUTION HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRuns outputs the current per-phase run states.
func (p *Printer) PrintRuns(runs []ledger.Run) {
	if len(runs) == 0 {
		p.printBox("RUN LEDGER", "No runs recorded.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-10s %-6s %-10s %s\n", "RUN", "PHASE", "STATUS", "DOCUMENT")
	for _, run := range runs {
		doc := run.Handoff.DocumentURL
		if doc == "" {
			doc = "-"
		}
		fmt.Fprintf(&sb, "%-10s %-6s %-10s %s\n",
			run.RunKey,
			strings.ToLower(string(run.Phase)),
			strings.ToLower(string(run.Status)),
			doc)
	}

	p.printBox("RUN LEDGER", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReport outputs the generated report content.
func (p *Printer) PrintReport(report *types.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(report.Title)
	sb.WriteString("\n\n")
	sb.WriteString(report.Summary)
	sb.WriteString("\n\nInsights:\n")
	for _, insight := range report.Insights {
		fmt.Fprintf(&sb, "  • %s\n", insight)
	}
	for i, highlight := range report.Highlights {
		if i == 0 {
			sb.WriteString("\nHighlights:\n")
		}
		fmt.Fprintf(&sb, "  • %s\n", highlight)
	}

	p.printBox("GENERATED REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

func firstCells(row []string, n int) []string {
	if len(row) <= n {
		return row
	}
	out := make([]string, n, n+1)
	copy(out, row[:n])
	return append(out, "...")
}
