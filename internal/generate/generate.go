// Package generate turns an aggregate snapshot into the structured weekly
// report by prompting the LLM and validating its JSON output.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/weekly-report-agent/internal/llm"
	"github.com/jonathan/weekly-report-agent/internal/prompts"
	"github.com/jonathan/weekly-report-agent/internal/schemas"
	"github.com/jonathan/weekly-report-agent/internal/types"
)

const (
	promptFile = "report.json"

	// maxSampleRows limits how many data rows per tab reach the prompt.
	maxSampleRows = 5
	// maxSampleCells limits how many leading cells of each sample row are shown.
	maxSampleCells = 6
	// maxCellLen truncates long cell values in sample rows.
	maxCellLen = 40
)

// GenerationError reports a failed report generation for one run.
type GenerationError struct {
	RunKey  types.RunKey
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("report generation failed for %s: %s: %v", e.RunKey, e.Message, e.Cause)
	}
	return fmt.Sprintf("report generation failed for %s: %s", e.RunKey, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Generator implements orchestrate.Generator on top of an LLM client.
type Generator struct {
	client llm.Client
	log    *slog.Logger
}

// New creates a Generator. A nil logger falls back to slog.Default.
func New(client llm.Client, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{client: client, log: log}
}

// Generate prompts the model with the formatted snapshot and returns the
// parsed report. The raw response is schema-validated before unmarshaling,
// so a malformed model reply surfaces as a GenerationError rather than a
// half-filled report.
func (g *Generator) Generate(ctx context.Context, snapshot *types.Snapshot, week types.RunKey) (*types.Report, error) {
	template, err := prompts.Get(promptFile, "weekly_report")
	if err != nil {
		return nil, &GenerationError{RunKey: week, Message: "loading prompt template", Cause: err}
	}
	system, err := prompts.Get(promptFile, "system")
	if err != nil {
		return nil, &GenerationError{RunKey: week, Message: "loading system prompt", Cause: err}
	}

	start, end := weekBounds(week)
	prompt := prompts.Format(template, map[string]string{
		"RunKey":     week.String(),
		"WeekStart":  start.Format("2006-01-02"),
		"WeekEnd":    end.Format("2006-01-02"),
		"SourceData": FormatSnapshot(snapshot),
		"Warnings":   formatWarnings(snapshot),
	})

	g.log.Info("generating weekly report",
		"run_key", week.String(),
		"sources", len(snapshot.SourceOrder),
		"tables", snapshot.NonEmptyTables())

	raw, err := g.client.GenerateJSON(ctx, system+"\n\n"+prompt)
	if err != nil {
		return nil, &GenerationError{RunKey: week, Message: "model request failed", Cause: err}
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateReport([]byte(cleaned)); err != nil {
		return nil, &GenerationError{RunKey: week, Message: "model returned invalid report", Cause: err}
	}

	var report types.Report
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return nil, &GenerationError{RunKey: week, Message: "decoding report", Cause: err}
	}

	return &report, nil
}

// FormatSnapshot renders the snapshot as plain text for the prompt: one
// block per source with per-tab dimensions, headers, and a few sample rows.
func FormatSnapshot(snapshot *types.Snapshot) string {
	if snapshot == nil || len(snapshot.SourceOrder) == 0 {
		return "No data was collected this week."
	}

	var sb strings.Builder
	for _, name := range snapshot.SourceOrder {
		source, ok := snapshot.Sources[name]
		if !ok {
			continue
		}

		fmt.Fprintf(&sb, "Source: %s\n", source.Title)
		if len(source.TabOrder) == 0 {
			sb.WriteString("  (no relevant tabs)\n\n")
			continue
		}

		for _, tabName := range source.TabOrder {
			table, ok := source.Tabs[tabName]
			if !ok {
				continue
			}

			rows := table.DataRows()
			fmt.Fprintf(&sb, "  Tab: %s (%d rows, %d columns)\n", tabName, rows, len(table.Headers))
			if len(table.Headers) > 0 {
				fmt.Fprintf(&sb, "  Headers: %s\n", strings.Join(truncateCells(table.Headers, maxSampleCells), ", "))
			}

			for i, row := range table.Rows {
				if i >= maxSampleRows {
					fmt.Fprintf(&sb, "    ... %d more rows\n", rows-maxSampleRows)
					break
				}
				fmt.Fprintf(&sb, "    Row %d: %s\n", i+1, strings.Join(truncateCells(row, maxSampleCells), ", "))
			}
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatWarnings(snapshot *types.Snapshot) string {
	if snapshot == nil {
		return ""
	}
	warnings := snapshot.Warnings()
	if len(warnings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Caveats (mention that coverage is partial):\n")
	for _, w := range warnings {
		fmt.Fprintf(&sb, "- %s\n", w)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncateCells(cells []string, max int) []string {
	n := len(cells)
	if n > max {
		n = max
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		cell := cells[i]
		if len(cell) > maxCellLen {
			cell = cell[:maxCellLen-3] + "..."
		}
		out[i] = cell
	}
	if len(cells) > max {
		out[n-1] = out[n-1] + ", ..."
	}
	return out
}

// weekBounds returns the Monday and Sunday of the run key's ISO week.
func weekBounds(week types.RunKey) (time.Time, time.Time) {
	// January 4th always falls in ISO week 1.
	jan4 := time.Date(week.Year(), time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	start := week1Monday.AddDate(0, 0, (week.Week()-1)*7)
	return start, start.AddDate(0, 0, 6)
}
