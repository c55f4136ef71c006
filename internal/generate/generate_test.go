package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/weekly-report-agent/internal/schemas"
	"github.com/jonathan/weekly-report-agent/internal/types"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeLLM) Close() error { return nil }

func sampleSnapshot() *types.Snapshot {
	return &types.Snapshot{
		Sources: map[string]types.SourceData{
			"tracker": {
				Title: "Product Tracker",
				Tabs: map[string]types.Table{
					"Weekly KPIs": {
						Headers: []string{"Metric", "Value", "Target"},
						Rows: [][]string{
							{"Signups", "120", "100"},
							{"Churn", "2.1", "3"},
						},
					},
				},
				TabOrder: []string{"Weekly KPIs"},
			},
		},
		SourceOrder: []string{"tracker"},
		CollectedAt: time.Now(),
	}
}

const validReportJSON = `{
	"title": "Weekly Report: 2024-W44",
	"summary": "Signups beat target while churn stayed under control.",
	"insights": ["Growth is ahead of plan."],
	"highlights": ["120 signups against a target of 100."]
}`

func TestGenerateHappyPath(t *testing.T) {
	client := &fakeLLM{response: validReportJSON}
	gen := New(client, nil)

	report, err := gen.Generate(context.Background(), sampleSnapshot(), types.RunKey("2024-W44"))
	require.NoError(t, err)

	assert.Equal(t, "Weekly Report: 2024-W44", report.Title)
	assert.Len(t, report.Insights, 1)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "2024-W44")
	assert.Contains(t, prompt, "Product Tracker")
	assert.Contains(t, prompt, "Weekly KPIs")
	assert.Contains(t, prompt, "Signups")
}

func TestGenerateStripsCodeFences(t *testing.T) {
	client := &fakeLLM{response: "```json\n" + validReportJSON + "\n```"}
	gen := New(client, nil)

	report, err := gen.Generate(context.Background(), sampleSnapshot(), types.RunKey("2024-W44"))
	require.NoError(t, err)
	assert.NotEmpty(t, report.Summary)
}

func TestGenerateModelFailure(t *testing.T) {
	client := &fakeLLM{err: errors.New("quota exceeded")}
	gen := New(client, nil)

	_, err := gen.Generate(context.Background(), sampleSnapshot(), types.RunKey("2024-W44"))
	require.Error(t, err)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, types.RunKey("2024-W44"), genErr.RunKey)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateInvalidReportShape(t *testing.T) {
	client := &fakeLLM{response: `{"title": "t", "summary": "s"}`}
	gen := New(client, nil)

	_, err := gen.Generate(context.Background(), sampleSnapshot(), types.RunKey("2024-W44"))
	require.Error(t, err)

	var ve *schemas.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestGenerateIncludesWarnings(t *testing.T) {
	snapshot := sampleSnapshot()
	snapshot.Errors = []types.SourceError{{SourceID: "board-1", Message: "timeout"}}

	client := &fakeLLM{response: validReportJSON}
	gen := New(client, nil)

	_, err := gen.Generate(context.Background(), snapshot, types.RunKey("2024-W44"))
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "board-1")
	assert.Contains(t, client.prompts[0], "coverage is partial")
}

func TestFormatSnapshotEmpty(t *testing.T) {
	assert.Equal(t, "No data was collected this week.", FormatSnapshot(nil))
	assert.Equal(t, "No data was collected this week.", FormatSnapshot(&types.Snapshot{}))
}

func TestFormatSnapshotTruncatesSampleRows(t *testing.T) {
	rows := make([][]string, 12)
	for i := range rows {
		rows[i] = []string{"value"}
	}
	snapshot := &types.Snapshot{
		Sources: map[string]types.SourceData{
			"s": {
				Title:    "Big Sheet",
				Tabs:     map[string]types.Table{"Data": {Headers: []string{"Col"}, Rows: rows}},
				TabOrder: []string{"Data"},
			},
		},
		SourceOrder: []string{"s"},
	}

	text := FormatSnapshot(snapshot)
	assert.Contains(t, text, "12 rows")
	assert.Contains(t, text, "7 more rows")
	assert.NotContains(t, text, "Row 6:")
}

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		key   string
		start string
		end   string
	}{
		{"2024-W44", "2024-10-28", "2024-11-03"},
		{"2024-W01", "2024-01-01", "2024-01-07"},
		{"2020-W53", "2020-12-28", "2021-01-03"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			start, end := weekBounds(types.RunKey(tt.key))
			assert.Equal(t, tt.start, start.Format("2006-01-02"))
			assert.Equal(t, tt.end, end.Format("2006-01-02"))
		})
	}
}
