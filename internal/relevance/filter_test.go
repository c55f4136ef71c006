package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

func tabWithRows(name string, dataRows int) types.NamedTable {
	rows := make([][]string, dataRows)
	for i := range rows {
		rows[i] = []string{"x"}
	}
	return types.NamedTable{
		Name:  name,
		Table: types.Table{Headers: []string{"col"}, Rows: rows, Empty: dataRows == 0},
	}
}

func TestExclusionBeatsInclusion(t *testing.T) {
	f := New(Config{})

	// "Old Backup KPIs" matches both keyword sets; exclude wins regardless
	// of row count.
	assert.False(t, f.Includes(tabWithRows("Old Backup KPIs", 100)))
}

func TestKeywordInclusionIgnoresRowCount(t *testing.T) {
	f := New(Config{})

	assert.True(t, f.Includes(tabWithRows("Sprint Metrics", 0)))
	assert.True(t, f.Includes(tabWithRows("KPI Dashboard", 1)))
}

func TestContentFallbackThreshold(t *testing.T) {
	f := New(Config{})

	tests := []struct {
		name     string
		dataRows int
		included bool
	}{
		{"Random Notes", 1, false},
		{"Random Notes", 2, false},
		{"Random Notes", 3, true},
		{"Random Notes", 5, true},
	}

	for _, tt := range tests {
		got := f.Includes(tabWithRows(tt.name, tt.dataRows))
		assert.Equal(t, tt.included, got, "%s with %d rows", tt.name, tt.dataRows)
	}
}

func TestSelectKeepsInputOrder(t *testing.T) {
	f := New(Config{})

	selected := f.Select([]types.NamedTable{
		tabWithRows("Status", 2),
		tabWithRows("Random Notes", 1),
		tabWithRows("Metrics", 4),
		tabWithRows("Backlog", 10),
	})

	require.Len(t, selected, 3)
	assert.Equal(t, "Status", selected[0].Name)
	assert.Equal(t, "Metrics", selected[1].Name)
	assert.Equal(t, "Backlog", selected[2].Name)
}

func TestSelectFallsBackToNonEmptyTabs(t *testing.T) {
	f := New(Config{})

	// Every tab is excluded by keyword, so the fallback includes every
	// non-empty tab rather than returning an empty source.
	selected := f.Select([]types.NamedTable{
		tabWithRows("Template", 4),
		tabWithRows("Archive 2023", 8),
		tabWithRows("Test Data", 0),
	})

	require.Len(t, selected, 2)
	assert.Equal(t, "Template", selected[0].Name)
	assert.Equal(t, "Archive 2023", selected[1].Name)
}

func TestSelectFallbackSkipsEmptySource(t *testing.T) {
	f := New(Config{})

	selected := f.Select([]types.NamedTable{
		tabWithRows("Scratch", 0),
	})

	assert.Empty(t, selected)
}

func TestSelectIsDeterministic(t *testing.T) {
	f := New(Config{})
	input := []types.NamedTable{
		tabWithRows("Weekly Report", 5),
		tabWithRows("Notes", 7),
		tabWithRows("Old Stuff", 9),
	}

	first := f.Select(input)
	second := f.Select(input)

	assert.Equal(t, first, second)
}

func TestCustomKeywordsAndThreshold(t *testing.T) {
	f := New(Config{
		IncludeKeywords: []string{"roadmap"},
		ExcludeKeywords: []string{"draft"},
		MinDataRows:     5,
	})

	assert.True(t, f.Includes(tabWithRows("Q3 Roadmap", 0)))
	assert.False(t, f.Includes(tabWithRows("Roadmap Draft", 20)))
	assert.False(t, f.Includes(tabWithRows("Misc", 4)))
	assert.True(t, f.Includes(tabWithRows("Misc", 5)))
}

func TestCaseInsensitiveMatching(t *testing.T) {
	f := New(Config{})

	assert.True(t, f.Includes(tabWithRows("TEAM METRICS", 0)))
	assert.False(t, f.Includes(tabWithRows("ARCHIVED metrics", 50)))
}
