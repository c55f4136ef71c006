// Package relevance decides which sub-tables of a source are worth
// aggregating, using a keyword and content-volume heuristic.
package relevance

import (
	"strings"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

// DefaultMinDataRows is the content fallback threshold: a tab whose name
// matches no keyword is still included when it carries at least this many
// data rows beyond its header.
const DefaultMinDataRows = 3

// DefaultIncludeKeywords are tab-name fragments that indicate relevant data.
var DefaultIncludeKeywords = []string{
	"metrics", "kpi", "data", "weekly", "monthly", "report",
	"dashboard", "summary", "stats", "performance", "issues",
	"tasks", "progress", "status", "tracking",
}

// DefaultExcludeKeywords are tab-name fragments that disqualify a tab
// regardless of anything else.
var DefaultExcludeKeywords = []string{
	"template", "example", "backup", "archive", "old", "test",
}

// Config holds the keyword sets and threshold for one filter instance.
// A zero value for any field falls back to the package default.
type Config struct {
	IncludeKeywords []string
	ExcludeKeywords []string
	MinDataRows     int
}

// Filter applies the relevance heuristic to the tabs of one source.
type Filter struct {
	include []string
	exclude []string
	minRows int
}

// New builds a Filter from cfg, applying defaults for unset fields.
func New(cfg Config) *Filter {
	f := &Filter{
		include: cfg.IncludeKeywords,
		exclude: cfg.ExcludeKeywords,
		minRows: cfg.MinDataRows,
	}
	if f.include == nil {
		f.include = DefaultIncludeKeywords
	}
	if f.exclude == nil {
		f.exclude = DefaultExcludeKeywords
	}
	if f.minRows <= 0 {
		f.minRows = DefaultMinDataRows
	}
	return f
}

// Select returns the subset of tabs to aggregate, in input order. The
// tie-break is fixed: explicit exclusion beats explicit inclusion, inclusion
// beats the row-count heuristic, and if nothing survives, every non-empty
// tab of the source is included so a misconfigured keyword set never yields
// a wholly empty source.
func (f *Filter) Select(tabs []types.NamedTable) []types.NamedTable {
	selected := make([]types.NamedTable, 0, len(tabs))
	for _, tab := range tabs {
		if f.Includes(tab) {
			selected = append(selected, tab)
		}
	}

	if len(selected) > 0 {
		return selected
	}

	// Last resort: no tab matched, fall back to everything with data.
	for _, tab := range tabs {
		if tab.Table.DataRows() > 0 {
			selected = append(selected, tab)
		}
	}
	return selected
}

// Includes reports the pre-fallback decision for a single tab.
func (f *Filter) Includes(tab types.NamedTable) bool {
	name := strings.ToLower(tab.Name)
	if containsAny(name, f.exclude) {
		return false
	}
	if containsAny(name, f.include) {
		return true
	}
	return tab.Table.DataRows() >= f.minRows
}

func containsAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
