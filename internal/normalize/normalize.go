// Package normalize converts raw source payloads into canonical string tables.
// The conversion is a pure transformation: no fetching, no side effects.
package normalize

import (
	"fmt"
	"math"
	"strconv"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

// Source converts every tab of a raw payload into a normalized table,
// preserving tab, row, and column order. The first row of each tab becomes
// the header row; all cells are coerced to strings. Tabs with no data rows
// beyond the header are preserved but flagged empty.
func Source(raw *types.RawSource) []types.NamedTable {
	tables := make([]types.NamedTable, 0, len(raw.Tabs))
	for _, tab := range raw.Tabs {
		tables = append(tables, types.NamedTable{
			Name:  tab.Name,
			Table: Tab(tab),
		})
	}
	return tables
}

// Tab normalizes a single raw tab.
func Tab(tab types.RawTab) types.Table {
	if len(tab.Cells) == 0 {
		return types.Table{Empty: true}
	}

	headers := coerceRow(tab.Cells[0])
	rows := make([][]string, 0, len(tab.Cells)-1)
	for _, raw := range tab.Cells[1:] {
		rows = append(rows, coerceRow(raw))
	}

	return types.Table{
		Headers: headers,
		Rows:    rows,
		Empty:   len(rows) == 0,
	}
}

func coerceRow(cells []any) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = coerceCell(c)
	}
	return out
}

// coerceCell renders a cell of arbitrary type as a string. Numbers keep
// their natural representation (no trailing zeros from float formatting),
// nil becomes the empty string.
func coerceCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case bool:
		return strconv.FormatBool(c)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		if c == math.Trunc(c) && math.Abs(c) < 1e15 {
			return strconv.FormatInt(int64(c), 10)
		}
		return strconv.FormatFloat(c, 'f', -1, 64)
	case fmt.Stringer:
		return c.String()
	default:
		return fmt.Sprintf("%v", c)
	}
}
