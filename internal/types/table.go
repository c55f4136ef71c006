package types

// Table is a normalized sub-table: a string header row plus string data rows,
// in the original row and column order. Produced by the normalizer; nothing
// loosely typed crosses this boundary.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Empty   bool       `json:"empty"`
}

// DataRows returns the number of rows beyond the header.
func (t Table) DataRows() int {
	return len(t.Rows)
}

// NamedTable pairs a sub-table with its tab name, preserving source order.
type NamedTable struct {
	Name  string `json:"name"`
	Table Table  `json:"table"`
}

// RawTab is one named 2-D grid of cell values as delivered by a source,
// before normalization. Cell values may be of any type.
type RawTab struct {
	Name  string
	Cells [][]any
}

// RawSource is the raw payload of one external source: its display title and
// an ordered collection of tabs.
type RawSource struct {
	Title string
	Tabs  []RawTab
}
