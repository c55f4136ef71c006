package types

import "time"

// SourceData is the filtered, normalized contribution of one source to a
// snapshot. TabOrder records the relative order in which tabs were included
// so later consumers see a deterministic sequence.
type SourceData struct {
	Title    string           `json:"title"`
	Tabs     map[string]Table `json:"tabs"`
	TabOrder []string         `json:"tab_order"`
}

// SourceError records a source that could not be fetched. One failing source
// degrades the snapshot rather than failing the aggregation.
type SourceError struct {
	SourceID string `json:"source_id"`
	Message  string `json:"message"`
}

// Snapshot is the aggregate of all included sources for one draft run. It is
// built fresh per run, handed by value to content generation, and discarded;
// it is never persisted or shared between runs.
type Snapshot struct {
	Sources     map[string]SourceData `json:"sources"`
	SourceOrder []string              `json:"source_order"`
	Errors      []SourceError         `json:"errors,omitempty"`
	CollectedAt time.Time             `json:"collected_at"`
}

// NonEmptyTables counts tables across all sources that hold at least one
// data row.
func (s *Snapshot) NonEmptyTables() int {
	n := 0
	for _, src := range s.Sources {
		for _, tbl := range src.Tabs {
			if tbl.DataRows() > 0 {
				n++
			}
		}
	}
	return n
}

// TotalRows counts data rows across every included table.
func (s *Snapshot) TotalRows() int {
	n := 0
	for _, src := range s.Sources {
		for _, tbl := range src.Tabs {
			n += tbl.DataRows()
		}
	}
	return n
}

// Warnings returns human-readable degradation notes, one per failed source,
// for inclusion in the preview notification.
func (s *Snapshot) Warnings() []string {
	var warnings []string
	for _, e := range s.Errors {
		warnings = append(warnings, "source "+e.SourceID+" unavailable: "+e.Message)
	}
	return warnings
}
