package types

// Report is the generated narrative content for one week, produced by the
// content generator and consumed by the document builder.
type Report struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Insights   []string `json:"insights"`
	Highlights []string `json:"highlights,omitempty"`
}

// Handoff is the opaque document reference produced by the draft phase and
// required by the final phase. It is the only state that crosses the
// phase-1 to phase-2 boundary, via the run ledger.
type Handoff struct {
	DocumentID  string `json:"document_id"`
	DocumentURL string `json:"document_url,omitempty"`
}

// IsZero reports whether the handoff carries no document reference.
func (h Handoff) IsZero() bool {
	return h.DocumentID == ""
}
