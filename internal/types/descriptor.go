package types

// DetectionMode controls how the tabs of a source are selected.
type DetectionMode string

const (
	// DetectAuto selects tabs via the relevance heuristic.
	DetectAuto DetectionMode = "auto"
	// DetectExplicit restricts processing to the tabs listed in the descriptor.
	DetectExplicit DetectionMode = "explicit"
)

// SourceKind identifies the fetcher used for a source.
type SourceKind string

const (
	// KindSheet is a Google Sheets spreadsheet.
	KindSheet SourceKind = "sheet"
	// KindJiraBoard is a Jira project board.
	KindJiraBoard SourceKind = "jira"
	// KindHTML is a web page whose <table> elements are scraped.
	KindHTML SourceKind = "html"
)

// SourceDescriptor is the configuration-level identity of one external source.
// Descriptors are immutable for the duration of a run.
type SourceDescriptor struct {
	ID       string        `json:"id" validate:"required"`
	Kind     SourceKind    `json:"kind" validate:"required,oneof=sheet jira html"`
	Location string        `json:"location" validate:"required"`
	Tabs     []string      `json:"tabs,omitempty"`
	Mode     DetectionMode `json:"mode,omitempty" validate:"omitempty,oneof=auto explicit"`
}
