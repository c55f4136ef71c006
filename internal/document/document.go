// Package document builds the editable draft document for a weekly report
// and renders the frozen final PDF from it. Two builders are provided: the
// Google Drive builder used in production and a local filesystem builder
// for environments without Drive access.
package document

import (
	"fmt"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

// BuildError reports a failed document build or render step.
type BuildError struct {
	DocumentID string
	Message    string
	Cause      error
}

func (e *BuildError) Error() string {
	if e.DocumentID != "" {
		return fmt.Sprintf("document build failed (%s): %s: %v", e.DocumentID, e.Message, e.Cause)
	}
	if e.Cause != nil {
		return fmt.Sprintf("document build failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("document build failed: %s", e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Title returns the canonical document title for a run. Draft reuse keys on
// this title, so it must be stable for a given week.
func Title(week types.RunKey) string {
	return fmt.Sprintf("Weekly Report: %s", week)
}
