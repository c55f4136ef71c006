// Package ledger is the durable record of every phase execution: run
// identity, per-phase status, and the draft-to-final handoff payload.
// The orchestrator is the only writer.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

// Phase is one of the two ordered phases of a run cycle.
type Phase string

const (
	// PhaseDraft collects data, generates content, and produces the
	// editable draft document.
	PhaseDraft Phase = "DRAFT"
	// PhaseFinal renders the draft to PDF and distributes it.
	PhaseFinal Phase = "FINAL"
)

// Status is the state of one (run key, phase) record.
type Status string

const (
	// StatusPending marks an attempt that has begun but not completed.
	StatusPending Status = "PENDING"
	// StatusSucceeded is terminal for a (run key, phase) pair.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusFailed leaves the pair eligible for another attempt.
	StatusFailed Status = "FAILED"
)

// Outcome is the result reported when completing an attempt.
type Outcome string

const (
	// OutcomeSucceeded records a confirmed external side effect.
	OutcomeSucceeded Outcome = "SUCCEEDED"
	// OutcomeFailed records a failed attempt with an error summary.
	OutcomeFailed Outcome = "FAILED"
)

// StaleAttemptAfter is how long a PENDING attempt may sit before a new
// BeginPhase is allowed to take it over. A process that died mid-phase
// leaves a PENDING row behind; without takeover the run key would be
// stuck forever.
const StaleAttemptAfter = time.Hour

// AttemptToken identifies one registered phase attempt. CompletePhase only
// acts on the attempt that currently owns the (run key, phase) record.
type AttemptToken struct {
	ID     uuid.UUID
	RunKey types.RunKey
	Phase  Phase
}

// Run is the durable per-(run key, phase) record.
type Run struct {
	RunKey      types.RunKey  `json:"run_key"`
	Phase       Phase         `json:"phase"`
	Status      Status        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Handoff     types.Handoff `json:"handoff,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
}

// ExecutionRecord is one append-only log entry per phase attempt. Records
// are never mutated after insert.
type ExecutionRecord struct {
	ID           int64        `json:"id"`
	RunKey       types.RunKey `json:"run_key"`
	Phase        Phase        `json:"phase"`
	AttemptAt    time.Time    `json:"attempt_at"`
	Outcome      Outcome      `json:"outcome"`
	ErrorSummary string       `json:"error_summary,omitempty"`
}

// Completion carries the result of an attempt into CompletePhase. Handoff
// is only meaningful for a succeeded draft phase; ErrorSummary only for a
// failed attempt.
type Completion struct {
	Outcome      Outcome
	Handoff      types.Handoff
	ErrorSummary string
}

// Ledger is the durable store over Run records plus the execution log.
type Ledger interface {
	// BeginPhase atomically registers a new attempt. It fails with
	// ErrPhaseAlreadySucceeded when the pair already succeeded, and with
	// ErrPhaseInProgress when a fresh attempt holds the record.
	BeginPhase(ctx context.Context, key types.RunKey, phase Phase) (AttemptToken, error)
	// CompletePhase records the attempt outcome and appends one
	// ExecutionRecord. It fails with ErrUnknownAttempt when the token no
	// longer owns the record.
	CompletePhase(ctx context.Context, token AttemptToken, comp Completion) error
	// GetHandoff returns the payload stored by the most recent succeeded
	// draft for key, or ErrNoDraftFound.
	GetHandoff(ctx context.Context, key types.RunKey) (types.Handoff, error)
	// History returns recent execution records, most recent first.
	// A non-positive limit returns at most 10 records.
	History(ctx context.Context, limit int) ([]ExecutionRecord, error)
	// Purge deletes execution records and superseded runs completed before
	// the horizon. It never deletes a draft run whose handoff has not been
	// consumed by a succeeded final phase. Returns the number of rows
	// removed.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}
