package ledger

import "errors"

// ErrPhaseAlreadySucceeded is the idempotency short-circuit: the
// (run key, phase) pair already has a SUCCEEDED record. Callers treat it
// as a no-op, not a failure.
var ErrPhaseAlreadySucceeded = errors.New("phase already succeeded for this run key")

// ErrPhaseInProgress means another attempt currently owns the
// (run key, phase) record and has not gone stale yet.
var ErrPhaseInProgress = errors.New("phase attempt already in progress for this run key")

// ErrNoDraftFound means the draft phase never succeeded for the run key,
// so there is no handoff for the final phase to consume.
var ErrNoDraftFound = errors.New("no successful draft found for this run key")

// ErrUnknownAttempt means the attempt token does not own the record it
// tries to complete (superseded by a takeover, or never registered).
var ErrUnknownAttempt = errors.New("attempt token does not match a pending attempt")
