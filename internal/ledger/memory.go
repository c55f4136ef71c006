package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

type pairKey struct {
	key   types.RunKey
	phase Phase
}

// Memory is an in-process Ledger. It backs tests and lets the agent keep
// operating, without cross-process idempotency, when no database is
// configured.
type Memory struct {
	mu     sync.Mutex
	runs   map[pairKey]*memRun
	log    []ExecutionRecord
	nextID int64
	now    func() time.Time
}

type memRun struct {
	Run
	token uuid.UUID
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		runs: make(map[pairKey]*memRun),
		now:  time.Now,
	}
}

// BeginPhase implements Ledger.
func (m *Memory) BeginPhase(_ context.Context, key types.RunKey, phase Phase) (AttemptToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pk := pairKey{key, phase}
	now := m.now().UTC()

	if existing, ok := m.runs[pk]; ok {
		switch existing.Status {
		case StatusSucceeded:
			return AttemptToken{}, ErrPhaseAlreadySucceeded
		case StatusPending:
			if now.Sub(existing.StartedAt) < StaleAttemptAfter {
				return AttemptToken{}, ErrPhaseInProgress
			}
		}
	}

	token := AttemptToken{ID: uuid.New(), RunKey: key, Phase: phase}
	m.runs[pk] = &memRun{
		Run: Run{
			RunKey:    key,
			Phase:     phase,
			Status:    StatusPending,
			StartedAt: now,
		},
		token: token.ID,
	}
	return token, nil
}

// CompletePhase implements Ledger.
func (m *Memory) CompletePhase(_ context.Context, token AttemptToken, comp Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pk := pairKey{token.RunKey, token.Phase}
	run, ok := m.runs[pk]
	if !ok || run.token != token.ID || run.Status != StatusPending {
		return ErrUnknownAttempt
	}

	now := m.now().UTC()
	run.CompletedAt = &now
	switch comp.Outcome {
	case OutcomeSucceeded:
		run.Status = StatusSucceeded
		run.Handoff = comp.Handoff
		run.LastError = ""
	default:
		run.Status = StatusFailed
		run.LastError = comp.ErrorSummary
	}

	m.nextID++
	m.log = append(m.log, ExecutionRecord{
		ID:           m.nextID,
		RunKey:       token.RunKey,
		Phase:        token.Phase,
		AttemptAt:    now,
		Outcome:      comp.Outcome,
		ErrorSummary: comp.ErrorSummary,
	})
	return nil
}

// GetHandoff implements Ledger.
func (m *Memory) GetHandoff(_ context.Context, key types.RunKey) (types.Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[pairKey{key, PhaseDraft}]
	if !ok || run.Status != StatusSucceeded || run.Handoff.IsZero() {
		return types.Handoff{}, ErrNoDraftFound
	}
	return run.Handoff, nil
}

// History implements Ledger.
func (m *Memory) History(_ context.Context, limit int) ([]ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	if limit > len(m.log) {
		limit = len(m.log)
	}
	out := make([]ExecutionRecord, 0, limit)
	for i := len(m.log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.log[i])
	}
	return out, nil
}

// Purge implements Ledger.
func (m *Memory) Purge(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	kept := m.log[:0]
	for _, rec := range m.log {
		if rec.AttemptAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	m.log = kept

	for pk, run := range m.runs {
		if run.CompletedAt == nil || !run.CompletedAt.Before(olderThan) {
			continue
		}
		if pk.phase == PhaseDraft && run.Status == StatusSucceeded && !m.finalSucceeded(pk.key) {
			// Handoff not yet consumed; keep the draft run.
			continue
		}
		delete(m.runs, pk)
		removed++
	}
	return removed, nil
}

func (m *Memory) finalSucceeded(key types.RunKey) bool {
	run, ok := m.runs[pairKey{key, PhaseFinal}]
	return ok && run.Status == StatusSucceeded
}

// Runs returns a copy of the current run records, most recent first, for
// the status surface.
func (m *Memory) Runs(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Run, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run.Run)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
