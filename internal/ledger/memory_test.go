package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

const week = types.RunKey("2024-W44")

func succeed(t *testing.T, l *Memory, key types.RunKey, phase Phase, handoff types.Handoff) {
	t.Helper()
	token, err := l.BeginPhase(context.Background(), key, phase)
	require.NoError(t, err)
	require.NoError(t, l.CompletePhase(context.Background(), token, Completion{
		Outcome: OutcomeSucceeded,
		Handoff: handoff,
	}))
}

func fail(t *testing.T, l *Memory, key types.RunKey, phase Phase, summary string) {
	t.Helper()
	token, err := l.BeginPhase(context.Background(), key, phase)
	require.NoError(t, err)
	require.NoError(t, l.CompletePhase(context.Background(), token, Completion{
		Outcome:      OutcomeFailed,
		ErrorSummary: summary,
	}))
}

func TestBeginPhaseAfterSuccessIsRejected(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	succeed(t, l, week, PhaseDraft, types.Handoff{DocumentID: "doc-1"})

	_, err := l.BeginPhase(ctx, week, PhaseDraft)
	assert.ErrorIs(t, err, ErrPhaseAlreadySucceeded)

	// The other phase of the same run key is unaffected.
	_, err = l.BeginPhase(ctx, week, PhaseFinal)
	assert.NoError(t, err)
}

func TestBeginPhaseWhileInProgressIsRejected(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	_, err := l.BeginPhase(ctx, week, PhaseDraft)
	require.NoError(t, err)

	_, err = l.BeginPhase(ctx, week, PhaseDraft)
	assert.ErrorIs(t, err, ErrPhaseInProgress)
}

func TestBeginPhaseTakesOverStaleAttempt(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	now := time.Date(2024, 10, 29, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	stale, err := l.BeginPhase(ctx, week, PhaseDraft)
	require.NoError(t, err)

	now = now.Add(StaleAttemptAfter + time.Minute)
	fresh, err := l.BeginPhase(ctx, week, PhaseDraft)
	require.NoError(t, err)

	// The superseded attempt can no longer complete.
	err = l.CompletePhase(ctx, stale, Completion{Outcome: OutcomeSucceeded})
	assert.ErrorIs(t, err, ErrUnknownAttempt)

	require.NoError(t, l.CompletePhase(ctx, fresh, Completion{
		Outcome: OutcomeSucceeded,
		Handoff: types.Handoff{DocumentID: "doc-2"},
	}))
}

func TestFailedPhaseIsRetryable(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	fail(t, l, week, PhaseDraft, "generation timed out")

	token, err := l.BeginPhase(ctx, week, PhaseDraft)
	require.NoError(t, err)
	require.NoError(t, l.CompletePhase(ctx, token, Completion{
		Outcome: OutcomeSucceeded,
		Handoff: types.Handoff{DocumentID: "doc-3"},
	}))

	handoff, err := l.GetHandoff(ctx, week)
	require.NoError(t, err)
	assert.Equal(t, "doc-3", handoff.DocumentID)
}

func TestGetHandoffBeforeDraftSuccess(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	_, err := l.GetHandoff(ctx, week)
	assert.ErrorIs(t, err, ErrNoDraftFound)

	fail(t, l, week, PhaseDraft, "sources down")
	_, err = l.GetHandoff(ctx, week)
	assert.ErrorIs(t, err, ErrNoDraftFound)
}

func TestGetHandoffReturnsStoredPayload(t *testing.T) {
	l := NewMemory()

	want := types.Handoff{DocumentID: "doc-44", DocumentURL: "https://docs.example.com/doc-44"}
	succeed(t, l, week, PhaseDraft, want)

	got, err := l.GetHandoff(context.Background(), week)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCompletePhaseWithUnknownToken(t *testing.T) {
	l := NewMemory()

	err := l.CompletePhase(context.Background(), AttemptToken{RunKey: week, Phase: PhaseDraft}, Completion{
		Outcome: OutcomeSucceeded,
	})
	assert.ErrorIs(t, err, ErrUnknownAttempt)
}

func TestHistoryIsMostRecentFirstAndAppendOnly(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	fail(t, l, "2024-W42", PhaseDraft, "boom")
	succeed(t, l, "2024-W43", PhaseDraft, types.Handoff{DocumentID: "d43"})
	succeed(t, l, "2024-W43", PhaseFinal, types.Handoff{})

	records, err := l.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, types.RunKey("2024-W43"), records[0].RunKey)
	assert.Equal(t, PhaseFinal, records[0].Phase)
	assert.Equal(t, types.RunKey("2024-W42"), records[2].RunKey)
	assert.Equal(t, OutcomeFailed, records[2].Outcome)
	assert.Equal(t, "boom", records[2].ErrorSummary)

	limited, err := l.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, PhaseFinal, limited[0].Phase)
}

func TestHistoryDefaultsToTenRecords(t *testing.T) {
	l := NewMemory()

	for i := 1; i <= 12; i++ {
		fail(t, l, types.RunKey(fmt.Sprintf("2024-W%02d", i)), PhaseDraft, "boom")
	}

	records, err := l.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, records, 10)
	assert.Equal(t, types.RunKey("2024-W12"), records[0].RunKey)
}

func TestRetryWritesOneRecordPerAttempt(t *testing.T) {
	l := NewMemory()

	fail(t, l, week, PhaseDraft, "first attempt")
	succeed(t, l, week, PhaseDraft, types.Handoff{DocumentID: "d"})

	records, err := l.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	succeededCount := 0
	for _, rec := range records {
		if rec.Outcome == OutcomeSucceeded {
			succeededCount++
		}
	}
	assert.Equal(t, 1, succeededCount)
}

func TestPurgeKeepsUnconsumedHandoff(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	succeed(t, l, "2023-W50", PhaseDraft, types.Handoff{DocumentID: "old-draft"})
	fail(t, l, "2023-W51", PhaseDraft, "failed run")

	horizon := now.Add(24 * time.Hour)
	removed, err := l.Purge(ctx, horizon)
	require.NoError(t, err)
	assert.Positive(t, removed)

	// The succeeded draft whose handoff was never consumed must survive.
	handoff, err := l.GetHandoff(ctx, "2023-W50")
	require.NoError(t, err)
	assert.Equal(t, "old-draft", handoff.DocumentID)

	// The failed run is gone, so a new attempt starts clean.
	l.now = time.Now
	_, err = l.BeginPhase(ctx, "2023-W51", PhaseDraft)
	assert.NoError(t, err)
}

func TestPurgeDeletesConsumedRuns(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	succeed(t, l, "2023-W50", PhaseDraft, types.Handoff{DocumentID: "consumed"})
	succeed(t, l, "2023-W50", PhaseFinal, types.Handoff{})

	_, err := l.Purge(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)

	_, err = l.GetHandoff(ctx, "2023-W50")
	assert.ErrorIs(t, err, ErrNoDraftFound)

	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
