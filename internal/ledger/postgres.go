package ledger

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is the durable Ledger implementation backed by a pgx pool.
// BeginPhase relies on the (run_key, phase) primary key for its atomic
// check-and-insert, so two concurrent triggers cannot both proceed.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and verifies it.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Migrate creates or verifies the ledger tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return nil
}

// BeginPhase implements Ledger. The insert either creates the record, takes
// over a FAILED or stale PENDING record, or returns no row, in which case
// the existing status decides which error the loser sees.
func (p *Postgres) BeginPhase(ctx context.Context, key types.RunKey, phase Phase) (AttemptToken, error) {
	token := AttemptToken{ID: uuid.New(), RunKey: key, Phase: phase}

	var claimed string
	err := p.pool.QueryRow(ctx,
		`INSERT INTO runs (run_key, phase, status, attempt_token, started_at)
		 VALUES ($1, $2, 'PENDING', $3, now())
		 ON CONFLICT (run_key, phase) DO UPDATE
		 SET status = 'PENDING', attempt_token = $3, started_at = now(),
		     completed_at = NULL, last_error = NULL
		 WHERE runs.status = 'FAILED'
		    OR (runs.status = 'PENDING' AND runs.started_at < now() - make_interval(secs => $4))
		 RETURNING run_key`,
		string(key), string(phase), token.ID, StaleAttemptAfter.Seconds(),
	).Scan(&claimed)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return AttemptToken{}, fmt.Errorf("failed to begin phase: %w", err)
	}

	// Conflict row exists and was not claimable; report why.
	var status string
	err = p.pool.QueryRow(ctx,
		`SELECT status FROM runs WHERE run_key = $1 AND phase = $2`,
		string(key), string(phase),
	).Scan(&status)
	if err != nil {
		return AttemptToken{}, fmt.Errorf("failed to inspect existing run: %w", err)
	}
	if Status(status) == StatusSucceeded {
		return AttemptToken{}, ErrPhaseAlreadySucceeded
	}
	return AttemptToken{}, ErrPhaseInProgress
}

// CompletePhase implements Ledger.
func (p *Postgres) CompletePhase(ctx context.Context, token AttemptToken, comp Completion) error {
	status := StatusFailed
	if comp.Outcome == OutcomeSucceeded {
		status = StatusSucceeded
	}

	var handoffJSON []byte
	if !comp.Handoff.IsZero() {
		var err error
		handoffJSON, err = json.Marshal(comp.Handoff)
		if err != nil {
			return fmt.Errorf("failed to marshal handoff: %w", err)
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var runKey, phase string
	err = tx.QueryRow(ctx,
		`UPDATE runs
		 SET status = $2, completed_at = now(), handoff = $3, last_error = NULLIF($4, '')
		 WHERE attempt_token = $1 AND status = 'PENDING'
		 RETURNING run_key, phase`,
		token.ID, string(status), handoffJSON, comp.ErrorSummary,
	).Scan(&runKey, &phase)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownAttempt
		}
		return fmt.Errorf("failed to complete phase: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO executions (run_key, phase, outcome, error_summary)
		 VALUES ($1, $2, $3, NULLIF($4, ''))`,
		runKey, phase, string(comp.Outcome), comp.ErrorSummary,
	)
	if err != nil {
		return fmt.Errorf("failed to append execution record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}
	return nil
}

// GetHandoff implements Ledger.
func (p *Postgres) GetHandoff(ctx context.Context, key types.RunKey) (types.Handoff, error) {
	var handoffJSON []byte
	err := p.pool.QueryRow(ctx,
		`SELECT handoff FROM runs
		 WHERE run_key = $1 AND phase = $2 AND status = 'SUCCEEDED'`,
		string(key), string(PhaseDraft),
	).Scan(&handoffJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Handoff{}, ErrNoDraftFound
		}
		return types.Handoff{}, fmt.Errorf("failed to get handoff: %w", err)
	}

	var handoff types.Handoff
	if len(handoffJSON) > 0 {
		if err := json.Unmarshal(handoffJSON, &handoff); err != nil {
			return types.Handoff{}, fmt.Errorf("failed to decode handoff: %w", err)
		}
	}
	if handoff.IsZero() {
		return types.Handoff{}, ErrNoDraftFound
	}
	return handoff, nil
}

// History implements Ledger.
func (p *Postgres) History(ctx context.Context, limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, run_key, phase, attempt_at, outcome, COALESCE(error_summary, '')
		 FROM executions ORDER BY attempt_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var records []ExecutionRecord
	for rows.Next() {
		var rec ExecutionRecord
		var runKey, phase, outcome string
		if err := rows.Scan(&rec.ID, &runKey, &phase, &rec.AttemptAt, &outcome, &rec.ErrorSummary); err != nil {
			return nil, fmt.Errorf("failed to scan execution record: %w", err)
		}
		rec.RunKey = types.RunKey(runKey)
		rec.Phase = Phase(phase)
		rec.Outcome = Outcome(outcome)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Purge implements Ledger. Draft runs whose handoff has not been consumed
// by a succeeded final phase survive regardless of age.
func (p *Postgres) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	execTag, err := p.pool.Exec(ctx,
		`DELETE FROM executions WHERE attempt_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge executions: %w", err)
	}

	runTag, err := p.pool.Exec(ctx,
		`DELETE FROM runs r
		 WHERE r.completed_at IS NOT NULL AND r.completed_at < $1
		   AND NOT (r.phase = $2 AND r.status = $3 AND NOT EXISTS (
		       SELECT 1 FROM runs f
		       WHERE f.run_key = r.run_key AND f.phase = $4 AND f.status = $3))`,
		olderThan, string(PhaseDraft), string(StatusSucceeded), string(PhaseFinal))
	if err != nil {
		return 0, fmt.Errorf("failed to purge runs: %w", err)
	}

	return execTag.RowsAffected() + runTag.RowsAffected(), nil
}

// Runs lists current run records, most recently started first, for the
// status surface.
func (p *Postgres) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.pool.Query(ctx,
		`SELECT run_key, phase, status, started_at, completed_at, handoff, COALESCE(last_error, '')
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var runKey, phase, status string
		var handoffJSON []byte
		if err := rows.Scan(&runKey, &phase, &status, &run.StartedAt, &run.CompletedAt, &handoffJSON, &run.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.RunKey = types.RunKey(runKey)
		run.Phase = Phase(phase)
		run.Status = Status(status)
		if len(handoffJSON) > 0 {
			_ = json.Unmarshal(handoffJSON, &run.Handoff)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
