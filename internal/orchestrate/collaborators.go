// Package orchestrate drives the two-phase report cycle: draft (collect,
// generate, build, notify) and final (retrieve handoff, render, distribute,
// notify), with the run ledger as the single idempotency gate.
package orchestrate

import (
	"context"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

// Collector produces the aggregate snapshot for one draft run.
// internal/aggregate provides the production implementation.
type Collector interface {
	Collect(ctx context.Context) (*types.Snapshot, error)
}

// Generator turns an aggregate snapshot into narrative report content.
type Generator interface {
	Generate(ctx context.Context, snapshot *types.Snapshot, week types.RunKey) (*types.Report, error)
}

// Builder creates the editable draft document and later renders it to the
// fixed final artifact. The handoff returned by CreateDraft is the only
// link between the two calls.
type Builder interface {
	CreateDraft(ctx context.Context, report *types.Report, week types.RunKey) (types.Handoff, error)
	RenderFinal(ctx context.Context, handoff types.Handoff) ([]byte, error)
}

// Notifier delivers the three notification kinds. Recipient lists are the
// notifier's own configuration; the orchestrator only supplies content.
type Notifier interface {
	// SendPreview tells reviewers the draft is ready, including any
	// degradation warnings from aggregation.
	SendPreview(ctx context.Context, week types.RunKey, handoff types.Handoff, warnings []string) error
	// SendFinal distributes the rendered artifact to stakeholders. For the
	// final phase this call is the distribution step itself.
	SendFinal(ctx context.Context, week types.RunKey, pdf []byte, docURL string) error
	// SendError reports exactly one fatal phase failure.
	SendError(ctx context.Context, week types.RunKey, phase, step, cause string) error
}

// Step names used in failure records and error notifications.
const (
	StepCollect    = "collect"
	StepGenerate   = "generate"
	StepBuild      = "build"
	StepHandoff    = "handoff"
	StepRender     = "render"
	StepDistribute = "distribute"
)
