package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/weekly-report-agent/internal/ledger"
	"github.com/jonathan/weekly-report-agent/internal/types"
)

// PhaseError reports a fatal failure of one phase at a specific step.
type PhaseError struct {
	Phase  ledger.Phase
	RunKey types.RunKey
	Step   string
	Cause  error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed for %s at step %q: %v", e.Phase, e.RunKey, e.Step, e.Cause)
}

func (e *PhaseError) Unwrap() error {
	return e.Cause
}

// Orchestrator is the two-phase state machine. It performs no automatic
// retries: a failed phase leaves its run key eligible for re-invocation,
// and BeginPhase is the only gate against re-doing succeeded work.
type Orchestrator struct {
	ledger    ledger.Ledger
	collector Collector
	generator Generator
	builder   Builder
	notifier  Notifier
	log       *slog.Logger
}

// New wires an Orchestrator from its collaborators.
func New(l ledger.Ledger, collector Collector, generator Generator, builder Builder, notifier Notifier, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		ledger:    l,
		collector: collector,
		generator: generator,
		builder:   builder,
		notifier:  notifier,
		log:       log,
	}
}

// RunDraft executes the draft phase for one run key: collect, generate,
// create the draft document, store the handoff, notify reviewers. A phase
// that already succeeded is a logged no-op.
func (o *Orchestrator) RunDraft(ctx context.Context, week types.RunKey) error {
	token, err := o.ledger.BeginPhase(ctx, week, ledger.PhaseDraft)
	if err != nil {
		if errors.Is(err, ledger.ErrPhaseAlreadySucceeded) {
			o.log.Info("draft phase already succeeded, skipping", "week", week)
			return nil
		}
		return err
	}
	o.log.Info("draft phase started", "week", week)

	snapshot, err := o.collector.Collect(ctx)
	if err != nil {
		return o.failPhase(ctx, token, StepCollect, err)
	}
	for _, warning := range snapshot.Warnings() {
		o.log.Warn("aggregation degraded", "week", week, "detail", warning)
	}

	report, err := o.generator.Generate(ctx, snapshot, week)
	if err != nil {
		return o.failPhase(ctx, token, StepGenerate, err)
	}

	handoff, err := o.builder.CreateDraft(ctx, report, week)
	if err != nil {
		return o.failPhase(ctx, token, StepBuild, err)
	}

	// The document exists externally; only now may the ledger say SUCCEEDED.
	if err := o.ledger.CompletePhase(ctx, token, ledger.Completion{
		Outcome: ledger.OutcomeSucceeded,
		Handoff: handoff,
	}); err != nil {
		return fmt.Errorf("draft succeeded but recording it failed: %w", err)
	}
	o.log.Info("draft phase succeeded", "week", week, "document", handoff.DocumentID)

	if err := o.notifier.SendPreview(ctx, week, handoff, snapshot.Warnings()); err != nil {
		// A failed notify never reverts a completed phase.
		o.log.Warn("preview notification failed", "week", week, "error", err)
	}
	return nil
}

// RunFinal executes the final phase for one run key: retrieve the handoff
// stored by the draft phase, render the PDF, distribute it. A missing
// handoff fails the phase with a remediation message rather than crashing.
func (o *Orchestrator) RunFinal(ctx context.Context, week types.RunKey) error {
	token, err := o.ledger.BeginPhase(ctx, week, ledger.PhaseFinal)
	if err != nil {
		if errors.Is(err, ledger.ErrPhaseAlreadySucceeded) {
			o.log.Info("final phase already succeeded, skipping", "week", week)
			return nil
		}
		return err
	}
	o.log.Info("final phase started", "week", week)

	handoff, err := o.ledger.GetHandoff(ctx, week)
	if err != nil {
		if errors.Is(err, ledger.ErrNoDraftFound) {
			err = fmt.Errorf("no draft document for %s: run the draft phase first (%w)", week, err)
		}
		return o.failPhase(ctx, token, StepHandoff, err)
	}

	pdf, err := o.builder.RenderFinal(ctx, handoff)
	if err != nil {
		return o.failPhase(ctx, token, StepRender, err)
	}

	// Distribution is the final phase's side effect; it must be confirmed
	// before the ledger records success.
	if err := o.notifier.SendFinal(ctx, week, pdf, handoff.DocumentURL); err != nil {
		return o.failPhase(ctx, token, StepDistribute, err)
	}

	if err := o.ledger.CompletePhase(ctx, token, ledger.Completion{
		Outcome: ledger.OutcomeSucceeded,
	}); err != nil {
		return fmt.Errorf("final succeeded but recording it failed: %w", err)
	}
	o.log.Info("final phase succeeded", "week", week)
	return nil
}

// failPhase records the failure in the ledger and sends exactly one error
// notification naming the phase, run key, step, and cause. The run key
// stays eligible for retry.
func (o *Orchestrator) failPhase(ctx context.Context, token ledger.AttemptToken, step string, cause error) error {
	phaseErr := &PhaseError{
		Phase:  token.Phase,
		RunKey: token.RunKey,
		Step:   step,
		Cause:  cause,
	}
	o.log.Error("phase failed", "week", token.RunKey, "phase", token.Phase, "step", step, "error", cause)

	if err := o.ledger.CompletePhase(ctx, token, ledger.Completion{
		Outcome:      ledger.OutcomeFailed,
		ErrorSummary: fmt.Sprintf("%s: %v", step, cause),
	}); err != nil {
		o.log.Error("failed to record phase failure", "week", token.RunKey, "error", err)
	}

	if err := o.notifier.SendError(ctx, token.RunKey, string(token.Phase), step, cause.Error()); err != nil {
		o.log.Warn("error notification failed", "week", token.RunKey, "error", err)
	}
	return phaseErr
}
