package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/weekly-report-agent/internal/config"
	"github.com/jonathan/weekly-report-agent/internal/types"
)

var runDraftWeek string

var runDraftCmd = &cobra.Command{
	Use:   "run-draft",
	Short: "Run the draft phase: collect, generate, build, notify reviewers",
	Long: `Collects data from the configured sources, generates the weekly report
with the LLM, creates the editable draft document, and notifies reviewers.

Re-running a week whose draft already succeeded is a no-op.`,
	RunE: runDraft,
}

func init() {
	runDraftCmd.Flags().StringVar(&runDraftWeek, "week", "", "Run key to execute, e.g. 2024-W44 (default: current ISO week)")
	rootCmd.AddCommand(runDraftCmd)
}

func resolveWeek(raw string) (types.RunKey, error) {
	if raw == "" {
		return types.CurrentRunKey(time.Now()), nil
	}
	return types.ParseRunKey(raw)
}

func runDraft(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	log := newLogger(verbose)

	week, err := resolveWeek(runDraftWeek)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	led, err := openLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer led.Close()

	orch, cleanup, err := newOrchestrator(ctx, cfg, led, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := orch.RunDraft(ctx, week); err != nil {
		return err
	}

	fmt.Printf("Draft phase complete for %s\n", week)
	return nil
}
