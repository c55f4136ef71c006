package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/weekly-report-agent/internal/config"
)

var runFinalWeek string

var runFinalCmd = &cobra.Command{
	Use:   "run-final",
	Short: "Run the final phase: render the PDF and distribute it",
	Long: `Retrieves the draft handoff for the week, renders the reviewed document
to PDF, and emails it to the final recipients.

Fails with a remediation hint if no successful draft exists for the week.
Re-running a week whose final already succeeded is a no-op.`,
	RunE: runFinal,
}

func init() {
	runFinalCmd.Flags().StringVar(&runFinalWeek, "week", "", "Run key to execute, e.g. 2024-W44 (default: current ISO week)")
	rootCmd.AddCommand(runFinalCmd)
}

func runFinal(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	log := newLogger(verbose)

	week, err := resolveWeek(runFinalWeek)
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

	if err := orch.RunFinal(ctx, week); err != nil {
		return err
	}

	fmt.Printf("Final phase complete for %s\n", week)
	return nil
}
