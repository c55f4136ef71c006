package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/weekly-report-agent/internal/config"
	"github.com/jonathan/weekly-report-agent/internal/ledger"
	"github.com/jonathan/weekly-report-agent/internal/observability"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent phase executions and current run states",
	RunE:  showHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of execution records to show")
	rootCmd.AddCommand(historyCmd)
}

func showHistory(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	log := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	led, err := openLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer led.Close()

	records, err := led.History(ctx, historyLimit)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintHistory(records)

	// Run states are only available on stores that expose them.
	if led.pg != nil {
		runs, err := led.pg.Runs(ctx, historyLimit)
		if err != nil {
			return err
		}
		printer.PrintRuns(runs)
	} else if mem, ok := led.Ledger.(*ledger.Memory); ok {
		runs, err := mem.Runs(ctx, historyLimit)
		if err != nil {
			return err
		}
		printer.PrintRuns(runs)
	}

	return nil
}
