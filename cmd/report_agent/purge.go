package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/weekly-report-agent/internal/config"
)

var purgeDays int

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old execution records and superseded runs",
	Long: `Deletes execution log entries and completed run records older than the
cutoff. Draft runs whose handoff has not been consumed by a successful
final phase are always kept, whatever their age.`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().IntVar(&purgeDays, "days", 90, "Delete records completed more than this many days ago")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	log := newLogger(verbose)

	if purgeDays < 1 {
		return fmt.Errorf("--days must be at least 1")
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

	cutoff := time.Now().AddDate(0, 0, -purgeDays)
	removed, err := led.Purge(ctx, cutoff)
	if err != nil {
		return err
	}

	fmt.Printf("Purged %d records older than %s\n", removed, cutoff.Format("2006-01-02"))
	return nil
}
