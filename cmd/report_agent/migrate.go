package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/weekly-report-agent/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the run ledger schema to the configured database",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	log := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required for migrate")
	}

	led, err := openLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer led.Close()

	if err := led.pg.Migrate(ctx); err != nil {
		return err
	}

	fmt.Println("Run ledger schema applied")
	return nil
}
