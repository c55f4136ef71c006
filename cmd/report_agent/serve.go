package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/weekly-report-agent/internal/config"
	"github.com/jonathan/weekly-report-agent/internal/ledger"
	"github.com/jonathan/weekly-report-agent/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	Long: `Starts an HTTP server exposing health, status, config, and the
authenticated POST /trigger/{phase} endpoint an external scheduler calls
to start the draft or final phase.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config server_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	log := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.ServerAddr = serveAddr
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

	var store server.RunStore
	if led.pg != nil {
		store = led.pg
	} else {
		store = led.Ledger.(*ledger.Memory)
	}

	srv, err := server.New(cfg, orch, store, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
