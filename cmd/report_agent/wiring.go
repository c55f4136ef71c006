package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonathan/weekly-report-agent/internal/aggregate"
	"github.com/jonathan/weekly-report-agent/internal/config"
	"github.com/jonathan/weekly-report-agent/internal/document"
	"github.com/jonathan/weekly-report-agent/internal/generate"
	"github.com/jonathan/weekly-report-agent/internal/ledger"
	"github.com/jonathan/weekly-report-agent/internal/llm"
	"github.com/jonathan/weekly-report-agent/internal/notify"
	"github.com/jonathan/weekly-report-agent/internal/orchestrate"
	"github.com/jonathan/weekly-report-agent/internal/relevance"
	"github.com/jonathan/weekly-report-agent/internal/sources"
)

// runLedger is a Ledger together with the optional Postgres handle, so
// commands can close the pool and reach Migrate/Runs when present.
type runLedger struct {
	ledger.Ledger
	pg *ledger.Postgres
}

func (r *runLedger) Close() {
	if r.pg != nil {
		r.pg.Close()
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openLedger connects to Postgres when DATABASE_URL is configured and
// falls back to the in-memory ledger otherwise. The fallback keeps
// single-process runs working but loses cross-process idempotency, so it
// is logged loudly.
func openLedger(ctx context.Context, cfg *config.Config, log *slog.Logger) (*runLedger, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set; using in-memory run ledger (no durable idempotency)")
		return &runLedger{Ledger: ledger.NewMemory()}, nil
	}

	pg, err := ledger.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to run ledger: %w", err)
	}
	return &runLedger{Ledger: pg, pg: pg}, nil
}

func newFilter(cfg *config.Config) *relevance.Filter {
	return relevance.New(relevance.Config{
		IncludeKeywords: cfg.IncludeKeywords,
		ExcludeKeywords: cfg.ExcludeKeywords,
		MinDataRows:     cfg.MinDataRows,
	})
}

func newCollector(ctx context.Context, cfg *config.Config, log *slog.Logger) (*aggregate.Aggregator, error) {
	client, err := sources.New(ctx, sources.Config{
		JiraBaseURL:  cfg.JiraBaseURL,
		JiraEmail:    cfg.JiraEmail,
		JiraAPIToken: cfg.JiraAPIToken,
		GoogleAPIKey: cfg.GoogleAPIKey,
		Timeout:      cfg.SourceTimeout(),
	}, log)
	if err != nil {
		return nil, err
	}

	return aggregate.New(client, newFilter(cfg), cfg.Sources, aggregate.Options{
		SourceTimeout: cfg.SourceTimeout(),
		MaxConcurrent: cfg.MaxConcurrent,
		Logger:        log,
	}), nil
}

func newBuilder(ctx context.Context, cfg *config.Config, log *slog.Logger) (orchestrate.Builder, error) {
	if cfg.UseDrive() {
		return document.NewDriveBuilder(ctx, cfg.CredentialsFile, cfg.DriveFolderID, log)
	}
	log.Info("drive builder not configured; writing drafts locally", "dir", cfg.OutputDir)
	return document.NewLocalBuilder(cfg.OutputDir, log)
}

// newOrchestrator wires the full draft/final pipeline. The returned
// cleanup closes the LLM client.
func newOrchestrator(ctx context.Context, cfg *config.Config, led ledger.Ledger, log *slog.Logger) (*orchestrate.Orchestrator, func(), error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	collector, err := newCollector(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	llmConfig := llm.DefaultConfig()
	if cfg.GeminiModel != "" {
		llmConfig.Model = cfg.GeminiModel
	}
	if cfg.Temperature > 0 {
		llmConfig.Temperature = float32(cfg.Temperature)
	}

	client, err := llm.NewGeminiClient(ctx, llmConfig, cfg.GeminiAPIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	builder, err := newBuilder(ctx, cfg, log)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	mailer := notify.NewMailer(notify.Config{
		APIKey:            cfg.SendGridAPIKey,
		FromEmail:         cfg.Notify.FromEmail,
		FromName:          cfg.Notify.FromName,
		PreviewRecipients: cfg.Notify.PreviewRecipients,
		FinalRecipients:   cfg.Notify.FinalRecipients,
		ErrorRecipients:   cfg.Notify.ErrorRecipients,
	}, log)

	orch := orchestrate.New(led, collector, generate.New(client, log), builder, mailer, log)
	cleanup := func() { _ = client.Close() }
	return orch, cleanup, nil
}
