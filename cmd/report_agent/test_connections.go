package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/weekly-report-agent/internal/config"
	"github.com/jonathan/weekly-report-agent/internal/llm"
	"github.com/jonathan/weekly-report-agent/internal/sources"
)

var testConnectionsCmd = &cobra.Command{
	Use:   "test-connections",
	Short: "Check every configured upstream and report what works",
	Long: `Fetches each configured source, pings the database, and exercises the
LLM with a trivial prompt. Failures are reported per dependency; the
command exits non-zero if anything is broken.`,
	RunE: runTestConnections,
}

func init() {
	rootCmd.AddCommand(testConnectionsCmd)
}

func runTestConnections(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	log := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	failures := 0
	check := func(name string, err error) {
		if err != nil {
			failures++
			fmt.Printf("  ✗ %s: %v\n", name, err)
			return
		}
		fmt.Printf("  ✓ %s\n", name)
	}

	fmt.Println("Run ledger:")
	if cfg.DatabaseURL == "" {
		fmt.Println("  - database not configured (in-memory ledger will be used)")
	} else {
		led, err := openLedger(ctx, cfg, log)
		check("postgres", err)
		if err == nil {
			led.Close()
		}
	}

	fmt.Println("Sources:")
	client, err := sources.New(ctx, sources.Config{
		JiraBaseURL:  cfg.JiraBaseURL,
		JiraEmail:    cfg.JiraEmail,
		JiraAPIToken: cfg.JiraAPIToken,
		GoogleAPIKey: cfg.GoogleAPIKey,
		Timeout:      cfg.SourceTimeout(),
	}, log)
	if err != nil {
		return err
	}
	for _, desc := range cfg.Sources {
		fetchCtx, cancel := context.WithTimeout(ctx, cfg.SourceTimeout())
		_, err := client.Fetch(fetchCtx, desc)
		cancel()
		check(fmt.Sprintf("%s (%s)", desc.ID, desc.Kind), err)
	}

	fmt.Println("LLM:")
	if cfg.GeminiAPIKey == "" {
		check("gemini", fmt.Errorf("GEMINI_API_KEY not set"))
	} else {
		llmClient, err := llm.NewGeminiClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			_, err = llmClient.GenerateText(pingCtx, "Reply with the single word OK.")
			cancel()
			_ = llmClient.Close()
		}
		check("gemini", err)
	}

	fmt.Println("Notifications:")
	if cfg.SendGridAPIKey == "" {
		check("sendgrid", fmt.Errorf("SENDGRID_API_KEY not set"))
	} else {
		fmt.Println("  ✓ sendgrid (key configured; not sending a test mail)")
	}

	if failures > 0 {
		return fmt.Errorf("%d connection check(s) failed", failures)
	}
	fmt.Println("All connection checks passed")
	return nil
}
