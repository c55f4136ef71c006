// Package sources fetches raw tabular data from the configured external
// systems: Google Sheets spreadsheets, Jira boards, and HTML pages with
// tables. It implements the fetcher side of aggregation; normalization and
// relevance filtering happen downstream.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

// DefaultTimeout bounds a single upstream HTTP request.
const DefaultTimeout = 30 * time.Second

// UnavailableError reports a source that could not be reached or read.
type UnavailableError struct {
	SourceID string
	Message  string
	Cause    error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source %s unavailable: %s: %v", e.SourceID, e.Message, e.Cause)
	}
	return fmt.Sprintf("source %s unavailable: %s", e.SourceID, e.Message)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// Config carries the upstream credentials. Empty credentials disable the
// corresponding kind; fetching such a source returns an UnavailableError
// instead of failing client construction.
type Config struct {
	JiraBaseURL  string
	JiraEmail    string
	JiraAPIToken string
	GoogleAPIKey string
	Timeout      time.Duration
}

// Client fetches raw sources by kind.
type Client struct {
	cfg    Config
	sheets *sheets.Service
	http   *http.Client
	log    *slog.Logger
}

// New creates a Client. The Sheets service is only constructed when a
// Google API key is configured.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}

	if cfg.GoogleAPIKey != "" {
		svc, err := sheets.NewService(ctx, option.WithAPIKey(cfg.GoogleAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets service: %w", err)
		}
		c.sheets = svc
	}

	return c, nil
}

// Fetch retrieves the raw payload for one descriptor, dispatching on kind.
func (c *Client) Fetch(ctx context.Context, desc types.SourceDescriptor) (*types.RawSource, error) {
	c.log.Debug("fetching source", "source_id", desc.ID, "kind", string(desc.Kind))

	switch desc.Kind {
	case types.KindSheet:
		return c.fetchSheet(ctx, desc)
	case types.KindJiraBoard:
		return c.fetchJiraBoard(ctx, desc)
	case types.KindHTML:
		return c.fetchHTML(ctx, desc)
	default:
		return nil, &UnavailableError{
			SourceID: desc.ID,
			Message:  fmt.Sprintf("unknown source kind %q", desc.Kind),
		}
	}
}
