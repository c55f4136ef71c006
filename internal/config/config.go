// Package config provides configuration loading and validation for the
// agent. Structure and source descriptors come from a JSON file; secrets
// come from the environment so they never live in the file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

// Defaults applied when the file leaves a field unset.
const (
	DefaultOutputDir      = "./reports"
	DefaultServerAddr     = ":8080"
	DefaultSourceTimeout  = 30 * time.Second
	DefaultMaxConcurrent  = 4
	DefaultJWTExpiryHours = 24
)

// NotifyConfig holds the sender identity and per-kind recipient lists.
type NotifyConfig struct {
	FromEmail         string   `json:"from_email" validate:"omitempty,email"`
	FromName          string   `json:"from_name"`
	PreviewRecipients []string `json:"preview_recipients" validate:"dive,email"`
	FinalRecipients   []string `json:"final_recipients" validate:"dive,email"`
	ErrorRecipients   []string `json:"error_recipients" validate:"dive,email"`
}

// Config is the full agent configuration after file, defaults, and
// environment are merged.
type Config struct {
	// Sources to aggregate each draft run.
	Sources []types.SourceDescriptor `json:"sources" validate:"required,min=1,dive"`

	// Relevance heuristic overrides. Empty slices keep the built-in lists.
	MinDataRows     int      `json:"min_data_rows" validate:"gte=0"`
	IncludeKeywords []string `json:"include_keywords"`
	ExcludeKeywords []string `json:"exclude_keywords"`

	// Aggregation behavior.
	SourceTimeoutSeconds int `json:"source_timeout_seconds" validate:"gte=0"`
	MaxConcurrent        int `json:"max_concurrent" validate:"gte=0"`

	// LLM settings.
	GeminiModel string  `json:"gemini_model"`
	Temperature float64 `json:"temperature" validate:"gte=0,lte=2"`

	// Document builder. When DriveFolderID and CredentialsFile are set the
	// Drive builder is used; otherwise drafts are written under OutputDir.
	DriveFolderID   string `json:"drive_folder_id"`
	CredentialsFile string `json:"credentials_file"`
	OutputDir       string `json:"output_dir"`

	// Jira connection (token comes from the environment).
	JiraBaseURL string `json:"jira_base_url" validate:"omitempty,url"`
	JiraEmail   string `json:"jira_email" validate:"omitempty,email"`

	Notify NotifyConfig `json:"notify"`

	// HTTP trigger server.
	ServerAddr string `json:"server_addr"`

	// Secrets, environment-only.
	DatabaseURL    string `json:"-"`
	GeminiAPIKey   string `json:"-"`
	GoogleAPIKey   string `json:"-"`
	JiraAPIToken   string `json:"-"`
	SendGridAPIKey string `json:"-"`
	JWTSecret      string `json:"-"`
	JWTExpiryHours int    `json:"-"`
}

// SourceTimeout returns the per-source fetch timeout as a duration.
func (c *Config) SourceTimeout() time.Duration {
	if c.SourceTimeoutSeconds <= 0 {
		return DefaultSourceTimeout
	}
	return time.Duration(c.SourceTimeoutSeconds) * time.Second
}

// UseDrive reports whether the Google Drive builder is configured.
func (c *Config) UseDrive() bool {
	return c.DriveFolderID != "" && c.CredentialsFile != ""
}

// Load reads the JSON config file, fills defaults, overlays environment
// secrets, and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.JWTExpiryHours == 0 {
		c.JWTExpiryHours = DefaultJWTExpiryHours
	}
	for i := range c.Sources {
		if c.Sources[i].Mode == "" {
			c.Sources[i].Mode = types.DetectAuto
		}
	}
}

// applyEnv overlays environment values: secrets plus optional comma-separated
// recipient list overrides. DATABASE_URL may be absent;
// the agent then falls back to the in-memory ledger.
func (c *Config) applyEnv() error {
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	c.JiraAPIToken = os.Getenv("JIRA_API_TOKEN")
	c.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	c.JWTSecret = os.Getenv("JWT_SECRET")

	if list := splitList(os.Getenv("PREVIEW_RECIPIENTS")); list != nil {
		c.Notify.PreviewRecipients = list
	}
	if list := splitList(os.Getenv("FINAL_RECIPIENTS")); list != nil {
		c.Notify.FinalRecipients = list
	}
	if list := splitList(os.Getenv("ERROR_RECIPIENTS")); list != nil {
		c.Notify.ErrorRecipients = list
	}

	if hours := os.Getenv("JWT_EXPIRATION_HOURS"); hours != "" {
		parsed, err := strconv.Atoi(hours)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %q", hours)
		}
		c.JWTExpiryHours = parsed
	}

	return nil
}

// splitList parses a comma-separated environment value into a trimmed list.
// An empty value returns nil so the file's list is kept.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate checks structural validity. Credentials are not required here:
// a partially configured agent still serves the sources it can reach.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("config error: %s", formatValidationErrors(verrs))
		}
		return fmt.Errorf("config validation error: %w", err)
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if seen[src.ID] {
			return fmt.Errorf("config error: duplicate source id %q", src.ID)
		}
		seen[src.ID] = true

		if src.Mode == types.DetectExplicit && len(src.Tabs) == 0 {
			return fmt.Errorf("config error: source %q uses explicit mode but lists no tabs", src.ID)
		}
	}

	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("field %s failed %q validation", e.Namespace(), e.Tag()))
	}
	return strings.Join(msgs, "; ")
}
