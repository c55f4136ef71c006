// Package notify delivers email notifications through the SendGrid v3 API:
// preview notices to reviewers, the final PDF to stakeholders, and failure
// alerts to the operators.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

const defaultAPIBase = "https://api.sendgrid.com"

// NotifyError reports a failed email delivery.
type NotifyError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *NotifyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s notification failed: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s notification failed: %s", e.Kind, e.Message)
}

func (e *NotifyError) Unwrap() error {
	return e.Cause
}

// Config holds SendGrid credentials and the recipient lists for each
// notification kind.
type Config struct {
	APIKey            string
	FromEmail         string
	FromName          string
	PreviewRecipients []string
	FinalRecipients   []string
	ErrorRecipients   []string

	// APIBase overrides the SendGrid endpoint. Tests point it at a local
	// server; production leaves it empty.
	APIBase string
}

// Mailer sends the three notification kinds. It implements
// orchestrate.Notifier.
type Mailer struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// NewMailer creates a Mailer. A nil logger falls back to slog.Default.
func NewMailer(cfg Config, log *slog.Logger) *Mailer {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

// SendPreview tells reviewers the draft document is ready, listing any
// degradation warnings from aggregation.
func (m *Mailer) SendPreview(ctx context.Context, week types.RunKey, handoff types.Handoff, warnings []string) error {
	subject := fmt.Sprintf("Weekly Report Preview Ready - %s", week)

	var body strings.Builder
	body.WriteString("Hello!\n\n")
	body.WriteString("The weekly report draft has been generated and is ready for review.\n\n")
	fmt.Fprintf(&body, "Review the report here: %s\n\n", handoff.DocumentURL)
	if len(warnings) > 0 {
		body.WriteString("Note: some sources were unavailable this week, so coverage is partial:\n")
		for _, w := range warnings {
			fmt.Fprintf(&body, "- %s\n", w)
		}
		body.WriteString("\n")
	}
	body.WriteString("Please review and edit the draft. The final PDF is distributed when the final phase runs.\n")

	return m.send(ctx, "preview", m.cfg.PreviewRecipients, subject, body.String(), nil, "")
}

// SendFinal distributes the rendered PDF to stakeholders.
func (m *Mailer) SendFinal(ctx context.Context, week types.RunKey, pdf []byte, docURL string) error {
	subject := fmt.Sprintf("Weekly Report - %s", week)

	var body strings.Builder
	body.WriteString("Hello!\n\n")
	body.WriteString("The weekly report is attached as a PDF.\n\n")
	if docURL != "" {
		fmt.Fprintf(&body, "The source document remains available here: %s\n", docURL)
	}

	filename := fmt.Sprintf("weekly-report-%s.pdf", week)
	return m.send(ctx, "final", m.cfg.FinalRecipients, subject, body.String(), pdf, filename)
}

// SendError alerts the operators that a phase failed. Exactly one of these
// goes out per failed phase attempt.
func (m *Mailer) SendError(ctx context.Context, week types.RunKey, phase, step, cause string) error {
	subject := fmt.Sprintf("Weekly Report %s Phase Failed - %s", strings.ToUpper(phase), week)

	var body strings.Builder
	fmt.Fprintf(&body, "The %s phase for run %s failed at the %s step.\n\n", phase, week, step)
	fmt.Fprintf(&body, "Error: %s\n\n", cause)
	body.WriteString("The attempt was recorded as failed and can be retried.\n")

	return m.send(ctx, "error", m.cfg.ErrorRecipients, subject, body.String(), nil, "")
}

// sendgrid v3 mail send payload.
type mailPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
	Attachments      []mailAttachment  `json:"attachments,omitempty"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailAttachment struct {
	Content     string `json:"content"`
	Type        string `json:"type"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition"`
}

func (m *Mailer) send(ctx context.Context, kind string, recipients []string, subject, body string, attachment []byte, filename string) error {
	if m.cfg.APIKey == "" {
		return &NotifyError{Kind: kind, Message: "sendgrid is not configured (missing API key)"}
	}
	if len(recipients) == 0 {
		return &NotifyError{Kind: kind, Message: "no recipients configured"}
	}

	to := make([]emailAddress, len(recipients))
	for i, r := range recipients {
		to[i] = emailAddress{Email: r}
	}

	payload := mailPayload{
		Personalizations: []personalization{{To: to}},
		From:             emailAddress{Email: m.cfg.FromEmail, Name: m.cfg.FromName},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/plain", Value: body}},
	}
	if len(attachment) > 0 {
		payload.Attachments = []mailAttachment{{
			Content:     base64.StdEncoding.EncodeToString(attachment),
			Type:        "application/pdf",
			Filename:    filename,
			Disposition: "attachment",
		}}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return &NotifyError{Kind: kind, Message: "encoding mail payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.APIBase+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return &NotifyError{Kind: kind, Message: "building request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return &NotifyError{Kind: kind, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &NotifyError{
			Kind:    kind,
			Message: fmt.Sprintf("sendgrid returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}

	m.log.Info("notification sent", "kind", kind, "recipients", len(recipients), "subject", subject)
	return nil
}
