package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

func captureServer(t *testing.T, status int, captured *mailPayload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.WriteHeader(status)
	}))
}

func testConfig(apiBase string) Config {
	return Config{
		APIKey:            "sg-key",
		FromEmail:         "reports@example.com",
		FromName:          "Weekly Reports",
		PreviewRecipients: []string{"reviewer@example.com"},
		FinalRecipients:   []string{"team@example.com", "boss@example.com"},
		ErrorRecipients:   []string{"ops@example.com"},
		APIBase:           apiBase,
	}
}

func TestSendPreview(t *testing.T) {
	var captured mailPayload
	server := captureServer(t, http.StatusAccepted, &captured)
	defer server.Close()

	mailer := NewMailer(testConfig(server.URL), nil)

	err := mailer.SendPreview(context.Background(), types.RunKey("2024-W44"),
		types.Handoff{DocumentID: "doc-1", DocumentURL: "https://docs.google.com/document/d/doc-1/edit"},
		[]string{"source board-2 unavailable: timeout"})
	require.NoError(t, err)

	assert.Equal(t, "Weekly Report Preview Ready - 2024-W44", captured.Subject)
	assert.Equal(t, "reports@example.com", captured.From.Email)
	require.Len(t, captured.Personalizations, 1)
	assert.Equal(t, "reviewer@example.com", captured.Personalizations[0].To[0].Email)

	body := captured.Content[0].Value
	assert.Contains(t, body, "https://docs.google.com/document/d/doc-1/edit")
	assert.Contains(t, body, "board-2 unavailable")
	assert.Empty(t, captured.Attachments)
}

func TestSendPreviewNoWarnings(t *testing.T) {
	var captured mailPayload
	server := captureServer(t, http.StatusAccepted, &captured)
	defer server.Close()

	mailer := NewMailer(testConfig(server.URL), nil)

	err := mailer.SendPreview(context.Background(), types.RunKey("2024-W44"),
		types.Handoff{DocumentURL: "https://example.com/doc"}, nil)
	require.NoError(t, err)

	assert.NotContains(t, captured.Content[0].Value, "coverage is partial")
}

func TestSendFinalAttachesPDF(t *testing.T) {
	var captured mailPayload
	server := captureServer(t, http.StatusAccepted, &captured)
	defer server.Close()

	mailer := NewMailer(testConfig(server.URL), nil)

	pdf := []byte("%PDF-1.7 fake")
	err := mailer.SendFinal(context.Background(), types.RunKey("2024-W44"), pdf, "https://example.com/doc")
	require.NoError(t, err)

	require.Len(t, captured.Personalizations[0].To, 2)
	require.Len(t, captured.Attachments, 1)

	att := captured.Attachments[0]
	assert.Equal(t, "weekly-report-2024-W44.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.Type)

	decoded, err := base64.StdEncoding.DecodeString(att.Content)
	require.NoError(t, err)
	assert.Equal(t, pdf, decoded)
}

func TestSendError(t *testing.T) {
	var captured mailPayload
	server := captureServer(t, http.StatusOK, &captured)
	defer server.Close()

	mailer := NewMailer(testConfig(server.URL), nil)

	err := mailer.SendError(context.Background(), types.RunKey("2024-W44"), "draft", "collect", "all sources failed")
	require.NoError(t, err)

	assert.Equal(t, "Weekly Report DRAFT Phase Failed - 2024-W44", captured.Subject)
	assert.Equal(t, "ops@example.com", captured.Personalizations[0].To[0].Email)
	assert.Contains(t, captured.Content[0].Value, "collect step")
	assert.Contains(t, captured.Content[0].Value, "all sources failed")
}

func TestSendRejectedByAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"bad api key"}]}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	mailer := NewMailer(testConfig(server.URL), nil)

	err := mailer.SendError(context.Background(), types.RunKey("2024-W44"), "draft", "collect", "x")
	require.Error(t, err)

	var notifyErr *NotifyError
	require.True(t, errors.As(err, &notifyErr))
	assert.Equal(t, "error", notifyErr.Kind)
	assert.Contains(t, notifyErr.Message, "401")
}

func TestSendUnconfigured(t *testing.T) {
	mailer := NewMailer(Config{}, nil)

	err := mailer.SendPreview(context.Background(), types.RunKey("2024-W44"), types.Handoff{}, nil)
	require.Error(t, err)

	var notifyErr *NotifyError
	require.True(t, errors.As(err, &notifyErr))
	assert.Contains(t, notifyErr.Message, "missing API key")
}

func TestSendNoRecipients(t *testing.T) {
	cfg := testConfig("http://unused.example.com")
	cfg.PreviewRecipients = nil
	mailer := NewMailer(cfg, nil)

	err := mailer.SendPreview(context.Background(), types.RunKey("2024-W44"), types.Handoff{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients")
}
