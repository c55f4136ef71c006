package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

const statusPageHTML = `<html>
<head><title>Launch Status</title></head>
<body>
<h1>Weekly status</h1>
<table>
  <caption>Release Metrics</caption>
  <tr><th>Metric</th><th>Value</th></tr>
  <tr><td>Deploys</td><td>12</td></tr>
  <tr><td>Rollbacks</td><td>1</td></tr>
</table>
<table>
  <tr><th>Owner</th><th>Area</th></tr>
  <tr><td>Ada</td><td>Backend</td></tr>
</table>
</body>
</html>`

func TestExtractTables(t *testing.T) {
	raw, err := ExtractTables(statusPageHTML)
	require.NoError(t, err)

	assert.Equal(t, "Launch Status", raw.Title)
	require.Len(t, raw.Tabs, 2)

	metrics := raw.Tabs[0]
	assert.Equal(t, "Release Metrics", metrics.Name)
	require.Len(t, metrics.Cells, 3)
	assert.Equal(t, []any{"Metric", "Value"}, metrics.Cells[0])
	assert.Equal(t, []any{"Deploys", "12"}, metrics.Cells[1])

	// Caption-less tables get positional names.
	assert.Equal(t, "Table 2", raw.Tabs[1].Name)
}

func TestExtractTablesNoTables(t *testing.T) {
	raw, err := ExtractTables("<html><body><p>nothing tabular</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, raw.Tabs)
}

func TestFetchHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(statusPageHTML))
	}))
	defer server.Close()

	client, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)

	raw, err := client.Fetch(context.Background(), types.SourceDescriptor{
		ID:       "status-page",
		Kind:     types.KindHTML,
		Location: server.URL,
	})
	require.NoError(t, err)

	assert.Equal(t, "Launch Status", raw.Title)
	assert.Len(t, raw.Tabs, 2)
}

func TestFetchHTMLUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), types.SourceDescriptor{
		ID:       "status-page",
		Kind:     types.KindHTML,
		Location: server.URL,
	})
	require.Error(t, err)

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "status-page", unavailable.SourceID)
}

func TestFetchUnknownKind(t *testing.T) {
	client, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), types.SourceDescriptor{
		ID:       "weird",
		Kind:     types.SourceKind("ftp"),
		Location: "ftp://example.com",
	})
	require.Error(t, err)

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Contains(t, unavailable.Message, "unknown source kind")
}

func TestFetchSheetUnconfigured(t *testing.T) {
	client, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), types.SourceDescriptor{
		ID:       "tracker",
		Kind:     types.KindSheet,
		Location: "spreadsheet-id",
	})
	require.Error(t, err)

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Contains(t, unavailable.Message, "missing API key")
}
