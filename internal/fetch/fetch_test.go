package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "WeeklyReportAgent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><table><tr><td>x</td></tr></table></body></html>"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, result.HTML, "<table>")
	assert.Contains(t, result.ContentType, "text/html")
}

func TestURLInvalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"No scheme", "example.com/page"},
		{"Empty", ""},
		{"Garbage", "://nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := URL(context.Background(), tt.url, nil)
			require.Error(t, err)

			var fetchErr *Error
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, "invalid URL", fetchErr.Message)
		})
	}
}

func TestURLNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)

	// Result is still returned so callers can inspect the status.
	require.NotNil(t, result)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestURLCustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.Header.Get("X-Custom"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.Headers = map[string]string{"X-Custom": "abc"}

	_, err := URL(context.Background(), server.URL, opts)
	require.NoError(t, err)
}
