package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	httpclient "SignalRelay/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJoinsParts(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Rating: 8/10. "},{"text":"Wait for a retest."}]}}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k", Model: "gemini-2.0-flash"})
	out, err := c.Generate(context.Background(), "analyse BTC")
	require.NoError(t, err)

	assert.Equal(t, "Rating: 8/10. Wait for a retest.", out)
	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "analyse BTC", gotPrompt)
}

func TestGenerateEmptyCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Contains(t, err.Error(), "SAFETY")
	assert.False(t, httpclient.IsRetryable(err), "a blocked prompt is blocked again")
}

func TestGenerateBlankCandidateIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.True(t, httpclient.IsRetryable(err))
}

func TestGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":503}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Generate(context.Background(), "p")
	var se *httpclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
}

func TestGenerateWithoutKey(t *testing.T) {
	_, err := New(Config{}).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.False(t, httpclient.IsRetryable(err))
}
