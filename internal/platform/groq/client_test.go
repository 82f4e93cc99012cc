package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

func testClient(t *testing.T, baseURL string) *client {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return &client{
		log:         log,
		baseURL:     baseURL,
		apiKey:      "test-key",
		model:       "llama-3.1-70b-versatile",
		temperature: 0.3,
		maxTokens:   2000,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  structured summary  "}},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	got, err := c.Complete(context.Background(), "summarize this")
	require.NoError(t, err)
	require.Equal(t, "structured summary", got)

	require.Equal(t, "llama-3.1-70b-versatile", captured.Model)
	require.Len(t, captured.Messages, 1)
	require.Equal(t, "user", captured.Messages[0].Role)
	require.Equal(t, "summarize this", captured.Messages[0].Content)
	require.InDelta(t, 0.3, captured.Temperature, 0.001)
	require.Equal(t, 2000, captured.MaxTokens)
}

func TestCompleteSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
}

func TestNewClientUnconfigured(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	log, err := logger.New("test")
	require.NoError(t, err)
	c, err := NewClient(log)
	require.NoError(t, err)
	require.Nil(t, c)
}
