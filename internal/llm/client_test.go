package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/observability"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-or-test-key"}, observability.NopLogger())

	assert.Equal(t, defaultModel, client.Model())
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, maxRetries, client.retry.MaxRetries)
}

func TestBuildRequest(t *testing.T) {
	client := NewClient(Config{APIKey: "k", Model: "test/model"}, observability.NopLogger())

	req := client.buildRequest("be brief", "summarize this", 50)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, 50, req.MaxTokens)
	assert.Equal(t, "test/model", req.Model)
	assert.False(t, req.Stream)

	req = client.buildRequest("", "summarize this", 0)
	assert.Len(t, req.Messages, 1)
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 100, req.MaxTokens)

		_ = json.NewEncoder(w).Encode(Response{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "  A short summary.  "}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Retry: fastRetry()}, observability.NopLogger())
	out, err := client.Complete(context.Background(), "", "text", 100)
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)
}

func TestComplete_RetriesTransientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(Response{
			Choices: []Choice{{Message: Message{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Retry: fastRetry()}, observability.NopLogger())
	out, err := client.Complete(context.Background(), "", "text", 10)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestComplete_NonRetryableStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Retry: fastRetry()}, observability.NopLogger())
	_, err := client.Complete(context.Background(), "", "text", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, domain.ErrorKindProcessing, domain.Classify(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Retry: fastRetry()}, observability.NopLogger())
	_, err := client.Complete(context.Background(), "", "text", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := &RetryConfig{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}

	assert.Equal(t, time.Second, cfg.backoff(0))
	assert.Equal(t, 2*time.Second, cfg.backoff(1))
	assert.Equal(t, 4*time.Second, cfg.backoff(2))
	assert.Equal(t, 5*time.Second, cfg.backoff(3))
}

func TestRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	_, ok := retryAfter(resp, time.Minute)
	assert.False(t, ok)

	resp.Header.Set("Retry-After", "2")
	d, ok := retryAfter(resp, time.Minute)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	resp.Header.Set("Retry-After", "120")
	d, _ = retryAfter(resp, time.Minute)
	assert.Equal(t, time.Minute, d)
}

func TestComplete_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Retry: fastRetry()}, observability.NopLogger())
	_, err := client.Complete(context.Background(), "", "text", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(http.StatusTooManyRequests))
	assert.True(t, shouldRetry(http.StatusBadGateway))
	assert.False(t, shouldRetry(http.StatusBadRequest))
	assert.False(t, shouldRetry(http.StatusUnauthorized))
}
