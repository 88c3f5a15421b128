// Package llm provides a chat-completions client for OpenRouter-compatible APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/observability"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "google/gemini-2.5-flash-preview-09-2025"
)

// Client handles communication with the chat-completions API
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retry      *RetryConfig
	logger     *observability.Logger
}

// Config holds client configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Retry   *RetryConfig
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents the API request structure
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// Response represents the API response structure
type Response struct {
	ID      string    `json:"id"`
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

// Choice represents a single completion choice
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// APIError is the error object returned in a failed response body
type APIError struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

// NewClient creates a new LLM client
func NewClient(cfg Config, logger *observability.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      cfg.Retry,
		logger:     logger.WithOperation("llm"),
	}
}

// Model returns the model being used.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a single-turn prompt and returns the assistant reply.
func (c *Client) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	req := c.buildRequest(system, prompt, maxTokens)

	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.ProcessingError("Failed to marshal request", err)
	}

	resp, err := c.send(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("HTTP-Referer", "https://github.com/spherical/pdf-summarizer")
		httpReq.Header.Set("X-Title", "PDF Summarizer")
		return httpReq, nil
	})
	if err != nil {
		return "", domain.ProcessingError("Failed to send request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.ProcessingError("Failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.ProcessingError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var parsed Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", domain.ProcessingError("Failed to parse response", err)
	}
	if parsed.Error != nil {
		return "", domain.ProcessingError(fmt.Sprintf("API error: %s", parsed.Error.Message), nil)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.ProcessingError("API returned no choices", nil)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// buildRequest constructs the API request
func (c *Client) buildRequest(system, prompt string, maxTokens int) *Request {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	return &Request{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.2,
		Stream:      false,
	}
}
