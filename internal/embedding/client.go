// Package embedding provides text embeddings for keyword ranking.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// Embedder turns texts into vectors. The embedding keyword strategy ranks
// candidate phrases by their similarity to the whole document.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimension() int
}

const (
	defaultEmbeddingURL   = "https://openrouter.ai/api/v1"
	defaultEmbeddingModel = "google/gemini-embedding-001"
	defaultDimension      = 768
	defaultMaxBatch       = 64
)

// Config holds embedding client configuration. Zero values take defaults.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
	MaxBatch  int // inputs per request
	Timeout   time.Duration
}

// Client calls an OpenAI-compatible /embeddings endpoint.
type Client struct {
	http      *http.Client
	endpoint  string
	apiKey    string
	model     string
	dimension int
	maxBatch  int
}

// NewClient creates a new embedding client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEmbeddingURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultEmbeddingModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = defaultDimension
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + "/embeddings",
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		maxBatch:  cfg.MaxBatch,
	}, nil
}

// EmbeddingRequest is the /embeddings request body.
type EmbeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// EmbeddingResponse is the /embeddings response body.
type EmbeddingResponse struct {
	Data  []EmbeddingData `json:"data"`
	Model string          `json:"model"`
	Error *EmbeddingError `json:"error,omitempty"`
}

// EmbeddingData is one vector, keyed by its input position.
type EmbeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// EmbeddingError is the error object of a failed response.
type EmbeddingError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Embed returns one vector per text, in input order. Inputs are sent in
// chunks of at most MaxBatch.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.maxBatch {
		end := start + c.maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, domain.ProcessingError(fmt.Sprintf("embed inputs %d-%d with %s", start, end-1, c.model), err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(EmbeddingRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "PDF Summarizer")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed EmbeddingResponse
	decodeErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && parsed.Error != nil {
			return nil, fmt.Errorf("API error: %s (type: %s)", parsed.Error.Message, parsed.Error.Type)
		}
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("unmarshal response: %w", decodeErr)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			continue
		}
		if len(d.Embedding) != c.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d", d.Index, len(d.Embedding), c.dimension)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vecs, nil
}

func (c *Client) Model() string  { return c.model }
func (c *Client) Dimension() int { return c.dimension }

// MockClient provides a deterministic offline embedder for tests and dry runs.
type MockClient struct {
	dimension int
}

// NewMockClient creates a mock client that hashes tokens into a fixed-size vector.
func NewMockClient(dimension int) *MockClient {
	if dimension <= 0 {
		dimension = 768
	}
	return &MockClient{dimension: dimension}
}

// Embed generates bag-of-words hash embeddings, so texts that share words are
// closer than texts that do not.
func (c *MockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, c.dimension)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[h.Sum32()%uint32(c.dimension)] += 1
		}
		embeddings[i] = Normalize(vec)
	}
	return embeddings, nil
}

// Model returns the mock model name.
func (c *MockClient) Model() string {
	return "mock-embedding-model"
}

// Dimension returns the embedding dimension.
func (c *MockClient) Dimension() int {
	return c.dimension
}

// Normalize scales v to unit length in place. Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= norm
	}
	return v
}

// Cosine returns the cosine similarity of two vectors of equal length.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Ensure implementations satisfy interface.
var (
	_ Embedder = (*Client)(nil)
	_ Embedder = (*MockClient)(nil)
)
