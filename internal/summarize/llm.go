package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/observability"
	"github.com/spherical/pdf-summarizer/internal/textproc"
)

const systemPrompt = "You are a precise technical summarizer. Reply with the summary text only, " +
	"without preamble, headings or bullet points."

// Completer is the subset of the LLM client the summarizer needs.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
	Model() string
}

// LLM summarizes through a chat-completions model.
type LLM struct {
	client Completer
	logger *observability.Logger
}

// NewLLM creates a model-backed summarizer.
func NewLLM(client Completer, logger *observability.Logger) *LLM {
	return &LLM{client: client, logger: logger}
}

// Summarize implements domain.Summarizer. Input already shorter than the
// minimum length is returned as is without a model call.
func (s *LLM) Summarize(ctx context.Context, text string, budget domain.LengthBudget) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if textproc.WordCount(text) <= budget.MinLength {
		return text, nil
	}

	prompt := fmt.Sprintf(
		"Summarize the following document excerpt in %d to %d words.\n\n%s",
		budget.MinLength, budget.MaxLength, text)

	// Roughly 4/3 tokens per English word, with headroom.
	maxTokens := budget.MaxLength*2 + 16

	summary, err := s.client.Complete(ctx, systemPrompt, prompt, maxTokens)
	if err != nil {
		return "", fmt.Errorf("summarize with %s: %w", s.client.Model(), err)
	}

	s.logger.Debug().
		Str("model", s.client.Model()).
		Int("max_length", budget.MaxLength).
		Int("words", textproc.WordCount(summary)).
		Msg("Summary generated")

	return strings.TrimSpace(summary), nil
}

// Model returns the underlying model name.
func (s *LLM) Model() string {
	return s.client.Model()
}

var _ domain.Summarizer = (*LLM)(nil)
