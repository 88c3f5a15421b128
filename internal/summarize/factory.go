package summarize

import (
	"fmt"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/observability"
)

// Backend names accepted by New.
const (
	BackendExtractive = "extractive"
	BackendLLM        = "llm"
)

// New returns the summarizer for backend. client may be nil for the
// extractive backend.
func New(backend string, client Completer, logger *observability.Logger) (domain.Summarizer, error) {
	switch backend {
	case BackendExtractive, "":
		return NewExtractive(), nil
	case BackendLLM:
		if client == nil {
			return nil, fmt.Errorf("llm summary backend requires a client")
		}
		return NewLLM(client, logger), nil
	default:
		return nil, fmt.Errorf("unknown summary backend: %s", backend)
	}
}
