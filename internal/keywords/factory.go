package keywords

import (
	"fmt"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/embedding"
)

// Strategy names accepted by New.
const (
	StrategyTFIDF     = "tfidf"
	StrategyEmbedding = "embedding"
)

// New returns the extractor for strategy. corpus is used by tfidf, embedder by
// embedding.
func New(strategy string, corpus *Corpus, embedder embedding.Embedder) (domain.KeywordExtractor, error) {
	switch strategy {
	case StrategyTFIDF, "":
		return NewTFIDF(corpus), nil
	case StrategyEmbedding:
		if embedder == nil {
			return nil, fmt.Errorf("embedding keyword strategy requires an embedder")
		}
		return NewEmbedding(embedder), nil
	default:
		return nil, fmt.Errorf("unknown keyword strategy: %s", strategy)
	}
}
