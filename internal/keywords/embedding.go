package keywords

import (
	"context"
	"fmt"
	"sort"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/embedding"
	"github.com/spherical/pdf-summarizer/internal/textproc"
)

// maxCandidates bounds the phrases sent to the embedding model per document.
const maxCandidates = 128

// Embedding ranks candidate unigrams and bigrams by cosine similarity between
// their embedding and the embedding of the whole document.
type Embedding struct {
	embedder embedding.Embedder
}

// NewEmbedding creates an embedding-ranked extractor.
func NewEmbedding(embedder embedding.Embedder) *Embedding {
	return &Embedding{embedder: embedder}
}

// Extract implements domain.KeywordExtractor.
func (e *Embedding) Extract(ctx context.Context, text string, topN int) ([]string, error) {
	candidates := candidatePhrases(text)
	if len(candidates) == 0 || topN <= 0 {
		return []string{}, nil
	}

	inputs := make([]string, 0, len(candidates)+1)
	inputs = append(inputs, text)
	inputs = append(inputs, candidates...)

	vectors, err := e.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embed keyword candidates: %w", err)
	}
	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(inputs))
	}

	doc := vectors[0]
	scored := make([]scoredTerm, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredTerm{term: c, score: embedding.Cosine(doc, vectors[i+1])}
	}

	return topTerms(scored, topN), nil
}

// candidatePhrases returns the most frequent content unigrams and bigrams of
// adjacent content words.
func candidatePhrases(text string) []string {
	tokens := textproc.Tokenize(text)
	counts := make(map[string]int)

	var prev string
	for _, tok := range tokens {
		if textproc.IsStopword(tok) {
			prev = ""
			continue
		}
		counts[tok]++
		if prev != "" {
			counts[prev+" "+tok]++
		}
		prev = tok
	}

	phrases := make([]string, 0, len(counts))
	for p := range counts {
		phrases = append(phrases, p)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if counts[phrases[i]] != counts[phrases[j]] {
			return counts[phrases[i]] > counts[phrases[j]]
		}
		return phrases[i] < phrases[j]
	})
	if len(phrases) > maxCandidates {
		phrases = phrases[:maxCandidates]
	}
	return phrases
}

var _ domain.KeywordExtractor = (*Embedding)(nil)
