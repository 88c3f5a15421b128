package keywords

import (
	"context"
	"sort"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/textproc"
)

// TFIDF ranks a document's terms by term frequency times the inverse document
// frequency over the shared corpus. Each extracted document is added to the
// corpus first, so on the first document of a fresh corpus every term has the
// same IDF and the ranking reduces to term frequency.
type TFIDF struct {
	corpus *Corpus
}

// NewTFIDF creates a TF-IDF extractor over corpus. A nil corpus starts empty.
func NewTFIDF(corpus *Corpus) *TFIDF {
	if corpus == nil {
		corpus = NewCorpus()
	}
	return &TFIDF{corpus: corpus}
}

// Corpus returns the shared corpus.
func (t *TFIDF) Corpus() *Corpus {
	return t.corpus
}

// Extract implements domain.KeywordExtractor.
func (t *TFIDF) Extract(ctx context.Context, text string, topN int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := textproc.ContentTokens(text)
	if len(tokens) == 0 || topN <= 0 {
		return []string{}, nil
	}

	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	t.corpus.Add(tf)

	scored := make([]scoredTerm, 0, len(tf))
	for term, count := range tf {
		weight := float64(count) / float64(len(tokens)) * t.corpus.IDF(term)
		scored = append(scored, scoredTerm{term: term, score: weight})
	}

	return topTerms(scored, topN), nil
}

type scoredTerm struct {
	term  string
	score float64
}

// topTerms sorts by descending score, breaking ties alphabetically.
func topTerms(scored []scoredTerm, topN int) []string {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].term < scored[j].term
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.term
	}
	return out
}

var _ domain.KeywordExtractor = (*TFIDF)(nil)
