// Package summarize provides the Summarizer backends and a caching decorator.
package summarize

import (
	"context"
	"sort"
	"strings"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/textproc"
)

// Extractive selects the highest scoring sentences of the input until the word
// budget is spent. Sentences are scored by the mean corpus frequency of their
// content words and emitted in their original order.
type Extractive struct{}

// NewExtractive creates an extractive summarizer.
func NewExtractive() *Extractive {
	return &Extractive{}
}

type scoredSentence struct {
	index int
	text  string
	words int
	score float64
}

// Summarize implements domain.Summarizer. Input with fewer than two sentences
// is returned unchanged.
func (e *Extractive) Summarize(ctx context.Context, text string, budget domain.LengthBudget) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	sentences := textproc.Sentences(text)
	if len(sentences) < 2 {
		return text, nil
	}

	freq := make(map[string]float64)
	for _, tok := range textproc.ContentTokens(text) {
		freq[tok]++
	}

	scored := make([]scoredSentence, len(sentences))
	for i, s := range sentences {
		tokens := textproc.ContentTokens(s)
		var score float64
		for _, tok := range tokens {
			score += freq[tok]
		}
		if len(tokens) > 0 {
			score /= float64(len(tokens))
		}
		scored[i] = scoredSentence{index: i, text: s, words: textproc.WordCount(s), score: score}
	}

	ranked := make([]scoredSentence, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	limit := budget.MaxLength
	if limit <= 0 {
		limit = textproc.WordCount(text)
	}

	var (
		picked []scoredSentence
		taken  = make(map[int]bool)
		words  int
	)
	for _, s := range ranked {
		if words+s.words > limit {
			continue
		}
		picked = append(picked, s)
		taken[s.index] = true
		words += s.words
	}

	// Below the minimum: top up with the best skipped sentences, cutting the
	// last one to the remaining budget.
	minWords := budget.MinLength
	if minWords < 1 {
		minWords = 1
	}
	if minWords > limit {
		minWords = limit
	}
	for _, s := range ranked {
		if words >= minWords || words >= limit {
			break
		}
		if taken[s.index] {
			continue
		}
		s.text = truncateWords(s.text, limit-words)
		s.words = textproc.WordCount(s.text)
		picked = append(picked, s)
		taken[s.index] = true
		words += s.words
	}

	sort.Slice(picked, func(i, j int) bool {
		return picked[i].index < picked[j].index
	})

	parts := make([]string, len(picked))
	for i, s := range picked {
		parts[i] = s.text
	}
	return strings.Join(parts, " "), nil
}

func truncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}

var _ domain.Summarizer = (*Extractive)(nil)
