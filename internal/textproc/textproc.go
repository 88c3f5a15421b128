// Package textproc holds the tokenization and sentence segmentation shared by
// the summarizers and keyword extractors.
package textproc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Truncate returns at most max runes of text. A non-positive max disables it.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

// Tokenize lower-cases text and splits it into runs of letters and digits,
// dropping tokens shorter than two runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ContentTokens is Tokenize without stopwords and pure numbers.
func ContentTokens(text string) []string {
	tokens := Tokenize(text)
	out := tokens[:0]
	for _, t := range tokens {
		if IsStopword(t) || isNumber(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Sentences splits text on terminal punctuation followed by whitespace and on
// blank lines. Returned sentences are trimmed and never empty.
func Sentences(text string) []string {
	var (
		out   []string
		start int
	)
	emit := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, strings.Join(strings.Fields(s), " "))
		}
		start = end
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			if i+1 < len(text) && text[i+1] == '\n' {
				emit(i)
			}
		case '.', '?', '!':
			end := i + 1
			if end == len(text) || text[end] == ' ' || text[end] == '\n' || text[end] == '\t' || text[end] == '\r' {
				emit(end)
			}
		}
	}
	emit(len(text))
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
