// Package keywords provides the keyword extraction strategies.
package keywords

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// Corpus tracks document frequencies across every document seen by a run. It
// is shared by all workers and safe for concurrent use.
type Corpus struct {
	mu   sync.RWMutex
	docs int
	df   map[string]int
}

type corpusFile struct {
	Documents         int            `json:"documents"`
	DocumentFrequency map[string]int `json:"document_frequency"`
}

// NewCorpus creates an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{df: make(map[string]int)}
}

// LoadCorpus reads a corpus saved by Save. A missing file yields an empty corpus.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewCorpus(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var f corpusFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	if f.DocumentFrequency == nil {
		f.DocumentFrequency = make(map[string]int)
	}
	return &Corpus{docs: f.Documents, df: f.DocumentFrequency}, nil
}

// Save writes the corpus to path, replacing any previous file.
func (c *Corpus) Save(path string) error {
	c.mu.RLock()
	data, err := json.Marshal(corpusFile{Documents: c.docs, DocumentFrequency: c.df})
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create corpus dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	return os.Rename(tmp, path)
}

// Add records one document's distinct terms.
func (c *Corpus) Add(terms map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.docs++
	for term := range terms {
		c.df[term]++
	}
}

// Documents returns the number of documents added so far.
func (c *Corpus) Documents() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.docs
}

// IDF returns the smoothed inverse document frequency of term:
// ln((1+N)/(1+df)) + 1.
func (c *Corpus) IDF(term string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return idf(c.docs, c.df[term])
}

func idf(docs, df int) float64 {
	return math.Log(float64(1+docs)/float64(1+df)) + 1
}
