package domain

import "context"

// TextExtractor pulls the plain text out of a PDF file.
type TextExtractor interface {
	// Extract returns the concatenated text of every page. An empty string is a
	// valid result; unreadable files fail with a CorruptInputError.
	Extract(ctx context.Context, path string) (string, error)
}

// Summarizer condenses text within a length budget.
type Summarizer interface {
	// Summarize must degrade on trivially short input (return the input or an
	// empty string) rather than fail.
	Summarize(ctx context.Context, text string, budget LengthBudget) (string, error)
}

// KeywordExtractor ranks the most representative terms of a text.
type KeywordExtractor interface {
	// Extract returns at most topN keywords, best first. Empty input yields an
	// empty slice.
	Extract(ctx context.Context, text string, topN int) ([]string, error)
}

// MetadataStore persists document metadata keyed by document name.
type MetadataStore interface {
	Insert(ctx context.Context, meta *DocumentMetadata) (string, error)
	Update(ctx context.Context, name string, update MetadataUpdate) (int64, error)
	FindByName(ctx context.Context, name string) (*DocumentMetadata, error)
	List(ctx context.Context) ([]*DocumentMetadata, error)
	Close(ctx context.Context) error
}
