package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// MemoryStore keeps metadata in process. It backs dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*domain.DocumentMetadata
	inserts int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*domain.DocumentMetadata)}
}

// Insert stores a new record. Names are not checked for uniqueness here; Save
// is responsible for routing existing names to Update.
func (s *MemoryStore) Insert(ctx context.Context, meta *domain.DocumentMetadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := copyMetadata(meta)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.records[rec.Name] = rec
	s.inserts++
	return rec.ID, nil
}

// Update rewrites the record named name and reports how many were modified.
func (s *MemoryStore) Update(ctx context.Context, name string, update domain.MetadataUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return 0, nil
	}
	rec.ShortSummary = update.ShortSummary
	rec.MediumSummary = update.MediumSummary
	rec.LongSummary = update.LongSummary
	rec.Keywords = append([]string(nil), update.Keywords...)
	rec.ProcessedAt = update.ProcessedAt
	return 1, nil
}

// FindByName returns the record for name or ErrNotFound.
func (s *MemoryStore) FindByName(ctx context.Context, name string) (*domain.DocumentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMetadata(rec), nil
}

// List returns every record ordered by name.
func (s *MemoryStore) List(ctx context.Context) ([]*domain.DocumentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.DocumentMetadata, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, copyMetadata(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Inserts returns the number of Insert calls, used to verify reruns update.
func (s *MemoryStore) Inserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inserts
}

// Close is a no-op.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func copyMetadata(m *domain.DocumentMetadata) *domain.DocumentMetadata {
	c := *m
	c.Keywords = append([]string(nil), m.Keywords...)
	return &c
}

var _ domain.MetadataStore = (*MemoryStore)(nil)
