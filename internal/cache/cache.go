// Package cache stores model inference results so reruns over unchanged
// documents skip the model call.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client is the cache surface the summarizer decorator needs.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	defaultMemoryEntries = 10000
	sweepInterval        = time.Minute
)

// MemoryClient is a bounded, process-local cache. When full, expired entries
// are dropped first, then the oldest insertion.
type MemoryClient struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	seq     uint64
	limit   int

	stop     chan struct{}
	stopOnce sync.Once
}

type memEntry struct {
	value    []byte
	deadline time.Time // zero: no expiry
	seq      uint64
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// NewMemoryClient creates a cache holding at most limit entries; a
// non-positive limit uses the default.
func NewMemoryClient(limit int) *MemoryClient {
	if limit <= 0 {
		limit = defaultMemoryEntries
	}
	c := &MemoryClient{
		entries: make(map[string]*memEntry),
		limit:   limit,
		stop:    make(chan struct{}),
	}
	go c.sweepLoop(sweepInterval)
	return c
}

func (c *MemoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(time.Now()) {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value. A zero ttl never expires.
func (c *MemoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.limit {
		c.makeRoom(time.Now())
	}

	c.seq++
	e := &memEntry{value: append([]byte(nil), value...), seq: c.seq}
	if ttl > 0 {
		e.deadline = time.Now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *MemoryClient) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryClient) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the sweeper. Safe to call more than once.
func (c *MemoryClient) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// makeRoom must be called with mu held.
func (c *MemoryClient) makeRoom(now time.Time) {
	if c.sweep(now) > 0 {
		return
	}
	var (
		victim string
		oldest uint64
	)
	for k, e := range c.entries {
		if victim == "" || e.seq < oldest {
			victim, oldest = k, e.seq
		}
	}
	delete(c.entries, victim)
}

// sweep must be called with mu held.
func (c *MemoryClient) sweep(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *MemoryClient) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			c.sweep(now)
			c.mu.Unlock()
		}
	}
}

// Key joins key parts with ":".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
