package summarize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/spherical/pdf-summarizer/internal/cache"
	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/observability"
)

// Cached wraps a Summarizer and memoizes results by input hash and budget.
// Cache failures are logged and never fail the summary.
type Cached struct {
	next      domain.Summarizer
	cache     cache.Client
	namespace string
	ttl       time.Duration
	logger    *observability.Logger
}

// NewCached creates a caching decorator. namespace separates backends so that
// a model change does not serve stale summaries.
func NewCached(next domain.Summarizer, c cache.Client, namespace string, ttl time.Duration, logger *observability.Logger) *Cached {
	return &Cached{
		next:      next,
		cache:     c,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger,
	}
}

// Summarize implements domain.Summarizer.
func (c *Cached) Summarize(ctx context.Context, text string, budget domain.LengthBudget) (string, error) {
	key := c.key(text, budget)

	if cached, err := c.cache.Get(ctx, key); err == nil {
		return string(cached), nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Msg("Summary cache lookup failed")
	}

	summary, err := c.next.Summarize(ctx, text, budget)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, []byte(summary), c.ttl); err != nil {
		c.logger.Warn().Err(err).Msg("Summary cache write failed")
	}

	return summary, nil
}

func (c *Cached) key(text string, budget domain.LengthBudget) string {
	sum := sha256.Sum256([]byte(text))
	return cache.Key("summary", c.namespace, hex.EncodeToString(sum[:]),
		strconv.Itoa(budget.MinLength), strconv.Itoa(budget.MaxLength))
}

var _ domain.Summarizer = (*Cached)(nil)
