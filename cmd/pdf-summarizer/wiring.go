package main

import (
	"context"
	"fmt"

	"github.com/spherical/pdf-summarizer/internal/cache"
	"github.com/spherical/pdf-summarizer/internal/config"
	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/embedding"
	"github.com/spherical/pdf-summarizer/internal/keywords"
	"github.com/spherical/pdf-summarizer/internal/llm"
	"github.com/spherical/pdf-summarizer/internal/metrics"
	"github.com/spherical/pdf-summarizer/internal/observability"
	"github.com/spherical/pdf-summarizer/internal/pdf"
	"github.com/spherical/pdf-summarizer/internal/pipeline"
	"github.com/spherical/pdf-summarizer/internal/storage"
	"github.com/spherical/pdf-summarizer/internal/summarize"
)

// components are the collaborators constructed once per run and shared by
// every worker.
type components struct {
	deps    pipeline.Dependencies
	corpus  *keywords.Corpus
	closers []func(context.Context) error
}

// Close releases everything in reverse construction order.
func (c *components) Close(ctx context.Context) error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildComponents(ctx context.Context, cfg *config.Config, outputDir string, logger *observability.Logger) (*components, error) {
	c := &components{}

	extractor, err := pdf.NewExtractor(cfg.Extractor.Backend, logger)
	if err != nil {
		return nil, err
	}

	summarizer, err := buildSummarizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	summaryCache, err := openCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if summaryCache != nil {
		c.closers = append(c.closers, func(context.Context) error { return summaryCache.Close() })
		summarizer = summarize.NewCached(summarizer, summaryCache, summaryNamespace(cfg), cfg.Cache.TTL, logger)
	}

	extractorKW, corpus, err := buildKeywordExtractor(cfg)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	c.corpus = corpus

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	c.closers = append(c.closers, store.Close)

	var sampler metrics.MemorySampler
	if ps, err := metrics.NewProcessSampler(); err != nil {
		logger.Warn().Err(err).Msg("Memory sampling disabled")
	} else {
		sampler = ps
	}

	c.deps = pipeline.Dependencies{
		Extractor:  extractor,
		Summarizer: summarizer,
		Keywords:   extractorKW,
		Store:      store,
		Writer:     pipeline.NewSummaryWriter(outputDir),
		Recorder:   metrics.NewRecorder(logger),
		Sampler:    sampler,
		Guard:      metrics.NewGuard(sampler, cfg.Memory.MaxRSSMB),
		Logger:     logger,
	}
	return c, nil
}

func buildSummarizer(cfg *config.Config, logger *observability.Logger) (domain.Summarizer, error) {
	var client summarize.Completer
	if cfg.Summary.Backend == summarize.BackendLLM {
		client = llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger)
	}
	return summarize.New(cfg.Summary.Backend, client, logger)
}

// summaryNamespace keys cached summaries by backend and model.
func summaryNamespace(cfg *config.Config) string {
	if cfg.Summary.Backend == summarize.BackendLLM {
		model := cfg.LLM.Model
		if model == "" {
			model = "default"
		}
		return cache.Key(cfg.Summary.Backend, model)
	}
	return cfg.Summary.Backend
}

func buildKeywordExtractor(cfg *config.Config) (domain.KeywordExtractor, *keywords.Corpus, error) {
	var (
		corpus   *keywords.Corpus
		embedder embedding.Embedder
		err      error
	)

	switch cfg.Keywords.Strategy {
	case keywords.StrategyEmbedding:
		embedder, err = embedding.NewClient(embedding.Config{
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.LLM.BaseURL,
			Dimension: cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create embedding client: %w", err)
		}
	default:
		corpus = keywords.NewCorpus()
		if cfg.Keywords.CorpusPath != "" {
			corpus, err = keywords.LoadCorpus(cfg.Keywords.CorpusPath)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	ext, err := keywords.New(cfg.Keywords.Strategy, corpus, embedder)
	if err != nil {
		return nil, nil, err
	}
	return ext, corpus, nil
}

func openCache(cfg config.CacheConfig) (cache.Client, error) {
	switch cfg.Driver {
	case "memory":
		return cache.NewMemoryClient(0), nil
	case "redis":
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return client, nil
	default:
		return nil, nil
	}
}
