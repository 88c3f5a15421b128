// Package pipeline runs documents through extraction, summarization, keyword
// extraction and persistence, one batch at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/metrics"
	"github.com/spherical/pdf-summarizer/internal/observability"
	"github.com/spherical/pdf-summarizer/internal/storage"
	"github.com/spherical/pdf-summarizer/internal/textproc"
)

// Options tunes a Processor.
type Options struct {
	MaxInputChars       int
	KeywordTopN         int
	ConcurrentSummaries bool
	WorkerTimeout       time.Duration // 0 disables
	Budgets             map[domain.SummaryLength]domain.LengthBudget
}

// Dependencies are the collaborators shared by every worker of a run.
type Dependencies struct {
	Extractor  domain.TextExtractor
	Summarizer domain.Summarizer
	Keywords   domain.KeywordExtractor
	Store      domain.MetadataStore
	Writer     *SummaryWriter
	Recorder   *metrics.Recorder
	Sampler    metrics.MemorySampler
	Guard      *metrics.Guard
	Logger     *observability.Logger
}

// Processor turns one DocumentUnit into a ProcessingResult. It never returns
// an error: every failure becomes the Failure variant of the result.
type Processor struct {
	deps Dependencies
	opts Options
	now  func() time.Time
}

// NewProcessor creates a processor.
func NewProcessor(deps Dependencies, opts Options) *Processor {
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NewRecorder(deps.Logger)
	}
	if opts.KeywordTopN <= 0 {
		opts.KeywordTopN = 5
	}
	return &Processor{deps: deps, opts: opts, now: time.Now}
}

// stageClock holds the timings of completed stages. A timed out stage
// sequence may still be writing to it when the result is finalized.
type stageClock struct {
	mu sync.Mutex
	m  domain.ProcessingMetrics
}

func (c *stageClock) record(f func(m *domain.ProcessingMetrics)) {
	c.mu.Lock()
	f(&c.m)
	c.mu.Unlock()
}

func (c *stageClock) snapshot() domain.ProcessingMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m
}

// Process runs the four stages for unit. The memory sample and metrics line
// are produced for every outcome.
func (p *Processor) Process(ctx context.Context, unit domain.DocumentUnit) (result *domain.ProcessingResult) {
	start := time.Now()
	logger := p.deps.Logger.WithDocument(unit.Name)
	clock := &stageClock{}

	defer func() {
		if r := recover(); r != nil {
			result = p.fail(logger, unit, domain.ProcessingError(fmt.Sprintf("panic: %v", r), nil))
		}
		m := clock.snapshot()
		m.MemoryUsage = p.sampleMemory(logger)
		result.Metrics = m
		result.Duration = time.Since(start)
		p.deps.Recorder.Record(unit.Name, m, result.Duration)
	}()

	out, err := p.analyzeWithTimeout(ctx, unit, clock, logger)
	if err != nil {
		return p.fail(logger, unit, err)
	}

	// Persistence is never abandoned halfway, so it runs outside the
	// worker deadline.
	stageStart := time.Now()
	success, err := p.persist(ctx, unit, out.summaries, out.keywords, logger)
	if err != nil {
		return p.fail(logger, unit, err)
	}
	elapsed := time.Since(stageStart).Seconds()
	clock.record(func(m *domain.ProcessingMetrics) { m.StoreInsertionTime = elapsed })
	logger.Info().Float64("seconds", elapsed).Msgf("Metadata store write took: %.2f seconds", elapsed)

	return domain.NewSuccessResult(unit, *success, domain.ProcessingMetrics{})
}

// analysis is what the model stages produce for one document.
type analysis struct {
	summaries domain.Summaries
	keywords  []string
}

// analyzeWithTimeout bounds extraction, summarization and keyword ranking by
// the worker timeout. A collaborator that ignores its context is abandoned;
// nothing it returns late is persisted.
func (p *Processor) analyzeWithTimeout(ctx context.Context, unit domain.DocumentUnit, clock *stageClock, logger *observability.Logger) (*analysis, error) {
	if p.opts.WorkerTimeout <= 0 {
		return p.analyze(ctx, unit, clock, logger)
	}

	tctx, cancel := context.WithTimeout(ctx, p.opts.WorkerTimeout)
	defer cancel()

	type outcome struct {
		out *analysis
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: domain.ProcessingError(fmt.Sprintf("panic: %v", r), nil)}
			}
		}()
		out, err := p.analyze(tctx, unit, clock, logger)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-tctx.Done():
		return nil, domain.ProcessingError(
			fmt.Sprintf("timed out after %s", p.opts.WorkerTimeout), tctx.Err())
	}
}

func (p *Processor) analyze(ctx context.Context, unit domain.DocumentUnit, clock *stageClock, logger *observability.Logger) (*analysis, error) {
	// Step 1: extract
	stageStart := time.Now()
	text, err := p.deps.Extractor.Extract(ctx, unit.Path)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	elapsed := time.Since(stageStart).Seconds()
	clock.record(func(m *domain.ProcessingMetrics) { m.ExtractionTime = elapsed })
	logger.Info().Float64("seconds", elapsed).Msgf("Text extraction took: %.2f seconds", elapsed)

	text = textproc.Truncate(text, p.opts.MaxInputChars)

	if err := p.deps.Guard.Check(); err != nil {
		return nil, err
	}

	// Step 2: summarize
	stageStart = time.Now()
	summaries, err := p.summarize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	elapsed = time.Since(stageStart).Seconds()
	clock.record(func(m *domain.ProcessingMetrics) { m.SummaryTime = elapsed })
	logger.Info().Float64("seconds", elapsed).Msgf("Summary generation took: %.2f seconds", elapsed)

	// Step 3: keywords
	stageStart = time.Now()
	keywords, err := p.deps.Keywords.Extract(ctx, text, p.opts.KeywordTopN)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}
	if keywords == nil {
		keywords = []string{}
	}
	elapsed = time.Since(stageStart).Seconds()
	clock.record(func(m *domain.ProcessingMetrics) { m.KeywordExtractionTime = elapsed })
	logger.Info().Float64("seconds", elapsed).Msgf("Keyword extraction took: %.2f seconds", elapsed)

	return &analysis{summaries: summaries, keywords: keywords}, nil
}

// summarize produces the three summaries, concurrently when enabled.
func (p *Processor) summarize(ctx context.Context, text string) (domain.Summaries, error) {
	var (
		summaries domain.Summaries
		mu        sync.Mutex
	)

	one := func(ctx context.Context, length domain.SummaryLength) error {
		out, err := p.deps.Summarizer.Summarize(ctx, text, p.opts.Budgets[length])
		if err != nil {
			return fmt.Errorf("%s summary: %w", length, err)
		}
		mu.Lock()
		summaries.Set(length, out)
		mu.Unlock()
		return nil
	}

	if !p.opts.ConcurrentSummaries {
		for _, length := range domain.SummaryLengths {
			if err := one(ctx, length); err != nil {
				return domain.Summaries{}, err
			}
		}
		return summaries, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, length := range domain.SummaryLengths {
		length := length
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = domain.ProcessingError(fmt.Sprintf("panic: %v", r), nil)
				}
			}()
			return one(gctx, length)
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Summaries{}, err
	}
	return summaries, nil
}

// persist writes the summary file and upserts the store record. A cancelled
// run writes nothing; a store failure removes the summary file so a failed
// document leaves no output.
func (p *Processor) persist(ctx context.Context, unit domain.DocumentUnit, summaries domain.Summaries, keywords []string, logger *observability.Logger) (*domain.Success, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := p.deps.Writer.Write(unit, summaries, keywords)
	if err != nil {
		return nil, domain.ProcessingError("write summary file", err)
	}
	logger.Info().Str("path", path).Msgf("Summaries saved to %s", path)

	meta := domain.NewDocumentMetadata(unit.Name, summaries, keywords, p.now().UTC())
	id, inserted, err := storage.Save(ctx, p.deps.Store, meta)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn().Err(rmErr).Str("path", path).Msg("Failed to remove summary file")
		}
		return nil, err
	}

	action := "updated"
	if inserted {
		action = "inserted"
	}
	logger.Debug().Str("store_id", id).Str("action", action).Msg("Metadata persisted")

	return &domain.Success{
		Summaries:   summaries,
		Keywords:    keywords,
		SummaryPath: path,
		StoreID:     id,
	}, nil
}

func (p *Processor) fail(logger *observability.Logger, unit domain.DocumentUnit, err error) *domain.ProcessingResult {
	result := domain.NewFailureResult(unit, err, domain.ProcessingMetrics{})
	reason := result.Failure.Reason.Description()
	if result.Failure.Reason == domain.ErrorKindProcessing {
		reason = result.Failure.Detail
	}
	logger.Error().
		Err(err).
		Str("error_kind", string(result.Failure.Reason)).
		Msgf("Error processing %s: %s", unit.Name, reason)
	return result
}

func (p *Processor) sampleMemory(logger *observability.Logger) int64 {
	if p.deps.Sampler == nil {
		return 0
	}
	rss, err := p.deps.Sampler.RSS()
	if err != nil {
		logger.Warn().Err(err).Msg("Memory sample failed")
		return 0
	}
	return rss
}
