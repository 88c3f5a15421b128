package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/observability"
)

// DocumentProcessor processes a single document. Implementations must not
// panic and must always return a result.
type DocumentProcessor interface {
	Process(ctx context.Context, unit domain.DocumentUnit) *domain.ProcessingResult
}

// SchedulerConfig holds batch settings.
type SchedulerConfig struct {
	BatchSize  int
	SortInputs bool
}

// Scheduler runs the documents of a directory in consecutive batches. All
// workers of a batch finish before the next batch starts, and a failed
// document never cancels its siblings.
type Scheduler struct {
	processor DocumentProcessor
	cfg       SchedulerConfig
	logger    *observability.Logger
	events    chan<- Event
}

// NewScheduler creates a scheduler.
func NewScheduler(processor DocumentProcessor, cfg SchedulerConfig, logger *observability.Logger) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 2
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Scheduler{processor: processor, cfg: cfg, logger: logger}
}

// WithEvents makes the scheduler emit progress events on ch. Events are
// dropped when ch is full.
func (s *Scheduler) WithEvents(ch chan<- Event) *Scheduler {
	s.events = ch
	return s
}

// Run processes every PDF in dir and returns the run summary. It only fails
// when the directory cannot be listed.
func (s *Scheduler) Run(ctx context.Context, dir string) (*domain.BatchRunSummary, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()

	units, err := ListDocuments(dir, s.cfg.SortInputs)
	if err != nil {
		return nil, err
	}

	batches := Partition(units, s.cfg.BatchSize)
	summary := &domain.BatchRunSummary{
		RunID:          runID,
		Directory:      dir,
		TotalDocuments: len(units),
		Batches:        len(batches),
		Failures:       make(map[string]domain.ErrorKind),
	}

	logger.Info().Int("documents", len(units)).Msgf("Found %d PDF files in %s.", len(units), dir)
	s.emit(Event{Type: EventRunStart, Total: len(units), Timestamp: time.Now()})

	for i, batch := range batches {
		names := unitNames(batch)
		logger.Info().Int("batch", i+1).Strs("documents", names).
			Msgf("Processing batch %d: %v", i+1, names)
		s.emit(Event{Type: EventBatchStart, Batch: i + 1, Documents: names, Timestamp: time.Now()})

		for _, result := range s.runBatch(ctx, batch) {
			if !result.Succeeded() {
				summary.Failures[result.Document.Name] = result.Failure.Reason
			}
		}
	}

	summary.WallClockSeconds = time.Since(start).Seconds()

	logger.Info().
		Int("total_documents", summary.TotalDocuments).
		Int("successes", summary.Successes()).
		Int("failures", len(summary.Failures)).
		Strs("failed_documents", summary.FailedDocuments()).
		Float64("wall_clock_seconds", summary.WallClockSeconds).
		Msgf("Batch run complete: %d documents, %d failed in %.2f seconds",
			summary.TotalDocuments, len(summary.Failures), summary.WallClockSeconds)
	s.emit(Event{Type: EventRunComplete, Summary: summary, Timestamp: time.Now()})

	return summary, nil
}

// runBatch processes one batch with one worker per document and returns once
// every worker has finished.
func (s *Scheduler) runBatch(ctx context.Context, batch []domain.DocumentUnit) []*domain.ProcessingResult {
	results := make([]*domain.ProcessingResult, len(batch))
	var wg sync.WaitGroup

	for i, unit := range batch {
		wg.Add(1)
		go func(i int, unit domain.DocumentUnit) {
			defer wg.Done()
			result := s.processor.Process(ctx, unit)
			results[i] = result
			s.emit(Event{Type: EventDocumentComplete, Result: result, Timestamp: time.Now()})
		}(i, unit)
	}

	wg.Wait()
	return results
}

// emit safely emits an event to the channel
func (s *Scheduler) emit(event Event) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- event:
	default:
		s.logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
	}
}

// ListDocuments returns the PDF entries of dir, non-recursively. Unsorted
// listings follow directory order.
func ListDocuments(dir string, sorted bool) ([]domain.DocumentUnit, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open input directory: %w", err)
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}

	units := make([]domain.DocumentUnit, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !domain.IsPDF(e.Name()) {
			continue
		}
		units = append(units, domain.NewDocumentUnit(dir, e.Name()))
	}

	if sorted {
		sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	}
	return units, nil
}

// Partition splits units into consecutive batches of at most size.
func Partition(units []domain.DocumentUnit, size int) [][]domain.DocumentUnit {
	if size <= 0 {
		size = 1
	}
	var batches [][]domain.DocumentUnit
	for i := 0; i < len(units); i += size {
		end := i + size
		if end > len(units) {
			end = len(units)
		}
		batches = append(batches, units[i:end])
	}
	return batches
}

func unitNames(units []domain.DocumentUnit) []string {
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Name
	}
	return names
}
