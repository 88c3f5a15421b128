package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-summarizer/internal/config"
	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/keywords"
	"github.com/spherical/pdf-summarizer/internal/metrics"
	"github.com/spherical/pdf-summarizer/internal/observability"
	"github.com/spherical/pdf-summarizer/internal/storage"
	"github.com/spherical/pdf-summarizer/internal/summarize"
)

const sampleText = "Batch pipelines process documents in fixed groups. " +
	"Each document passes through extraction, summarization and keyword ranking. " +
	"Failures of one document never stop the other documents in the pipeline. " +
	"Metrics for every document are written to the pipeline log."

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
	delay time.Duration
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	name := filepath.Base(path)
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	if text, ok := f.texts[name]; ok {
		return text, nil
	}
	return sampleText, nil
}

type recordingSummarizer struct {
	mu      sync.Mutex
	budgets []domain.LengthBudget
	panicOn string
}

func (r *recordingSummarizer) Summarize(ctx context.Context, text string, budget domain.LengthBudget) (string, error) {
	if r.panicOn != "" && strings.Contains(text, r.panicOn) {
		panic("model crashed")
	}
	r.mu.Lock()
	r.budgets = append(r.budgets, budget)
	r.mu.Unlock()
	if text == "" {
		return "", nil
	}
	return strings.Repeat("s", budget.MaxLength/10), nil
}

type fixedSampler struct{ rss int64 }

func (f fixedSampler) RSS() (int64, error) { return f.rss, nil }

type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) Insert(ctx context.Context, meta *domain.DocumentMetadata) (string, error) {
	return "", errors.New("connection refused")
}

// slowStore delays every insert, ignoring the context like a driver stuck on
// the network would.
type slowStore struct {
	*storage.MemoryStore
	delay time.Duration
}

func (s slowStore) Insert(ctx context.Context, meta *domain.DocumentMetadata) (string, error) {
	time.Sleep(s.delay)
	return s.MemoryStore.Insert(ctx, meta)
}

type harness struct {
	dir     string
	store   *storage.MemoryStore
	logs    *syncBuffer
	logger  *observability.Logger
	deps    Dependencies
	opts    Options
	summ    *recordingSummarizer
	extract *fakeExtractor
}

func newHarness(t *testing.T, names ...string) *harness {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("%PDF-1.4"), 0o644))
	}

	logs := &syncBuffer{}
	logger := observability.NewWriterLogger(logs, "text", "debug")
	store := storage.NewMemoryStore()
	summ := &recordingSummarizer{}
	extract := &fakeExtractor{texts: map[string]string{}, errs: map[string]error{}}

	h := &harness{
		dir:     dir,
		store:   store,
		logs:    logs,
		logger:  logger,
		summ:    summ,
		extract: extract,
		opts: Options{
			MaxInputChars:       2000,
			KeywordTopN:         5,
			ConcurrentSummaries: true,
			Budgets:             config.DefaultConfig().SummaryBudgets(),
		},
	}
	h.deps = Dependencies{
		Extractor:  extract,
		Summarizer: summ,
		Keywords:   keywords.NewTFIDF(nil),
		Store:      store,
		Writer:     NewSummaryWriter(""),
		Recorder:   metrics.NewRecorder(logger),
		Sampler:    fixedSampler{rss: 1 << 20},
		Logger:     logger,
	}
	return h
}

func (h *harness) processor() *Processor {
	return NewProcessor(h.deps, h.opts)
}

func (h *harness) unit(name string) domain.DocumentUnit {
	return domain.NewDocumentUnit(h.dir, name)
}

func (h *harness) metricsLines() []string {
	var out []string
	for _, line := range strings.Split(h.logs.String(), "\n") {
		if strings.Contains(line, metrics.LinePrefix) {
			out = append(out, line)
		}
	}
	return out
}

func TestScheduler_CorruptDocumentIsIsolated(t *testing.T) {
	h := newHarness(t, "a.pdf", "b.pdf", "c.pdf", "notes.txt")
	h.extract.errs["b.pdf"] = domain.CorruptInputError("unexpected EOF", nil)

	sched := NewScheduler(h.processor(), SchedulerConfig{BatchSize: 2, SortInputs: true}, h.logger)
	summary, err := sched.Run(context.Background(), h.dir)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalDocuments)
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, map[string]domain.ErrorKind{"b.pdf": domain.ErrorKindCorruptInput}, summary.Failures)
	assert.Equal(t, 2, summary.Successes())
	assert.NotEmpty(t, summary.RunID)

	for _, name := range []string{"a.pdf", "c.pdf"} {
		assert.FileExists(t, filepath.Join(h.dir, name+SummaryFileSuffix))
		_, err := h.store.FindByName(context.Background(), name)
		assert.NoError(t, err, name)
	}
	assert.NoFileExists(t, filepath.Join(h.dir, "b.pdf"+SummaryFileSuffix))
	_, err = h.store.FindByName(context.Background(), "b.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	lines := h.metricsLines()
	assert.Len(t, lines, 3, "finalization runs for failures too")
	joined := strings.Join(lines, "\n")
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		assert.Contains(t, joined, metrics.LinePrefix+name+":")
	}

	logs := h.logs.String()
	assert.Contains(t, logs, "Found 3 PDF files in "+h.dir+".")
	assert.Contains(t, logs, "Processing batch 1: [a.pdf b.pdf]")
	assert.Contains(t, logs, "Processing batch 2: [c.pdf]")
	assert.Contains(t, logs, "Error processing b.pdf: PDF is corrupted or incomplete")
}

type barrierProcessor struct {
	mu       sync.Mutex
	active   int
	maxSeen  int
	finished map[string]bool
	// startedAfter records, per document, which documents had finished when it started.
	startedAfter map[string][]string
}

func (b *barrierProcessor) Process(ctx context.Context, unit domain.DocumentUnit) *domain.ProcessingResult {
	b.mu.Lock()
	b.active++
	if b.active > b.maxSeen {
		b.maxSeen = b.active
	}
	var done []string
	for name := range b.finished {
		done = append(done, name)
	}
	b.startedAfter[unit.Name] = done
	b.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	b.mu.Lock()
	b.active--
	b.finished[unit.Name] = true
	b.mu.Unlock()

	if unit.Name == "b.pdf" {
		return domain.NewFailureResult(unit, errors.New("boom"), domain.ProcessingMetrics{})
	}
	return domain.NewSuccessResult(unit, domain.Success{}, domain.ProcessingMetrics{})
}

func TestScheduler_BatchBarrier(t *testing.T) {
	h := newHarness(t, "a.pdf", "b.pdf", "c.pdf")
	proc := &barrierProcessor{finished: map[string]bool{}, startedAfter: map[string][]string{}}

	events := make(chan Event, 16)
	summary, err := NewScheduler(proc, SchedulerConfig{BatchSize: 2, SortInputs: true}, nil).
		WithEvents(events).
		Run(context.Background(), h.dir)
	require.NoError(t, err)
	close(events)

	assert.Equal(t, 2, proc.maxSeen)
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, proc.startedAfter["c.pdf"])
	assert.Equal(t, map[string]domain.ErrorKind{"b.pdf": domain.ErrorKindProcessing}, summary.Failures)

	var types []EventType
	for e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, EventRunStart, types[0])
	assert.Equal(t, EventBatchStart, types[1])
	assert.Equal(t, EventRunComplete, types[len(types)-1])
	assert.Len(t, types, 7)
}

type countingProcessor struct{ calls int32 }

func (c *countingProcessor) Process(ctx context.Context, unit domain.DocumentUnit) *domain.ProcessingResult {
	atomic.AddInt32(&c.calls, 1)
	return domain.NewSuccessResult(unit, domain.Success{}, domain.ProcessingMetrics{})
}

func TestScheduler_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), nil, 0o644))
	proc := &countingProcessor{}

	summary, err := NewScheduler(proc, SchedulerConfig{BatchSize: 2}, nil).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalDocuments)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, 0, summary.Batches)
	assert.Equal(t, int32(0), proc.calls)
}

func TestScheduler_MissingDirectory(t *testing.T) {
	_, err := NewScheduler(&countingProcessor{}, SchedulerConfig{}, nil).
		Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestProcessor_ThreeOrderedSummaries(t *testing.T) {
	for _, concurrent := range []bool{true, false} {
		h := newHarness(t, "a.pdf")
		h.opts.ConcurrentSummaries = concurrent

		result := h.processor().Process(context.Background(), h.unit("a.pdf"))
		require.True(t, result.Succeeded())

		require.Len(t, h.summ.budgets, 3)
		maxes := []int{h.summ.budgets[0].MaxLength, h.summ.budgets[1].MaxLength, h.summ.budgets[2].MaxLength}
		assert.ElementsMatch(t, []int{50, 100, 200}, maxes)

		s := result.Success.Summaries
		assert.NotEmpty(t, s.Short)
		assert.NotEmpty(t, s.Medium)
		assert.NotEmpty(t, s.Long)
		assert.Less(t, len(s.Short), len(s.Medium))
		assert.Less(t, len(s.Medium), len(s.Long))
	}
}

func TestProcessor_ExactlyOneVariant(t *testing.T) {
	h := newHarness(t, "ok.pdf", "bad.pdf")
	h.extract.errs["bad.pdf"] = domain.CorruptInputError("no xref", nil)
	p := h.processor()

	ok := p.Process(context.Background(), h.unit("ok.pdf"))
	assert.NotNil(t, ok.Success)
	assert.Nil(t, ok.Failure)
	assert.Greater(t, ok.Metrics.StoreInsertionTime, 0.0)
	assert.Equal(t, int64(1<<20), ok.Metrics.MemoryUsage)

	bad := p.Process(context.Background(), h.unit("bad.pdf"))
	assert.Nil(t, bad.Success)
	require.NotNil(t, bad.Failure)
	assert.Equal(t, domain.ErrorKindCorruptInput, bad.Failure.Reason)
	assert.Equal(t, int64(1<<20), bad.Metrics.MemoryUsage)
	assert.Zero(t, bad.Metrics.SummaryTime)
}

func TestProcessor_EmptyTextDegrades(t *testing.T) {
	h := newHarness(t, "blank.pdf")
	h.extract.texts["blank.pdf"] = ""
	h.deps.Summarizer = summarize.NewExtractive()

	result := h.processor().Process(context.Background(), h.unit("blank.pdf"))
	require.True(t, result.Succeeded())
	assert.Empty(t, result.Success.Summaries.Short)
	assert.Empty(t, result.Success.Keywords)
	assert.NotNil(t, result.Success.Keywords)
}

func TestProcessor_TruncatesInput(t *testing.T) {
	h := newHarness(t, "long.pdf")
	h.extract.texts["long.pdf"] = strings.Repeat("x", 5000)
	h.opts.MaxInputChars = 2000

	var seen int32
	h.deps.Summarizer = summarizerFunc(func(ctx context.Context, text string, b domain.LengthBudget) (string, error) {
		atomic.StoreInt32(&seen, int32(len(text)))
		return "ok", nil
	})

	result := h.processor().Process(context.Background(), h.unit("long.pdf"))
	require.True(t, result.Succeeded())
	assert.Equal(t, int32(2000), seen)
}

type summarizerFunc func(ctx context.Context, text string, b domain.LengthBudget) (string, error)

func (f summarizerFunc) Summarize(ctx context.Context, text string, b domain.LengthBudget) (string, error) {
	return f(ctx, text, b)
}

func TestProcessor_RecoversPanics(t *testing.T) {
	h := newHarness(t, "a.pdf")
	h.summ.panicOn = "Batch pipelines"

	result := h.processor().Process(context.Background(), h.unit("a.pdf"))
	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.ErrorKindProcessing, result.Failure.Reason)
	assert.Contains(t, result.Failure.Detail, "model crashed")
	assert.Zero(t, result.Metrics.SummaryTime)
	assert.Len(t, h.metricsLines(), 1)
}

type blockingExtractor struct{ release chan struct{} }

func (b *blockingExtractor) Extract(ctx context.Context, path string) (string, error) {
	<-b.release
	return sampleText, nil
}

func TestProcessor_WorkerTimeout(t *testing.T) {
	h := newHarness(t, "hung.pdf")
	blocker := &blockingExtractor{release: make(chan struct{})}
	defer close(blocker.release)
	h.deps.Extractor = blocker
	h.opts.WorkerTimeout = 50 * time.Millisecond

	start := time.Now()
	result := h.processor().Process(context.Background(), h.unit("hung.pdf"))
	assert.Less(t, time.Since(start), 5*time.Second)

	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.ErrorKindProcessing, result.Failure.Reason)
	assert.Contains(t, result.Failure.Detail, "timed out")
	assert.Len(t, h.metricsLines(), 1)
}

func TestProcessor_WorkerTimeoutNeverInterruptsPersistence(t *testing.T) {
	h := newHarness(t, "a.pdf")
	store := slowStore{MemoryStore: storage.NewMemoryStore(), delay: 150 * time.Millisecond}
	h.deps.Store = store
	h.opts.WorkerTimeout = 50 * time.Millisecond

	result := h.processor().Process(context.Background(), h.unit("a.pdf"))

	require.True(t, result.Succeeded(), "a slow store write is not a worker timeout")
	_, err := store.FindByName(context.Background(), "a.pdf")
	assert.NoError(t, err)
	assert.FileExists(t, filepath.Join(h.dir, "a.pdf"+SummaryFileSuffix))
	assert.Greater(t, result.Metrics.StoreInsertionTime, 0.1)
}

func TestProcessor_TimedOutDocumentIsNeverPersisted(t *testing.T) {
	h := newHarness(t, "late.pdf")
	blocker := &blockingExtractor{release: make(chan struct{})}
	h.deps.Extractor = blocker
	h.opts.WorkerTimeout = 20 * time.Millisecond

	result := h.processor().Process(context.Background(), h.unit("late.pdf"))
	require.NotNil(t, result.Failure)

	// The abandoned extraction finishes after the deadline.
	close(blocker.release)
	time.Sleep(100 * time.Millisecond)

	_, err := h.store.FindByName(context.Background(), "late.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoFileExists(t, filepath.Join(h.dir, "late.pdf"+SummaryFileSuffix))
	assert.Equal(t, 0, h.store.Inserts())
}

func TestProcessor_MemoryGuard(t *testing.T) {
	h := newHarness(t, "big.pdf")
	h.deps.Guard = metrics.NewGuard(fixedSampler{rss: 900 << 20}, 512)

	result := h.processor().Process(context.Background(), h.unit("big.pdf"))
	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.ErrorKindOutOfMemory, result.Failure.Reason)
	assert.Empty(t, h.summ.budgets, "summaries never start")
	assert.Contains(t, h.logs.String(), "Not enough memory to process this PDF")
}

func TestProcessor_StoreFailureRemovesSummaryFile(t *testing.T) {
	h := newHarness(t, "a.pdf")
	h.deps.Store = failingStore{storage.NewMemoryStore()}
	h.extract.delay = 5 * time.Millisecond

	result := h.processor().Process(context.Background(), h.unit("a.pdf"))
	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.ErrorKindStoreWrite, result.Failure.Reason)
	assert.NoFileExists(t, filepath.Join(h.dir, "a.pdf"+SummaryFileSuffix))

	// Completed stages keep their timings; the failed write records none.
	assert.GreaterOrEqual(t, result.Metrics.ExtractionTime, 0.005)
	assert.Zero(t, result.Metrics.StoreInsertionTime)
}

func TestScheduler_RerunUpdatesInsteadOfDuplicating(t *testing.T) {
	h := newHarness(t, "a.pdf", "c.pdf")
	sched := NewScheduler(h.processor(), SchedulerConfig{BatchSize: 2, SortInputs: true}, h.logger)

	for i := 0; i < 2; i++ {
		summary, err := sched.Run(context.Background(), h.dir)
		require.NoError(t, err)
		assert.Empty(t, summary.Failures)
	}

	all, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, h.store.Inserts())
}

func TestSummaryWriter_Format(t *testing.T) {
	out := t.TempDir()
	w := NewSummaryWriter(out)
	unit := domain.NewDocumentUnit("/data", "a.pdf")

	path, err := w.Write(unit, domain.Summaries{Short: "S", Medium: "M", Long: "L"}, []string{"go", "pdf"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "a.pdf_summary.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "Summaries of a.pdf:\n" + strings.Repeat("=", 50) + "\n" +
		"Short Summary:\nS\n\n" +
		"Medium Summary:\nM\n\n" +
		"Long Summary:\nL\n\n" +
		"Keywords extracted:\ngo, pdf\n"
	assert.Equal(t, want, string(data))

	assert.Equal(t, "/data/a.pdf_summary.txt", NewSummaryWriter("").Path(unit))
}

func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"c.pdf", "a.pdf", "b.PDF", "a.pdf_summary.txt", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	units, err := ListDocuments(dir, true)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "a.pdf", units[0].Name)
	assert.Equal(t, filepath.Join(dir, "a.pdf"), units[0].Path)
	assert.Equal(t, "c.pdf", units[1].Name)

	unsorted, err := ListDocuments(dir, false)
	require.NoError(t, err)
	assert.Len(t, unsorted, 2)
}

func TestPartition(t *testing.T) {
	units := []domain.DocumentUnit{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"}}

	batches := Partition(units, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, "e", batches[2][0].Name)

	assert.Empty(t, Partition(nil, 2))
	assert.Len(t, Partition(units, 10), 1)
}
