package domain

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// PDFExtension is the suffix a directory entry must carry to be picked up by a run.
const PDFExtension = ".pdf"

// DocumentUnit identifies one input PDF within a run.
type DocumentUnit struct {
	Name string // file name, unique within a run
	Path string
}

// NewDocumentUnit builds a unit for a file inside dir.
func NewDocumentUnit(dir, name string) DocumentUnit {
	return DocumentUnit{Name: name, Path: filepath.Join(dir, name)}
}

// SummaryLength names one of the three summary budgets.
type SummaryLength string

const (
	SummaryShort  SummaryLength = "short"
	SummaryMedium SummaryLength = "medium"
	SummaryLong   SummaryLength = "long"
)

// SummaryLengths lists the budgets in ascending order.
var SummaryLengths = []SummaryLength{SummaryShort, SummaryMedium, SummaryLong}

// LengthBudget bounds a single summarizer call.
type LengthBudget struct {
	MinLength int
	MaxLength int
}

// Summaries holds the three summaries produced for a document.
type Summaries struct {
	Short  string `json:"short"`
	Medium string `json:"medium"`
	Long   string `json:"long"`
}

// Set stores a summary under the given length.
func (s *Summaries) Set(length SummaryLength, text string) {
	switch length {
	case SummaryShort:
		s.Short = text
	case SummaryMedium:
		s.Medium = text
	case SummaryLong:
		s.Long = text
	}
}

// Get returns the summary for the given length.
func (s Summaries) Get(length SummaryLength) string {
	switch length {
	case SummaryShort:
		return s.Short
	case SummaryMedium:
		return s.Medium
	case SummaryLong:
		return s.Long
	}
	return ""
}

// ProcessingMetrics records per-document stage timings in seconds and a single
// resident memory sample in bytes.
type ProcessingMetrics struct {
	ExtractionTime        float64 `json:"extraction_time"`
	SummaryTime           float64 `json:"summary_time"`
	KeywordExtractionTime float64 `json:"keyword_extraction_time"`
	StoreInsertionTime    float64 `json:"mongodb_insertion_time"`
	MemoryUsage           int64   `json:"memory_usage"`
}

// Success is the populated variant of a successful ProcessingResult.
type Success struct {
	Summaries   Summaries
	Keywords    []string
	SummaryPath string
	StoreID     string
}

// Failure is the populated variant of a failed ProcessingResult.
type Failure struct {
	Reason ErrorKind
	Detail string
}

// ProcessingResult is the outcome of processing one DocumentUnit. Exactly one of
// Success and Failure is non-nil.
type ProcessingResult struct {
	Document DocumentUnit
	Success  *Success
	Failure  *Failure
	Metrics  ProcessingMetrics
	Duration time.Duration
}

// Succeeded reports whether the result carries the Success variant.
func (r *ProcessingResult) Succeeded() bool {
	return r.Success != nil && r.Failure == nil
}

// NewSuccessResult builds a successful result.
func NewSuccessResult(unit DocumentUnit, s Success, m ProcessingMetrics) *ProcessingResult {
	return &ProcessingResult{Document: unit, Success: &s, Metrics: m}
}

// NewFailureResult builds a failed result, classifying err.
func NewFailureResult(unit DocumentUnit, err error, m ProcessingMetrics) *ProcessingResult {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &ProcessingResult{
		Document: unit,
		Failure:  &Failure{Reason: Classify(err), Detail: detail},
		Metrics:  m,
	}
}

// BatchRunSummary aggregates a whole directory run.
type BatchRunSummary struct {
	RunID            string               `json:"run_id"`
	Directory        string               `json:"directory"`
	TotalDocuments   int                  `json:"total_documents"`
	Batches          int                  `json:"batches"`
	WallClockSeconds float64              `json:"wall_clock_seconds"`
	Failures         map[string]ErrorKind `json:"failures"`
}

// Successes returns the number of documents that did not fail.
func (s *BatchRunSummary) Successes() int {
	return s.TotalDocuments - len(s.Failures)
}

// FailedDocuments returns failed document names in sorted order.
func (s *BatchRunSummary) FailedDocuments() []string {
	names := make([]string, 0, len(s.Failures))
	for name := range s.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PerformanceRecord is a metrics line reconstructed by the report aggregator.
type PerformanceRecord struct {
	Document              string  `json:"document"`
	ExtractionTime        float64 `json:"extraction_time"`
	SummaryTime           float64 `json:"summary_time"`
	KeywordExtractionTime float64 `json:"keyword_extraction_time"`
	StoreInsertionTime    float64 `json:"mongodb_insertion_time"`
	MemoryUsage           int64   `json:"memory_usage"`
}

// DocumentMetadata is the record persisted to the metadata store, keyed by Name.
type DocumentMetadata struct {
	ID            string    `json:"id,omitempty"`
	Name          string    `json:"name"`
	ShortSummary  string    `json:"short_summary"`
	MediumSummary string    `json:"medium_summary"`
	LongSummary   string    `json:"long_summary"`
	Keywords      []string  `json:"keywords"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// NewDocumentMetadata builds the store record for a processed document.
func NewDocumentMetadata(name string, s Summaries, keywords []string, at time.Time) *DocumentMetadata {
	return &DocumentMetadata{
		Name:          name,
		ShortSummary:  s.Short,
		MediumSummary: s.Medium,
		LongSummary:   s.Long,
		Keywords:      keywords,
		ProcessedAt:   at,
	}
}

// MetadataUpdate carries the fields rewritten when a document is processed again.
type MetadataUpdate struct {
	ShortSummary  string
	MediumSummary string
	LongSummary   string
	Keywords      []string
	ProcessedAt   time.Time
}

// UpdateFrom derives the update payload from a full record.
func UpdateFrom(m *DocumentMetadata) MetadataUpdate {
	return MetadataUpdate{
		ShortSummary:  m.ShortSummary,
		MediumSummary: m.MediumSummary,
		LongSummary:   m.LongSummary,
		Keywords:      m.Keywords,
		ProcessedAt:   m.ProcessedAt,
	}
}

// IsPDF reports whether a directory entry name carries the PDF suffix.
func IsPDF(name string) bool {
	return strings.HasSuffix(name, PDFExtension)
}
