// Package metrics formats and records per-document performance metrics and
// samples process memory.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/observability"
)

// LinePrefix starts every performance metrics line.
const LinePrefix = "Performance metrics for "

// FormatLine renders the performance metrics line parsed by the report
// aggregator. Key order and names are fixed.
func FormatLine(name string, m domain.ProcessingMetrics) string {
	return fmt.Sprintf("%s%s: {'extraction_time': %s, 'summary_time': %s, "+
		"'keyword_extraction_time': %s, 'mongodb_insertion_time': %s, 'memory_usage': %d}",
		LinePrefix, name,
		formatSeconds(m.ExtractionTime),
		formatSeconds(m.SummaryTime),
		formatSeconds(m.KeywordExtractionTime),
		formatSeconds(m.StoreInsertionTime),
		m.MemoryUsage,
	)
}

// formatSeconds keeps a decimal point so values always read back as floats.
func formatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	for _, c := range s {
		if c == '.' {
			return s
		}
	}
	return s + ".0"
}

// Recorder emits the per-document metrics lines.
type Recorder struct {
	logger *observability.Logger
}

// NewRecorder creates a recorder writing to logger.
func NewRecorder(logger *observability.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Record logs the overall processing time of a document followed by its
// metrics line.
func (r *Recorder) Record(name string, m domain.ProcessingMetrics, elapsed time.Duration) {
	r.logger.Info().
		Str("document", name).
		Msgf("Overall processing time for %s: %.2f seconds", name, elapsed.Seconds())

	r.logger.Info().
		Str("document", name).
		Int64("memory_usage", m.MemoryUsage).
		Msg(FormatLine(name, m))
}
