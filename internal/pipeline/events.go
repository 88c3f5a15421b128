package pipeline

import (
	"time"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// EventType represents the type of run event
type EventType string

const (
	EventRunStart         EventType = "run_start"
	EventBatchStart       EventType = "batch_start"
	EventDocumentComplete EventType = "document_complete"
	EventRunComplete      EventType = "run_complete"
)

// Event is emitted by the scheduler while a run progresses.
type Event struct {
	Type      EventType
	Batch     int                      // 1-based batch number, batch events only
	Total     int                      // documents in the run, run_start only
	Documents []string                 // batch members, batch_start only
	Result    *domain.ProcessingResult // document_complete only
	Summary   *domain.BatchRunSummary  // run_complete only
	Timestamp time.Time
}
