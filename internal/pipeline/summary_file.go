package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// SummaryFileSuffix is appended to the document name to form the summary file name.
const SummaryFileSuffix = "_summary.txt"

var separator = strings.Repeat("=", 50)

// SummaryWriter writes the human-readable summary file of a document.
type SummaryWriter struct {
	dir string
}

// NewSummaryWriter creates a writer. An empty dir writes next to each PDF.
func NewSummaryWriter(dir string) *SummaryWriter {
	return &SummaryWriter{dir: dir}
}

// Path returns where the summary of unit is written.
func (w *SummaryWriter) Path(unit domain.DocumentUnit) string {
	dir := w.dir
	if dir == "" {
		dir = filepath.Dir(unit.Path)
	}
	return filepath.Join(dir, unit.Name+SummaryFileSuffix)
}

// Write renders and writes the summary file, returning its path.
func (w *SummaryWriter) Write(unit domain.DocumentUnit, summaries domain.Summaries, keywords []string) (string, error) {
	path := w.Path(unit)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(RenderSummary(unit.Name, summaries, keywords)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// RenderSummary formats the summary file body.
func RenderSummary(name string, summaries domain.Summaries, keywords []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summaries of %s:\n", name)
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Short Summary:\n%s\n\n", summaries.Short)
	fmt.Fprintf(&b, "Medium Summary:\n%s\n\n", summaries.Medium)
	fmt.Fprintf(&b, "Long Summary:\n%s\n\n", summaries.Long)
	b.WriteString("Keywords extracted:\n")
	b.WriteString(strings.Join(keywords, ", ") + "\n")
	return b.String()
}
