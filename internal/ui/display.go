package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/report"
)

// UI provides user-friendly output utilities.
type UI struct {
	out      io.Writer
	errOut   io.Writer
	noColor  bool
	jsonMode bool
}

// New creates a UI writing to out and errOut.
func New(out, errOut io.Writer, jsonMode, noColor bool) *UI {
	return &UI{out: out, errOut: errOut, jsonMode: jsonMode, noColor: noColor}
}

// Out returns the writer for command output.
func (ui *UI) Out() io.Writer { return ui.out }

// ErrOut returns the writer for diagnostics and progress.
func (ui *UI) ErrOut() io.Writer { return ui.errOut }

func (ui *UI) print(w io.Writer, attr color.Attribute, prefix, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	msg := fmt.Sprintf("%s %s\n", prefix, fmt.Sprintf(format, args...))
	if ui.noColor {
		fmt.Fprint(w, msg)
		return
	}
	_, _ = color.New(attr).Fprint(w, msg)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.print(ui.out, color.FgGreen, "✓", format, args...)
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	ui.print(ui.errOut, color.FgRed, "✗", format, args...)
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.print(ui.out, color.FgYellow, "⚠", format, args...)
}

// Info prints an informational message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.print(ui.out, color.FgCyan, "ℹ", format, args...)
}

// Section displays a section header.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintf(ui.out, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
}

// Table displays data in a formatted table.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode {
		return
	}
	w := tabwriter.NewWriter(ui.out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// Summaries echoes a processed document's summaries and keywords.
func (ui *UI) Summaries(name string, s domain.Summaries, keywords []string) {
	if ui.jsonMode {
		return
	}
	rule := strings.Repeat("=", 50)
	fmt.Fprintln(ui.out, rule)
	fmt.Fprintf(ui.out, "Summaries of %s:\n", name)
	fmt.Fprintln(ui.out, rule)
	fmt.Fprintf(ui.out, "Short Summary:\n'%s'\n\n", s.Short)
	fmt.Fprintf(ui.out, "Medium Summary:\n'%s'\n\n", s.Medium)
	fmt.Fprintf(ui.out, "Long Summary:\n'%s'\n\n", s.Long)
	fmt.Fprintln(ui.out, "Keywords extracted:")
	fmt.Fprintln(ui.out, strings.Join(keywords, ", "))
	fmt.Fprintln(ui.out, rule)
}

// RunSummary prints the outcome of a batch run.
func (ui *UI) RunSummary(s *domain.BatchRunSummary) {
	ui.Section("Run summary")
	ui.Table(
		[]string{"Run", "Documents", "Succeeded", "Failed", "Batches", "Wall clock"},
		[][]string{{
			s.RunID,
			fmt.Sprint(s.TotalDocuments),
			fmt.Sprint(s.Successes()),
			fmt.Sprint(len(s.Failures)),
			fmt.Sprint(s.Batches),
			fmt.Sprintf("%.2fs", s.WallClockSeconds),
		}},
	)

	if len(s.Failures) == 0 {
		ui.Success("All %d documents processed", s.TotalDocuments)
		return
	}
	for _, name := range s.FailedDocuments() {
		kind := s.Failures[name]
		ui.Error("%s: %s (%s)", name, kind, kind.Description())
	}
}

// ReportStats prints per-metric aggregates.
func (ui *UI) ReportStats(stats []report.MetricStats) {
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{s.Name, fmt.Sprint(s.Count), formatStat(s.Name, s.Mean), formatStat(s.Name, s.Max)}
	}
	ui.Table([]string{"Metric", "Count", "Mean", "Max"}, rows)
}

func formatStat(name string, v float64) string {
	if name == "memory_usage" {
		return fmt.Sprintf("%.1f MB", v/(1<<20))
	}
	return fmt.Sprintf("%.3fs", v)
}
