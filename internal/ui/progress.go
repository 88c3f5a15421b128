// Package ui provides terminal output for the pdf-summarizer CLI.
package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"

	"github.com/spherical/pdf-summarizer/internal/pipeline"
)

// ProgressBar wraps a progressbar instance for deterministic progress display.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar with the given total and description.
func NewProgressBar(w io.Writer, total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Add advances the bar by n.
func (p *ProgressBar) Add(n int) {
	if p == nil {
		return
	}
	_ = p.bar.Add(n)
}

// SetTotal updates the total value of the progress bar.
func (p *ProgressBar) SetTotal(total int64) {
	if p == nil {
		return
	}
	p.bar.ChangeMax64(total)
}

// Describe replaces the description.
func (p *ProgressBar) Describe(description string) {
	if p == nil {
		return
	}
	p.bar.Describe(description)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(w io.Writer, message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = w
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	s.spinner.Suffix = " " + message
}

// TrackRun drives bar from scheduler events until the channel closes. A nil
// bar only forwards results. onResult,
// if set, is called for every finished document. The returned channel closes
// when events is drained.
func TrackRun(events <-chan pipeline.Event, bar *ProgressBar, onResult func(pipeline.Event)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			switch e.Type {
			case pipeline.EventRunStart:
				bar.SetTotal(int64(e.Total))
			case pipeline.EventBatchStart:
				bar.Describe(fmt.Sprintf("batch %d", e.Batch))
			case pipeline.EventDocumentComplete:
				bar.Add(1)
				if onResult != nil {
					onResult(e)
				}
			case pipeline.EventRunComplete:
				bar.Finish()
			}
		}
	}()
	return done
}
