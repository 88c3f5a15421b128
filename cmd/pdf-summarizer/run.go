package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spherical/pdf-summarizer/internal/metrics"
	"github.com/spherical/pdf-summarizer/internal/pipeline"
	"github.com/spherical/pdf-summarizer/internal/ui"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		batchSize      int
		outputDir      string
		printSummaries bool
	)

	cmd := &cobra.Command{
		Use:   "run [directory]",
		Short: "Summarize every PDF in a directory",
		Long: `Process every *.pdf file in the directory in batches.

Each document gets a <name>_summary.txt file, a metadata record in the
configured store and a "Performance metrics for <name>" log line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Pipeline.InputDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no input directory: pass one or set pipeline.input_dir")
			}
			if batchSize > 0 {
				a.cfg.Pipeline.BatchSize = batchSize
			}
			if outputDir == "" {
				outputDir = a.cfg.Pipeline.OutputDir
			}
			if outputDir != "" {
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runPipeline(ctx, a, dir, outputDir, printSummaries)
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "documents per batch (overrides config)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for summary files (default: next to each PDF)")
	cmd.Flags().BoolVar(&printSummaries, "print", false, "echo summaries and keywords of each processed document")

	return cmd
}

func runPipeline(ctx context.Context, a *app, dir, outputDir string, printSummaries bool) error {
	logger := a.logger

	if total, available, err := metrics.SystemMemory(); err == nil {
		logger.Debug().
			Int64("total_mb", int64(total>>20)).
			Int64("available_mb", int64(available>>20)).
			Msg("System memory")
	}

	spin := ui.NewSpinner(a.ui.ErrOut(), fmt.Sprintf("Connecting to %s store...", a.cfg.Store.Driver))
	if a.showProgress() {
		spin.Start()
	}
	comps, err := buildComponents(ctx, a.cfg, outputDir, logger)
	spin.Stop()
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to close resources")
		}
	}()

	processor := pipeline.NewProcessor(comps.deps, pipeline.Options{
		MaxInputChars:       a.cfg.Pipeline.MaxInputChars,
		KeywordTopN:         a.cfg.Pipeline.KeywordTopN,
		ConcurrentSummaries: a.cfg.Pipeline.ConcurrentSummaries,
		WorkerTimeout:       a.cfg.Pipeline.WorkerTimeout,
		Budgets:             a.cfg.SummaryBudgets(),
	})
	scheduler := pipeline.NewScheduler(processor, pipeline.SchedulerConfig{
		BatchSize:  a.cfg.Pipeline.BatchSize,
		SortInputs: a.cfg.Pipeline.SortInputs,
	}, logger)

	var onResult func(pipeline.Event)
	if printSummaries {
		onResult = func(e pipeline.Event) {
			if r := e.Result; r != nil && r.Succeeded() {
				a.ui.Summaries(r.Document.Name, r.Success.Summaries, r.Success.Keywords)
			}
		}
	}

	events := make(chan pipeline.Event, 256)
	scheduler.WithEvents(events)

	var bar *ui.ProgressBar
	if a.showProgress() {
		bar = ui.NewProgressBar(a.ui.ErrOut(), -1, "processing")
	}
	done := ui.TrackRun(events, bar, onResult)

	summary, err := scheduler.Run(ctx, dir)
	close(events)
	<-done
	if err != nil {
		return err
	}

	if comps.corpus != nil && a.cfg.Keywords.CorpusPath != "" {
		if err := comps.corpus.Save(a.cfg.Keywords.CorpusPath); err != nil {
			logger.Warn().Err(err).Str("path", a.cfg.Keywords.CorpusPath).Msg("Failed to save keyword corpus")
		}
	}

	if a.outputJSON {
		return writeJSON(a, summary)
	}
	a.ui.RunSummary(summary)
	return nil
}

// showProgress reports whether interactive progress output fits this run.
// Console logging and JSON output both own the terminal.
func (a *app) showProgress() bool {
	return !a.outputJSON && !a.cfg.Logging.Console && !color.NoColor
}
