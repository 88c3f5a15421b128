// Package main provides the pdf-summarizer CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spherical/pdf-summarizer/internal/config"
	"github.com/spherical/pdf-summarizer/internal/observability"
	"github.com/spherical/pdf-summarizer/internal/ui"
)

const version = "1.0.0"

// app holds state shared by every subcommand.
type app struct {
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	cfg    *config.Config
	logger *observability.Logger
	ui     *ui.UI
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pdf-summarizer",
		Short: "Batch PDF summarization and keyword extraction",
		Long: `pdf-summarizer processes a directory of PDF files in fixed-size batches.

For every document it extracts the text, writes short, medium and long
summaries, ranks keywords, stores the metadata and logs performance metrics.
The report command turns those metrics into JSON and CSV reports.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a.cfg, err = config.Load(a.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if a.verbose {
				a.cfg.Logging.Level = "debug"
			}
			if a.outputJSON {
				a.cfg.Logging.Format = "json"
			}

			a.logger = observability.NewLogger(observability.LogConfig{
				Level:       a.cfg.Logging.Level,
				Format:      a.cfg.Logging.Format,
				File:        a.cfg.Logging.File,
				MaxSizeMB:   a.cfg.Logging.MaxSizeMB,
				MaxBackups:  a.cfg.Logging.MaxBackups,
				Console:     a.cfg.Logging.Console && !a.outputJSON,
				ServiceName: "pdf-summarizer",
			})
			a.ui = ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.outputJSON, color.NoColor)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path (default: defaults plus env vars)")
	rootCmd.PersistentFlags().BoolVar(&a.outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newExtractCmd(a))
	rootCmd.AddCommand(newReportCmd(a))
	rootCmd.AddCommand(newDocsCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
