package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-summarizer/internal/pdf"
	"github.com/spherical/pdf-summarizer/internal/textproc"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		outputPath string
		maxChars   int
	)

	cmd := &cobra.Command{
		Use:   "extract <pdf-file>",
		Short: "Extract the text of a single PDF",
		Long: `Run only the extraction stage on one PDF and write the text to a file,
or to stdout when --output is "-". Useful for checking what the
summarizer will see for a document.`,
		Example: `  pdf-summarizer extract brochure.pdf
  pdf-summarizer extract -o - --max-chars 2000 brochure.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath := args[0]
			if outputPath == "" {
				baseName := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
				outputPath = baseName + ".txt"
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			extractor, err := pdf.NewExtractor(a.cfg.Extractor.Backend, a.logger)
			if err != nil {
				return err
			}

			start := time.Now()
			text, err := extractor.Extract(ctx, pdfPath)
			if err != nil {
				return fmt.Errorf("extraction failed: %w", err)
			}
			text = textproc.Truncate(text, maxChars)
			elapsed := time.Since(start)
			a.logger.Info().Str("document", filepath.Base(pdfPath)).
				Msgf("Text extraction took: %.2f seconds", elapsed.Seconds())

			if outputPath == "-" {
				_, err := fmt.Fprint(a.ui.Out(), text)
				return err
			}
			if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
				return fmt.Errorf("write output file: %w", err)
			}
			a.ui.Success("Extracted %d words from %s to %s in %v",
				textproc.WordCount(text), pdfPath, outputPath, elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", `output file path, "-" for stdout (default: <input-name>.txt)`)
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "truncate the text to this many characters (0 keeps everything)")
	return cmd
}
