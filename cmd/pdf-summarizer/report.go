package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-summarizer/internal/report"
)

func newReportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "report [log-file]",
		Short: "Build a performance report from pipeline logs",
		Long: `Scan a pipeline log for "Performance metrics for <name>" lines and write
the records as JSON and CSV. Both files share the base name of --output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := a.cfg.Logging.File
			if len(args) == 1 {
				logPath = args[0]
			}
			if logPath == "" {
				return fmt.Errorf("no log file: pass one or set logging.file")
			}

			records, err := report.Aggregate(logPath)
			if err != nil {
				return err
			}
			jsonPath, csvPath, err := report.Save(records, output)
			if err != nil {
				return err
			}
			a.logger.Info().
				Int("records", len(records)).
				Str("json", jsonPath).
				Str("csv", csvPath).
				Msgf("Performance report generated: %s and %s", jsonPath, csvPath)

			stats := report.Stats(records)
			if a.outputJSON {
				return writeJSON(a, map[string]interface{}{
					"records": len(records),
					"json":    jsonPath,
					"csv":     csvPath,
					"stats":   stats,
				})
			}

			a.ui.Success("Performance report generated: %s and %s", jsonPath, csvPath)
			if len(records) == 0 {
				a.ui.Warning("No performance metrics found in %s", logPath)
				return nil
			}
			a.ui.Section(fmt.Sprintf("%d documents", len(records)))
			a.ui.ReportStats(stats)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "performance_report.json", "report path; the CSV is written next to it")
	return cmd
}
