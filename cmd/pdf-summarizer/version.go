package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.outputJSON {
				return writeJSON(a, map[string]string{
					"version": version,
					"go":      runtime.Version(),
				})
			}
			fmt.Fprintf(a.ui.Out(), "pdf-summarizer v%s (%s)\n", version, runtime.Version())
			return nil
		},
	}
}
