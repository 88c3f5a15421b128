package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-summarizer/internal/storage"
)

func newDocsCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List document metadata in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := storage.Open(ctx, a.cfg.Store)
			if err != nil {
				return fmt.Errorf("open %s store: %w", a.cfg.Store.Driver, err)
			}
			defer store.Close(ctx)

			if name != "" {
				meta, err := store.FindByName(ctx, name)
				if err != nil {
					return fmt.Errorf("find %s: %w", name, err)
				}
				if a.outputJSON {
					return writeJSON(a, meta)
				}
				a.ui.Section(meta.Name)
				a.ui.Info("Processed at %s", meta.ProcessedAt.Format(time.RFC3339))
				a.ui.Info("Keywords: %s", strings.Join(meta.Keywords, ", "))
				fmt.Fprintf(a.ui.Out(), "\nShort:\n%s\n\nMedium:\n%s\n\nLong:\n%s\n",
					meta.ShortSummary, meta.MediumSummary, meta.LongSummary)
				return nil
			}

			docs, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("list documents: %w", err)
			}
			if a.outputJSON {
				return writeJSON(a, docs)
			}
			if len(docs) == 0 {
				a.ui.Warning("No documents stored")
				return nil
			}
			rows := make([][]string, len(docs))
			for i, d := range docs {
				rows[i] = []string{d.Name, d.ProcessedAt.Format(time.RFC3339), strings.Join(d.Keywords, ", ")}
			}
			a.ui.Table([]string{"Name", "Processed", "Keywords"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "show a single document")
	return cmd
}

func writeJSON(a *app, v interface{}) error {
	enc := json.NewEncoder(a.ui.Out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
