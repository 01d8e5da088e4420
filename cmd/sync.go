package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triangle-intelligence/compliance-cli/internal/ingest"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull configured overlay tables into the policy tariff store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		fetcher := ingest.NewFetcher(ingest.FetcherOptions{
			RequestsPerSecond: cfg.Ingest.RequestsPerSecond,
			MaxRetries:        cfg.Ingest.MaxRetries,
		})

		sources := make([]ingest.Source, len(cfg.Ingest.Sources))
		for i, s := range cfg.Ingest.Sources {
			sources[i] = ingest.Source{Name: s.Name, URL: s.URL}
		}

		stats, err := ingest.NewSyncer(fetcher, store).Sync(ctx, sources)
		if err != nil {
			return err
		}

		zap.L().Info("sync complete",
			zap.Int("sources", stats.Sources),
			zap.Int("unchanged", stats.Unchanged),
			zap.Int("rows", stats.Rows),
			zap.Int64("upserted", stats.Upserted),
			zap.Int("warnings", len(stats.Warnings)),
		)
		return printJSON(stats)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
