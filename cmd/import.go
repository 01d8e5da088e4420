package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triangle-intelligence/compliance-cli/internal/ingest"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a local overlay rate CSV into the policy tariff store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrapf(err, "open %s", importCSVPath)
		}
		defer f.Close() //nolint:errcheck

		parsed, err := ingest.ParseOverlayCSV(f)
		if err != nil {
			return err
		}
		for _, w := range parsed.Warnings {
			zap.L().Warn("import: " + w)
		}

		store, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := store.Upsert(ctx, parsed.Records)
		if err != nil {
			return eris.Wrap(err, "upsert records")
		}

		zap.L().Info("import complete",
			zap.Int64("upserted", n),
			zap.Int("skipped", len(parsed.Warnings)),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to overlay CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
