package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

var (
	resolveHS     string
	resolveOrigin string
	resolveField  string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one overlay rate through the fallback cascade",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer store.Close() //nolint:errcheck

		res, err := newResolver(store).ResolveRate(ctx, resolveHS, resolveOrigin, model.RateField(resolveField))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveHS, "hs", "", "HS code (required)")
	resolveCmd.Flags().StringVar(&resolveOrigin, "origin", "", "origin country code (empty = blanket only)")
	resolveCmd.Flags().StringVar(&resolveField, "field", string(model.Section301), "overlay regime: SECTION_301, SECTION_232, SECTION_201, RECIPROCAL")
	_ = resolveCmd.MarkFlagRequired("hs")
	rootCmd.AddCommand(resolveCmd)
}
