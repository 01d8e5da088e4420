package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	ratesHS     string
	ratesOrigin string
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Resolve all four overlay regimes for one HS code and origin",
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

		rates, err := newResolver(store).ResolveAllPolicyRates(ctx, ratesHS, ratesOrigin)
		if err != nil {
			return err
		}
		return printJSON(rates)
	},
}

func init() {
	ratesCmd.Flags().StringVar(&ratesHS, "hs", "", "HS code (required)")
	ratesCmd.Flags().StringVar(&ratesOrigin, "origin", "", "origin country code")
	_ = ratesCmd.MarkFlagRequired("hs")
	rootCmd.AddCommand(ratesCmd)
}
