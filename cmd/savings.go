package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/triangle-intelligence/compliance-cli/internal/savings"
)

var (
	savingsHS          string
	savingsOrigin      string
	savingsAnnualValue float64
	savingsQualifies   bool
)

var savingsCmd = &cobra.Command{
	Use:   "savings",
	Short: "Estimate annual duty saved by USMCA triangle routing",
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

		est, err := savings.New(newResolver(store)).Estimate(ctx, savings.Input{
			HSCode:               savingsHS,
			OriginCountry:        savingsOrigin,
			AnnualImportValueUSD: savingsAnnualValue,
			Qualifies:            savingsQualifies,
		})
		if err != nil {
			return err
		}
		return printJSON(est)
	},
}

func init() {
	savingsCmd.Flags().StringVar(&savingsHS, "hs", "", "HS code (required)")
	savingsCmd.Flags().StringVar(&savingsOrigin, "origin", "", "current origin country (required)")
	savingsCmd.Flags().Float64Var(&savingsAnnualValue, "annual-value", 0, "annual import value in USD (required)")
	savingsCmd.Flags().BoolVar(&savingsQualifies, "qualifies", false, "whether the routed product qualifies for USMCA")
	_ = savingsCmd.MarkFlagRequired("hs")
	_ = savingsCmd.MarkFlagRequired("origin")
	_ = savingsCmd.MarkFlagRequired("annual-value")
	rootCmd.AddCommand(savingsCmd)
}
