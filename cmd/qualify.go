package main

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triangle-intelligence/compliance-cli/internal/alerting"
	"github.com/triangle-intelligence/compliance-cli/internal/bom"
	"github.com/triangle-intelligence/compliance-cli/internal/model"
	"github.com/triangle-intelligence/compliance-cli/internal/qualification"
)

var (
	qualifyBOMPath       string
	qualifyProductHS     string
	qualifyThreshold     float64
	qualifyShipmentValue float64
	qualifyNotify        bool
)

var qualifyCmd = &cobra.Command{
	Use:   "qualify",
	Short: "Evaluate a bill of materials for USMCA qualification",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		parsed, err := bom.ReadFile(qualifyBOMPath)
		if err != nil {
			return err
		}
		for _, w := range parsed.Warnings {
			zap.L().Warn("bom: "+w, zap.String("file", qualifyBOMPath))
		}

		store, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer store.Close() //nolint:errcheck

		table, err := loadThresholds()
		if err != nil {
			return err
		}
		params, err := engineParams(table, qualifyProductHS, qualifyShipmentValue)
		if err != nil {
			return err
		}
		if qualifyThreshold > 0 {
			params.Threshold = qualifyThreshold
		}

		engine := qualification.New(newResolver(store))
		result, err := engine.Evaluate(ctx, parsed.Components, params)
		if err != nil {
			return err
		}

		analysisID := uuid.NewString()
		if qualifyNotify && len(result.Alerts) > 0 {
			sent := alerting.NewNotifier(cfg.Alerting.WebhookURL).Send(ctx, analysisID, result.Alerts)
			zap.L().Info("alerts delivered",
				zap.String("analysis_id", analysisID),
				zap.Int("sent", sent),
				zap.Int("total", len(result.Alerts)),
			)
		}

		return printJSON(struct {
			AnalysisID string `json:"analysis_id"`
			*model.QualificationResult
			BOMWarnings []string `json:"bom_warnings,omitempty"`
		}{analysisID, result, parsed.Warnings})
	},
}

func init() {
	qualifyCmd.Flags().StringVar(&qualifyBOMPath, "bom", "", "bill of materials file: .csv, .xlsx, or .json (required)")
	qualifyCmd.Flags().StringVar(&qualifyProductHS, "product-hs", "", "finished product HS code, used to pick the RVC threshold")
	qualifyCmd.Flags().Float64Var(&qualifyThreshold, "threshold", 0, "override RVC threshold percentage")
	qualifyCmd.Flags().Float64Var(&qualifyShipmentValue, "shipment-value", 0, "annual shipment value in USD for exposure estimates")
	qualifyCmd.Flags().BoolVar(&qualifyNotify, "notify", false, "deliver generated alerts to the configured webhook")
	_ = qualifyCmd.MarkFlagRequired("bom")
	rootCmd.AddCommand(qualifyCmd)
}
