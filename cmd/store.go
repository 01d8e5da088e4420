package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/triangle-intelligence/compliance-cli/internal/qualification"
	"github.com/triangle-intelligence/compliance-cli/internal/resolver"
	"github.com/triangle-intelligence/compliance-cli/internal/tariffstore"
	"github.com/triangle-intelligence/compliance-cli/internal/thresholds"
)

// openStore opens the configured policy tariff store backend.
func openStore(ctx context.Context) (tariffstore.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return tariffstore.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite":
		return tariffstore.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newResolver builds the rate resolver from config.
func newResolver(store tariffstore.Store) *resolver.Resolver {
	return resolver.New(store, cfg.Resolver.StaleAfterDays)
}

// loadThresholds returns the configured RVC table, or the built-in one.
func loadThresholds() (*thresholds.Table, error) {
	if cfg.Thresholds.Path == "" {
		return thresholds.DefaultTable(), nil
	}
	return thresholds.Load(cfg.Thresholds.Path)
}

// engineParams assembles qualification parameters from config. The RVC
// threshold comes from the table keyed by the product's HS code when one
// is supplied, otherwise the configured default.
func engineParams(table *thresholds.Table, productHS string, shipmentValueUSD float64) (qualification.Params, error) {
	threshold := cfg.Qualification.RVCThresholdPct
	if productHS != "" {
		threshold = table.ForHSCode(productHS)
	}

	review, err := cfg.Qualification.ReviewTime()
	if err != nil {
		return qualification.Params{}, err
	}

	return qualification.Params{
		Threshold:               threshold,
		BufferMargin:            cfg.Qualification.BufferMarginPct,
		CountryConcentrationPct: cfg.Qualification.CountryConcentrationPct,
		ComponentDominancePct:   cfg.Qualification.ComponentDominancePct,
		MaterialityUSD:          cfg.Qualification.MaterialityUSD,
		ShipmentValueUSD:        shipmentValueUSD,
		ReviewDate:              review,
	}, nil
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
