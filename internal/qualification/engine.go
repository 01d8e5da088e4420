// Package qualification evaluates a bill of materials against USMCA
// regional-value-content rules and produces risk alerts for the result.
package qualification

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
	"github.com/triangle-intelligence/compliance-cli/internal/resolver"
)

// shareTolerancePct is how far a BOM's value-share sum may drift from 100
// before a data-quality warning is attached.
const shareTolerancePct = 1.0

// Params carries every threshold the engine applies. All of these are
// legally or strategically determined and change over time, so they are
// supplied per call rather than compiled in.
type Params struct {
	// Threshold is the RVC percentage the product must meet (inclusive).
	Threshold float64
	// BufferMargin is how many points above Threshold still count as a
	// thin buffer worth flagging.
	BufferMargin float64
	// CountryConcentrationPct flags any single origin country holding
	// more than this share of total value.
	CountryConcentrationPct float64
	// ComponentDominancePct flags any single component holding more than
	// this share of total value.
	ComponentDominancePct float64
	// MaterialityUSD is the exposure floor below which policy-threat
	// alerts are suppressed.
	MaterialityUSD float64
	// ShipmentValueUSD converts value shares into dollar exposure. Zero
	// disables exposure alerts.
	ShipmentValueUSD float64
	// ReviewDate, when set, is the next treaty review milestone used to
	// stamp days_until on time-sensitive alerts.
	ReviewDate *time.Time
}

// Engine computes qualification verdicts. Duty-exposure estimates in the
// generated alerts come from the rate resolver.
type Engine struct {
	resolver *resolver.Resolver
	now      time.Time
}

// New creates an Engine backed by the given resolver.
func New(r *resolver.Resolver) *Engine {
	return &Engine{resolver: r, now: time.Now()}
}

// WithNow sets a fixed time for testing.
func (e *Engine) WithNow(t time.Time) *Engine {
	e.now = t
	return e
}

// Evaluate computes RVC for the BOM, decides qualification against the
// supplied threshold, and runs the alert rules. An empty or zero-value BOM
// yields an insufficient-data result rather than a verdict from degenerate
// math. Components whose rates cannot be resolved reduce the quality of
// the exposure estimates but never block the qualification verdict itself.
func (e *Engine) Evaluate(ctx context.Context, components []model.Component, p Params) (*model.QualificationResult, error) {
	res := &model.QualificationResult{
		ThresholdUsed: p.Threshold,
		Alerts:        []model.Alert{},
	}

	var total, usmca float64
	for _, c := range components {
		total += c.ValueShare
		if model.IsUSMCA(c.OriginCountry) {
			usmca += c.ValueShare
		}
	}
	if len(components) == 0 || total == 0 {
		res.InsufficientData = true
		return res, nil
	}

	if math.Abs(total-100) > shareTolerancePct {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("component value shares sum to %.1f%%, expected ~100%%; RVC computed from shares as given", total))
	}

	res.RegionalValueContentPct = usmca / total * 100
	res.Qualifies = res.RegionalValueContentPct >= p.Threshold

	if a := e.bufferAlert(res.RegionalValueContentPct, p); a != nil {
		res.Alerts = append(res.Alerts, *a)
	}
	if a := e.countryConcentrationAlert(components, total, p); a != nil {
		res.Alerts = append(res.Alerts, *a)
	}
	if a := e.componentDominanceAlert(components, total, p); a != nil {
		res.Alerts = append(res.Alerts, *a)
	}

	exposure, warnings := e.exposureAlerts(ctx, components, p)
	res.Alerts = append(res.Alerts, exposure...)
	res.Warnings = append(res.Warnings, warnings...)

	model.SortAlerts(res.Alerts)
	return res, nil
}

// daysUntilReview returns the whole days between now and the configured
// review date, nil when unset or already past.
func (e *Engine) daysUntilReview(p Params) *int {
	if p.ReviewDate == nil {
		return nil
	}
	days := int(p.ReviewDate.Sub(e.now).Hours() / 24)
	if days < 0 {
		return nil
	}
	return &days
}

func logSkippedComponent(c model.Component, err error) {
	zap.L().Warn("skipping exposure estimate for component",
		zap.String("hs_code", c.HSCode),
		zap.String("origin", c.OriginCountry),
		zap.Error(err))
}
