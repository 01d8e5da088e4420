// Package savings estimates the annual duty saved by routing imports
// through a USMCA-qualified Mexico or Canada assembly step instead of
// importing directly under the current overlay regimes.
package savings

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
	"github.com/triangle-intelligence/compliance-cli/internal/resolver"
)

// conservativeHaircut discounts the headline savings figure when the rate
// data behind it resolved below heading-level confidence.
const conservativeHaircut = 0.75

// Input describes one product lane to price.
type Input struct {
	HSCode               string  `json:"hs_code"`
	OriginCountry        string  `json:"origin_country"`
	AnnualImportValueUSD float64 `json:"annual_import_value_usd"`
	// Qualifies is the USMCA verdict for the routed product. Routing only
	// eliminates overlay duties when the finished product qualifies.
	Qualifies bool `json:"qualifies"`
}

// Estimate is the priced outcome for one lane.
type Estimate struct {
	CurrentAnnualDutyUSD   float64  `json:"current_annual_duty_usd"`
	ProjectedAnnualDutyUSD float64  `json:"projected_annual_duty_usd"`
	AnnualSavingsUSD       float64  `json:"annual_savings_usd"`
	EffectiveRate          float64  `json:"effective_rate"`
	Confidence             int      `json:"confidence"`
	Conservative           bool     `json:"conservative"`
	Notes                  []string `json:"notes,omitempty"`
}

// Calculator prices lanes using resolved overlay rates.
type Calculator struct {
	resolver *resolver.Resolver
}

// New creates a Calculator backed by the given resolver.
func New(r *resolver.Resolver) *Calculator {
	return &Calculator{resolver: r}
}

// Estimate resolves the stacked overlay burden for the lane and prices
// the routing opportunity. A lane that does not qualify saves nothing;
// low-confidence rate data gets a conservative haircut so the headline
// number is defensible.
func (c *Calculator) Estimate(ctx context.Context, in Input) (*Estimate, error) {
	if in.AnnualImportValueUSD <= 0 {
		return nil, eris.Errorf("savings: annual import value must be positive, got %.2f", in.AnnualImportValueUSD)
	}

	rates, err := c.resolver.ResolveAllPolicyRates(ctx, in.HSCode, in.OriginCountry)
	if err != nil {
		return nil, eris.Wrapf(err, "savings: resolve rates %s/%s", in.HSCode, in.OriginCountry)
	}

	est := &Estimate{
		EffectiveRate: rates.TotalPolicyRate,
		Confidence:    rates.OverallConfidence,
	}
	est.CurrentAnnualDutyUSD = in.AnnualImportValueUSD * rates.TotalPolicyRate
	est.ProjectedAnnualDutyUSD = est.CurrentAnnualDutyUSD

	if rates.OverallConfidence == model.ConfidenceNone {
		est.Notes = append(est.Notes, "no overlay rate data resolved; savings cannot be estimated")
		return est, nil
	}
	if !in.Qualifies {
		est.Notes = append(est.Notes, "product does not qualify for USMCA; routing saves nothing until content is restructured")
		return est, nil
	}

	est.ProjectedAnnualDutyUSD = 0
	est.AnnualSavingsUSD = est.CurrentAnnualDutyUSD

	if rates.OverallConfidence < model.ConfidenceHeading {
		est.Conservative = true
		est.AnnualSavingsUSD *= conservativeHaircut
		est.Notes = append(est.Notes, fmt.Sprintf(
			"rate data resolved at confidence %d; savings discounted to %.0f%% of the headline figure",
			rates.OverallConfidence, conservativeHaircut*100))
	}

	return est, nil
}
