package qualification

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// bufferAlert flags products that qualify with little room to spare. A
// buffer under 5 points means a single supplier change could tip the
// product out of qualification.
func (e *Engine) bufferAlert(rvc float64, p Params) *model.Alert {
	if p.BufferMargin <= 0 || rvc < p.Threshold || rvc >= p.Threshold+p.BufferMargin {
		return nil
	}

	buffer := rvc - p.Threshold
	severity := model.SeverityMedium
	urgency := model.UrgencyMonitor
	if buffer < 5 {
		severity = model.SeverityHigh
		urgency = model.UrgencyNearTerm
	}
	return &model.Alert{
		Type:     model.AlertStrategicRisk,
		Title:    "RVC buffer is thin",
		Severity: severity,
		Urgency:  urgency,
		Description: fmt.Sprintf(
			"regional value content %.1f%% clears the %.1f%% threshold by only %.1f points",
			rvc, p.Threshold, buffer),
		ImpactPercentage: buffer,
		Action:           "increase USMCA-origin content before the next sourcing change erodes the margin",
		DaysUntil:        e.daysUntilReview(p),
	}
}

// countryConcentrationAlert flags the single largest origin country whose
// aggregate share exceeds the configured cutoff. One alert covers the
// country no matter how many components contribute to it.
func (e *Engine) countryConcentrationAlert(components []model.Component, total float64, p Params) *model.Alert {
	if p.CountryConcentrationPct <= 0 {
		return nil
	}

	type bucket struct {
		share      float64
		hsCodes    []string
		components []string
	}
	byCountry := make(map[string]*bucket)
	for _, c := range components {
		country := strings.ToUpper(strings.TrimSpace(c.OriginCountry))
		b, ok := byCountry[country]
		if !ok {
			b = &bucket{}
			byCountry[country] = b
		}
		b.share += c.ValueShare
		b.hsCodes = append(b.hsCodes, c.HSCode)
		if c.Description != "" {
			b.components = append(b.components, c.Description)
		}
	}

	var worst string
	var worstShare float64
	for country, b := range byCountry {
		sharePct := b.share / total * 100
		if sharePct > p.CountryConcentrationPct && sharePct > worstShare {
			worst, worstShare = country, sharePct
		}
	}
	if worst == "" {
		return nil
	}

	b := byCountry[worst]
	severity := model.SeverityMedium
	if worstShare >= 70 {
		severity = model.SeverityHigh
	}
	return &model.Alert{
		Type:     model.AlertDiversificationRisk,
		Title:    fmt.Sprintf("sourcing concentrated in %s", worst),
		Severity: severity,
		Urgency:  model.UrgencyNearTerm,
		Description: fmt.Sprintf(
			"%s supplies %.1f%% of product value across %d components, above the %.1f%% concentration limit",
			worst, worstShare, len(b.hsCodes), p.CountryConcentrationPct),
		AffectedCountries:  []string{worst},
		AffectedHSCodes:    b.hsCodes,
		AffectedComponents: b.components,
		ImpactPercentage:   worstShare,
		Action:             "qualify an alternate supplier outside " + worst,
	}
}

// componentDominanceAlert flags the single largest component exceeding the
// dominance cutoff. A dominant part is a different operational risk than a
// dominant country: the mitigation is a second source for that part.
func (e *Engine) componentDominanceAlert(components []model.Component, total float64, p Params) *model.Alert {
	if p.ComponentDominancePct <= 0 {
		return nil
	}

	var worst *model.Component
	var worstShare float64
	for i, c := range components {
		sharePct := c.ValueShare / total * 100
		if sharePct > p.ComponentDominancePct && sharePct > worstShare {
			worst, worstShare = &components[i], sharePct
		}
	}
	if worst == nil {
		return nil
	}

	severity := model.SeverityMedium
	if worstShare >= 50 {
		severity = model.SeverityHigh
	}
	name := worst.Description
	if name == "" {
		name = worst.HSCode
	}
	return &model.Alert{
		Type:     model.AlertConcentrationRisk,
		Title:    "single component dominates product value",
		Severity: severity,
		Urgency:  model.UrgencyMonitor,
		Description: fmt.Sprintf(
			"%s accounts for %.1f%% of product value, above the %.1f%% dominance limit",
			name, worstShare, p.ComponentDominancePct),
		AffectedCountries:  []string{strings.ToUpper(strings.TrimSpace(worst.OriginCountry))},
		AffectedHSCodes:    []string{worst.HSCode},
		AffectedComponents: []string{name},
		ImpactPercentage:   worstShare,
		Action:             "develop a second source for " + name,
	}
}

// exposureAlerts prices each non-USMCA component's overlay burden and
// surfaces a policy-threat alert per component whose dollar exposure
// clears the materiality floor. Resolution failures are logged and
// recorded as warnings; they never block the verdict.
func (e *Engine) exposureAlerts(ctx context.Context, components []model.Component, p Params) ([]model.Alert, []string) {
	if p.ShipmentValueUSD <= 0 {
		return nil, nil
	}

	var alerts []model.Alert
	var warnings []string
	for _, c := range components {
		if model.IsUSMCA(c.OriginCountry) {
			continue
		}

		rates, err := e.resolver.ResolveAllPolicyRates(ctx, c.HSCode, c.OriginCountry)
		if err != nil {
			logSkippedComponent(c, err)
			warnings = append(warnings,
				fmt.Sprintf("exposure estimate unavailable for %s (%s): rate lookup failed", c.HSCode, c.OriginCountry))
			continue
		}
		if rates.TotalPolicyRate == 0 {
			continue
		}

		exposure := c.ValueShare / 100 * p.ShipmentValueUSD * rates.TotalPolicyRate
		if exposure < p.MaterialityUSD {
			continue
		}

		name := c.Description
		if name == "" {
			name = c.HSCode
		}
		desc := fmt.Sprintf(
			"%s from %s carries an estimated $%.0f in overlay duties (%.1f%% stacked rate on %.1f%% of value)",
			name, strings.ToUpper(strings.TrimSpace(c.OriginCountry)), exposure,
			rates.TotalPolicyRate*100, c.ValueShare)
		if rates.OverallConfidence < model.ConfidenceHeading {
			desc += "; estimate based on low-confidence rate data"
		}

		severity := model.SeverityMedium
		urgency := model.UrgencyNearTerm
		if exposure >= p.MaterialityUSD*5 {
			severity = model.SeverityHigh
			urgency = model.UrgencyImmediate
		}
		alerts = append(alerts, model.Alert{
			Type:                 model.AlertPolicyThreat,
			Title:                fmt.Sprintf("overlay duty exposure on %s", name),
			Severity:             severity,
			Urgency:              urgency,
			Description:          desc,
			AffectedCountries:    []string{strings.ToUpper(strings.TrimSpace(c.OriginCountry))},
			AffectedHSCodes:      []string{c.HSCode},
			AffectedComponents:   []string{name},
			EstimatedExposureUSD: exposure,
			Action:               "evaluate USMCA-origin substitution or tariff engineering for " + name,
			DaysUntil:            e.daysUntilReview(p),
		})
	}

	// Deterministic order within the tier before the global sort.
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].EstimatedExposureUSD > alerts[j].EstimatedExposureUSD
	})
	return alerts, warnings
}
