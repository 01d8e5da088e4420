package qualification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
	"github.com/triangle-intelligence/compliance-cli/internal/resolver"
	"github.com/triangle-intelligence/compliance-cli/internal/tariffstore"
)

func rate(v float64) *float64 { return &v }

func emptyEngine(t *testing.T) *Engine {
	t.Helper()
	return New(resolver.New(tariffstore.NewMemory(), 0))
}

func seededEngine(t *testing.T, records ...model.PolicyTariffRecord) *Engine {
	t.Helper()
	s := tariffstore.NewMemory()
	_, err := s.Upsert(context.Background(), records)
	require.NoError(t, err)
	return New(resolver.New(s, 0))
}

func baseParams() Params {
	return Params{
		Threshold:               62.5,
		BufferMargin:            7.5,
		CountryConcentrationPct: 50,
		ComponentDominancePct:   30,
		MaterialityUSD:          10000,
	}
}

func alertsOfType(alerts []model.Alert, typ model.AlertType) []model.Alert {
	var out []model.Alert
	for _, a := range alerts {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

// The qualification boundary is inclusive: exactly on the threshold
// qualifies.
func TestEvaluate_RVCBoundaryInclusive(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 40, HSCode: "85444200"},
		{OriginCountry: "MX", ValueShare: 22.5, HSCode: "85011000"},
		{OriginCountry: "CN", ValueShare: 37.5, HSCode: "73269070"},
	}

	res, err := emptyEngine(t).Evaluate(context.Background(), components, baseParams())
	require.NoError(t, err)

	assert.False(t, res.InsufficientData)
	assert.InDelta(t, 62.5, res.RegionalValueContentPct, 1e-9)
	assert.True(t, res.Qualifies)
	assert.Equal(t, 62.5, res.ThresholdUsed)
}

func TestEvaluate_EmptyBOM(t *testing.T) {
	res, err := emptyEngine(t).Evaluate(context.Background(), nil, baseParams())
	require.NoError(t, err)

	assert.True(t, res.InsufficientData)
	assert.False(t, res.Qualifies)
	assert.Zero(t, res.RegionalValueContentPct)
	assert.Empty(t, res.Alerts)
}

func TestEvaluate_ZeroValueBOM(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 0, HSCode: "85444200"},
	}
	res, err := emptyEngine(t).Evaluate(context.Background(), components, baseParams())
	require.NoError(t, err)
	assert.True(t, res.InsufficientData)
}

// One country over the concentration cutoff yields exactly one alert no
// matter how many components contribute to its total.
func TestEvaluate_CountryConcentrationSingleAlert(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "CN", ValueShare: 30, HSCode: "85444200", Description: "wiring harness"},
		{OriginCountry: "CN", ValueShare: 25, HSCode: "73269070", Description: "steel bracket"},
		{OriginCountry: "US", ValueShare: 45, HSCode: "85011000", Description: "motor"},
	}

	res, err := emptyEngine(t).Evaluate(context.Background(), components, baseParams())
	require.NoError(t, err)

	diversification := alertsOfType(res.Alerts, model.AlertDiversificationRisk)
	require.Len(t, diversification, 1)
	a := diversification[0]
	assert.Equal(t, []string{"CN"}, a.AffectedCountries)
	assert.InDelta(t, 55.0, a.ImpactPercentage, 1e-9)
	assert.ElementsMatch(t, []string{"85444200", "73269070"}, a.AffectedHSCodes)
}

func TestEvaluate_ShareSumWarning(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 60, HSCode: "85011000"},
		{OriginCountry: "CN", ValueShare: 30, HSCode: "85444200"},
	}

	res, err := emptyEngine(t).Evaluate(context.Background(), components, baseParams())
	require.NoError(t, err)

	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "90.0%")
	// RVC still computed from shares as given: 60/90.
	assert.InDelta(t, 66.666, res.RegionalValueContentPct, 0.01)
}

func TestEvaluate_ShareSumWithinTolerance(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 70.4, HSCode: "85011000"},
		{OriginCountry: "CN", ValueShare: 29.0, HSCode: "85444200"},
	}
	res, err := emptyEngine(t).Evaluate(context.Background(), components, baseParams())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

func TestEvaluate_ThinBufferAlert(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 64, HSCode: "85011000"},
		{OriginCountry: "CN", ValueShare: 36, HSCode: "85444200"},
	}

	res, err := emptyEngine(t).Evaluate(context.Background(), components, baseParams())
	require.NoError(t, err)
	require.True(t, res.Qualifies)

	strategic := alertsOfType(res.Alerts, model.AlertStrategicRisk)
	require.Len(t, strategic, 1)
	assert.Equal(t, model.SeverityHigh, strategic[0].Severity)
	assert.InDelta(t, 1.5, strategic[0].ImpactPercentage, 1e-9)
}

func TestEvaluate_ComfortableBufferNoAlert(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 85, HSCode: "85011000"},
		{OriginCountry: "CN", ValueShare: 15, HSCode: "85444200"},
	}

	res, err := emptyEngine(t).Evaluate(context.Background(), components, baseParams())
	require.NoError(t, err)
	assert.Empty(t, alertsOfType(res.Alerts, model.AlertStrategicRisk))
}

func TestEvaluate_ModerateBufferMediumSeverity(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 69, HSCode: "85011000"},
		{OriginCountry: "CN", ValueShare: 31, HSCode: "85444200"},
	}

	res, err := emptyEngine(t).Evaluate(context.Background(), components, baseParams())
	require.NoError(t, err)

	strategic := alertsOfType(res.Alerts, model.AlertStrategicRisk)
	require.Len(t, strategic, 1)
	assert.Equal(t, model.SeverityMedium, strategic[0].Severity)
}

func TestEvaluate_ComponentDominanceAlert(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 45, HSCode: "85011000", Description: "motor"},
		{OriginCountry: "MX", ValueShare: 30, HSCode: "87083000", Description: "brake assembly"},
		{OriginCountry: "CA", ValueShare: 25, HSCode: "40169300", Description: "gasket set"},
	}

	res, err := emptyEngine(t).Evaluate(context.Background(), components, baseParams())
	require.NoError(t, err)

	dominance := alertsOfType(res.Alerts, model.AlertConcentrationRisk)
	require.Len(t, dominance, 1)
	assert.Equal(t, []string{"motor"}, dominance[0].AffectedComponents)
	assert.InDelta(t, 45.0, dominance[0].ImpactPercentage, 1e-9)
	// 30% exactly does not exceed the cutoff.
	assert.NotContains(t, dominance[0].AffectedComponents, "brake assembly")
}

func TestEvaluate_PolicyThreatAboveMateriality(t *testing.T) {
	e := seededEngine(t,
		model.PolicyTariffRecord{HSCode: "85444200", OriginCountry: "CN", Section301: rate(0.25)},
	)

	components := []model.Component{
		{OriginCountry: "US", ValueShare: 55, HSCode: "85011000", Description: "motor"},
		{OriginCountry: "CN", ValueShare: 45, HSCode: "85444200", Description: "wiring harness"},
	}
	p := baseParams()
	p.ShipmentValueUSD = 1_000_000

	res, err := e.Evaluate(context.Background(), components, p)
	require.NoError(t, err)

	threats := alertsOfType(res.Alerts, model.AlertPolicyThreat)
	require.Len(t, threats, 1)
	// 45% of $1M at a 25% stacked rate.
	assert.InDelta(t, 112500, threats[0].EstimatedExposureUSD, 1e-6)
	assert.Equal(t, []string{"CN"}, threats[0].AffectedCountries)
	assert.Equal(t, model.SeverityHigh, threats[0].Severity)
}

func TestEvaluate_PolicyThreatBelowMaterialitySuppressed(t *testing.T) {
	e := seededEngine(t,
		model.PolicyTariffRecord{HSCode: "85444200", OriginCountry: "CN", Section301: rate(0.25)},
	)

	components := []model.Component{
		{OriginCountry: "US", ValueShare: 55, HSCode: "85011000"},
		{OriginCountry: "CN", ValueShare: 45, HSCode: "85444200"},
	}
	p := baseParams()
	p.ShipmentValueUSD = 50_000 // exposure $5,625 < $10,000 floor

	res, err := e.Evaluate(context.Background(), components, p)
	require.NoError(t, err)
	assert.Empty(t, alertsOfType(res.Alerts, model.AlertPolicyThreat))
}

// Unresolvable rates never block the verdict; RVC only needs origins.
func TestEvaluate_NotFoundRatesDoNotBlock(t *testing.T) {
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 70, HSCode: "85011000"},
		{OriginCountry: "CN", ValueShare: 30, HSCode: "99999999"},
	}
	p := baseParams()
	p.ShipmentValueUSD = 1_000_000

	res, err := emptyEngine(t).Evaluate(context.Background(), components, p)
	require.NoError(t, err)

	assert.True(t, res.Qualifies)
	assert.Empty(t, alertsOfType(res.Alerts, model.AlertPolicyThreat))
}

func TestEvaluate_AlertsSortedByUrgency(t *testing.T) {
	e := seededEngine(t,
		model.PolicyTariffRecord{HSCode: "85444200", OriginCountry: "CN", Section301: rate(0.25)},
	)

	// Thin buffer + CN concentration + dominant component + large exposure,
	// all at once.
	components := []model.Component{
		{OriginCountry: "US", ValueShare: 35, HSCode: "85011000", Description: "motor"},
		{OriginCountry: "MX", ValueShare: 29, HSCode: "87083000", Description: "brake assembly"},
		{OriginCountry: "CN", ValueShare: 36, HSCode: "85444200", Description: "wiring harness"},
	}
	p := baseParams()
	p.CountryConcentrationPct = 35
	p.ShipmentValueUSD = 2_000_000

	res, err := e.Evaluate(context.Background(), components, p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Alerts), 3)

	// Exposure of $180k at 5x materiality lands in the immediate tier and
	// must lead.
	assert.Equal(t, model.AlertPolicyThreat, res.Alerts[0].Type)
	for i := 1; i < len(res.Alerts); i++ {
		prev, cur := res.Alerts[i-1].Urgency, res.Alerts[i].Urgency
		assert.LessOrEqual(t, urgencyOrder(prev), urgencyOrder(cur))
	}
}

func urgencyOrder(u model.Urgency) int {
	switch u {
	case model.UrgencyImmediate:
		return 0
	case model.UrgencyNearTerm:
		return 1
	default:
		return 2
	}
}

func TestEvaluate_ReviewDateStampsDaysUntil(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	review := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	components := []model.Component{
		{OriginCountry: "US", ValueShare: 64, HSCode: "85011000"},
		{OriginCountry: "CN", ValueShare: 36, HSCode: "85444200"},
	}
	p := baseParams()
	p.ReviewDate = &review

	res, err := emptyEngine(t).WithNow(now).Evaluate(context.Background(), components, p)
	require.NoError(t, err)

	strategic := alertsOfType(res.Alerts, model.AlertStrategicRisk)
	require.Len(t, strategic, 1)
	require.NotNil(t, strategic[0].DaysUntil)
	assert.Equal(t, 30, *strategic[0].DaysUntil)
}
