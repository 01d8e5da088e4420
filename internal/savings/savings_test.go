package savings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
	"github.com/triangle-intelligence/compliance-cli/internal/resolver"
	"github.com/triangle-intelligence/compliance-cli/internal/tariffstore"
)

func rate(v float64) *float64 { return &v }

func calculator(t *testing.T, records ...model.PolicyTariffRecord) *Calculator {
	t.Helper()
	s := tariffstore.NewMemory()
	_, err := s.Upsert(context.Background(), records)
	require.NoError(t, err)
	return New(resolver.New(s, 0))
}

func TestEstimate_QualifiedLaneSavesFullDuty(t *testing.T) {
	c := calculator(t,
		model.PolicyTariffRecord{HSCode: "85444200", OriginCountry: "CN", Section301: rate(0.25)},
	)

	est, err := c.Estimate(context.Background(), Input{
		HSCode:               "8544.42.00",
		OriginCountry:        "CN",
		AnnualImportValueUSD: 1_000_000,
		Qualifies:            true,
	})
	require.NoError(t, err)

	assert.Equal(t, 250000.0, est.CurrentAnnualDutyUSD)
	assert.Equal(t, 0.0, est.ProjectedAnnualDutyUSD)
	assert.Equal(t, 250000.0, est.AnnualSavingsUSD)
	assert.Equal(t, model.ConfidenceExact, est.Confidence)
	assert.False(t, est.Conservative)
}

func TestEstimate_UnqualifiedLaneSavesNothing(t *testing.T) {
	c := calculator(t,
		model.PolicyTariffRecord{HSCode: "85444200", OriginCountry: "CN", Section301: rate(0.25)},
	)

	est, err := c.Estimate(context.Background(), Input{
		HSCode:               "85444200",
		OriginCountry:        "CN",
		AnnualImportValueUSD: 1_000_000,
		Qualifies:            false,
	})
	require.NoError(t, err)

	assert.Equal(t, 250000.0, est.CurrentAnnualDutyUSD)
	assert.Equal(t, 250000.0, est.ProjectedAnnualDutyUSD)
	assert.Zero(t, est.AnnualSavingsUSD)
	require.NotEmpty(t, est.Notes)
	assert.Contains(t, est.Notes[0], "does not qualify")
}

func TestEstimate_LowConfidenceGetsHaircut(t *testing.T) {
	// Only a chapter-level neighbor resolves, confidence 50.
	c := calculator(t,
		model.PolicyTariffRecord{HSCode: "85011000", OriginCountry: "CN", Section301: rate(0.20)},
	)

	est, err := c.Estimate(context.Background(), Input{
		HSCode:               "85444200",
		OriginCountry:        "CN",
		AnnualImportValueUSD: 500_000,
		Qualifies:            true,
	})
	require.NoError(t, err)

	assert.True(t, est.Conservative)
	assert.Equal(t, model.ConfidenceChapter, est.Confidence)
	assert.Equal(t, 100000.0, est.CurrentAnnualDutyUSD)
	assert.InDelta(t, 75000.0, est.AnnualSavingsUSD, 1e-6)
}

func TestEstimate_NoDataNoEstimate(t *testing.T) {
	c := calculator(t)

	est, err := c.Estimate(context.Background(), Input{
		HSCode:               "85444200",
		OriginCountry:        "BR",
		AnnualImportValueUSD: 1_000_000,
		Qualifies:            true,
	})
	require.NoError(t, err)

	assert.Zero(t, est.AnnualSavingsUSD)
	assert.Equal(t, model.ConfidenceNone, est.Confidence)
	require.NotEmpty(t, est.Notes)
	assert.Contains(t, est.Notes[0], "no overlay rate data")
}

func TestEstimate_RejectsNonPositiveValue(t *testing.T) {
	c := calculator(t)

	_, err := c.Estimate(context.Background(), Input{
		HSCode:               "85444200",
		OriginCountry:        "CN",
		AnnualImportValueUSD: 0,
	})
	require.Error(t, err)
}
