package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

func TestResolveAllPolicyRates_SingleExactRegime(t *testing.T) {
	s := seeded(t,
		model.PolicyTariffRecord{HSCode: "85444200", OriginCountry: "CN", Section301: rate(0.25)},
	)
	r := New(s, 0)

	pr, err := r.ResolveAllPolicyRates(context.Background(), "8544.42.00", "CN")
	require.NoError(t, err)

	assert.Equal(t, 0.25, pr.TotalPolicyRate)
	assert.Equal(t, model.ConfidenceExact, pr.OverallConfidence)
	assert.Equal(t, model.SourceExactMatch, pr.Section301.Source)
	assert.Equal(t, model.SourceNotFound, pr.Section232.Source)
	assert.Equal(t, model.SourceNotFound, pr.Section201.Source)
	assert.Equal(t, model.SourceNotFound, pr.Reciprocal.Source)
}

// Mixed-tier resolution: an exact Section 301 hit stacked with a
// chapter-tier Section 232 hit drags the overall confidence down to the
// weaker of the two.
func TestResolveAllPolicyRates_MinConfidenceAcrossRegimes(t *testing.T) {
	s := seeded(t,
		model.PolicyTariffRecord{HSCode: "85444200", OriginCountry: "CN", Section301: rate(0.25)},
		model.PolicyTariffRecord{HSCode: "85011000", OriginCountry: "CN", Section232: rate(0.10), VerifiedDate: date("2026-08-01")},
	)
	r := New(s, 0).WithNow(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))

	pr, err := r.ResolveAllPolicyRates(context.Background(), "8544.42.00", "CN")
	require.NoError(t, err)

	assert.InDelta(t, 0.35, pr.TotalPolicyRate, 1e-9)
	assert.Equal(t, model.ConfidenceChapter, pr.OverallConfidence)
	assert.Equal(t, model.SourceExactMatch, pr.Section301.Source)
	assert.Equal(t, model.SourceChapterPrefix, pr.Section232.Source)
	assert.Equal(t, "85011000", pr.Section232.HSCodeUsed)
}

func TestResolveAllPolicyRates_ZeroRateStillCountsForConfidence(t *testing.T) {
	s := seeded(t,
		model.PolicyTariffRecord{HSCode: "85444200", OriginCountry: "CN", Section301: rate(0.25), Section201: rate(0)},
	)
	r := New(s, 0)

	pr, err := r.ResolveAllPolicyRates(context.Background(), "85444200", "CN")
	require.NoError(t, err)

	// The verified zero contributes nothing to the total but it resolved
	// at the exact tier, so it participates in the confidence minimum.
	assert.Equal(t, 0.25, pr.TotalPolicyRate)
	assert.Equal(t, model.ConfidenceExact, pr.OverallConfidence)
	assert.Equal(t, model.SourceExactMatch, pr.Section201.Source)
	require.NotNil(t, pr.Section201.Rate)
	assert.Equal(t, 0.0, *pr.Section201.Rate)
}

func TestResolveAllPolicyRates_NothingResolves(t *testing.T) {
	r := New(seeded(t), 0)

	pr, err := r.ResolveAllPolicyRates(context.Background(), "99999999", "BR")
	require.NoError(t, err)

	assert.Equal(t, 0.0, pr.TotalPolicyRate)
	assert.Equal(t, model.ConfidenceNone, pr.OverallConfidence)
	for _, res := range []model.Resolution{pr.Section301, pr.Section232, pr.Section201, pr.Reciprocal} {
		assert.Equal(t, model.SourceNotFound, res.Source)
		assert.True(t, res.NeedsResearch)
	}
}

func TestResolveAllPolicyRates_StoreFailureAborts(t *testing.T) {
	r := New(failingStore{}, 0)

	_, err := r.ResolveAllPolicyRates(context.Background(), "85444200", "CN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blanket lookup")
}
