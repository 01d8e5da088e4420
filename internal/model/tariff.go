package model

import "time"

// RateField identifies one of the tariff overlay regimes tracked per
// policy tariff record.
type RateField string

const (
	Section301 RateField = "SECTION_301"
	Section232 RateField = "SECTION_232"
	Section201 RateField = "SECTION_201"
	Reciprocal RateField = "RECIPROCAL"
)

// RateFields lists the overlay regimes in stacking order.
var RateFields = []RateField{Section301, Section232, Section201, Reciprocal}

// Valid reports whether f is a known overlay regime.
func (f RateField) Valid() bool {
	switch f {
	case Section301, Section232, Section201, Reciprocal:
		return true
	}
	return false
}

// PolicyTariffRecord is one row of the policy tariff store. A nil rate
// means the overlay does not apply at this row (a broader match may still
// carry it); a zero rate means the overlay applies at 0%. The two must
// never be collapsed.
type PolicyTariffRecord struct {
	HSCode         string     `json:"hs_code"`
	OriginCountry  string     `json:"origin_country,omitempty"` // empty = blanket, applies to all origins
	Section301     *float64   `json:"section_301,omitempty"`
	Section232     *float64   `json:"section_232,omitempty"`
	Section201     *float64   `json:"section_201,omitempty"`
	Reciprocal     *float64   `json:"reciprocal,omitempty"`
	VerifiedSource string     `json:"verified_source,omitempty"`
	VerifiedDate   *time.Time `json:"verified_date,omitempty"`
}

// Rate returns the record's value for the given overlay regime.
func (r *PolicyTariffRecord) Rate(field RateField) *float64 {
	switch field {
	case Section301:
		return r.Section301
	case Section232:
		return r.Section232
	case Section201:
		return r.Section201
	case Reciprocal:
		return r.Reciprocal
	}
	return nil
}

// SetRate stores v under the given overlay regime. Unknown fields are
// ignored.
func (r *PolicyTariffRecord) SetRate(field RateField, v *float64) {
	switch field {
	case Section301:
		r.Section301 = v
	case Section232:
		r.Section232 = v
	case Section201:
		r.Section201 = v
	case Reciprocal:
		r.Reciprocal = v
	}
}

// Blanket reports whether the record applies regardless of origin country.
func (r *PolicyTariffRecord) Blanket() bool {
	return r.OriginCountry == ""
}

// ResolutionSource tags which fallback tier produced a resolution, or
// which input-validation failure short-circuited it.
type ResolutionSource string

const (
	SourceBlanketTariff    ResolutionSource = "blanket_tariff"
	SourceExactMatch       ResolutionSource = "exact_match"
	SourceCategoryRate     ResolutionSource = "category_rate"
	SourceHeadingRate      ResolutionSource = "heading_rate"
	SourceChapterPrefix    ResolutionSource = "chapter_prefix"
	SourceNotFound         ResolutionSource = "not_found"
	SourceInvalidHSCode    ResolutionSource = "invalid_hs_code"
	SourceMissingRateField ResolutionSource = "missing_rate_field"
)

// The confidence ladder. Which tier matched is the proxy for how
// product-specific the returned rate is.
const (
	ConfidenceExact    = 100
	ConfidenceBlanket  = 95
	ConfidenceCategory = 85
	ConfidenceHeading  = 70
	ConfidenceChapter  = 50
	ConfidenceNone     = 0
)

// Resolution is the outcome of a single overlay rate lookup. Every result
// is self-describing: the confidence and source fields always say where
// the rate came from.
type Resolution struct {
	Rate           *float64         `json:"rate"`
	Confidence     int              `json:"confidence"`
	Source         ResolutionSource `json:"source"`
	HSCodeUsed     string           `json:"hs_code_used,omitempty"`
	VerifiedSource string           `json:"verified_source,omitempty"`
	VerifiedDate   *time.Time       `json:"verified_date,omitempty"`
	DataAgeDays    *int             `json:"data_age_days,omitempty"`
	Note           string           `json:"note,omitempty"`
	NeedsResearch  bool             `json:"needs_research"`
}

// PolicyRates aggregates the four overlay resolutions for one component.
// OverallConfidence is the minimum confidence among resolved categories:
// the stacked estimate is only as trustworthy as its weakest input.
type PolicyRates struct {
	Section301        Resolution `json:"section_301"`
	Section232        Resolution `json:"section_232"`
	Section201        Resolution `json:"section_201"`
	Reciprocal        Resolution `json:"reciprocal"`
	TotalPolicyRate   float64    `json:"total_policy_rate"`
	OverallConfidence int        `json:"overall_confidence"`
}
