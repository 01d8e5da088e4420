package model

import "strings"

var usmcaMembers = map[string]bool{
	"US": true,
	"CA": true,
	"MX": true,
}

// IsUSMCA reports whether a 2-letter origin code is a USMCA member country.
func IsUSMCA(country string) bool {
	return usmcaMembers[strings.ToUpper(strings.TrimSpace(country))]
}

// Component is one bill-of-materials entry. ValueShare is the component's
// percentage of total product value; shares across one BOM are expected to
// sum to roughly 100.
type Component struct {
	OriginCountry string  `json:"origin_country"`
	ValueShare    float64 `json:"value_share"`
	HSCode        string  `json:"hs_code"`
	Description   string  `json:"description,omitempty"`
}

// QualificationResult is the outcome of evaluating one BOM. When the BOM
// carries no usable value data, InsufficientData is set and no verdict is
// derived from the degenerate math.
type QualificationResult struct {
	RegionalValueContentPct float64  `json:"regional_value_content_pct"`
	Qualifies               bool     `json:"qualifies"`
	InsufficientData        bool     `json:"insufficient_data"`
	ThresholdUsed           float64  `json:"threshold_used"`
	Warnings                []string `json:"warnings,omitempty"`
	Alerts                  []Alert  `json:"alerts"`
}
