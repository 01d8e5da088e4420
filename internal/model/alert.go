package model

import "sort"

// AlertType classifies a qualification risk finding.
type AlertType string

const (
	AlertStrategicRisk       AlertType = "STRATEGIC_RISK"
	AlertDiversificationRisk AlertType = "DIVERSIFICATION_RISK"
	AlertConcentrationRisk   AlertType = "CONCENTRATION_RISK"
	AlertPolicyThreat        AlertType = "POLICY_THREAT"
)

// Severity grades how damaging a finding is if left unaddressed.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Urgency tiers order alerts for presentation.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyNearTerm  Urgency = "near_term"
	UrgencyMonitor   Urgency = "monitor"
)

var urgencyRank = map[Urgency]int{
	UrgencyImmediate: 0,
	UrgencyNearTerm:  1,
	UrgencyMonitor:   2,
}

// Alert is a structured, severity-tagged finding over one BOM. Alerts are
// generated per analysis and handed to the caller; persistence and display
// live elsewhere.
type Alert struct {
	Type                 AlertType `json:"type"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Severity             Severity  `json:"severity"`
	Urgency              Urgency   `json:"urgency"`
	AffectedCountries    []string  `json:"affected_countries,omitempty"`
	AffectedHSCodes      []string  `json:"affected_hs_codes,omitempty"`
	AffectedComponents   []string  `json:"affected_components,omitempty"`
	ImpactPercentage     float64   `json:"impact_percentage,omitempty"`
	EstimatedExposureUSD float64   `json:"estimated_exposure_usd,omitempty"`
	Action               string    `json:"action,omitempty"`
	DaysUntil            *int      `json:"days_until,omitempty"`
}

// SortAlerts orders alerts for presentation: urgency tier first, then
// days-until-impact ascending with unset values last.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := urgencyRank[alerts[i].Urgency], urgencyRank[alerts[j].Urgency]
		if ri != rj {
			return ri < rj
		}
		di, dj := alerts[i].DaysUntil, alerts[j].DaysUntil
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
}
