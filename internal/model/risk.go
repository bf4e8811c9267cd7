package model

import "strings"

// Severity is the closed severity scale for a risk record.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity normalizes raw severity text to a closed level.
// Unrecognized or empty input defaults to the weakest level.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return SeverityHigh
	case "medium", "med":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Confidence is the closed confidence scale attached to risk records
// and assumption cells.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence normalizes raw confidence text to a closed level.
// Unrecognized or empty input defaults to the weakest level.
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh
	case "medium", "med":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// RiskType is the closed set of risk flags the extractor can attach to a scan.
type RiskType string

const (
	// Structural bucket: risks inherent to the capital structure or execution.
	RiskDebtCost           RiskType = "debt_cost_risk"
	RiskRefinance          RiskType = "refinance_risk"
	RiskLiquidity          RiskType = "liquidity_risk"
	RiskInsuranceCost      RiskType = "insurance_cost_risk"
	RiskConstructionTiming RiskType = "construction_timing_risk"

	// Market bucket: risks driven by market assumptions.
	RiskExitCapCompression   RiskType = "exit_cap_compression"
	RiskVacancyUnderstated   RiskType = "vacancy_understated"
	RiskRentGrowthAggressive RiskType = "rent_growth_aggressive"
	RiskExpenseUnderstated   RiskType = "expense_understated"
	RiskMarketSoftening      RiskType = "market_softening"
	RiskDataMissing          RiskType = "data_missing"
)

var riskTypes = map[RiskType]bool{
	RiskDebtCost:             true,
	RiskRefinance:            true,
	RiskLiquidity:            true,
	RiskInsuranceCost:        true,
	RiskConstructionTiming:   true,
	RiskExitCapCompression:   true,
	RiskVacancyUnderstated:   true,
	RiskRentGrowthAggressive: true,
	RiskExpenseUnderstated:   true,
	RiskMarketSoftening:      true,
	RiskDataMissing:          true,
}

// ParseRiskType normalizes raw risk-type text to a closed variant.
// Unrecognized input collapses to RiskDataMissing so that an unknown
// flag is scored as a data gap, never dropped silently.
func ParseRiskType(s string) RiskType {
	rt := RiskType(strings.ToLower(strings.TrimSpace(s)))
	if riskTypes[rt] {
		return rt
	}
	return RiskDataMissing
}

// IsStructural reports whether the risk type belongs to the structural bucket.
func (rt RiskType) IsStructural() bool {
	switch rt {
	case RiskDebtCost, RiskRefinance, RiskLiquidity, RiskInsuranceCost, RiskConstructionTiming:
		return true
	}
	return false
}

// IsMissingData reports whether the risk type represents a data gap rather
// than an observed deal condition.
func (rt RiskType) IsMissingData() bool {
	return rt == RiskDataMissing || rt == RiskExpenseUnderstated
}

// RiskRecord is one extracted risk flag attached to a scan.
type RiskRecord struct {
	ID              string      `json:"id"`
	ScanID          string      `json:"scan_id"`
	Type            RiskType    `json:"risk_type"`
	SeverityCurrent Severity    `json:"severity_current"`
	Confidence      *Confidence `json:"confidence,omitempty"`
}

// SignalLink ties a risk record to a macro signal observed in the market.
type SignalLink struct {
	RiskID         string `json:"risk_id"`
	ScanID         string `json:"scan_id"`
	SignalCategory string `json:"signal_category"`
	SignalText     string `json:"signal_text"`
}
