package riskindex

import (
	"github.com/meridian-cre/riskindex-cli/internal/model"
)

// Driver labels, in fixed attribution order. TopDrivers tie-breaking and
// Breakdown.Drivers ordering both follow this sequence.
const (
	DriverLeverage    = "leverage"
	DriverVacancy     = "vacancy"
	DriverCompression = "compression"
	DriverMissing     = "missing"
	DriverMarket      = "market"
	DriverStabilizers = "stabilizers"
	DriverResidual    = "residual"
)

var driverOrder = []string{
	DriverLeverage,
	DriverVacancy,
	DriverCompression,
	DriverMissing,
	DriverMarket,
	DriverStabilizers,
	DriverResidual,
}

// Tier-override and edge-flag reason codes.
const (
	ReasonMissingDataCeiling  = "missing_data_ceiling"
	ReasonLTVAbove90          = "ltv_above_90"
	ReasonCapCompressionHigh  = "cap_compression_extreme"
	ReasonLTVVacancyHigh      = "ltv_vacancy_high"
	ReasonLTVVacancyElevated  = "ltv_vacancy_elevated"
	ReasonDSCRBelowOne        = "dscr_below_one"
	ReasonSevereInput         = "severe_input"
	FlagExitCapOutOfRange     = "exit_cap_out_of_range"
	FlagAggressiveRentLowConf = "aggressive_rent_growth_low_confidence"
	FlagExtremeVacancy        = "extreme_vacancy"
	FlagUnitInferred          = "unit_inferred"
	FlagDriverShareCapped     = "driver_share_capped"
)

// DriverContribution is one semantic driver's share of the score.
type DriverContribution struct {
	Label    string  `json:"label"`
	Points   float64 `json:"points"`
	SharePct float64 `json:"share_pct"`
}

// PreviousScore carries a prior scan's persisted score and scoring version
// for delta tracking.
type PreviousScore struct {
	Score   int    `json:"score"`
	Version string `json:"version"`
}

// Breakdown is the full attribution record behind a score. Optional fields
// stay zero-valued when their condition never fired, so two results from
// identical inputs compare equal field-by-field.
type Breakdown struct {
	RiskIndexVersion    string  `json:"risk_index_version"`
	RawScore            float64 `json:"raw_score"`
	StructuralWeightPct float64 `json:"structural_weight_pct"`
	MarketWeightPct     float64 `json:"market_weight_pct"`
	MacroPoints         float64 `json:"macro_points"`

	Drivers           []DriverContribution `json:"drivers"`
	TopDrivers        []string             `json:"top_drivers,omitempty"`
	ConfidenceFactors map[string]float64   `json:"confidence_factors,omitempty"`

	TierDrivers      []string `json:"tier_drivers,omitempty"`
	EdgeFlags        []string `json:"edge_flags,omitempty"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
	NeedsReview      bool     `json:"needs_review"`
	UnitInferred     bool     `json:"unit_inferred"`

	PreviousScore   *int   `json:"previous_score,omitempty"`
	ScoreDelta      *int   `json:"score_delta,omitempty"`
	BandTransition  string `json:"band_transition,omitempty"`
	Deteriorated    bool   `json:"deteriorated"`
	DeltaComparable bool   `json:"delta_comparable"`
}

// RiskIndexResult is the scoring engine's sole output: a bounded score, its
// qualitative band, and the attribution breakdown. It is a value object;
// recomputing from identical inputs yields an identical result.
type RiskIndexResult struct {
	Score     int        `json:"score"`
	Band      model.Band `json:"band"`
	Breakdown Breakdown  `json:"breakdown"`
}
