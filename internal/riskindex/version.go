// Package riskindex implements the deterministic Risk Index scoring engine
// for commercial-real-estate deals: unit normalization, input sanitization,
// penalty/stabilizer computation with ramped thresholds and tier overrides,
// driver attribution, and band consistency checking.
package riskindex

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

// Version is the scoring version produced by DefaultVersionConfig. Persisted
// next to every score; deltas and band checks are gated on it.
const Version = "v3"

// VersionConfig pins every constant of one scoring version in a single
// immutable structure. Alternate versions are swapped in whole for
// governance review; algorithm code never reads module-level constants.
type VersionConfig struct {
	Version string `yaml:"version"`

	BaseScore float64 `yaml:"base_score"`

	// Per-risk penalty table.
	SeverityPoints          map[model.Severity]float64   `yaml:"severity_points"`
	ConfidenceFactors       map[model.Confidence]float64 `yaml:"confidence_factors"`
	MissingConfidenceFactor float64                      `yaml:"missing_confidence_factor"`
	MissingDataPointCap     float64                      `yaml:"missing_data_point_cap"`

	// Bucket caps.
	MarketShareCap        float64 `yaml:"market_share_cap"`
	MissingDataPenaltyCap float64 `yaml:"missing_data_penalty_cap"`
	MissingDataScoreCap   int     `yaml:"missing_data_score_cap"`

	// Stabilizers.
	StabilizerCap          float64 `yaml:"stabilizer_cap"`
	LTVStrongMax           float64 `yaml:"ltv_strong_max"`
	LTVStrongCredit        float64 `yaml:"ltv_strong_credit"`
	LTVModestMax           float64 `yaml:"ltv_modest_max"`
	LTVModestCredit        float64 `yaml:"ltv_modest_credit"`
	ExitAtOrAboveEntryCred float64 `yaml:"exit_at_or_above_entry_credit"`

	// Macro linkage.
	MacroPointsPerSignal float64 `yaml:"macro_points_per_signal"`
	MacroPointCap        float64 `yaml:"macro_point_cap"`
	MacroShareCap        float64 `yaml:"macro_share_cap"`

	// Confidence adjustment.
	LowConfidenceMean    float64 `yaml:"low_confidence_mean"`
	LowConfidencePenalty float64 `yaml:"low_confidence_penalty"`
	HighConfidenceMean   float64 `yaml:"high_confidence_mean"`
	HighConfidenceCredit float64 `yaml:"high_confidence_credit"`

	// Exit-cap compression ramp. The gate doubles as the minimum spread for
	// the ExitCapCompression risk type to score at all.
	CompressionGate     float64 `yaml:"compression_gate"`
	CompressionRampEnd  float64 `yaml:"compression_ramp_end"`
	CompressionRampMin  float64 `yaml:"compression_ramp_min"`
	CompressionRampMax  float64 `yaml:"compression_ramp_max"`
	CompressionOverride float64 `yaml:"compression_override"`

	// DSCR ramp.
	DSCRRampHigh   float64 `yaml:"dscr_ramp_high"`
	DSCRRampLow    float64 `yaml:"dscr_ramp_low"`
	DSCRMaxPenalty float64 `yaml:"dscr_max_penalty"`

	// LTV x vacancy interaction.
	LTVVacRampLTV      float64 `yaml:"ltv_vac_ramp_ltv"`
	LTVVacRampVacancy  float64 `yaml:"ltv_vac_ramp_vacancy"`
	LTVVacRampSpan     float64 `yaml:"ltv_vac_ramp_span"`
	LTVVacElevatedLTV  float64 `yaml:"ltv_vac_elevated_ltv"`
	LTVVacElevatedVac  float64 `yaml:"ltv_vac_elevated_vacancy"`
	LTVVacElevatedPts  float64 `yaml:"ltv_vac_elevated_points"`
	LTVVacHighLTV      float64 `yaml:"ltv_vac_high_ltv"`
	LTVVacHighVac      float64 `yaml:"ltv_vac_high_vacancy"`
	LTVVacHighPts      float64 `yaml:"ltv_vac_high_points"`
	LTVOverrideHighLTV float64 `yaml:"ltv_override_high_ltv"`

	// Edge cases.
	ExitCapSaneMin       float64 `yaml:"exit_cap_sane_min"`
	ExitCapSaneMax       float64 `yaml:"exit_cap_sane_max"`
	AggressiveRentGrowth float64 `yaml:"aggressive_rent_growth"`
	ExtremeVacancy       float64 `yaml:"extreme_vacancy"`
	ExtremeVacancyPts    float64 `yaml:"extreme_vacancy_points"`

	// Band thresholds (upper bounds; High is everything above ElevatedMax).
	BandLowMax      int `yaml:"band_low_max"`
	BandModerateMax int `yaml:"band_moderate_max"`
	BandElevatedMax int `yaml:"band_elevated_max"`

	// Attribution.
	DriverShareCap float64 `yaml:"driver_share_cap"`

	// Delta tracking.
	DeteriorationPoints int `yaml:"deterioration_points"`
}

// DefaultVersionConfig returns the v3 scoring constants.
func DefaultVersionConfig() VersionConfig {
	return VersionConfig{
		Version: Version,

		BaseScore: 40,

		SeverityPoints: map[model.Severity]float64{
			model.SeverityHigh:   8,
			model.SeverityMedium: 4,
			model.SeverityLow:    2,
		},
		ConfidenceFactors: map[model.Confidence]float64{
			model.ConfidenceHigh:   1.0,
			model.ConfidenceMedium: 0.7,
			model.ConfidenceLow:    0.4,
		},
		MissingConfidenceFactor: 0.4,
		MissingDataPointCap:     3,

		MarketShareCap:        0.35,
		MissingDataPenaltyCap: 15,
		MissingDataScoreCap:   49,

		StabilizerCap:          20,
		LTVStrongMax:           60,
		LTVStrongCredit:        8,
		LTVModestMax:           65,
		LTVModestCredit:        4,
		ExitAtOrAboveEntryCred: 6,

		MacroPointsPerSignal: 1,
		MacroPointCap:        3,
		MacroShareCap:        0.35,

		LowConfidenceMean:    0.70,
		LowConfidencePenalty: 3,
		HighConfidenceMean:   0.90,
		HighConfidenceCredit: 1,

		CompressionGate:     0.5,
		CompressionRampEnd:  1.5,
		CompressionRampMin:  3,
		CompressionRampMax:  6,
		CompressionOverride: 1.0,

		DSCRRampHigh:   1.25,
		DSCRRampLow:    1.00,
		DSCRMaxPenalty: 6,

		LTVVacRampLTV:      75,
		LTVVacRampVacancy:  20,
		LTVVacRampSpan:     5,
		LTVVacElevatedLTV:  80,
		LTVVacElevatedVac:  25,
		LTVVacElevatedPts:  5,
		LTVVacHighLTV:      85,
		LTVVacHighVac:      30,
		LTVVacHighPts:      8,
		LTVOverrideHighLTV: 90,

		ExitCapSaneMin:       2,
		ExitCapSaneMax:       15,
		AggressiveRentGrowth: 8,
		ExtremeVacancy:       40,
		ExtremeVacancyPts:    2,

		BandLowMax:      34,
		BandModerateMax: 54,
		BandElevatedMax: 69,

		DriverShareCap: 0.40,

		DeteriorationPoints: 8,
	}
}

// BandForScore derives the qualitative band for a clamped integer score.
func (c VersionConfig) BandForScore(score int) model.Band {
	switch {
	case score <= c.BandLowMax:
		return model.BandLow
	case score <= c.BandModerateMax:
		return model.BandModerate
	case score <= c.BandElevatedMax:
		return model.BandElevated
	default:
		return model.BandHigh
	}
}

// Validate checks that a VersionConfig is internally consistent.
func (c VersionConfig) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Version) == "" {
		errs = append(errs, "version must be set")
	}
	if c.BaseScore < 0 || c.BaseScore > 100 {
		errs = append(errs, "base_score must be between 0 and 100")
	}
	for _, sev := range []model.Severity{model.SeverityLow, model.SeverityMedium, model.SeverityHigh} {
		if c.SeverityPoints[sev] < 0 {
			errs = append(errs, fmt.Sprintf("severity_points[%s] must be >= 0", sev))
		}
	}
	if c.SeverityPoints[model.SeverityLow] > c.SeverityPoints[model.SeverityMedium] ||
		c.SeverityPoints[model.SeverityMedium] > c.SeverityPoints[model.SeverityHigh] {
		errs = append(errs, "severity_points must be non-decreasing from low to high")
	}
	for _, cf := range []model.Confidence{model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh} {
		f := c.ConfidenceFactors[cf]
		if f < 0 || f > 1 {
			errs = append(errs, fmt.Sprintf("confidence_factors[%s] must be within [0,1]", cf))
		}
	}
	if c.MarketShareCap < 0 || c.MarketShareCap > 1 {
		errs = append(errs, "market_share_cap must be within [0,1]")
	}
	if c.MacroShareCap < 0 || c.MacroShareCap > 1 {
		errs = append(errs, "macro_share_cap must be within [0,1]")
	}
	if c.DriverShareCap <= 0 || c.DriverShareCap > 1 {
		errs = append(errs, "driver_share_cap must be within (0,1]")
	}
	if c.CompressionGate < 0 || c.CompressionRampEnd <= c.CompressionGate {
		errs = append(errs, "compression ramp must satisfy 0 <= gate < end")
	}
	if c.CompressionRampMin > c.CompressionRampMax {
		errs = append(errs, "compression_ramp_min must be <= compression_ramp_max")
	}
	if c.DSCRRampLow >= c.DSCRRampHigh {
		errs = append(errs, "dscr ramp must satisfy low < high")
	}
	if c.LTVVacRampSpan <= 0 {
		errs = append(errs, "ltv_vac_ramp_span must be > 0")
	}
	if !(c.BandLowMax < c.BandModerateMax && c.BandModerateMax < c.BandElevatedMax) {
		errs = append(errs, "band thresholds must be strictly increasing")
	}
	if c.BandElevatedMax >= 100 {
		errs = append(errs, "band_elevated_max must be < 100")
	}
	if c.MissingDataScoreCap < c.BandLowMax || c.MissingDataScoreCap > c.BandModerateMax {
		errs = append(errs, "missing_data_score_cap must fall inside the Moderate band")
	}
	if c.DeteriorationPoints <= 0 {
		errs = append(errs, "deterioration_points must be > 0")
	}
	if math.IsNaN(c.BaseScore) {
		errs = append(errs, "base_score must be a number")
	}

	if len(errs) > 0 {
		return eris.Errorf("riskindex: version config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadVersionConfig reads an alternate scoring version from a YAML file.
// Fields absent from the file keep their default value, so a governance
// override only states what it changes.
func LoadVersionConfig(path string) (VersionConfig, error) {
	cfg := DefaultVersionConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "riskindex: read version config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, eris.Wrapf(err, "riskindex: parse version config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	zap.L().Info("loaded scoring version config",
		zap.String("component", "riskindex"),
		zap.String("path", path),
		zap.String("version", cfg.Version))

	return cfg, nil
}
