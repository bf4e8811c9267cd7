package riskindex

import (
	"strings"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

// ConsistencyResult reports whether a persisted (score, band) pair disagrees
// with the band the current thresholds would assign.
type ConsistencyResult struct {
	Mismatch     bool       `json:"mismatch"`
	ExpectedBand model.Band `json:"expected_band,omitempty"`
}

// CheckBandConsistency recomputes the expected band for a persisted score and
// flags a mismatch only when the record was produced by the current scoring
// version. A differently-versioned record may legitimately use different
// thresholds, so the comparison is suppressed, not failed. A nil or
// out-of-range score, or an unrecognized band, short-circuits to no mismatch.
func CheckBandConsistency(score *int, band string, version string, cfg VersionConfig) ConsistencyResult {
	var res ConsistencyResult

	if score == nil || *score < 0 || *score > 100 {
		return res
	}
	res.ExpectedBand = cfg.BandForScore(*score)

	persisted := model.ParseBand(band)
	if persisted == "" {
		return res
	}
	if strings.TrimSpace(version) != cfg.Version {
		return res
	}

	res.Mismatch = persisted != res.ExpectedBand
	return res
}
