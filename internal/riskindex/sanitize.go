package riskindex

import (
	"fmt"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

// SanitizeResult is the output of SanitizeAssumptions: a fresh clamped set,
// one human-readable message per correction, and a severe flag for
// structurally invalid inputs that must not score as low-risk.
type SanitizeResult struct {
	Sanitized model.AssumptionSet `json:"sanitized"`
	Errors    []string            `json:"errors,omitempty"`
	Severe    bool                `json:"severe"`
}

type valueBounds struct {
	min, max float64
}

// clampBounds are the domain bounds for percent-like fields after
// normalization. Non-percent-like fields are never clamped.
var clampBounds = map[model.AssumptionKey]valueBounds{
	model.KeyLTV:           {0, 100},
	model.KeyVacancy:       {0, 100},
	model.KeyCapRateIn:     {0, 25},
	model.KeyExitCap:       {0, 25},
	model.KeyDebtRate:      {0, 25},
	model.KeyRentGrowth:    {-20, 40},
	model.KeyExpenseGrowth: {-20, 40},
}

// SanitizeAssumptions range-clamps a normalized set and separates recoverable
// range errors from severe structural errors. A non-positive purchase price
// or negative first-year NOI is severe: the value is recorded as-is rather
// than clamped to a business-meaningful number, and the severe flag forces a
// minimum band downstream. Missing fields are not errors; the scoring
// engine's missing-data path owns absence.
func SanitizeAssumptions(s model.AssumptionSet) SanitizeResult {
	res := SanitizeResult{Sanitized: s.Clone()}

	// Fixed key order keeps the error list deterministic.
	for _, key := range model.AssumptionKeys {
		cell, ok := res.Sanitized[key]
		if !ok || cell.Value == nil {
			continue
		}
		v := *cell.Value

		switch key {
		case model.KeyPurchasePrice:
			if v <= 0 {
				res.Errors = append(res.Errors,
					fmt.Sprintf("purchase_price must be positive, got %.2f", v))
				res.Severe = true
			}
			continue
		case model.KeyNOIYear1:
			if v < 0 {
				res.Errors = append(res.Errors,
					fmt.Sprintf("noi_year1 must be non-negative, got %.2f", v))
				res.Severe = true
			}
			continue
		}

		b, bounded := clampBounds[key]
		if !bounded {
			continue
		}
		switch {
		case v < b.min:
			res.Errors = append(res.Errors,
				fmt.Sprintf("%s %.1f below minimum %.1f; clamped", key, v, b.min))
			*cell.Value = b.min
		case v > b.max:
			res.Errors = append(res.Errors,
				fmt.Sprintf("%s %.1f above maximum %.1f; clamped", key, v, b.max))
			*cell.Value = b.max
		}
	}

	return res
}
