package model

// AssumptionKey names one extracted underwriting assumption. The key set is
// fixed; extraction output outside this set never reaches the engine.
type AssumptionKey string

const (
	KeyPurchasePrice   AssumptionKey = "purchase_price"
	KeyCapRateIn       AssumptionKey = "cap_rate_in"
	KeyNOIYear1        AssumptionKey = "noi_year1"
	KeyRentGrowth      AssumptionKey = "rent_growth"
	KeyExpenseGrowth   AssumptionKey = "expense_growth"
	KeyVacancy         AssumptionKey = "vacancy"
	KeyExitCap         AssumptionKey = "exit_cap"
	KeyHoldPeriodYears AssumptionKey = "hold_period_years"
	KeyDebtRate        AssumptionKey = "debt_rate"
	KeyLTV             AssumptionKey = "ltv"
)

// AssumptionKeys lists every assumption key in canonical report order.
var AssumptionKeys = []AssumptionKey{
	KeyPurchasePrice,
	KeyCapRateIn,
	KeyNOIYear1,
	KeyRentGrowth,
	KeyExpenseGrowth,
	KeyVacancy,
	KeyExitCap,
	KeyHoldPeriodYears,
	KeyDebtRate,
	KeyLTV,
}

var percentLike = map[AssumptionKey]bool{
	KeyCapRateIn:     true,
	KeyRentGrowth:    true,
	KeyExpenseGrowth: true,
	KeyVacancy:       true,
	KeyExitCap:       true,
	KeyDebtRate:      true,
	KeyLTV:           true,
}

// IsPercentLike reports whether values under this key are expressed on the
// 0-100 percent scale once normalized.
func (k AssumptionKey) IsPercentLike() bool {
	return percentLike[k]
}

// AssumptionCell is one extracted assumption value with its raw unit and the
// extractor's confidence in it.
type AssumptionCell struct {
	Value      *float64   `json:"value"`
	Unit       *string    `json:"unit,omitempty"`
	Confidence Confidence `json:"confidence"`
}

// HasValue reports whether the cell carries a numeric value.
func (c AssumptionCell) HasValue() bool {
	return c.Value != nil
}

// AssumptionSet is the typed assumption payload of one scan. Transforms over
// a set (normalization, sanitization) return fresh copies; a set handed to
// the scoring engine is never mutated.
type AssumptionSet map[AssumptionKey]AssumptionCell

// Clone returns a deep copy of the set.
func (s AssumptionSet) Clone() AssumptionSet {
	out := make(AssumptionSet, len(s))
	for k, c := range s {
		cc := AssumptionCell{Confidence: c.Confidence}
		if c.Value != nil {
			v := *c.Value
			cc.Value = &v
		}
		if c.Unit != nil {
			u := *c.Unit
			cc.Unit = &u
		}
		out[k] = cc
	}
	return out
}

// Number returns the value stored under key, if any.
func (s AssumptionSet) Number(key AssumptionKey) (float64, bool) {
	c, ok := s[key]
	if !ok || c.Value == nil {
		return 0, false
	}
	return *c.Value, true
}

// Positive returns the value under key when it is present and strictly
// positive.
func (s AssumptionSet) Positive(key AssumptionKey) (float64, bool) {
	v, ok := s.Number(key)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
