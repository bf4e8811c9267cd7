package riskindex

import (
	"strings"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

// percentUnit is the canonical unit written onto converted cells.
const percentUnit = "%"

// isPercentUnit reports whether a raw unit string denotes percent.
func isPercentUnit(u string) bool {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(u), " ", "")) {
	case "%", "percent", "pct":
		return true
	}
	return false
}

// NormalizeCell resolves decimal-vs-percent ambiguity for a single assumption
// cell. For percent-like keys, a value strictly inside (0,1) under a percent
// unit is a fraction and is rescaled to the 0-100 percent scale; a unitless
// value in (0,1] is rescaled the same way and reported as inferred. Unitless
// values at or above 1 are taken as already-percent. Everything else passes
// through untouched.
//
// Conversion repeats until the value leaves the fraction range, so a
// double-encoded fraction cannot survive and normalization is idempotent for
// every input, not just the common ones.
func NormalizeCell(key model.AssumptionKey, cell model.AssumptionCell) (model.AssumptionCell, bool) {
	out := cloneCell(cell)
	if !key.IsPercentLike() || out.Value == nil {
		return out, false
	}

	v := *out.Value
	inferred := false

	switch {
	case out.Unit != nil && isPercentUnit(*out.Unit):
		for v > 0 && v < 1 {
			v *= 100
		}
	case out.Unit == nil:
		if v > 0 && v <= 1 {
			inferred = true
			for v > 0 && v <= 1 {
				v *= 100
			}
			u := percentUnit
			out.Unit = &u
		}
	default:
		// Unrecognized unit: not ours to reinterpret.
		return out, false
	}

	*out.Value = v
	return out, inferred
}

// NormalizeAssumptions applies NormalizeCell across a set and reports whether
// any unit was inferred. The input set is never mutated.
func NormalizeAssumptions(s model.AssumptionSet) (model.AssumptionSet, bool) {
	out := make(model.AssumptionSet, len(s))
	anyInferred := false
	for k, c := range s {
		nc, inferred := NormalizeCell(k, c)
		out[k] = nc
		anyInferred = anyInferred || inferred
	}
	return out, anyInferred
}

func cloneCell(c model.AssumptionCell) model.AssumptionCell {
	out := model.AssumptionCell{Confidence: c.Confidence}
	if c.Value != nil {
		v := *c.Value
		out.Value = &v
	}
	if c.Unit != nil {
		u := *c.Unit
		out.Unit = &u
	}
	return out
}
