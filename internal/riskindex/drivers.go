package riskindex

import (
	"sort"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

// driverForRisk maps a risk type onto its semantic attribution driver.
func driverForRisk(rt model.RiskType) string {
	switch {
	case rt.IsStructural():
		return DriverLeverage
	case rt == model.RiskVacancyUnderstated:
		return DriverVacancy
	case rt == model.RiskExitCapCompression:
		return DriverCompression
	case rt.IsMissingData():
		return DriverMissing
	default:
		return DriverMarket
	}
}

// driverAccumulator gathers point contributions under the fixed driver label
// set. Accumulation order never affects output: the finalize step walks
// driverOrder, not insertion order.
type driverAccumulator struct {
	points map[string]float64
	conf   map[string][]float64
}

func newDriverAccumulator() *driverAccumulator {
	return &driverAccumulator{
		points: make(map[string]float64, len(driverOrder)),
		conf:   make(map[string][]float64, 4),
	}
}

// add credits pts (positive or negative) to a driver label.
func (a *driverAccumulator) add(label string, pts float64) {
	if pts == 0 {
		return
	}
	a.points[label] += pts
}

// addRisk credits a risk-backed contribution and records the risk's
// confidence factor for the per-driver confidence report.
func (a *driverAccumulator) addRisk(label string, pts, confFactor float64) {
	a.add(label, pts)
	a.conf[label] = append(a.conf[label], confFactor)
}

// total returns the signed sum over all drivers.
func (a *driverAccumulator) total() float64 {
	var sum float64
	for _, label := range driverOrder {
		sum += a.points[label]
	}
	return sum
}

// finalize applies the driver share cap and produces the ordered
// contribution list, the top-3 positive drivers, and per-driver mean
// confidence factors. No non-stabilizer, non-residual driver may exceed
// shareCap of the total positive contribution; the excess moves to the
// synthetic residual driver.
func (a *driverAccumulator) finalize(shareCap float64) (contribs []DriverContribution, top []string, confFactors map[string]float64, capped bool) {
	var totalPositive float64
	for _, label := range driverOrder {
		if p := a.points[label]; p > 0 {
			totalPositive += p
		}
	}

	if totalPositive > 0 {
		limit := shareCap * totalPositive
		for _, label := range driverOrder {
			if label == DriverStabilizers || label == DriverResidual {
				continue
			}
			if p := a.points[label]; p > limit {
				a.points[DriverResidual] += p - limit
				a.points[label] = limit
				capped = true
			}
		}
	}

	contribs = make([]DriverContribution, 0, len(driverOrder))
	for _, label := range driverOrder {
		p := a.points[label]
		if p == 0 {
			continue
		}
		share := 0.0
		if totalPositive > 0 {
			share = p / totalPositive * 100
		}
		contribs = append(contribs, DriverContribution{Label: label, Points: p, SharePct: share})
	}

	positive := make([]DriverContribution, 0, len(contribs))
	for _, c := range contribs {
		if c.Points > 0 {
			positive = append(positive, c)
		}
	}
	// Stable sort on a driverOrder-ordered slice keeps ties deterministic.
	sort.SliceStable(positive, func(i, j int) bool { return positive[i].Points > positive[j].Points })
	for i := 0; i < len(positive) && i < 3; i++ {
		top = append(top, positive[i].Label)
	}

	if len(a.conf) > 0 {
		confFactors = make(map[string]float64, len(a.conf))
		for _, label := range driverOrder {
			factors := a.conf[label]
			if len(factors) == 0 {
				continue
			}
			var sum float64
			for _, f := range factors {
				sum += f
			}
			confFactors[label] = sum / float64(len(factors))
		}
	}

	return contribs, top, confFactors, capped
}
