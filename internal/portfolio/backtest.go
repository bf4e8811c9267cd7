package portfolio

import (
	"math"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

// DefaultMinBacktestSample is the smallest outcome sample the backtest will
// draw conclusions from.
const DefaultMinBacktestSample = 25

// Predictive-strength labels.
const (
	StrengthWeak     = "Weak"
	StrengthModerate = "Moderate"
	StrengthStrong   = "Strong"
)

// BandOutcome holds realized-outcome statistics for one band.
type BandOutcome struct {
	Band        model.Band `json:"band"`
	Sample      int        `json:"sample"`
	Defaults    int        `json:"defaults"`
	DefaultRate float64    `json:"default_rate"`
	AvgLossRate float64    `json:"avg_loss_rate"`
	LossSamples int        `json:"loss_samples"`
}

// BacktestResult reports how well persisted scores predicted realized
// outcomes.
type BacktestResult struct {
	Sample         int           `json:"sample"`
	MinSample      int           `json:"min_sample"`
	Bands          []BandOutcome `json:"bands"`
	Discrimination float64       `json:"discrimination"`
	Correlation    *float64      `json:"correlation,omitempty"`
	Strength       string        `json:"strength"`
}

var bandOrder = []model.Band{model.BandLow, model.BandModerate, model.BandElevated, model.BandHigh}

// Backtest evaluates scans that carry both a persisted score and a realized
// outcome (default flag or loss rate). Below minSample it reports a nil
// correlation and Weak strength rather than spurious precision.
func Backtest(scans []model.Scan, minSample int) BacktestResult {
	if minSample <= 0 {
		minSample = DefaultMinBacktestSample
	}
	res := BacktestResult{MinSample: minSample, Strength: StrengthWeak}

	type perBand struct {
		sample, defaults, lossSamples int
		lossSum                       float64
	}
	stats := make(map[model.Band]*perBand, len(bandOrder))
	for _, b := range bandOrder {
		stats[b] = &perBand{}
	}

	var scores, outcomes []float64
	for _, s := range scans {
		if s.Score == nil {
			continue
		}
		band := model.ParseBand(s.Band)
		if band == "" {
			continue
		}
		outcome, ok := realizedOutcome(&s)
		if !ok {
			continue
		}

		res.Sample++
		pb := stats[band]
		pb.sample++
		if s.DefaultFlag != nil && *s.DefaultFlag {
			pb.defaults++
		}
		if s.LossRate != nil {
			pb.lossSamples++
			pb.lossSum += *s.LossRate
		}

		scores = append(scores, float64(*s.Score))
		outcomes = append(outcomes, outcome)
	}

	for _, b := range bandOrder {
		pb := stats[b]
		out := BandOutcome{
			Band:        b,
			Sample:      pb.sample,
			Defaults:    pb.defaults,
			LossSamples: pb.lossSamples,
		}
		if pb.sample > 0 {
			out.DefaultRate = float64(pb.defaults) / float64(pb.sample)
		}
		if pb.lossSamples > 0 {
			out.AvgLossRate = pb.lossSum / float64(pb.lossSamples)
		}
		res.Bands = append(res.Bands, out)
	}

	res.Discrimination = res.Bands[3].DefaultRate - res.Bands[0].DefaultRate

	if res.Sample >= minSample {
		if r, ok := pearson(scores, outcomes); ok {
			res.Correlation = &r
		}
		switch {
		case res.Sample >= 2*minSample && res.Discrimination >= 0.15:
			res.Strength = StrengthStrong
		case res.Discrimination >= 0.05:
			res.Strength = StrengthModerate
		}
	}

	return res
}

// realizedOutcome maps a scan's outcome fields onto a single 0-1 value: the
// default flag when present, else the loss rate clamped to [0,1].
func realizedOutcome(s *model.Scan) (float64, bool) {
	if s.DefaultFlag != nil {
		if *s.DefaultFlag {
			return 1, true
		}
		return 0, true
	}
	if s.LossRate != nil {
		v := *s.LossRate
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return v, true
	}
	return 0, false
}

// pearson returns the correlation coefficient, or ok=false when either
// series has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0, false
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}
