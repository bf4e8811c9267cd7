package riskindex

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

// ScoreInput bundles everything one scoring call consumes. All fields are
// read-only to the engine; Assumptions must already be normalized and
// sanitized.
type ScoreInput struct {
	Risks            []model.RiskRecord
	Assumptions      model.AssumptionSet
	MacroSignals     int
	UnitInferred     bool
	Severe           bool
	ValidationErrors []string
	Previous         *PreviousScore
}

// Score computes the Risk Index for one scan. Pure and deterministic: no
// randomness, no clock, no external calls, and identical inputs always yield
// a structurally identical result. Malformed but type-correct input never
// raises; anomalies surface as flags or forced bands.
func Score(in ScoreInput, cfg VersionConfig) RiskIndexResult {
	risks := canonicalRisks(in.Risks)
	acc := newDriverAccumulator()

	b := Breakdown{
		RiskIndexVersion: cfg.Version,
		UnitInferred:     in.UnitInferred,
	}
	if len(in.ValidationErrors) > 0 {
		b.ValidationErrors = append([]string(nil), in.ValidationErrors...)
	}

	// Per-risk penalties, market-bucket cap, missing-data ceiling.
	contribs := riskContributions(risks, in.Assumptions, cfg)
	structural, market := bucketTotals(contribs)
	cappedMarket := market
	if maxMarket := cfg.MarketShareCap * (structural + market); market > maxMarket {
		scale := maxMarket / market
		for i := range contribs {
			if !contribs[i].structural {
				contribs[i].points *= scale
			}
		}
		cappedMarket = maxMarket
	}
	riskPenalty := structural + cappedMarket

	if riskPenalty > 0 {
		b.StructuralWeightPct = structural / riskPenalty * 100
		b.MarketWeightPct = cappedMarket / riskPenalty * 100
	}

	ceiling := missingDataOnly(contribs, risks)
	if ceiling && riskPenalty > cfg.MissingDataPenaltyCap {
		scale := cfg.MissingDataPenaltyCap / riskPenalty
		for i := range contribs {
			contribs[i].points *= scale
		}
		riskPenalty = cfg.MissingDataPenaltyCap
	}

	for _, rc := range contribs {
		if rc.points > 0 {
			acc.addRisk(driverForRisk(rc.risk.Type), rc.points, rc.factor)
		}
	}

	// Stabilizers.
	acc.add(DriverStabilizers, -stabilizerCredits(in.Assumptions, cfg))

	// Macro linkage, capped so macro context cannot dominate structural risk.
	if in.MacroSignals > 0 {
		macro := float64(in.MacroSignals) * cfg.MacroPointsPerSignal
		macro = math.Min(macro, math.Min(cfg.MacroPointCap, cfg.MacroShareCap*riskPenalty))
		if macro > 0 {
			b.MacroPoints = macro
			acc.add(DriverMarket, macro)
		}
	}

	// Confidence adjustment over the whole risk set.
	if len(risks) > 0 {
		mean := meanConfidence(risks, cfg)
		switch {
		case mean < cfg.LowConfidenceMean:
			acc.add(DriverMarket, cfg.LowConfidencePenalty)
			b.NeedsReview = true
		case mean >= cfg.HighConfidenceMean:
			acc.add(DriverStabilizers, -cfg.HighConfidenceCredit)
		}
	}

	// Ramped penalties. Continuity is a requirement: a step function here
	// would make two near-identical deals land points apart.
	spread, hasSpread := capSpread(in.Assumptions)
	if hasSpread {
		acc.add(DriverCompression, compressionPenalty(spread, cfg))
	}

	dscr, hasDSCR := ComputeDSCR(in.Assumptions)
	if hasDSCR {
		acc.add(DriverLeverage, dscrPenalty(dscr, cfg))
	}

	ltv, hasLTV := in.Assumptions.Number(model.KeyLTV)
	vac, hasVac := in.Assumptions.Number(model.KeyVacancy)
	var ltvVacFloor model.Band
	if hasLTV && hasVac {
		var pts float64
		pts, ltvVacFloor = ltvVacancyPenalty(ltv, vac, cfg)
		acc.add(DriverLeverage, pts)
	}

	// Edge cases: recorded always, scored rarely.
	if ec, ok := in.Assumptions.Number(model.KeyExitCap); ok && (ec < cfg.ExitCapSaneMin || ec > cfg.ExitCapSaneMax) {
		b.EdgeFlags = append(b.EdgeFlags, FlagExitCapOutOfRange)
		b.NeedsReview = true
	}
	if rg, ok := in.Assumptions.Number(model.KeyRentGrowth); ok && rg > cfg.AggressiveRentGrowth {
		if in.Assumptions[model.KeyRentGrowth].Confidence == model.ConfidenceLow {
			b.EdgeFlags = append(b.EdgeFlags, FlagAggressiveRentLowConf)
			b.NeedsReview = true
		}
	}
	if hasVac && vac > cfg.ExtremeVacancy {
		acc.add(DriverVacancy, cfg.ExtremeVacancyPts)
		b.EdgeFlags = append(b.EdgeFlags, FlagExtremeVacancy)
	}
	if in.UnitInferred {
		b.EdgeFlags = append(b.EdgeFlags, FlagUnitInferred)
		b.NeedsReview = true
	}

	// Assemble the numeric score before finalize reshuffles driver points;
	// the share cap moves points between drivers but preserves the total.
	raw := cfg.BaseScore + acc.total()
	b.RawScore = raw

	score := int(math.Round(clamp(raw, 0, 100)))
	if ceiling && score > cfg.MissingDataScoreCap {
		score = cfg.MissingDataScoreCap
	}
	band := cfg.BandForScore(score)

	// Tier overrides: band floors, never lowering, each with a reason code.
	if ceiling {
		b.TierDrivers = append(b.TierDrivers, ReasonMissingDataCeiling)
	}
	raiseTo := func(min model.Band, reason string) {
		if band.Rank() < min.Rank() {
			band = min
		}
		b.TierDrivers = append(b.TierDrivers, reason)
	}
	if hasLTV && ltv > cfg.LTVOverrideHighLTV {
		raiseTo(model.BandHigh, ReasonLTVAbove90)
	}
	if hasSpread && spread >= cfg.CompressionOverride {
		raiseTo(model.BandElevated, ReasonCapCompressionHigh)
	}
	switch ltvVacFloor {
	case model.BandHigh:
		raiseTo(model.BandHigh, ReasonLTVVacancyHigh)
	case model.BandElevated:
		raiseTo(model.BandElevated, ReasonLTVVacancyElevated)
	}
	if hasDSCR && dscr < cfg.DSCRRampLow {
		raiseTo(model.BandElevated, ReasonDSCRBelowOne)
	}
	if in.Severe {
		raiseTo(model.BandModerate, ReasonSevereInput)
	}

	drivers, top, confFactors, shareCapped := acc.finalize(cfg.DriverShareCap)
	b.Drivers = drivers
	b.TopDrivers = top
	b.ConfidenceFactors = confFactors
	if shareCapped {
		b.EdgeFlags = append(b.EdgeFlags, FlagDriverShareCapped)
	}

	// Delta tracking, gated on scoring-version match.
	if in.Previous != nil {
		prev := in.Previous.Score
		b.PreviousScore = &prev
		if strings.TrimSpace(in.Previous.Version) == cfg.Version {
			delta := score - prev
			b.ScoreDelta = &delta
			b.BandTransition = fmt.Sprintf("%s->%s", cfg.BandForScore(prev), band)
			b.Deteriorated = delta >= cfg.DeteriorationPoints
			b.DeltaComparable = true
		}
	}

	return RiskIndexResult{Score: score, Band: band, Breakdown: b}
}

// Evaluate runs the full pipeline on raw extraction output: normalize,
// sanitize, then score. Convenience for callers holding unprocessed rows.
func Evaluate(risks []model.RiskRecord, raw model.AssumptionSet, macroSignals int, previous *PreviousScore, cfg VersionConfig) RiskIndexResult {
	normalized, inferred := NormalizeAssumptions(raw)
	san := SanitizeAssumptions(normalized)
	return Score(ScoreInput{
		Risks:            risks,
		Assumptions:      san.Sanitized,
		MacroSignals:     macroSignals,
		UnitInferred:     inferred,
		Severe:           san.Severe,
		ValidationErrors: san.Errors,
		Previous:         previous,
	}, cfg)
}

// CountMacroSignals counts the unique macro-signal categories among a scan's
// links. Links with no category fall back to their signal text.
func CountMacroSignals(links []model.SignalLink) int {
	seen := make(map[string]bool, len(links))
	for _, l := range links {
		key := strings.ToLower(strings.TrimSpace(l.SignalCategory))
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(l.SignalText))
		}
		if key == "" {
			continue
		}
		seen[key] = true
	}
	return len(seen)
}

type riskContribution struct {
	risk       model.RiskRecord
	points     float64
	factor     float64
	structural bool
}

// riskContributions computes each risk's penalty: severity points scaled by
// the confidence factor, with type-specific caps and gating conditions.
func riskContributions(risks []model.RiskRecord, a model.AssumptionSet, cfg VersionConfig) []riskContribution {
	_, hasExpenseGrowth := a.Number(model.KeyExpenseGrowth)
	spread, hasSpread := capSpread(a)

	out := make([]riskContribution, 0, len(risks))
	for _, r := range risks {
		factor := confidenceFactor(r.Confidence, cfg)
		pts := severityPoints(r.SeverityCurrent, cfg) * factor

		switch r.Type {
		case model.RiskDataMissing:
			pts = math.Min(pts, cfg.MissingDataPointCap)
		case model.RiskExpenseUnderstated:
			// Only a data gap when expense growth is actually absent.
			if hasExpenseGrowth {
				pts = 0
			} else {
				pts = math.Min(pts, cfg.MissingDataPointCap)
			}
		case model.RiskExitCapCompression:
			if !hasSpread || spread <= cfg.CompressionGate {
				pts = 0
			}
		}

		out = append(out, riskContribution{
			risk:       r,
			points:     pts,
			factor:     factor,
			structural: r.Type.IsStructural(),
		})
	}
	return out
}

func bucketTotals(contribs []riskContribution) (structural, market float64) {
	for _, c := range contribs {
		if c.structural {
			structural += c.points
		} else {
			market += c.points
		}
	}
	return structural, market
}

// missingDataOnly reports whether the missing-data ceiling applies: at least
// one contributing risk, every contributing risk a data gap, and no
// structural risk anywhere in the set at High severity.
func missingDataOnly(contribs []riskContribution, risks []model.RiskRecord) bool {
	contributing := 0
	for _, c := range contribs {
		if c.points <= 0 {
			continue
		}
		if !c.risk.Type.IsMissingData() {
			return false
		}
		contributing++
	}
	if contributing == 0 {
		return false
	}
	for _, r := range risks {
		if r.Type.IsStructural() && r.SeverityCurrent == model.SeverityHigh {
			return false
		}
	}
	return true
}

// stabilizerCredits totals the risk-reducing credits from conservative
// assumptions, capped.
func stabilizerCredits(a model.AssumptionSet, cfg VersionConfig) float64 {
	var credit float64
	if ltv, ok := a.Number(model.KeyLTV); ok {
		switch {
		case ltv <= cfg.LTVStrongMax:
			credit += cfg.LTVStrongCredit
		case ltv <= cfg.LTVModestMax:
			credit += cfg.LTVModestCredit
		}
	}
	entry, hasEntry := a.Number(model.KeyCapRateIn)
	exit, hasExit := a.Number(model.KeyExitCap)
	if hasEntry && hasExit && exit >= entry {
		credit += cfg.ExitAtOrAboveEntryCred
	}
	return math.Min(credit, cfg.StabilizerCap)
}

// capSpread returns entry cap minus exit cap in percentage points. Positive
// spread means the underwriting assumes exit-cap compression.
func capSpread(a model.AssumptionSet) (float64, bool) {
	entry, okEntry := a.Number(model.KeyCapRateIn)
	exit, okExit := a.Number(model.KeyExitCap)
	if !okEntry || !okExit {
		return 0, false
	}
	return entry - exit, true
}

func compressionPenalty(spread float64, cfg VersionConfig) float64 {
	if spread <= cfg.CompressionGate {
		return 0
	}
	t := (spread - cfg.CompressionGate) / (cfg.CompressionRampEnd - cfg.CompressionGate)
	if t > 1 {
		t = 1
	}
	return cfg.CompressionRampMin + t*(cfg.CompressionRampMax-cfg.CompressionRampMin)
}

// ComputeDSCR derives debt-service coverage from first-year NOI against the
// implied annual debt service (purchase price x LTV x debt rate). All four
// inputs must be present and positive; the engine skips DSCR rather than
// guessing a missing debt term.
func ComputeDSCR(a model.AssumptionSet) (float64, bool) {
	noi, okNOI := a.Positive(model.KeyNOIYear1)
	price, okPrice := a.Positive(model.KeyPurchasePrice)
	ltv, okLTV := a.Positive(model.KeyLTV)
	rate, okRate := a.Positive(model.KeyDebtRate)
	if !okNOI || !okPrice || !okLTV || !okRate {
		return 0, false
	}
	debtService := price * (ltv / 100) * (rate / 100)
	if debtService <= 0 {
		return 0, false
	}
	return noi / debtService, true
}

func dscrPenalty(dscr float64, cfg VersionConfig) float64 {
	if dscr >= cfg.DSCRRampHigh {
		return 0
	}
	t := (cfg.DSCRRampHigh - dscr) / (cfg.DSCRRampHigh - cfg.DSCRRampLow)
	if t > 1 {
		t = 1
	}
	return t * cfg.DSCRMaxPenalty
}

// ltvVacancyPenalty scores the leverage-vacancy interaction: nothing below
// the ramp thresholds, a partial ramp in the middle zone, and fixed penalties
// with forced minimum bands at the two highest threshold pairs.
func ltvVacancyPenalty(ltv, vac float64, cfg VersionConfig) (float64, model.Band) {
	switch {
	case ltv >= cfg.LTVVacHighLTV && vac >= cfg.LTVVacHighVac:
		return cfg.LTVVacHighPts, model.BandHigh
	case ltv >= cfg.LTVVacElevatedLTV && vac >= cfg.LTVVacElevatedVac:
		return cfg.LTVVacElevatedPts, model.BandElevated
	case ltv > cfg.LTVVacRampLTV && vac > cfg.LTVVacRampVacancy:
		t := math.Min(
			(ltv-cfg.LTVVacRampLTV)/cfg.LTVVacRampSpan,
			(vac-cfg.LTVVacRampVacancy)/cfg.LTVVacRampSpan,
		)
		if t > 1 {
			t = 1
		}
		return cfg.LTVVacElevatedPts * t, ""
	}
	return 0, ""
}

func severityPoints(s model.Severity, cfg VersionConfig) float64 {
	if p, ok := cfg.SeverityPoints[s]; ok {
		return p
	}
	return cfg.SeverityPoints[model.SeverityLow]
}

func confidenceFactor(c *model.Confidence, cfg VersionConfig) float64 {
	if c == nil {
		return cfg.MissingConfidenceFactor
	}
	if f, ok := cfg.ConfidenceFactors[*c]; ok {
		return f
	}
	return cfg.MissingConfidenceFactor
}

func meanConfidence(risks []model.RiskRecord, cfg VersionConfig) float64 {
	var sum float64
	for _, r := range risks {
		sum += confidenceFactor(r.Confidence, cfg)
	}
	return sum / float64(len(risks))
}

// canonicalRisks copies and sorts the risk set so float accumulation is
// stable under any input permutation.
func canonicalRisks(in []model.RiskRecord) []model.RiskRecord {
	out := append([]model.RiskRecord(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.SeverityCurrent != b.SeverityCurrent {
			return a.SeverityCurrent < b.SeverityCurrent
		}
		ac, bc := confKey(a.Confidence), confKey(b.Confidence)
		if ac != bc {
			return ac < bc
		}
		return a.ID < b.ID
	})
	return out
}

func confKey(c *model.Confidence) string {
	if c == nil {
		return "~" // sorts after any level
	}
	return string(*c)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
