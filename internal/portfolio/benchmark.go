package portfolio

// Classification labels an org's portfolio posture relative to its cohort.
// The rule order matters: deterioration and concentration outrank raw
// aggressiveness.
type Classification string

const (
	ClassConservative  Classification = "Conservative"
	ClassModerate      Classification = "Moderate"
	ClassAggressive    Classification = "Aggressive"
	ClassConcentrated  Classification = "Concentrated"
	ClassDeteriorating Classification = "Deteriorating"
)

// CohortScore is one org's persisted weighted average score.
type CohortScore struct {
	OrgID         string  `json:"org_id"`
	WeightedScore float64 `json:"weighted_score"`
}

// BenchmarkResult places one org within its cohort.
type BenchmarkResult struct {
	OrgID          string         `json:"org_id"`
	WeightedScore  float64        `json:"weighted_score"`
	CohortSize     int            `json:"cohort_size"`
	Percentile     float64        `json:"percentile"`
	Classification Classification `json:"classification"`
}

// Benchmark ranks the summary's org against the cohort and classifies its
// posture from percentile, deterioration share, and market concentration.
func Benchmark(sum Summary, cohort []CohortScore) BenchmarkResult {
	scores := make([]float64, 0, len(cohort))
	for _, c := range cohort {
		scores = append(scores, c.WeightedScore)
	}

	res := BenchmarkResult{
		OrgID:         sum.OrgID,
		WeightedScore: sum.WeightedAvgScore,
		CohortSize:    len(cohort),
		Percentile:    BenchmarkPercentile(sum.WeightedAvgScore, scores),
	}

	var detShare float64
	if sum.ScannedDeals > 0 {
		detShare = float64(len(sum.Deteriorated)) / float64(sum.ScannedDeals)
	}
	res.Classification = Classify(res.Percentile, detShare, sum.TopMarketSharePct/100)
	return res
}

// BenchmarkPercentile returns the 0-100 percentile of score within the
// cohort, counting ties at half weight. Cohorts smaller than two members
// cannot rank anything and fall back to the 50th percentile.
func BenchmarkPercentile(score float64, cohort []float64) float64 {
	if len(cohort) < 2 {
		return 50
	}
	var below, equal float64
	for _, c := range cohort {
		switch {
		case c < score:
			below++
		case c == score:
			equal++
		}
	}
	return (below + 0.5*equal) / float64(len(cohort)) * 100
}

// Classify applies the ordered posture rules.
func Classify(percentile, deterioratedShare, topMarketShare float64) Classification {
	switch {
	case deterioratedShare >= 0.25:
		return ClassDeteriorating
	case topMarketShare >= 0.5:
		return ClassConcentrated
	case percentile >= 75:
		return ClassAggressive
	case percentile <= 25:
		return ClassConservative
	default:
		return ClassModerate
	}
}
