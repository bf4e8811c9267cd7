package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBenchmarkPercentile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		score  float64
		cohort []float64
		want   float64
	}{
		{"empty cohort falls back to median", 60, nil, 50},
		{"single member falls back to median", 60, []float64{60}, 50},
		{"rank with self tie", 60, []float64{40, 50, 60, 70}, 62.5},
		{"near top", 90, []float64{40, 50, 60, 90}, 87.5},
		{"below everyone", 30, []float64{40, 50}, 0},
		{"all equal", 50, []float64{50, 50, 50}, 50},
		{"above everyone", 95, []float64{40, 50, 60, 70}, 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, BenchmarkPercentile(tt.score, tt.cohort), 1e-9)
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		percentile float64
		detShare   float64
		topMarket  float64
		want       Classification
	}{
		{"deterioration outranks everything", 90, 0.30, 0.90, ClassDeteriorating},
		{"concentration outranks aggressiveness", 90, 0.10, 0.60, ClassConcentrated},
		{"aggressive at p75", 75, 0, 0.20, ClassAggressive},
		{"conservative at p25", 25, 0, 0.20, ClassConservative},
		{"middle of the pack", 50, 0.10, 0.30, ClassModerate},
		{"deterioration boundary", 40, 0.25, 0, ClassDeteriorating},
		{"concentration boundary", 40, 0, 0.50, ClassConcentrated},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.percentile, tt.detShare, tt.topMarket))
		})
	}
}

func TestBenchmark(t *testing.T) {
	t.Parallel()

	cohort := []CohortScore{
		{OrgID: "org-1", WeightedScore: 72},
		{OrgID: "org-2", WeightedScore: 50},
		{OrgID: "org-3", WeightedScore: 80},
	}

	deteriorating := Summary{
		OrgID:            "org-1",
		WeightedAvgScore: 72,
		ScannedDeals:     4,
		Deteriorated:     []string{"d1", "d2"},
	}
	res := Benchmark(deteriorating, cohort)
	assert.Equal(t, "org-1", res.OrgID)
	assert.Equal(t, 3, res.CohortSize)
	assert.InDelta(t, 50.0, res.Percentile, 1e-9)
	assert.Equal(t, ClassDeteriorating, res.Classification, "half the book deteriorated")

	steady := Summary{
		OrgID:             "org-1",
		WeightedAvgScore:  72,
		ScannedDeals:      4,
		TopMarketSharePct: 30,
	}
	res = Benchmark(steady, cohort)
	assert.Equal(t, ClassModerate, res.Classification)
}
