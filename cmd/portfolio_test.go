package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-cre/riskindex-cli/internal/config"
	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{2500000, "2,500,000"},
		{1234567890, "1,234,567,890"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMoney(tt.in), "formatMoney(%d)", tt.in)
	}
}

func TestPortfolioConfig_OverlaysFileSettings(t *testing.T) {
	cfg = &config.Config{
		Portfolio: config.PortfolioConfig{
			StaleAfterDays:      30,
			DeteriorationPoints: 10,
		},
	}

	pc := portfolioConfig()
	assert.Equal(t, 30, pc.StaleAfterDays)
	assert.Equal(t, 10, pc.DeteriorationPoints)
	// Unset fields keep the aggregation defaults.
	assert.InDelta(t, portfolio.DefaultConfig().HighImpactPercentile, pc.HighImpactPercentile, 1e-9)
	assert.InDelta(t, portfolio.DefaultConfig().PRPIWeightScore, pc.PRPIWeightScore, 1e-9)
}

func TestWriteSummaryTable(t *testing.T) {
	score := 72
	delta := 12
	scanned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sum := &portfolio.Summary{
		OrgID:        "org-1",
		AsOf:         time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TotalDeals:   2,
		ScannedDeals: 1,
		ScoredDeals:  1,
		AvgScore:     72,
		BandCounts:   map[model.Band]int{model.BandHigh: 1},

		TopMarket:         "austin",
		TopMarketSharePct: 100,

		PRPIScore: 51,
		PRPIBand:  model.BandElevated,

		Deals: []portfolio.DealStanding{
			{
				DealID:          "deal-1",
				Name:            "Riverside Commons Apartments II",
				Market:          "austin",
				AssetType:       "multifamily",
				Score:           &score,
				Band:            model.BandHigh,
				ScoringVersion:  "v3",
				LastScannedAt:   &scanned,
				Delta:           &delta,
				DeltaComparable: true,
				Badges:          []string{portfolio.BadgeNeedsReview},
			},
			{
				DealID: "deal-2",
				Name:   "Lakeline Plaza",
				Market: "dallas",
				Badges: []string{portfolio.BadgeUnscanned},
			},
		},
		Alerts: []string{"1 deal(s) deteriorated by 8+ points"},
	}

	path := filepath.Join(t.TempDir(), "out.txt")
	f, err := os.Create(path)
	require.NoError(t, err)

	require.NoError(t, writeSummaryTable(f, sum))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	// Long names are truncated to keep columns aligned.
	assert.Contains(t, out, "Riverside Commons Apartme...")
	assert.Contains(t, out, "deal-1")
	assert.Contains(t, out, "+12")
	assert.Contains(t, out, "needs_review")
	// Unscanned deals render placeholder cells.
	assert.Contains(t, out, "deal-2")
	assert.Contains(t, out, "unscanned")
	// Org-level block follows the table.
	assert.Contains(t, out, "--- Portfolio ---")
	assert.Contains(t, out, "Deals:          2 total, 1 scanned, 1 scored")
	assert.Contains(t, out, "Risk index:     51 (Elevated)")
	assert.Contains(t, out, "Top market:     austin (100.0%)")
	assert.Contains(t, out, "1 deal(s) deteriorated by 8+ points")
}
