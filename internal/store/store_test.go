package store

import (
	"time"

	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
)

// summaryFixture returns a minimal aggregated summary for snapshot tests.
// PRPI and weighted-score values match the assertions in the Postgres and
// SQLite snapshot tests.
func summaryFixture() *portfolio.Summary {
	return &portfolio.Summary{
		OrgID:            "org-1",
		AsOf:             time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TotalDeals:       2,
		ScannedDeals:     2,
		ScoredDeals:      2,
		AvgScore:         60,
		WeightedAvgScore: 50.0,
		BandCounts:       map[model.Band]int{model.BandHigh: 1, model.BandModerate: 1},
		PRPIScore:        51,
		PRPIBand:         model.BandElevated,
	}
}
