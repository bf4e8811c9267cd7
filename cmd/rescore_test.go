package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

func TestGroupRisks(t *testing.T) {
	risks := []model.RiskRecord{
		{ID: "r1", ScanID: "scan-1", Type: model.RiskVacancyUnderstated},
		{ID: "r2", ScanID: "scan-2", Type: model.RiskMarketSoftening},
		{ID: "r3", ScanID: "scan-1", Type: model.RiskRefinance},
	}

	byScan := groupRisks(risks)
	assert.Len(t, byScan, 2)
	assert.Len(t, byScan["scan-1"], 2)
	assert.Len(t, byScan["scan-2"], 1)
	assert.Equal(t, "r2", byScan["scan-2"][0].ID)
}

func TestGroupRisks_Empty(t *testing.T) {
	assert.Empty(t, groupRisks(nil))
}

func TestGroupLinks(t *testing.T) {
	links := []model.SignalLink{
		{RiskID: "r1", ScanID: "scan-1", SignalCategory: "supply"},
		{RiskID: "r1", ScanID: "scan-1", SignalCategory: "rates"},
	}

	byScan := groupLinks(links)
	assert.Len(t, byScan, 1)
	assert.Len(t, byScan["scan-1"], 2)
}
