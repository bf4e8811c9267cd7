package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Severity
	}{
		{"high", SeverityHigh},
		{"HIGH", SeverityHigh},
		{" High ", SeverityHigh},
		{"medium", SeverityMedium},
		{"med", SeverityMedium},
		{"low", SeverityLow},
		{"", SeverityLow},
		{"critical", SeverityLow},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseSeverity(tt.in))
		})
	}
}

func TestParseConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Confidence
	}{
		{"high", ConfidenceHigh},
		{"Medium", ConfidenceMedium},
		{"low", ConfidenceLow},
		{"", ConfidenceLow},
		{"certain", ConfidenceLow},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseConfidence(tt.in))
		})
	}
}

func TestParseRiskType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want RiskType
	}{
		{"debt_cost_risk", RiskDebtCost},
		{"EXIT_CAP_COMPRESSION", RiskExitCapCompression},
		{" vacancy_understated ", RiskVacancyUnderstated},
		{"data_missing", RiskDataMissing},
		{"", RiskDataMissing},
		{"alien_invasion", RiskDataMissing},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseRiskType(tt.in))
		})
	}
}

func TestRiskTypeBuckets(t *testing.T) {
	t.Parallel()

	structural := []RiskType{
		RiskDebtCost, RiskRefinance, RiskLiquidity, RiskInsuranceCost, RiskConstructionTiming,
	}
	market := []RiskType{
		RiskExitCapCompression, RiskVacancyUnderstated, RiskRentGrowthAggressive,
		RiskExpenseUnderstated, RiskMarketSoftening, RiskDataMissing,
	}

	for _, rt := range structural {
		assert.True(t, rt.IsStructural(), "%s should be structural", rt)
	}
	for _, rt := range market {
		assert.False(t, rt.IsStructural(), "%s should be market", rt)
	}

	assert.True(t, RiskDataMissing.IsMissingData())
	assert.True(t, RiskExpenseUnderstated.IsMissingData())
	assert.False(t, RiskVacancyUnderstated.IsMissingData())
}
