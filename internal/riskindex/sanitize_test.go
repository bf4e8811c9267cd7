package riskindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

func TestSanitizeClampsRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     model.AssumptionKey
		value   float64
		want    float64
		wantMsg string
	}{
		{"ltv above bound", model.KeyLTV, 140, 100, "ltv 140.0 above maximum 100.0; clamped"},
		{"ltv below bound", model.KeyLTV, -5, 0, "ltv -5.0 below minimum 0.0; clamped"},
		{"vacancy above bound", model.KeyVacancy, 180, 100, "vacancy 180.0 above maximum 100.0; clamped"},
		{"cap rate above bound", model.KeyCapRateIn, 32, 25, "cap_rate_in 32.0 above maximum 25.0; clamped"},
		{"exit cap above bound", model.KeyExitCap, 40, 25, "exit_cap 40.0 above maximum 25.0; clamped"},
		{"debt rate above bound", model.KeyDebtRate, 26, 25, "debt_rate 26.0 above maximum 25.0; clamped"},
		{"rent growth below bound", model.KeyRentGrowth, -35, -20, "rent_growth -35.0 below minimum -20.0; clamped"},
		{"expense growth above bound", model.KeyExpenseGrowth, 55, 40, "expense_growth 55.0 above maximum 40.0; clamped"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := SanitizeAssumptions(model.AssumptionSet{
				tt.key: {Value: ptrFloat64(tt.value), Confidence: model.ConfidenceMedium},
			})
			require.Len(t, res.Errors, 1)
			assert.Equal(t, tt.wantMsg, res.Errors[0])
			assert.InDelta(t, tt.want, *res.Sanitized[tt.key].Value, 0.0001)
			assert.False(t, res.Severe)
		})
	}
}

func TestSanitizeSevereErrors(t *testing.T) {
	t.Parallel()

	t.Run("non-positive purchase price", func(t *testing.T) {
		t.Parallel()
		res := SanitizeAssumptions(model.AssumptionSet{
			model.KeyPurchasePrice: {Value: ptrFloat64(0), Confidence: model.ConfidenceHigh},
		})
		assert.True(t, res.Severe)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "purchase_price must be positive")
		// Severe values are recorded, not clamped to a business number.
		assert.InDelta(t, 0, *res.Sanitized[model.KeyPurchasePrice].Value, 0.0001)
	})

	t.Run("negative NOI", func(t *testing.T) {
		t.Parallel()
		res := SanitizeAssumptions(model.AssumptionSet{
			model.KeyNOIYear1: {Value: ptrFloat64(-250_000), Confidence: model.ConfidenceHigh},
		})
		assert.True(t, res.Severe)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "noi_year1 must be non-negative")
		assert.InDelta(t, -250_000, *res.Sanitized[model.KeyNOIYear1].Value, 0.0001)
	})
}

func TestSanitizeMissingFieldsAreNotErrors(t *testing.T) {
	t.Parallel()

	res := SanitizeAssumptions(model.AssumptionSet{
		model.KeyExitCap: {Confidence: model.ConfidenceLow},
	})
	assert.Empty(t, res.Errors)
	assert.False(t, res.Severe)
}

func TestSanitizeErrorOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	in := model.AssumptionSet{
		model.KeyLTV:           {Value: ptrFloat64(130), Confidence: model.ConfidenceHigh},
		model.KeyVacancy:       {Value: ptrFloat64(-2), Confidence: model.ConfidenceHigh},
		model.KeyPurchasePrice: {Value: ptrFloat64(-1), Confidence: model.ConfidenceHigh},
	}

	first := SanitizeAssumptions(in)
	require.Len(t, first.Errors, 3)
	for i := 0; i < 20; i++ {
		again := SanitizeAssumptions(in)
		assert.Equal(t, first.Errors, again.Errors)
	}

	// Errors follow canonical key order: purchase_price, vacancy, ltv.
	assert.Contains(t, first.Errors[0], "purchase_price")
	assert.Contains(t, first.Errors[1], "vacancy")
	assert.Contains(t, first.Errors[2], "ltv")
}

func TestSanitizeLeavesInputUntouched(t *testing.T) {
	t.Parallel()

	in := model.AssumptionSet{
		model.KeyLTV: {Value: ptrFloat64(140), Confidence: model.ConfidenceHigh},
	}
	_ = SanitizeAssumptions(in)
	assert.InDelta(t, 140, *in[model.KeyLTV].Value, 0.0001)
}
