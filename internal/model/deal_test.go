package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanCompleted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ScanStatus
		want   bool
	}{
		{ScanStatusCompleted, true},
		{ScanStatusPending, false},
		{ScanStatusRunning, false},
		{ScanStatusFailed, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			s := &Scan{Status: tt.status}
			assert.Equal(t, tt.want, s.Completed())
		})
	}
}

func TestScanPurchasePrice(t *testing.T) {
	t.Parallel()

	t.Run("no assumptions", func(t *testing.T) {
		t.Parallel()
		s := &Scan{}
		_, ok := s.PurchasePrice()
		assert.False(t, ok)
	})

	t.Run("positive price", func(t *testing.T) {
		t.Parallel()
		s := &Scan{Assumptions: AssumptionSet{
			KeyPurchasePrice: {Value: ptrFloat64(25_000_000), Confidence: ConfidenceHigh},
		}}
		v, ok := s.PurchasePrice()
		assert.True(t, ok)
		assert.Equal(t, 25_000_000.0, v)
	})

	t.Run("zero price is not exposure", func(t *testing.T) {
		t.Parallel()
		s := &Scan{Assumptions: AssumptionSet{
			KeyPurchasePrice: {Value: ptrFloat64(0), Confidence: ConfidenceLow},
		}}
		_, ok := s.PurchasePrice()
		assert.False(t, ok)
	})
}
