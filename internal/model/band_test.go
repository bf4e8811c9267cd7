package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Band
	}{
		{"Low", BandLow},
		{"moderate", BandModerate},
		{" ELEVATED ", BandElevated},
		{"high", BandHigh},
		{"", Band("")},
		{"severe", Band("")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseBand(tt.in))
		})
	}
}

func TestBandRankOrdering(t *testing.T) {
	t.Parallel()

	assert.Less(t, BandLow.Rank(), BandModerate.Rank())
	assert.Less(t, BandModerate.Rank(), BandElevated.Rank())
	assert.Less(t, BandElevated.Rank(), BandHigh.Rank())
	assert.Equal(t, -1, Band("").Rank())

	assert.True(t, BandHigh.AtOrAbove(BandElevated))
	assert.True(t, BandModerate.AtOrAbove(BandModerate))
	assert.False(t, BandLow.AtOrAbove(BandModerate))
}
