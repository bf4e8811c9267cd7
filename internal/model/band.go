package model

import "strings"

// Band is the qualitative risk tier derived from a numeric Risk Index score.
type Band string

const (
	BandLow      Band = "Low"
	BandModerate Band = "Moderate"
	BandElevated Band = "Elevated"
	BandHigh     Band = "High"
)

// ParseBand maps raw band text to a closed tier. Unrecognized input returns
// the empty Band, which callers treat as "not comparable".
func ParseBand(s string) Band {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return BandLow
	case "moderate":
		return BandModerate
	case "elevated":
		return BandElevated
	case "high":
		return BandHigh
	}
	return ""
}

// Rank orders bands from Low (0) to High (3). The empty Band ranks -1.
func (b Band) Rank() int {
	switch b {
	case BandLow:
		return 0
	case BandModerate:
		return 1
	case BandElevated:
		return 2
	case BandHigh:
		return 3
	}
	return -1
}

// AtOrAbove reports whether b is at least as severe as other.
func (b Band) AtOrAbove(other Band) bool {
	return b.Rank() >= other.Rank()
}
