// Package portfolio aggregates per-deal scores into org-level summaries,
// backtests persisted scores against realized outcomes, and benchmarks an
// org against a cohort. Everything here is pure computation over rows the
// caller already fetched.
package portfolio

import (
	"time"

	"github.com/meridian-cre/riskindex-cli/internal/model"
)

// ResolveLatestScan returns the authoritative scan for a deal. The stored
// forward pointer wins when it references a completed scan belonging to the
// deal; otherwise the most recent (created_at, id) completed scan is used,
// because the pointer can be null or stale after partial writes.
func ResolveLatestScan(deal model.Deal, scans []model.Scan) *model.Scan {
	if deal.LatestScanID != nil && *deal.LatestScanID != "" {
		for i := range scans {
			s := &scans[i]
			if s.ID == *deal.LatestScanID && s.DealID == deal.ID && s.Completed() {
				return s
			}
		}
	}

	var best *model.Scan
	for i := range scans {
		s := &scans[i]
		if s.DealID != deal.ID || !s.Completed() {
			continue
		}
		if best == nil || scanAfter(s, best) {
			best = s
		}
	}
	return best
}

// BuildPriorScanIndex maps each deal id to the completed scan immediately
// preceding its resolved latest scan, under the same (created_at, id)
// ordering. Deals without a prior scan are absent from the map.
func BuildPriorScanIndex(deals []model.Deal, scans []model.Scan) map[string]*model.Scan {
	idx := make(map[string]*model.Scan, len(deals))
	for _, d := range deals {
		latest := ResolveLatestScan(d, scans)
		if latest == nil {
			continue
		}
		var prior *model.Scan
		for i := range scans {
			s := &scans[i]
			if s.DealID != d.ID || !s.Completed() || s.ID == latest.ID {
				continue
			}
			if !scanAfter(latest, s) {
				continue
			}
			if prior == nil || scanAfter(s, prior) {
				prior = s
			}
		}
		if prior != nil {
			idx[d.ID] = prior
		}
	}
	return idx
}

// scanAfter reports whether a is strictly newer than b by (created_at, id),
// ties broken by id descending.
func scanAfter(a, b *model.Scan) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// scanTime is the timestamp used for staleness checks.
func scanTime(s *model.Scan) time.Time {
	if s.CompletedAt != nil {
		return *s.CompletedAt
	}
	return s.CreatedAt
}
