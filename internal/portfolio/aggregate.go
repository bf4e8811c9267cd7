package portfolio

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/riskindex"
)

// Badge names attached to deal standings.
const (
	BadgeUnscanned   = "unscanned"
	BadgeStale       = "stale"
	BadgeNeedsReview = "needs_review"
)

// Config holds the aggregation thresholds. One immutable structure; callers
// start from DefaultConfig and overlay file settings.
type Config struct {
	StaleAfterDays       int     `yaml:"stale_after_days" mapstructure:"stale_after_days"`
	DeteriorationPoints  int     `yaml:"deterioration_points" mapstructure:"deterioration_points"`
	HighImpactPercentile float64 `yaml:"high_impact_percentile" mapstructure:"high_impact_percentile"`

	// Composite index blend. Weights sum to 1; each component is on a
	// 0-100 scale before blending.
	PRPIWeightScore         float64 `yaml:"prpi_weight_score" mapstructure:"prpi_weight_score"`
	PRPIWeightHighExposure  float64 `yaml:"prpi_weight_high_exposure" mapstructure:"prpi_weight_high_exposure"`
	PRPIWeightDeteriorating float64 `yaml:"prpi_weight_deteriorating" mapstructure:"prpi_weight_deteriorating"`
	PRPIWeightTopMarket     float64 `yaml:"prpi_weight_top_market" mapstructure:"prpi_weight_top_market"`
	PRPIWeightTopAsset      float64 `yaml:"prpi_weight_top_asset" mapstructure:"prpi_weight_top_asset"`

	PRPILowMax      int `yaml:"prpi_low_max" mapstructure:"prpi_low_max"`
	PRPIModerateMax int `yaml:"prpi_moderate_max" mapstructure:"prpi_moderate_max"`
	PRPIElevatedMax int `yaml:"prpi_elevated_max" mapstructure:"prpi_elevated_max"`
}

// DefaultConfig returns the aggregation defaults.
func DefaultConfig() Config {
	return Config{
		StaleAfterDays:       45,
		DeteriorationPoints:  8,
		HighImpactPercentile: 0.80,

		PRPIWeightScore:         0.30,
		PRPIWeightHighExposure:  0.25,
		PRPIWeightDeteriorating: 0.15,
		PRPIWeightTopMarket:     0.15,
		PRPIWeightTopAsset:      0.15,

		PRPILowMax:      30,
		PRPIModerateMax: 50,
		PRPIElevatedMax: 70,
	}
}

// AggregateInput carries everything the aggregator reads. All collections
// are fetched by the caller before invocation; the aggregator never queries.
type AggregateInput struct {
	Deals      []model.Deal
	Scans      []model.Scan
	Risks      []model.RiskRecord
	Links      []model.SignalLink
	PriorScans map[string]*model.Scan
	AsOf       time.Time
	Cfg        Config
}

// DealStanding is one deal's row in the portfolio table.
type DealStanding struct {
	DealID    string `json:"deal_id"`
	Name      string `json:"name"`
	Market    string `json:"market"`
	AssetType string `json:"asset_type"`

	ScanID         string     `json:"scan_id,omitempty"`
	Score          *int       `json:"score,omitempty"`
	Band           model.Band `json:"band,omitempty"`
	ScoringVersion string     `json:"scoring_version,omitempty"`

	PurchasePrice *float64   `json:"purchase_price,omitempty"`
	Weight        float64    `json:"weight"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`

	Delta           *int `json:"delta,omitempty"`
	DeltaComparable bool `json:"delta_comparable"`

	RiskCount        int `json:"risk_count"`
	HighRiskCount    int `json:"high_risk_count"`
	MacroSignalCount int `json:"macro_signal_count"`

	Badges []string `json:"badges,omitempty"`
}

// Summary is the org-level aggregation result. All percentage fields are on
// a 0-100 scale; share fields likewise.
type Summary struct {
	OrgID string    `json:"org_id"`
	AsOf  time.Time `json:"as_of"`

	TotalDeals   int `json:"total_deals"`
	ScannedDeals int `json:"scanned_deals"`
	ScoredDeals  int `json:"scored_deals"`

	AvgScore                float64 `json:"avg_score"`
	WeightedAvgScore        float64 `json:"weighted_avg_score"`
	PctElevatedPlus         float64 `json:"pct_elevated_plus"`
	WeightedPctElevatedPlus float64 `json:"weighted_pct_elevated_plus"`
	AnyExposureWeighted     bool    `json:"any_exposure_weighted"`

	BandCounts map[model.Band]int `json:"band_counts"`

	TopMarket          string         `json:"top_market,omitempty"`
	TopMarketSharePct  float64        `json:"top_market_share_pct"`
	TopAssetType       string         `json:"top_asset_type,omitempty"`
	TopAssetSharePct   float64        `json:"top_asset_share_pct"`
	MarketElevatedPlus map[string]int `json:"market_elevated_plus,omitempty"`

	HighImpactDeteriorations int     `json:"high_impact_deteriorations"`
	HighImpactPriceFloor     float64 `json:"high_impact_price_floor"`

	PRPIScore int        `json:"prpi_score"`
	PRPIBand  model.Band `json:"prpi_band"`

	VersionMajority string   `json:"version_majority,omitempty"`
	VersionDrift    []string `json:"version_drift,omitempty"`
	Deteriorated    []string `json:"deteriorated,omitempty"`
	CrossedTiers    []string `json:"crossed_tiers,omitempty"`
	MovementCount   int      `json:"movement_count"`

	Deals  []DealStanding `json:"deals"`
	Alerts []string       `json:"alerts,omitempty"`
}

// Aggregate folds the org's deals, scans, risks, and macro links into a
// Summary. Every empty or missing-data branch yields a defined zero value.
func Aggregate(in AggregateInput) Summary {
	sum := Summary{
		AsOf:               in.AsOf,
		TotalDeals:         len(in.Deals),
		BandCounts:         make(map[model.Band]int),
		MarketElevatedPlus: make(map[string]int),
	}
	if len(in.Deals) > 0 {
		sum.OrgID = in.Deals[0].OrgID
	}

	risksByScan := make(map[string][]model.RiskRecord)
	for _, r := range in.Risks {
		risksByScan[r.ScanID] = append(risksByScan[r.ScanID], r)
	}
	linksByScan := make(map[string][]model.SignalLink)
	for _, l := range in.Links {
		linksByScan[l.ScanID] = append(linksByScan[l.ScanID], l)
	}

	var (
		scoreSum         float64
		weightSum        float64
		weightedScoreSum float64
		elevatedCount    int
		elevatedWeight   float64
		highBandWeight   float64
		detWeight        float64

		marketCounts = make(map[string]int)
		assetCounts  = make(map[string]int)
		versionVotes = make(map[string]int)

		prices       []float64
		unscanned    int
		stale        int
		deteriorated = make(map[string]bool)
		crossed      = make(map[string]bool)
	)

	staleCutoff := in.AsOf.Add(-time.Duration(in.Cfg.StaleAfterDays) * 24 * time.Hour)

	type scoredDeal struct {
		dealID string
		name   string
		price  float64
		det    bool
	}
	var scored []scoredDeal

	for _, d := range in.Deals {
		row := DealStanding{
			DealID:    d.ID,
			Name:      d.Name,
			Market:    d.Market,
			AssetType: d.AssetType,
			Weight:    1,
		}

		latest := ResolveLatestScan(d, in.Scans)
		if latest == nil {
			unscanned++
			row.Badges = append(row.Badges, BadgeUnscanned)
			row.Weight = 0
			sum.Deals = append(sum.Deals, row)
			continue
		}
		sum.ScannedDeals++

		at := scanTime(latest)
		row.ScanID = latest.ID
		row.LastScannedAt = &at
		row.Score = latest.Score
		row.Band = model.ParseBand(latest.Band)
		row.ScoringVersion = strings.TrimSpace(latest.ScoringVersion)
		row.RiskCount = len(risksByScan[latest.ID])
		for _, r := range risksByScan[latest.ID] {
			if r.SeverityCurrent == model.SeverityHigh {
				row.HighRiskCount++
			}
		}
		row.MacroSignalCount = riskindex.CountMacroSignals(linksByScan[latest.ID])

		if price, ok := latest.PurchasePrice(); ok {
			row.PurchasePrice = &price
			row.Weight = price
			prices = append(prices, price)
			sum.AnyExposureWeighted = true
		}

		if at.Before(staleCutoff) {
			stale++
			row.Badges = append(row.Badges, BadgeStale)
		}

		if row.ScoringVersion != "" {
			versionVotes[row.ScoringVersion]++
		}

		// Movement against the prior completed scan.
		prior := in.PriorScans[d.ID]
		if prior != nil && latest.Score != nil && prior.Score != nil &&
			row.ScoringVersion != "" &&
			row.ScoringVersion == strings.TrimSpace(prior.ScoringVersion) {
			delta := *latest.Score - *prior.Score
			row.Delta = &delta
			row.DeltaComparable = true
			if delta >= in.Cfg.DeteriorationPoints {
				deteriorated[d.ID] = true
				sum.Alerts = append(sum.Alerts, fmt.Sprintf(
					"deal %s: score deteriorated %d points (%d -> %d)",
					d.Name, delta, *prior.Score, *latest.Score,
				))
			}
		}
		if prior != nil {
			pb, lb := model.ParseBand(prior.Band), row.Band
			if pb != "" && lb != "" && pb != lb {
				crossed[d.ID] = true
				if lb.Rank() > pb.Rank() {
					sum.Alerts = append(sum.Alerts, fmt.Sprintf(
						"deal %s: band crossed %s -> %s", d.Name, pb, lb,
					))
				}
			}
			worsened := pb != "" && row.Band != "" && row.Band.Rank() > pb.Rank()
			if worsened || (row.Delta != nil && *row.Delta >= in.Cfg.DeteriorationPoints) {
				row.Badges = append(row.Badges, BadgeNeedsReview)
			}
		}

		if latest.Score != nil {
			sum.ScoredDeals++
			score := float64(*latest.Score)
			scoreSum += score
			weightSum += row.Weight
			weightedScoreSum += score * row.Weight

			if row.Band != "" {
				sum.BandCounts[row.Band]++
			}
			if row.Band.AtOrAbove(model.BandElevated) {
				elevatedCount++
				elevatedWeight += row.Weight
				if d.Market != "" {
					sum.MarketElevatedPlus[d.Market]++
				}
			}
			if row.Band == model.BandHigh {
				highBandWeight += row.Weight
			}
			if deteriorated[d.ID] {
				detWeight += row.Weight
			}

			if d.Market != "" {
				marketCounts[d.Market]++
			}
			if d.AssetType != "" {
				assetCounts[d.AssetType]++
			}

			scored = append(scored, scoredDeal{
				dealID: d.ID,
				name:   d.Name,
				price:  row.Weight,
				det:    deteriorated[d.ID],
			})
		}

		sum.Deals = append(sum.Deals, row)
	}

	if sum.ScoredDeals > 0 {
		sum.AvgScore = scoreSum / float64(sum.ScoredDeals)
		sum.PctElevatedPlus = float64(elevatedCount) / float64(sum.ScoredDeals) * 100
	}
	if weightSum > 0 {
		sum.WeightedAvgScore = weightedScoreSum / weightSum
		sum.WeightedPctElevatedPlus = elevatedWeight / weightSum * 100
	}

	sum.TopMarket, sum.TopMarketSharePct = topShare(marketCounts, sum.ScoredDeals)
	sum.TopAssetType, sum.TopAssetSharePct = topShare(assetCounts, sum.ScoredDeals)

	// High-impact deteriorations: score jumps on deals at or above the
	// portfolio's 80th percentile purchase price. Without any extracted
	// prices there is no exposure signal, so the count stays zero.
	if len(prices) > 0 {
		sum.HighImpactPriceFloor = percentile(prices, in.Cfg.HighImpactPercentile)
		for _, s := range scored {
			if s.det && s.price >= sum.HighImpactPriceFloor {
				sum.HighImpactDeteriorations++
			}
		}
	}

	// Version drift over non-empty trimmed versions only.
	sum.VersionMajority = majorityVersion(versionVotes)
	for _, row := range sum.Deals {
		if row.ScoringVersion != "" && sum.VersionMajority != "" &&
			row.ScoringVersion != sum.VersionMajority {
			sum.VersionDrift = append(sum.VersionDrift, row.DealID)
		}
	}

	sum.Deteriorated = sortedKeys(deteriorated)
	sum.CrossedTiers = sortedKeys(crossed)
	sort.Strings(sum.VersionDrift)

	union := make(map[string]bool)
	for _, id := range sum.Deteriorated {
		union[id] = true
	}
	for _, id := range sum.CrossedTiers {
		union[id] = true
	}
	for _, id := range sum.VersionDrift {
		union[id] = true
	}
	sum.MovementCount = len(union)

	sum.PRPIScore, sum.PRPIBand = compositeIndex(&sum, weightSum, highBandWeight, detWeight, in.Cfg)

	// Portfolio-level alerts after the per-deal ones.
	if unscanned > 0 {
		sum.Alerts = append(sum.Alerts, fmt.Sprintf("%d deal(s) have never been scanned", unscanned))
	}
	if stale > 0 {
		sum.Alerts = append(sum.Alerts, fmt.Sprintf(
			"%d deal(s) not rescanned in %d days", stale, in.Cfg.StaleAfterDays,
		))
	}
	if n := len(sum.VersionDrift); n > 0 {
		sum.Alerts = append(sum.Alerts, fmt.Sprintf(
			"%d deal(s) scored under non-majority scoring versions (majority %s)",
			n, sum.VersionMajority,
		))
	}
	if sum.HighImpactDeteriorations > 0 {
		sum.Alerts = append(sum.Alerts, fmt.Sprintf(
			"%d high-impact deterioration(s) at or above $%.0f exposure",
			sum.HighImpactDeteriorations, sum.HighImpactPriceFloor,
		))
	}
	if sum.PRPIBand.AtOrAbove(model.BandElevated) {
		sum.Alerts = append(sum.Alerts, fmt.Sprintf(
			"portfolio risk index %d (%s)", sum.PRPIScore, sum.PRPIBand,
		))
	}

	return sum
}

// compositeIndex blends the summary components into the 0-100 PRPI.
// An empty or zero-exposure portfolio scores 0, Low.
func compositeIndex(sum *Summary, weightSum, highWeight, detWeight float64, cfg Config) (int, model.Band) {
	if weightSum <= 0 || sum.ScoredDeals == 0 {
		return 0, model.BandLow
	}

	highPct := highWeight / weightSum * 100
	detPct := detWeight / weightSum * 100

	raw := cfg.PRPIWeightScore*sum.WeightedAvgScore +
		cfg.PRPIWeightHighExposure*highPct +
		cfg.PRPIWeightDeteriorating*detPct +
		cfg.PRPIWeightTopMarket*sum.TopMarketSharePct +
		cfg.PRPIWeightTopAsset*sum.TopAssetSharePct

	score := int(math.Round(raw))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var band model.Band
	switch {
	case score <= cfg.PRPILowMax:
		band = model.BandLow
	case score <= cfg.PRPIModerateMax:
		band = model.BandModerate
	case score <= cfg.PRPIElevatedMax:
		band = model.BandElevated
	default:
		band = model.BandHigh
	}
	return score, band
}

// topShare returns the most common label and its share of scored deals as a
// 0-100 percentage. Ties go to the lexicographically smallest label so the
// result is stable.
func topShare(counts map[string]int, total int) (string, float64) {
	if total == 0 || len(counts) == 0 {
		return "", 0
	}
	var top string
	best := -1
	for label, n := range counts {
		if n > best || (n == best && label < top) {
			top, best = label, n
		}
	}
	return top, float64(best) / float64(total) * 100
}

// percentile returns the nearest-rank percentile of values (p in (0,1]).
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// majorityVersion returns the most voted version, smallest string on ties.
func majorityVersion(votes map[string]int) string {
	var winner string
	best := -1
	for v, n := range votes {
		if n > best || (n == best && v < winner) {
			winner, best = v, n
		}
	}
	if best < 0 {
		return ""
	}
	return winner
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
