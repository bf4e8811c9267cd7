package model

import (
	"encoding/json"
	"time"
)

// ScanStatus represents the lifecycle state of an extraction scan.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// Deal is one commercial-real-estate deal under evaluation.
type Deal struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Name         string    `json:"name"`
	AssetType    string    `json:"asset_type,omitempty"`
	Market       string    `json:"market,omitempty"`
	LatestScanID *string   `json:"latest_scan_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Scan is one extraction pass over a deal's documents, together with any
// previously stored scoring output and realized outcome.
type Scan struct {
	ID             string          `json:"id"`
	DealID         string          `json:"deal_id"`
	Status         ScanStatus      `json:"status"`
	Assumptions    AssumptionSet   `json:"assumptions,omitempty"`
	Score          *int            `json:"score,omitempty"`
	Band           string          `json:"band,omitempty"`
	ScoringVersion string          `json:"scoring_version,omitempty"`
	Breakdown      json.RawMessage `json:"breakdown,omitempty"`
	DefaultFlag    *bool           `json:"default_flag,omitempty"`
	LossRate       *float64        `json:"loss_rate,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// Completed reports whether the scan finished extraction and is eligible to
// serve as a deal's authoritative scan.
func (s *Scan) Completed() bool {
	return s.Status == ScanStatusCompleted
}

// PurchasePrice returns the scan's extracted purchase price when present and
// positive. Used as the deal's exposure weight in portfolio aggregation.
func (s *Scan) PurchasePrice() (float64, bool) {
	if s.Assumptions == nil {
		return 0, false
	}
	return s.Assumptions.Positive(KeyPurchasePrice)
}
