// Package store persists deals, scans, risk records, and scoring output.
// The scoring and portfolio packages never import it; callers fetch rows
// here first and hand plain model values to the engines.
package store

import (
	"context"

	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
	"github.com/meridian-cre/riskindex-cli/internal/riskindex"
)

// Store defines the persistence interface for the risk-index CLI.
type Store interface {
	// Deals and scans
	GetDeal(ctx context.Context, dealID string) (*model.Deal, error)
	ListDeals(ctx context.Context, orgID string) ([]model.Deal, error)
	GetScan(ctx context.Context, scanID string) (*model.Scan, error)
	ListScans(ctx context.Context, orgID string) ([]model.Scan, error)

	// Risk records and macro-signal links, batched by scan ids
	ListRisks(ctx context.Context, scanIDs []string) ([]model.RiskRecord, error)
	ListSignalLinks(ctx context.Context, scanIDs []string) ([]model.SignalLink, error)

	// Scoring write-back
	SaveScore(ctx context.Context, scanID string, result *riskindex.RiskIndexResult) error

	// Portfolio snapshots and outcome history
	SaveSummarySnapshot(ctx context.Context, orgID string, summary *portfolio.Summary) (string, error)
	ListScoredScans(ctx context.Context, orgID string) ([]model.Scan, error)
	ListOrgWeightedScores(ctx context.Context) ([]portfolio.CohortScore, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
