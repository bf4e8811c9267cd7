package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/meridian-cre/riskindex-cli/internal/db"
	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
	"github.com/meridian-cre/riskindex-cli/internal/riskindex"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_deal":        `SELECT id, org_id, name, asset_type, market, latest_scan_id, created_at FROM deals WHERE id = $1`,
	"list_deals":      `SELECT id, org_id, name, asset_type, market, latest_scan_id, created_at FROM deals WHERE org_id = $1 ORDER BY created_at, id`,
	"get_scan":        `SELECT id, deal_id, status, assumptions, score, band, scoring_version, breakdown, default_flag, loss_rate, created_at, completed_at FROM scans WHERE id = $1`,
	"save_score":      `UPDATE scans SET score = $1, band = $2, scoring_version = $3, breakdown = $4, scored_at = $5 WHERE id = $6`,
	"insert_snapshot": `INSERT INTO summary_snapshots (id, org_id, as_of, summary, prpi_score, prpi_band, weighted_score, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, org_id, name, asset_type, market, latest_scan_id, created_at FROM deals WHERE id = $1`,
		dealID,
	)
	d, err := scanDealRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("deal not found: %s", dealID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get deal %s", dealID)
	}
	return d, nil
}

func (s *PostgresStore) ListDeals(ctx context.Context, orgID string) ([]model.Deal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, org_id, name, asset_type, market, latest_scan_id, created_at FROM deals WHERE org_id = $1 ORDER BY created_at, id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list deals")
	}
	defer rows.Close()

	var deals []model.Deal
	for rows.Next() {
		d, err := scanDealRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan deal row")
		}
		deals = append(deals, *d)
	}
	return deals, eris.Wrap(rows.Err(), "postgres: list deals iterate")
}

func (s *PostgresStore) GetScan(ctx context.Context, scanID string) (*model.Scan, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, deal_id, status, assumptions, score, band, scoring_version, breakdown, default_flag, loss_rate, created_at, completed_at FROM scans WHERE id = $1`,
		scanID,
	)
	sc, err := scanScanRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("scan not found: %s", scanID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scan %s", scanID)
	}
	return sc, nil
}

func (s *PostgresStore) ListScans(ctx context.Context, orgID string) ([]model.Scan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.deal_id, s.status, s.assumptions, s.score, s.band, s.scoring_version, s.breakdown, s.default_flag, s.loss_rate, s.created_at, s.completed_at
		 FROM scans s JOIN deals d ON d.id = s.deal_id
		 WHERE d.org_id = $1
		 ORDER BY s.created_at, s.id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scans")
	}
	defer rows.Close()
	return collectScans(rows, "postgres: list scans")
}

func (s *PostgresStore) ListRisks(ctx context.Context, scanIDs []string) ([]model.RiskRecord, error) {
	if len(scanIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, scan_id, risk_type, severity, confidence FROM risks WHERE scan_id = ANY($1) ORDER BY scan_id, id`,
		scanIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list risks")
	}
	defer rows.Close()

	var risks []model.RiskRecord
	for rows.Next() {
		var r model.RiskRecord
		var riskType, severity string
		var confidence *string
		if err := rows.Scan(&r.ID, &r.ScanID, &riskType, &severity, &confidence); err != nil {
			return nil, eris.Wrap(err, "postgres: scan risk row")
		}
		r.Type = model.ParseRiskType(riskType)
		r.SeverityCurrent = model.ParseSeverity(severity)
		if confidence != nil {
			c := model.ParseConfidence(*confidence)
			r.Confidence = &c
		}
		risks = append(risks, r)
	}
	return risks, eris.Wrap(rows.Err(), "postgres: list risks iterate")
}

func (s *PostgresStore) ListSignalLinks(ctx context.Context, scanIDs []string) ([]model.SignalLink, error) {
	if len(scanIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT risk_id, scan_id, signal_category, signal_text FROM risk_signal_links WHERE scan_id = ANY($1) ORDER BY scan_id, risk_id`,
		scanIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list signal links")
	}
	defer rows.Close()

	var links []model.SignalLink
	for rows.Next() {
		var l model.SignalLink
		if err := rows.Scan(&l.RiskID, &l.ScanID, &l.SignalCategory, &l.SignalText); err != nil {
			return nil, eris.Wrap(err, "postgres: scan signal link row")
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "postgres: list signal links iterate")
}

func (s *PostgresStore) SaveScore(ctx context.Context, scanID string, result *riskindex.RiskIndexResult) error {
	breakdownJSON, err := json.Marshal(result.Breakdown)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal breakdown")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET score = $1, band = $2, scoring_version = $3, breakdown = $4, scored_at = $5 WHERE id = $6`,
		result.Score, string(result.Band), result.Breakdown.RiskIndexVersion, breakdownJSON, time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save score %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan not found: %s", scanID)
	}
	return nil
}

func (s *PostgresStore) SaveSummarySnapshot(ctx context.Context, orgID string, summary *portfolio.Summary) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal summary")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO summary_snapshots (id, org_id, as_of, summary, prpi_score, prpi_band, weighted_score, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, orgID, summary.AsOf, summaryJSON, summary.PRPIScore, string(summary.PRPIBand), summary.WeightedAvgScore, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert summary snapshot for org %s", orgID)
	}
	return id, nil
}

func (s *PostgresStore) ListScoredScans(ctx context.Context, orgID string) ([]model.Scan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.deal_id, s.status, s.assumptions, s.score, s.band, s.scoring_version, s.breakdown, s.default_flag, s.loss_rate, s.created_at, s.completed_at
		 FROM scans s JOIN deals d ON d.id = s.deal_id
		 WHERE d.org_id = $1 AND s.score IS NOT NULL
		   AND (s.default_flag IS NOT NULL OR s.loss_rate IS NOT NULL)
		 ORDER BY s.created_at, s.id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scored scans")
	}
	defer rows.Close()
	return collectScans(rows, "postgres: list scored scans")
}

func (s *PostgresStore) ListOrgWeightedScores(ctx context.Context) ([]portfolio.CohortScore, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (org_id) org_id, weighted_score FROM summary_snapshots ORDER BY org_id, created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list org weighted scores")
	}
	defer rows.Close()

	var cohort []portfolio.CohortScore
	for rows.Next() {
		var c portfolio.CohortScore
		if err := rows.Scan(&c.OrgID, &c.WeightedScore); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cohort row")
		}
		cohort = append(cohort, c)
	}
	return cohort, eris.Wrap(rows.Err(), "postgres: list org weighted scores iterate")
}

// scanDealRow reads one deals row. Works for QueryRow and Query results alike.
func scanDealRow(row pgx.Row) (*model.Deal, error) {
	var d model.Deal
	var assetType, market *string
	if err := row.Scan(&d.ID, &d.OrgID, &d.Name, &assetType, &market, &d.LatestScanID, &d.CreatedAt); err != nil {
		return nil, err
	}
	if assetType != nil {
		d.AssetType = *assetType
	}
	if market != nil {
		d.Market = *market
	}
	return &d, nil
}

// scanScanRow reads one scans row, decoding the assumptions JSON payload.
func scanScanRow(row pgx.Row) (*model.Scan, error) {
	var sc model.Scan
	var assumptionsJSON, breakdownJSON []byte
	var band, version *string

	err := row.Scan(&sc.ID, &sc.DealID, &sc.Status, &assumptionsJSON, &sc.Score, &band, &version,
		&breakdownJSON, &sc.DefaultFlag, &sc.LossRate, &sc.CreatedAt, &sc.CompletedAt)
	if err != nil {
		return nil, err
	}

	if band != nil {
		sc.Band = *band
	}
	if version != nil {
		sc.ScoringVersion = *version
	}
	if len(assumptionsJSON) > 0 {
		if err := json.Unmarshal(assumptionsJSON, &sc.Assumptions); err != nil {
			return nil, eris.Wrapf(err, "unmarshal assumptions for scan %s", sc.ID)
		}
	}
	if len(breakdownJSON) > 0 {
		sc.Breakdown = json.RawMessage(breakdownJSON)
	}
	return &sc, nil
}

func collectScans(rows pgx.Rows, opName string) ([]model.Scan, error) {
	var scans []model.Scan
	for rows.Next() {
		sc, err := scanScanRow(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: scan row", opName)
		}
		scans = append(scans, *sc)
	}
	return scans, eris.Wrapf(rows.Err(), "%s: iterate", opName)
}
