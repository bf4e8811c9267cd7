package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
	"github.com/meridian-cre/riskindex-cli/internal/riskindex"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// snapshot work where no Postgres is reachable.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS deals (
	id             TEXT PRIMARY KEY,
	org_id         TEXT NOT NULL,
	name           TEXT NOT NULL,
	asset_type     TEXT,
	market         TEXT,
	latest_scan_id TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_deals_org ON deals(org_id);

CREATE TABLE IF NOT EXISTS scans (
	id              TEXT PRIMARY KEY,
	deal_id         TEXT NOT NULL REFERENCES deals(id),
	status          TEXT NOT NULL DEFAULT 'pending',
	assumptions     TEXT,
	score           INTEGER,
	band            TEXT,
	scoring_version TEXT,
	breakdown       TEXT,
	scored_at       DATETIME,
	default_flag    BOOLEAN,
	loss_rate       REAL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_scans_deal_created ON scans(deal_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);

CREATE TABLE IF NOT EXISTS risks (
	id         TEXT PRIMARY KEY,
	scan_id    TEXT NOT NULL REFERENCES scans(id),
	risk_type  TEXT NOT NULL,
	severity   TEXT NOT NULL DEFAULT 'low',
	confidence TEXT
);

CREATE INDEX IF NOT EXISTS idx_risks_scan ON risks(scan_id);

CREATE TABLE IF NOT EXISTS risk_signal_links (
	id              TEXT PRIMARY KEY,
	risk_id         TEXT NOT NULL REFERENCES risks(id),
	scan_id         TEXT NOT NULL REFERENCES scans(id),
	signal_category TEXT NOT NULL,
	signal_text     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_links_scan ON risk_signal_links(scan_id);

CREATE TABLE IF NOT EXISTS summary_snapshots (
	id             TEXT PRIMARY KEY,
	org_id         TEXT NOT NULL,
	as_of          DATETIME NOT NULL,
	summary        TEXT NOT NULL,
	prpi_score     INTEGER NOT NULL,
	prpi_band      TEXT NOT NULL,
	weighted_score REAL NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_snapshots_org_created ON summary_snapshots(org_id, created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, name, asset_type, market, latest_scan_id, created_at FROM deals WHERE id = ?`,
		dealID,
	)
	d, err := scanDealSQLite(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("deal not found: %s", dealID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get deal %s", dealID)
	}
	return d, nil
}

func (s *SQLiteStore) ListDeals(ctx context.Context, orgID string) ([]model.Deal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, name, asset_type, market, latest_scan_id, created_at FROM deals WHERE org_id = ? ORDER BY created_at, id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list deals")
	}
	defer rows.Close()

	var deals []model.Deal
	for rows.Next() {
		d, err := scanDealSQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan deal row")
		}
		deals = append(deals, *d)
	}
	return deals, eris.Wrap(rows.Err(), "sqlite: list deals iterate")
}

func (s *SQLiteStore) GetScan(ctx context.Context, scanID string) (*model.Scan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, deal_id, status, assumptions, score, band, scoring_version, breakdown, default_flag, loss_rate, created_at, completed_at FROM scans WHERE id = ?`,
		scanID,
	)
	sc, err := scanScanSQLite(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("scan not found: %s", scanID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scan %s", scanID)
	}
	return sc, nil
}

func (s *SQLiteStore) ListScans(ctx context.Context, orgID string) ([]model.Scan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.deal_id, s.status, s.assumptions, s.score, s.band, s.scoring_version, s.breakdown, s.default_flag, s.loss_rate, s.created_at, s.completed_at
		 FROM scans s JOIN deals d ON d.id = s.deal_id
		 WHERE d.org_id = ?
		 ORDER BY s.created_at, s.id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scans")
	}
	defer rows.Close()
	return collectScansSQLite(rows, "sqlite: list scans")
}

func (s *SQLiteStore) ListRisks(ctx context.Context, scanIDs []string) ([]model.RiskRecord, error) {
	if len(scanIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		`SELECT id, scan_id, risk_type, severity, confidence FROM risks WHERE scan_id IN (%s) ORDER BY scan_id, id`,
		placeholders(len(scanIDs)),
	)
	rows, err := s.db.QueryContext(ctx, query, toAnySlice(scanIDs)...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list risks")
	}
	defer rows.Close()

	var risks []model.RiskRecord
	for rows.Next() {
		var r model.RiskRecord
		var riskType, severity string
		var confidence sql.NullString
		if err := rows.Scan(&r.ID, &r.ScanID, &riskType, &severity, &confidence); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan risk row")
		}
		r.Type = model.ParseRiskType(riskType)
		r.SeverityCurrent = model.ParseSeverity(severity)
		if confidence.Valid {
			c := model.ParseConfidence(confidence.String)
			r.Confidence = &c
		}
		risks = append(risks, r)
	}
	return risks, eris.Wrap(rows.Err(), "sqlite: list risks iterate")
}

func (s *SQLiteStore) ListSignalLinks(ctx context.Context, scanIDs []string) ([]model.SignalLink, error) {
	if len(scanIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		`SELECT risk_id, scan_id, signal_category, signal_text FROM risk_signal_links WHERE scan_id IN (%s) ORDER BY scan_id, risk_id`,
		placeholders(len(scanIDs)),
	)
	rows, err := s.db.QueryContext(ctx, query, toAnySlice(scanIDs)...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list signal links")
	}
	defer rows.Close()

	var links []model.SignalLink
	for rows.Next() {
		var l model.SignalLink
		if err := rows.Scan(&l.RiskID, &l.ScanID, &l.SignalCategory, &l.SignalText); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan signal link row")
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "sqlite: list signal links iterate")
}

func (s *SQLiteStore) SaveScore(ctx context.Context, scanID string, result *riskindex.RiskIndexResult) error {
	breakdownJSON, err := json.Marshal(result.Breakdown)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal breakdown")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET score = ?, band = ?, scoring_version = ?, breakdown = ?, scored_at = ? WHERE id = ?`,
		result.Score, string(result.Band), result.Breakdown.RiskIndexVersion, string(breakdownJSON), time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save score %s", scanID)
	}
	return checkRowsAffected(res, "scan", scanID)
}

func (s *SQLiteStore) SaveSummarySnapshot(ctx context.Context, orgID string, summary *portfolio.Summary) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal summary")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO summary_snapshots (id, org_id, as_of, summary, prpi_score, prpi_band, weighted_score, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, orgID, summary.AsOf, string(summaryJSON), summary.PRPIScore, string(summary.PRPIBand), summary.WeightedAvgScore, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert summary snapshot for org %s", orgID)
	}
	return id, nil
}

func (s *SQLiteStore) ListScoredScans(ctx context.Context, orgID string) ([]model.Scan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.deal_id, s.status, s.assumptions, s.score, s.band, s.scoring_version, s.breakdown, s.default_flag, s.loss_rate, s.created_at, s.completed_at
		 FROM scans s JOIN deals d ON d.id = s.deal_id
		 WHERE d.org_id = ? AND s.score IS NOT NULL
		   AND (s.default_flag IS NOT NULL OR s.loss_rate IS NOT NULL)
		 ORDER BY s.created_at, s.id`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scored scans")
	}
	defer rows.Close()
	return collectScansSQLite(rows, "sqlite: list scored scans")
}

func (s *SQLiteStore) ListOrgWeightedScores(ctx context.Context) ([]portfolio.CohortScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT org_id, weighted_score FROM (
			SELECT org_id, weighted_score,
				ROW_NUMBER() OVER (PARTITION BY org_id ORDER BY created_at DESC, id DESC) AS rn
			FROM summary_snapshots
		) WHERE rn = 1 ORDER BY org_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list org weighted scores")
	}
	defer rows.Close()

	var cohort []portfolio.CohortScore
	for rows.Next() {
		var c portfolio.CohortScore
		if err := rows.Scan(&c.OrgID, &c.WeightedScore); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cohort row")
		}
		cohort = append(cohort, c)
	}
	return cohort, eris.Wrap(rows.Err(), "sqlite: list org weighted scores iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDealSQLite(row scannable) (*model.Deal, error) {
	var d model.Deal
	var assetType, market, latestScan sql.NullString

	err := row.Scan(&d.ID, &d.OrgID, &d.Name, &assetType, &market, &latestScan, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if assetType.Valid {
		d.AssetType = assetType.String
	}
	if market.Valid {
		d.Market = market.String
	}
	if latestScan.Valid {
		d.LatestScanID = &latestScan.String
	}
	return &d, nil
}

func scanScanSQLite(row scannable) (*model.Scan, error) {
	var sc model.Scan
	var assumptionsJSON, breakdownJSON, band, version sql.NullString
	var score sql.NullInt64
	var defaultFlag sql.NullBool
	var lossRate sql.NullFloat64
	var completedAt sql.NullTime

	err := row.Scan(&sc.ID, &sc.DealID, &sc.Status, &assumptionsJSON, &score, &band, &version,
		&breakdownJSON, &defaultFlag, &lossRate, &sc.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if score.Valid {
		v := int(score.Int64)
		sc.Score = &v
	}
	if band.Valid {
		sc.Band = band.String
	}
	if version.Valid {
		sc.ScoringVersion = version.String
	}
	if defaultFlag.Valid {
		sc.DefaultFlag = &defaultFlag.Bool
	}
	if lossRate.Valid {
		sc.LossRate = &lossRate.Float64
	}
	if completedAt.Valid {
		t := completedAt.Time
		sc.CompletedAt = &t
	}
	if assumptionsJSON.Valid && assumptionsJSON.String != "" {
		if err := json.Unmarshal([]byte(assumptionsJSON.String), &sc.Assumptions); err != nil {
			return nil, eris.Wrapf(err, "unmarshal assumptions for scan %s", sc.ID)
		}
	}
	if breakdownJSON.Valid && breakdownJSON.String != "" {
		sc.Breakdown = json.RawMessage(breakdownJSON.String)
	}
	return &sc, nil
}

func collectScansSQLite(rows *sql.Rows, opName string) ([]model.Scan, error) {
	var scans []model.Scan
	for rows.Next() {
		sc, err := scanScanSQLite(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: scan row", opName)
		}
		scans = append(scans, *sc)
	}
	return scans, eris.Wrapf(rows.Err(), "%s: iterate", opName)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
