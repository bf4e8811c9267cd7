package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/tealeg/xlsx/v2"

	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
)

func summaryFixture() *portfolio.Summary {
	score := 72
	delta := 12
	price := 2500000.0
	scanned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	return &portfolio.Summary{
		OrgID:                   "org-1",
		AsOf:                    time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TotalDeals:              2,
		ScannedDeals:            1,
		ScoredDeals:             1,
		AvgScore:                72,
		WeightedAvgScore:        72,
		PctElevatedPlus:         100,
		WeightedPctElevatedPlus: 100,
		AnyExposureWeighted:     true,
		BandCounts:              map[model.Band]int{model.BandHigh: 1},
		TopMarket:               "austin",
		TopMarketSharePct:       100,
		TopAssetType:            "multifamily",
		TopAssetSharePct:        100,
		PRPIScore:               51,
		PRPIBand:                model.BandElevated,
		VersionMajority:         "v3",
		MovementCount:           1,
		Deals: []portfolio.DealStanding{
			{
				DealID:           "deal-1",
				Name:             "Maple Yards",
				Market:           "austin",
				AssetType:        "multifamily",
				ScanID:           "scan-1",
				Score:            &score,
				Band:             model.BandHigh,
				ScoringVersion:   "v3",
				PurchasePrice:    &price,
				Weight:           price,
				LastScannedAt:    &scanned,
				Delta:            &delta,
				DeltaComparable:  true,
				RiskCount:        3,
				HighRiskCount:    1,
				MacroSignalCount: 1,
				Badges:           []string{"needs_review"},
			},
			{
				DealID: "deal-2",
				Name:   "Cedar Flats",
				Market: "dallas",
				Badges: []string{"unscanned"},
			},
		},
		Alerts: []string{
			"deal deal-1: score deteriorated 12 points (60 -> 72)",
			"1 deal(s) have never been scanned",
		},
	}
}

func TestWriteSummaryCSV_ColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, summaryFixture()); err != nil {
		t.Fatalf("WriteSummaryCSV() error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 rows (header + 2 data), got %d", len(records))
	}

	header := records[0]
	if len(header) != len(dealColumns) {
		t.Fatalf("header length %d != dealColumns length %d", len(header), len(dealColumns))
	}
	for i, col := range dealColumns {
		if header[i] != col {
			t.Errorf("header[%d] = %q, want %q", i, header[i], col)
		}
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}

	row := records[1]
	checks := map[string]string{
		"Deal ID":         "deal-1",
		"Name":            "Maple Yards",
		"Market":          "austin",
		"Asset Type":      "multifamily",
		"Score":           "72",
		"Band":            "High",
		"Scoring Version": "v3",
		"Purchase Price":  "2500000.00",
		"Weight":          "2500000",
		"Last Scanned":    "2026-03-01T12:00:00Z",
		"Delta":           "+12",
		"Risks":           "3",
		"High Risks":      "1",
		"Macro Signals":   "1",
		"Badges":          "needs_review",
	}
	for col, want := range checks {
		if got := row[colIdx[col]]; got != want {
			t.Errorf("column %q = %q, want %q", col, got, want)
		}
	}
}

func TestWriteSummaryCSV_UnscannedRowIsSparse(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, summaryFixture()); err != nil {
		t.Fatalf("WriteSummaryCSV() error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	row := records[2]
	if row[0] != "deal-2" {
		t.Fatalf("row 2 Deal ID = %q, want deal-2", row[0])
	}

	// Score, band, version, price, last-scanned and delta all stay empty.
	for _, idx := range []int{4, 5, 6, 7, 9, 10} {
		if row[idx] != "" {
			t.Errorf("column %q = %q, want empty for unscanned deal", dealColumns[idx], row[idx])
		}
	}
	if row[8] != "0" {
		t.Errorf("Weight = %q, want 0 for unscanned deal", row[8])
	}
	if row[14] != "unscanned" {
		t.Errorf("Badges = %q, want unscanned", row[14])
	}
}

func TestWriteSummaryXLSX_Sheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	if err := WriteSummaryXLSX(path, summaryFixture()); err != nil {
		t.Fatalf("WriteSummaryXLSX() error: %v", err)
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}

	for _, name := range []string{"Deals", "Summary", "Alerts"} {
		if _, ok := f.Sheet[name]; !ok {
			t.Errorf("sheet %q missing from workbook", name)
		}
	}

	deals := f.Sheet["Deals"]
	if len(deals.Rows) != 3 {
		t.Fatalf("Deals sheet rows = %d, want 3", len(deals.Rows))
	}
	if got := deals.Rows[0].Cells[0].String(); got != "Deal ID" {
		t.Errorf("Deals header[0] = %q, want Deal ID", got)
	}
	if got := deals.Rows[1].Cells[4].String(); got != "72" {
		t.Errorf("Deals score cell = %q, want 72", got)
	}
	// Labels render in display casing on the workbook.
	if got := deals.Rows[1].Cells[2].String(); got != "Austin" {
		t.Errorf("Deals market cell = %q, want Austin", got)
	}
	if got := deals.Rows[1].Cells[14].String(); got != "Needs Review" {
		t.Errorf("Deals badges cell = %q, want Needs Review", got)
	}

	summarySheet := f.Sheet["Summary"]
	kvs := make(map[string]string)
	for _, row := range summarySheet.Rows {
		if len(row.Cells) >= 2 {
			kvs[row.Cells[0].String()] = row.Cells[1].String()
		}
	}
	if kvs["Portfolio Risk Index"] != "51 (Elevated)" {
		t.Errorf("Portfolio Risk Index = %q, want 51 (Elevated)", kvs["Portfolio Risk Index"])
	}
	if kvs["Top Market"] != "Austin (100.0%)" {
		t.Errorf("Top Market = %q, want Austin (100.0%%)", kvs["Top Market"])
	}
	if kvs["Scoring Version Majority"] != "v3" {
		t.Errorf("Scoring Version Majority = %q, want v3", kvs["Scoring Version Majority"])
	}

	alerts := f.Sheet["Alerts"]
	if len(alerts.Rows) != 3 {
		t.Errorf("Alerts sheet rows = %d, want 3 (header + 2 alerts)", len(alerts.Rows))
	}
}

func TestDisplayLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"austin", "Austin"},
		{"needs_review", "Needs Review"},
		{"mixed-use", "Mixed Use"},
		{"san_antonio", "San Antonio"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := displayLabel(tc.in); got != tc.want {
			t.Errorf("displayLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
