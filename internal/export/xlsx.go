package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
)

var titleCaser = cases.Title(language.English)

// displayLabel renders snake_case identifiers as human-readable titles,
// e.g. "needs_review" becomes "Needs Review".
func displayLabel(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return titleCaser.String(s)
}

// WriteSummaryXLSX writes an aggregated summary as a workbook with Deals,
// Summary, and Alerts sheets.
func WriteSummaryXLSX(path string, sum *portfolio.Summary) error {
	f := xlsx.NewFile()

	if err := writeDealSheet(f, sum); err != nil {
		return err
	}
	if err := writeSummarySheet(f, sum); err != nil {
		return err
	}
	if err := writeAlertSheet(f, sum); err != nil {
		return err
	}

	return eris.Wrap(f.Save(path), "export: save xlsx")
}

func writeDealSheet(f *xlsx.File, sum *portfolio.Summary) error {
	sheet, err := f.AddSheet("Deals")
	if err != nil {
		return eris.Wrap(err, "export: add deals sheet")
	}

	header := sheet.AddRow()
	for _, col := range dealColumns {
		header.AddCell().Value = col
	}

	for i := range sum.Deals {
		d := &sum.Deals[i]
		row := sheet.AddRow()
		row.AddCell().Value = d.DealID
		row.AddCell().Value = d.Name
		row.AddCell().Value = displayLabel(d.Market)
		row.AddCell().Value = displayLabel(d.AssetType)
		addOptionalInt(row, d.Score)
		row.AddCell().Value = string(d.Band)
		row.AddCell().Value = d.ScoringVersion
		addOptionalFloat(row, d.PurchasePrice)
		row.AddCell().SetFloat(d.Weight)
		if d.LastScannedAt != nil {
			row.AddCell().Value = d.LastScannedAt.UTC().Format(time.RFC3339)
		} else {
			row.AddCell()
		}
		addOptionalInt(row, d.Delta)
		row.AddCell().SetInt(d.RiskCount)
		row.AddCell().SetInt(d.HighRiskCount)
		row.AddCell().SetInt(d.MacroSignalCount)

		badges := make([]string, len(d.Badges))
		for j, b := range d.Badges {
			badges[j] = displayLabel(b)
		}
		row.AddCell().Value = strings.Join(badges, ", ")
	}
	return nil
}

func writeSummarySheet(f *xlsx.File, sum *portfolio.Summary) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	kv := func(label, value string) {
		row := sheet.AddRow()
		row.AddCell().Value = label
		row.AddCell().Value = value
	}

	kv("Org", sum.OrgID)
	kv("As Of", sum.AsOf.UTC().Format(time.RFC3339))
	kv("Total Deals", strconv.Itoa(sum.TotalDeals))
	kv("Scanned Deals", strconv.Itoa(sum.ScannedDeals))
	kv("Scored Deals", strconv.Itoa(sum.ScoredDeals))
	kv("Average Score", fmt.Sprintf("%.1f", sum.AvgScore))
	kv("Weighted Average Score", fmt.Sprintf("%.1f", sum.WeightedAvgScore))
	kv("Elevated Or Higher %", fmt.Sprintf("%.1f", sum.PctElevatedPlus))
	kv("Weighted Elevated Or Higher %", fmt.Sprintf("%.1f", sum.WeightedPctElevatedPlus))
	for _, band := range []model.Band{model.BandLow, model.BandModerate, model.BandElevated, model.BandHigh} {
		kv(fmt.Sprintf("Band %s", band), strconv.Itoa(sum.BandCounts[band]))
	}
	if sum.TopMarket != "" {
		kv("Top Market", fmt.Sprintf("%s (%.1f%%)", displayLabel(sum.TopMarket), sum.TopMarketSharePct))
	}
	if sum.TopAssetType != "" {
		kv("Top Asset Type", fmt.Sprintf("%s (%.1f%%)", displayLabel(sum.TopAssetType), sum.TopAssetSharePct))
	}
	kv("High Impact Deteriorations", strconv.Itoa(sum.HighImpactDeteriorations))
	if sum.HighImpactDeteriorations > 0 {
		kv("High Impact Price Floor", fmt.Sprintf("$%.0f", sum.HighImpactPriceFloor))
	}
	kv("Portfolio Risk Index", fmt.Sprintf("%d (%s)", sum.PRPIScore, sum.PRPIBand))
	if sum.VersionMajority != "" {
		kv("Scoring Version Majority", sum.VersionMajority)
	}
	kv("Version Drift Deals", strconv.Itoa(len(sum.VersionDrift)))
	kv("Deals Moved", strconv.Itoa(sum.MovementCount))
	return nil
}

func writeAlertSheet(f *xlsx.File, sum *portfolio.Summary) error {
	sheet, err := f.AddSheet("Alerts")
	if err != nil {
		return eris.Wrap(err, "export: add alerts sheet")
	}
	header := sheet.AddRow()
	header.AddCell().Value = "Alert"
	for _, alert := range sum.Alerts {
		sheet.AddRow().AddCell().Value = alert
	}
	return nil
}

func addOptionalInt(row *xlsx.Row, v *int) {
	if v == nil {
		row.AddCell()
		return
	}
	row.AddCell().SetInt(*v)
}

func addOptionalFloat(row *xlsx.Row, v *float64) {
	if v == nil {
		row.AddCell()
		return
	}
	row.AddCell().SetFloat(*v)
}
