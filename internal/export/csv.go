// Package export renders aggregated portfolio summaries to file artifacts.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
)

// dealColumns defines the ordered deal-table output columns.
var dealColumns = []string{
	"Deal ID",
	"Name",
	"Market",
	"Asset Type",
	"Score",
	"Band",
	"Scoring Version",
	"Purchase Price",
	"Weight",
	"Last Scanned",
	"Delta",
	"Risks",
	"High Risks",
	"Macro Signals",
	"Badges",
}

// WriteSummaryCSV writes the deal table of an aggregated summary as CSV.
func WriteSummaryCSV(w io.Writer, sum *portfolio.Summary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(dealColumns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i := range sum.Deals {
		if err := cw.Write(dealRow(&sum.Deals[i])); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", sum.Deals[i].DealID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// dealRow maps a DealStanding to a CSV row. Optional fields render empty.
func dealRow(d *portfolio.DealStanding) []string {
	return []string{
		d.DealID,
		d.Name,
		d.Market,
		d.AssetType,
		intOrEmpty(d.Score),
		string(d.Band),
		d.ScoringVersion,
		floatOrEmpty(d.PurchasePrice),
		strconv.FormatFloat(d.Weight, 'f', -1, 64),
		timeOrEmpty(d.LastScannedAt),
		deltaOrEmpty(d.Delta),
		strconv.Itoa(d.RiskCount),
		strconv.Itoa(d.HighRiskCount),
		strconv.Itoa(d.MacroSignalCount),
		strings.Join(d.Badges, "|"),
	}
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func deltaOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%+d", *v)
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
