package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-cre/riskindex-cli/internal/export"
	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
	"github.com/meridian-cre/riskindex-cli/internal/store"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Aggregate an org's deals into a portfolio risk summary",
	Long: `Fetch every deal, scan, risk, and macro link for an org, resolve each
deal's authoritative scan, and fold the rows into an org-level summary:
averages, band mix, concentration, movement, and the composite portfolio
risk index.

Examples:
  # Print the portfolio table
  riskindex portfolio --org org-1

  # Export for spreadsheet review
  riskindex portfolio --org org-1 --format xlsx --output portfolio.xlsx

  # Append backtest and cohort benchmark blocks
  riskindex portfolio --org org-1 --backtest --benchmark

  # Persist the summary for trend and cohort queries
  riskindex portfolio --org org-1 --save`,
	RunE: runPortfolio,
}

func init() {
	f := portfolioCmd.Flags()
	f.String("org", "", "organization id (required)")
	f.String("format", "table", "output format: table, csv, or xlsx")
	f.String("output", "", "output file path (default: stdout; required for xlsx)")
	f.Bool("backtest", false, "append a score-vs-outcome backtest block")
	f.Bool("benchmark", false, "append a cohort benchmark block")
	f.Bool("save", false, "persist the summary as a snapshot")

	rootCmd.AddCommand(portfolioCmd)
}

func runPortfolio(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("portfolio"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "portfolio"))

	orgID, _ := cmd.Flags().GetString("org")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	withBacktest, _ := cmd.Flags().GetBool("backtest")
	withBenchmark, _ := cmd.Flags().GetBool("benchmark")
	save, _ := cmd.Flags().GetBool("save")

	if orgID == "" {
		return eris.New("portfolio: --org is required")
	}
	switch format {
	case "table", "csv", "xlsx":
	default:
		return eris.Errorf("portfolio: --format must be table, csv, or xlsx (got %q)", format)
	}
	if format == "xlsx" && outputPath == "" {
		return eris.New("portfolio: --output is required for xlsx format")
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sum, err := buildSummary(ctx, st, orgID)
	if err != nil {
		return err
	}

	log.Info("portfolio aggregated",
		zap.String("org_id", orgID),
		zap.Int("total_deals", sum.TotalDeals),
		zap.Int("scored_deals", sum.ScoredDeals),
		zap.Int("prpi_score", sum.PRPIScore),
		zap.String("prpi_band", string(sum.PRPIBand)),
	)

	if err := outputSummary(sum, format, resolveOutputPath(outputPath)); err != nil {
		return err
	}

	if withBacktest {
		scans, err := st.ListScoredScans(ctx, orgID)
		if err != nil {
			return err
		}
		printBacktest(portfolio.Backtest(scans, cfg.Backtest.MinSample))
	}

	if withBenchmark {
		cohort, err := st.ListOrgWeightedScores(ctx)
		if err != nil {
			return err
		}
		printBenchmark(portfolio.Benchmark(*sum, cohort))
	}

	if save {
		id, err := st.SaveSummarySnapshot(ctx, orgID, sum)
		if err != nil {
			return err
		}
		fmt.Printf("Summary snapshot saved: %s\n", id)
	}

	return nil
}

// buildSummary fetches an org's rows and folds them into a Summary. Risks
// and macro links are fetched for the resolved scans only; superseded scans
// contribute nothing to the standing counts.
func buildSummary(ctx context.Context, st store.Store, orgID string) (*portfolio.Summary, error) {
	deals, err := st.ListDeals(ctx, orgID)
	if err != nil {
		return nil, err
	}
	scans, err := st.ListScans(ctx, orgID)
	if err != nil {
		return nil, err
	}

	scanIDs := make([]string, 0, len(deals))
	for _, d := range deals {
		if s := portfolio.ResolveLatestScan(d, scans); s != nil {
			scanIDs = append(scanIDs, s.ID)
		}
	}
	risks, err := st.ListRisks(ctx, scanIDs)
	if err != nil {
		return nil, err
	}
	links, err := st.ListSignalLinks(ctx, scanIDs)
	if err != nil {
		return nil, err
	}

	sum := portfolio.Aggregate(portfolio.AggregateInput{
		Deals:      deals,
		Scans:      scans,
		Risks:      risks,
		Links:      links,
		PriorScans: portfolio.BuildPriorScanIndex(deals, scans),
		AsOf:       time.Now().UTC(),
		Cfg:        portfolioConfig(),
	})
	return &sum, nil
}

// portfolioConfig overlays file settings onto the aggregation defaults.
func portfolioConfig() portfolio.Config {
	pc := portfolio.DefaultConfig()
	if cfg.Portfolio.StaleAfterDays > 0 {
		pc.StaleAfterDays = cfg.Portfolio.StaleAfterDays
	}
	if cfg.Portfolio.DeteriorationPoints > 0 {
		pc.DeteriorationPoints = cfg.Portfolio.DeteriorationPoints
	}
	if cfg.Portfolio.HighImpactPercentile > 0 {
		pc.HighImpactPercentile = cfg.Portfolio.HighImpactPercentile
	}
	return pc
}

func outputSummary(sum *portfolio.Summary, format, outputPath string) error {
	if format == "xlsx" {
		return export.WriteSummaryXLSX(outputPath, sum)
	}

	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "portfolio: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	switch format {
	case "csv":
		return export.WriteSummaryCSV(w, sum)
	case "table":
		return writeSummaryTable(w, sum)
	default:
		return eris.Errorf("portfolio: unsupported format %q", format)
	}
}

func writeSummaryTable(w *os.File, sum *portfolio.Summary) error {
	header := fmt.Sprintf("%-12s %-28s %-14s %-12s %5s %-9s %6s %-24s\n",
		"Deal", "Name", "Market", "Asset", "Score", "Band", "Delta", "Badges")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "portfolio: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 118)); err != nil {
		return eris.Wrap(err, "portfolio: write table separator")
	}

	for _, d := range sum.Deals {
		name := d.Name
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		score := "-"
		if d.Score != nil {
			score = fmt.Sprintf("%d", *d.Score)
		}
		band := "-"
		if d.Band != "" {
			band = string(d.Band)
		}
		delta := "-"
		if d.Delta != nil && d.DeltaComparable {
			delta = fmt.Sprintf("%+d", *d.Delta)
		}
		line := fmt.Sprintf("%-12s %-28s %-14s %-12s %5s %-9s %6s %-24s\n",
			d.DealID, name, d.Market, d.AssetType, score, band, delta, strings.Join(d.Badges, ","))
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "portfolio: write table row")
		}
	}

	printSummaryStats(w, sum)
	return nil
}

// printSummaryStats appends the org-level block under the deal table.
func printSummaryStats(w *os.File, sum *portfolio.Summary) {
	fmt.Fprintf(w, "\n--- Portfolio ---\n")
	fmt.Fprintf(w, "Deals:          %d total, %d scanned, %d scored\n",
		sum.TotalDeals, sum.ScannedDeals, sum.ScoredDeals)
	fmt.Fprintf(w, "Average score:  %.1f", sum.AvgScore)
	if sum.AnyExposureWeighted {
		fmt.Fprintf(w, " (exposure-weighted %.1f)", sum.WeightedAvgScore)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Elevated+:      %.1f%% of scored deals\n", sum.PctElevatedPlus)
	fmt.Fprintf(w, "Bands:          Low %d / Moderate %d / Elevated %d / High %d\n",
		sum.BandCounts[model.BandLow], sum.BandCounts[model.BandModerate],
		sum.BandCounts[model.BandElevated], sum.BandCounts[model.BandHigh])
	if sum.TopMarket != "" {
		fmt.Fprintf(w, "Top market:     %s (%.1f%%)\n", sum.TopMarket, sum.TopMarketSharePct)
	}
	if sum.TopAssetType != "" {
		fmt.Fprintf(w, "Top asset:      %s (%.1f%%)\n", sum.TopAssetType, sum.TopAssetSharePct)
	}
	fmt.Fprintf(w, "Risk index:     %d (%s)\n", sum.PRPIScore, sum.PRPIBand)
	if sum.VersionMajority != "" {
		fmt.Fprintf(w, "Version:        %s majority, %d drifting\n",
			sum.VersionMajority, len(sum.VersionDrift))
	}
	if sum.MovementCount > 0 {
		fmt.Fprintf(w, "Movement:       %d moved, %d deteriorated, %d crossed tiers\n",
			sum.MovementCount, len(sum.Deteriorated), len(sum.CrossedTiers))
	}
	if sum.HighImpactDeteriorations > 0 {
		fmt.Fprintf(w, "High impact:    %d deteriorations at or above $%s exposure\n",
			sum.HighImpactDeteriorations, formatMoney(int64(sum.HighImpactPriceFloor)))
	}
	if len(sum.Alerts) > 0 {
		fmt.Fprintf(w, "\nAlerts:\n")
		for _, a := range sum.Alerts {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}
}

func formatMoney(amount int64) string {
	if amount == 0 {
		return "0"
	}
	s := fmt.Sprintf("%d", amount)
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}
