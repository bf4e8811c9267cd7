package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest persisted scores against realized outcomes",
	Long: `Evaluate how well an org's persisted scores predicted realized outcomes.
Only scans that carry both a score and an outcome (default flag or loss
rate) enter the sample; below the minimum sample the correlation is
suppressed and strength reported as Weak.

Examples:
  riskindex backtest --org org-1
  riskindex backtest --org org-1 --min-sample 50`,
	RunE: runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	f.String("org", "", "organization id (required)")
	f.Int("min-sample", 0, "minimum outcome sample (overrides config)")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("backtest"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "backtest"))

	orgID, _ := cmd.Flags().GetString("org")
	if orgID == "" {
		return eris.New("backtest: --org is required")
	}

	minSample := cfg.Backtest.MinSample
	if v, _ := cmd.Flags().GetInt("min-sample"); v > 0 {
		minSample = v
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	scans, err := st.ListScoredScans(ctx, orgID)
	if err != nil {
		return err
	}

	res := portfolio.Backtest(scans, minSample)

	log.Info("backtest complete",
		zap.String("org_id", orgID),
		zap.Int("sample", res.Sample),
		zap.Float64("discrimination", res.Discrimination),
		zap.String("strength", res.Strength),
	)

	printBacktest(res)
	return nil
}

func printBacktest(res portfolio.BacktestResult) {
	fmt.Printf("\n--- Backtest ---\n")
	fmt.Printf("Sample:         %d scans with outcomes (minimum %d)\n", res.Sample, res.MinSample)
	if res.Sample < res.MinSample {
		fmt.Printf("Sample below minimum; per-band rates are indicative only.\n")
	}

	fmt.Printf("\n%-10s %7s %9s %9s %9s\n", "Band", "Sample", "Defaults", "Rate", "Avg Loss")
	fmt.Println(strings.Repeat("-", 48))
	for _, b := range res.Bands {
		loss := "-"
		if b.LossSamples > 0 {
			loss = fmt.Sprintf("%.1f%%", b.AvgLossRate*100)
		}
		fmt.Printf("%-10s %7d %9d %8.1f%% %9s\n",
			b.Band, b.Sample, b.Defaults, b.DefaultRate*100, loss)
	}

	fmt.Printf("\nDiscrimination: %+.1f points (High minus Low default rate)\n", res.Discrimination*100)
	if res.Correlation != nil {
		fmt.Printf("Correlation:    %.3f\n", *res.Correlation)
	} else {
		fmt.Printf("Correlation:    n/a\n")
	}
	fmt.Printf("Strength:       %s\n", res.Strength)
}
