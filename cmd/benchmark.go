package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Rank an org's weighted score against the saved cohort",
	Long: `Aggregate the org's current portfolio, then rank its exposure-weighted
average score against every org's latest saved summary snapshot. Orgs enter
the cohort by running 'riskindex portfolio --save'.

Example:
  riskindex benchmark --org org-1`,
	RunE: runBenchmark,
}

func init() {
	benchmarkCmd.Flags().String("org", "", "organization id (required)")

	rootCmd.AddCommand(benchmarkCmd)
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("benchmark"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "benchmark"))

	orgID, _ := cmd.Flags().GetString("org")
	if orgID == "" {
		return eris.New("benchmark: --org is required")
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
	cohort, err := st.ListOrgWeightedScores(ctx)
	if err != nil {
		return err
	}

	res := portfolio.Benchmark(*sum, cohort)

	log.Info("benchmark complete",
		zap.String("org_id", orgID),
		zap.Int("cohort_size", res.CohortSize),
		zap.Float64("percentile", res.Percentile),
		zap.String("classification", string(res.Classification)),
	)

	printBenchmark(res)
	return nil
}

func printBenchmark(res portfolio.BenchmarkResult) {
	fmt.Printf("\n--- Benchmark ---\n")
	fmt.Printf("Org:            %s\n", res.OrgID)
	fmt.Printf("Weighted score: %.1f\n", res.WeightedScore)
	fmt.Printf("Cohort size:    %d\n", res.CohortSize)
	fmt.Printf("Percentile:     %.1f\n", res.Percentile)
	fmt.Printf("Classification: %s\n", res.Classification)
	if res.CohortSize < 2 {
		fmt.Printf("Cohort too small to rank; percentile defaults to 50.\n")
	}
}
