package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/riskindex"
)

var consistencyCmd = &cobra.Command{
	Use:   "consistency",
	Short: "Audit persisted scores against current band thresholds",
	Long: `Recompute the expected band for every scored scan in an org and report
rows whose persisted band disagrees. Scans persisted under a different
scoring version are skipped, since their thresholds may legitimately differ.

A non-zero exit on mismatches makes the audit usable as a CI gate after
threshold changes.

Example:
  riskindex consistency --org org-1`,
	RunE: runConsistency,
}

func init() {
	consistencyCmd.Flags().String("org", "", "organization id (required)")

	rootCmd.AddCommand(consistencyCmd)
}

func runConsistency(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("consistency"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "consistency"))

	orgID, _ := cmd.Flags().GetString("org")
	if orgID == "" {
		return eris.New("consistency: --org is required")
	}

	vcfg, err := scoringConfig()
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	scans, err := st.ListScans(ctx, orgID)
	if err != nil {
		return err
	}

	type mismatch struct {
		scan     model.Scan
		expected model.Band
	}
	var checked int
	var mismatches []mismatch
	for _, s := range scans {
		if s.Score == nil {
			continue
		}
		checked++
		res := riskindex.CheckBandConsistency(s.Score, s.Band, s.ScoringVersion, vcfg)
		if res.Mismatch {
			mismatches = append(mismatches, mismatch{scan: s, expected: res.ExpectedBand})
		}
	}

	log.Info("consistency audit complete",
		zap.String("org_id", orgID),
		zap.String("version", vcfg.Version),
		zap.Int("checked", checked),
		zap.Int("mismatches", len(mismatches)),
	)

	if len(mismatches) == 0 {
		fmt.Printf("All %d scored scans consistent under %s\n", checked, vcfg.Version)
		return nil
	}

	fmt.Printf("%-14s %6s %-10s %-10s\n", "Scan", "Score", "Persisted", "Expected")
	fmt.Println(strings.Repeat("-", 44))
	for _, m := range mismatches {
		fmt.Printf("%-14s %6d %-10s %-10s\n",
			m.scan.ID, *m.scan.Score, m.scan.Band, m.expected)
	}

	return eris.Errorf("consistency: %d of %d scored scans have band mismatches", len(mismatches), checked)
}
