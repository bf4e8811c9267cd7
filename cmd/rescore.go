package main

import (
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/meridian-cre/riskindex-cli/internal/model"
	"github.com/meridian-cre/riskindex-cli/internal/portfolio"
	"github.com/meridian-cre/riskindex-cli/internal/riskindex"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Re-score every deal's latest scan under the current version",
	Long: `Resolve each deal's authoritative scan for an org and re-run the scoring
pipeline over it. The previously persisted score is carried in as the prior,
so breakdowns record deltas and band transitions across the rescore.

Writes are paced by a rate limiter; individual failures are logged and
skipped rather than aborting the run.

Examples:
  # Rescore an org with config defaults
  riskindex rescore --org org-1

  # Tighter pacing against a shared database
  riskindex rescore --org org-1 --concurrency 2 --rate 5

  # Preview scores without persisting
  riskindex rescore --org org-1 --dry-run`,
	RunE: runRescore,
}

func init() {
	f := rescoreCmd.Flags()
	f.String("org", "", "organization id (required)")
	f.Int("concurrency", 0, "concurrent scoring workers (overrides config)")
	f.Float64("rate", 0, "max score writes per second (overrides config)")
	f.Bool("dry-run", false, "score without persisting")

	rootCmd.AddCommand(rescoreCmd)
}

func runRescore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("rescore"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "rescore"))

	orgID, _ := cmd.Flags().GetString("org")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if orgID == "" {
		return eris.New("rescore: --org is required")
	}

	concurrency := cfg.Rescore.Concurrency
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		concurrency = v
	}
	ratePerSec := cfg.Rescore.RatePerSec
	if v, _ := cmd.Flags().GetFloat64("rate"); v > 0 {
		ratePerSec = v
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

	deals, err := st.ListDeals(ctx, orgID)
	if err != nil {
		return err
	}
	scans, err := st.ListScans(ctx, orgID)
	if err != nil {
		return err
	}

	// One authoritative scan per deal; deals with no completed scan are skipped.
	targets := make([]*model.Scan, 0, len(deals))
	for _, d := range deals {
		if s := portfolio.ResolveLatestScan(d, scans); s != nil {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 {
		log.Info("no completed scans to rescore", zap.String("org_id", orgID))
		fmt.Println("No completed scans to rescore.")
		return nil
	}

	scanIDs := make([]string, len(targets))
	for i, s := range targets {
		scanIDs[i] = s.ID
	}
	risks, err := st.ListRisks(ctx, scanIDs)
	if err != nil {
		return err
	}
	links, err := st.ListSignalLinks(ctx, scanIDs)
	if err != nil {
		return err
	}
	risksByScan := groupRisks(risks)
	linksByScan := groupLinks(links)

	log.Info("rescoring latest scans",
		zap.String("org_id", orgID),
		zap.Int("scans", len(targets)),
		zap.Int("concurrency", concurrency),
		zap.Float64("rate_per_sec", ratePerSec),
		zap.String("version", vcfg.Version),
		zap.Bool("dry_run", dryRun),
	)

	limiter := rate.NewLimiter(rate.Limit(ratePerSec), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var rescored, failed atomic.Int64

	for _, scan := range targets {
		scan := scan
		g.Go(func() error {
			slog := zap.L().With(zap.String("scan_id", scan.ID))

			var previous *riskindex.PreviousScore
			if scan.Score != nil {
				previous = &riskindex.PreviousScore{Score: *scan.Score, Version: scan.ScoringVersion}
			}

			result := riskindex.Evaluate(risksByScan[scan.ID], scan.Assumptions,
				riskindex.CountMacroSignals(linksByScan[scan.ID]), previous, vcfg)

			if dryRun {
				rescored.Add(1)
				slog.Info("scan rescored (dry run)",
					zap.Int("score", result.Score),
					zap.String("band", string(result.Band)),
				)
				return nil
			}

			if err := limiter.Wait(gctx); err != nil {
				return eris.Wrap(err, "rescore: rate limit wait")
			}
			if err := st.SaveScore(gctx, scan.ID, &result); err != nil {
				failed.Add(1)
				slog.Error("save failed", zap.Error(err))
				return nil // don't abort the run on individual failure
			}

			rescored.Add(1)
			slog.Info("scan rescored",
				zap.Int("score", result.Score),
				zap.String("band", string(result.Band)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "rescore: wait")
	}

	log.Info("rescore complete",
		zap.Int64("rescored", rescored.Load()),
		zap.Int64("failed", failed.Load()),
	)
	fmt.Printf("Rescored %d of %d scans (%d failed)\n", rescored.Load(), len(targets), failed.Load())

	return nil
}

func groupRisks(risks []model.RiskRecord) map[string][]model.RiskRecord {
	byScan := make(map[string][]model.RiskRecord, len(risks))
	for _, r := range risks {
		byScan[r.ScanID] = append(byScan[r.ScanID], r)
	}
	return byScan
}

func groupLinks(links []model.SignalLink) map[string][]model.SignalLink {
	byScan := make(map[string][]model.SignalLink, len(links))
	for _, l := range links {
		byScan[l.ScanID] = append(byScan[l.ScanID], l)
	}
	return byScan
}
