package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-cre/riskindex-cli/internal/riskindex"
	"github.com/meridian-cre/riskindex-cli/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one scan's extracted assumptions",
	Long: `Score a single scan: normalize the raw assumption cells, sanitize them,
then run the versioned risk-index pipeline over the scan's risks, macro
signals, and cleaned assumptions. The full attribution breakdown is printed;
nothing is persisted unless --save is set.

Examples:
  # Score a scan and print the attribution table
  riskindex score --scan scan-42

  # Track the delta against an earlier scored scan
  riskindex score --scan scan-42 --previous scan-17

  # Persist the result back onto the scan row
  riskindex score --scan scan-42 --save

  # Machine-readable output
  riskindex score --scan scan-42 --format json --output result.json`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("scan", "", "scan id to score (required)")
	f.String("previous", "", "prior scan id for delta tracking")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or json")
	f.Bool("save", false, "write the result back to the scan row")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("score"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "score"))

	scanID, _ := cmd.Flags().GetString("scan")
	previousID, _ := cmd.Flags().GetString("previous")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")

	if scanID == "" {
		return eris.New("score: --scan is required")
	}
	if format != "table" && format != "json" {
		return eris.Errorf("score: --format must be table or json (got %q)", format)
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

	scan, err := st.GetScan(ctx, scanID)
	if err != nil {
		return err
	}
	risks, err := st.ListRisks(ctx, []string{scanID})
	if err != nil {
		return err
	}
	links, err := st.ListSignalLinks(ctx, []string{scanID})
	if err != nil {
		return err
	}

	previous, err := resolvePrevious(ctx, st, previousID)
	if err != nil {
		return err
	}

	result := riskindex.Evaluate(risks, scan.Assumptions, riskindex.CountMacroSignals(links), previous, vcfg)

	log.Info("scan scored",
		zap.String("scan_id", scanID),
		zap.Int("score", result.Score),
		zap.String("band", string(result.Band)),
		zap.Strings("top_drivers", result.Breakdown.TopDrivers),
		zap.Bool("needs_review", result.Breakdown.NeedsReview),
	)

	if err := outputScoreResult(scanID, &result, format, resolveOutputPath(outputPath)); err != nil {
		return err
	}

	if save {
		if err := st.SaveScore(ctx, scanID, &result); err != nil {
			return err
		}
		fmt.Printf("Score saved to scan %s\n", scanID)
	}

	return nil
}

// scoringConfig returns the active scoring version: compiled-in defaults,
// optionally overlaid from scoring.config_path.
func scoringConfig() (riskindex.VersionConfig, error) {
	if cfg.Scoring.ConfigPath == "" {
		return riskindex.DefaultVersionConfig(), nil
	}
	return riskindex.LoadVersionConfig(cfg.Scoring.ConfigPath)
}

// resolveOutputPath anchors a relative output path at export.output_dir.
// Absolute paths and stdout (empty path) pass through.
func resolveOutputPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cfg.Export.OutputDir, path)
}

// resolvePrevious loads the prior scan named by --previous. The prior must
// already carry a persisted score; delta tracking against an unscored scan
// has nothing to compare.
func resolvePrevious(ctx context.Context, st store.Store, previousID string) (*riskindex.PreviousScore, error) {
	if previousID == "" {
		return nil, nil
	}
	prev, err := st.GetScan(ctx, previousID)
	if err != nil {
		return nil, err
	}
	if prev.Score == nil {
		return nil, eris.Errorf("score: previous scan %s has no persisted score", previousID)
	}
	return &riskindex.PreviousScore{Score: *prev.Score, Version: prev.ScoringVersion}, nil
}

func outputScoreResult(scanID string, result *riskindex.RiskIndexResult, format, outputPath string) error {
	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "score: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "score: encode result")
	case "table":
		return writeBreakdownTable(w, scanID, result)
	default:
		return eris.Errorf("score: unsupported format %q", format)
	}
}

func writeBreakdownTable(w *os.File, scanID string, result *riskindex.RiskIndexResult) error {
	b := &result.Breakdown

	head := fmt.Sprintf("Scan:     %s\nScore:    %d / 100\nBand:     %s\nVersion:  %s\nRaw:      %.2f (structural %.0f%% / market %.0f%%, macro %+.1f)\n",
		scanID, result.Score, result.Band, b.RiskIndexVersion, b.RawScore,
		b.StructuralWeightPct, b.MarketWeightPct, b.MacroPoints)
	if _, err := fmt.Fprint(w, head); err != nil {
		return eris.Wrap(err, "score: write result header")
	}

	if _, err := fmt.Fprintf(w, "\n%-14s %8s %8s\n%s\n", "Driver", "Points", "Share", strings.Repeat("-", 32)); err != nil {
		return eris.Wrap(err, "score: write driver header")
	}
	for _, d := range b.Drivers {
		label := d.Label
		if contains(b.TopDrivers, d.Label) {
			label += " *"
		}
		if _, err := fmt.Fprintf(w, "%-14s %8.2f %7.1f%%\n", label, d.Points, d.SharePct); err != nil {
			return eris.Wrap(err, "score: write driver row")
		}
	}

	var notes []string
	for _, r := range b.TierDrivers {
		notes = append(notes, "tier: "+r)
	}
	for _, f := range b.EdgeFlags {
		notes = append(notes, "flag: "+f)
	}
	for _, v := range b.ValidationErrors {
		notes = append(notes, "input: "+v)
	}
	if b.NeedsReview {
		notes = append(notes, "needs review")
	}
	if len(notes) > 0 {
		if _, err := fmt.Fprintf(w, "\nNotes:\n"); err != nil {
			return eris.Wrap(err, "score: write notes header")
		}
		for _, n := range notes {
			if _, err := fmt.Fprintf(w, "  - %s\n", n); err != nil {
				return eris.Wrap(err, "score: write note")
			}
		}
	}

	if b.PreviousScore != nil {
		line := fmt.Sprintf("\nPrevious: %d", *b.PreviousScore)
		if b.DeltaComparable {
			line += fmt.Sprintf(" (delta %+d, %s", *b.ScoreDelta, b.BandTransition)
			if b.Deteriorated {
				line += ", deteriorated"
			}
			line += ")"
		} else {
			line += " (different scoring version; delta not comparable)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return eris.Wrap(err, "score: write delta line")
		}
	}

	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
