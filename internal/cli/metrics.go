package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/knot-kb/kbmetrics/internal/model"
	"github.com/knot-kb/kbmetrics/internal/pipeline"
)

var (
	outPath     string
	noLock      bool
	lockTimeout time.Duration
	noProgress  bool
)

// metricsCmd represents the metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics <kb.tsv>",
	Short: "Compute percentile scores and insert metrics into a knowledge base",
	Long: `Metrics walks the knowledge base three times to:
- Collect per-type-set observations (content density, description length,
  backlink/pageview/primary-sense statistics)
- Build percentile tables, compressing the popularity tail so a few extreme
  outliers don't squash everyone else's score
- Write SCORE WIKI, SCORE METRICS and CONFIDENCE into the __stats__ block

The input file is left untouched; output goes to <kb>+stats.<ext> unless
--output says otherwise.

Example:
  kbmetrics metrics KB_en_all.tsv
  kbmetrics metrics KB_en_all.tsv --output scored/KB_en.tsv --lock-timeout 2m`,
	Args: cobra.ExactArgs(1),
	RunE: runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsCmd.Flags().StringVar(&outPath, "output", "", "output path (default: input with +stats suffix)")
	metricsCmd.Flags().BoolVar(&noLock, "no-lock", false, "skip the advisory file lock")
	metricsCmd.Flags().DurationVar(&lockTimeout, "lock-timeout", 0, "bounded wait for the advisory lock (default from config)")
	metricsCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable progress display")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	kbPath := args[0]

	cfg := loadConfig()
	applyRunFlags(cfg)

	log := buildLogger()
	defer func() { _ = log.Sync() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "Knowledge base: %s\n", kbPath)
		fmt.Fprintf(os.Stderr, "Locking: %v\n", cfg.Lock.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg, log)
	result, err := p.Process(context.Background(), pipeline.Request{
		KBPath:     kbPath,
		OutputPath: outPath,
	})
	if err != nil {
		return fmt.Errorf("metrics failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Scored %d entities\n", result.Rows)
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", result.OutputPath)
	return nil
}

// applyRunFlags overlays the per-run flags shared by metrics and stats.
func applyRunFlags(cfg *model.Config) {
	if noLock {
		cfg.Lock.Enabled = false
	}
	if lockTimeout > 0 {
		cfg.Lock.Timeout = lockTimeout
	}
	if noProgress {
		cfg.Output.Progress = false
	}
}
