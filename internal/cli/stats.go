package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/knot-kb/kbmetrics/internal/pipeline"
)

var (
	pageviewsPath string
	backlinksPath string
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <kb.tsv>",
	Short: "Ingest external popularity dumps and score a knowledge base",
	Long: `Stats reads Wikipedia popularity dumps and inserts the raw statistics
into the knowledge base's __stats__ block, matched by entity NAME:
- pageviews dump:  ARTICLE_NAME <tab> PAGEVIEWS
- backlinks dump:  ARTICLE_NAME <tab> BACKLINKS <tab> PRIMARY_SENSE

Article names use "_" as a space placeholder; missing and NF values read as
zero. Malformed dump lines are skipped with a warning. After ingestion the
metrics are computed and the result saved.

Example:
  kbmetrics stats KB_en_all.tsv --pageviews pageviews.tsv --backlinks backlinks.tsv
  kbmetrics stats KB_en_all.tsv --backlinks backlinks.tsv --no-cache`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

var noCache bool

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&pageviewsPath, "pageviews", "", "pageview dump (ARTICLE\\tPAGEVIEWS)")
	statsCmd.Flags().StringVar(&backlinksPath, "backlinks", "", "backlink dump (ARTICLE\\tBACKLINKS\\tPRIMARY_SENSE)")
	statsCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the parsed-dump cache")
	statsCmd.Flags().StringVar(&outPath, "output", "", "output path (default: input with +stats suffix)")
	statsCmd.Flags().BoolVar(&noLock, "no-lock", false, "skip the advisory file lock")
	statsCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable progress display")
}

func runStats(cmd *cobra.Command, args []string) error {
	kbPath := args[0]
	if pageviewsPath == "" && backlinksPath == "" {
		return fmt.Errorf("nothing to ingest: provide --pageviews and/or --backlinks")
	}

	cfg := loadConfig()
	applyRunFlags(cfg)
	if noCache {
		cfg.Cache.Enabled = false
	}

	log := buildLogger()
	defer func() { _ = log.Sync() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "Knowledge base: %s\n", kbPath)
		fmt.Fprintf(os.Stderr, "Pageviews dump: %s\n", pageviewsPath)
		fmt.Fprintf(os.Stderr, "Backlinks dump: %s\n", backlinksPath)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg, log)
	result, err := p.Process(context.Background(), pipeline.Request{
		KBPath:        kbPath,
		PageviewsPath: pageviewsPath,
		BacklinksPath: backlinksPath,
		OutputPath:    outPath,
	})
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Processed %d entities\n", result.Rows)
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", result.OutputPath)
	return nil
}
