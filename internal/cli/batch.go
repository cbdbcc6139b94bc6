package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/knot-kb/kbmetrics/internal/kb"
	"github.com/knot-kb/kbmetrics/internal/pipeline"
	"github.com/knot-kb/kbmetrics/internal/worker"
)

var (
	batchConcurrency int
	batchOutputDir   string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <list-file>",
	Short: "Score many knowledge bases concurrently",
	Long: `Batch reads knowledge base paths from a list file (one per line, blanks
and # comments skipped) and scores each one on a worker pool. Files are
independent, so one failure never stops the rest.

Example:
  kbmetrics batch kbs.txt --concurrency 8 --output-dir scored/`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent KB runs (default from config)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "directory for scored files (default: next to each input)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	paths, err := worker.ReadPathsFromFile(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("list file %s names no knowledge bases", args[0])
	}

	cfg := loadConfig()
	// Interleaved progress bars are unreadable; per-file summaries only.
	cfg.Output.Progress = false
	if batchConcurrency > 0 {
		cfg.Concurrency.Workers = batchConcurrency
	}

	log := buildLogger()
	defer func() { _ = log.Sync() }()

	requests := make([]pipeline.Request, len(paths))
	for i, path := range paths {
		req := pipeline.Request{KBPath: path}
		if batchOutputDir != "" {
			req.OutputPath = filepath.Join(batchOutputDir, filepath.Base(kb.DefaultOutputPath(path)))
		}
		requests[i] = req
	}

	fmt.Fprintf(os.Stderr, "Processing %d knowledge bases with %d workers\n\n",
		len(requests), cfg.Concurrency.Workers)

	p := pipeline.NewPipeline(cfg, log)
	batch := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	results := batch.ProcessRequests(context.Background(), requests)

	var failed int
	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.KBPath, result.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d entities -> %s\n",
			result.KBPath, result.Result.Rows, result.Result.OutputPath)
	}

	fmt.Fprintf(os.Stderr, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d knowledge bases failed", failed, len(results))
	}
	return nil
}
