package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knot-kb/kbmetrics/internal/pipeline"
)

// Processor runs one knowledge base request. Implemented by
// pipeline.Pipeline; an interface so batch tests can stub it.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// KBJob processes one knowledge base file.
type KBJob struct {
	Request   pipeline.Request
	Processor Processor
}

// Execute runs the job.
func (j *KBJob) Execute(ctx context.Context) Result {
	result, err := j.Processor.Process(ctx, j.Request)
	return &KBResult{
		KBPath: j.Request.KBPath,
		Result: result,
		Error:  err,
	}
}

// KBResult is the outcome of one knowledge base run.
type KBResult struct {
	KBPath string
	Result *pipeline.Result
	Error  error
}

// Err returns the run error, if any.
func (r *KBResult) Err() error { return r.Error }

// BatchProcessor fans a list of knowledge base files across a worker pool.
// Failures stay per-file: one bad KB never aborts the rest of the batch.
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{processor: processor, concurrency: concurrency}
}

// ProcessRequests runs every request and returns one result per request.
func (b *BatchProcessor) ProcessRequests(ctx context.Context, requests []pipeline.Request) []*KBResult {
	if len(requests) == 0 {
		return []*KBResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()
	go func() {
		for _, req := range requests {
			pool.Submit(&KBJob{Request: req, Processor: b.processor})
		}
		pool.Close()
	}()

	results := pool.Wait()
	kbResults := make([]*KBResult, len(results))
	for i, result := range results {
		kbResults[i] = result.(*KBResult)
	}
	return kbResults
}

// ReadPathsFromFile reads KB paths from a list file, one per line, skipping
// blanks and # comments and dropping duplicates.
func ReadPathsFromFile(listPath string) ([]string, error) {
	f, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open list file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var paths []string
	seen := make(map[string]bool)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan list file: %w", err)
	}
	return paths, nil
}
