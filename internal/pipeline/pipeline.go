// Package pipeline orchestrates one knowledge base run: lock, open, ingest
// external statistics, compute metrics, save.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/knot-kb/kbmetrics/internal/cache"
	"github.com/knot-kb/kbmetrics/internal/kb"
	"github.com/knot-kb/kbmetrics/internal/lock"
	"github.com/knot-kb/kbmetrics/internal/model"
	"github.com/knot-kb/kbmetrics/internal/score"
	"github.com/knot-kb/kbmetrics/internal/stats"
)

// Request describes one KB run.
type Request struct {
	KBPath        string
	PageviewsPath string // optional pageview dump to ingest
	BacklinksPath string // optional backlink dump to ingest
	OutputPath    string // empty selects <kb>+stats.<ext>
}

// Result summarizes a completed run.
type Result struct {
	KBPath     string
	OutputPath string
	Rows       int
}

// Pipeline runs knowledge base jobs with shared configuration and an
// optional dump cache. A single run is strictly synchronous; one Pipeline
// may serve concurrent runs over distinct KB files.
type Pipeline struct {
	config *model.Config
	log    *zap.Logger
	dumps  cache.Cache
}

// NewPipeline creates a pipeline. The logger may be nil.
func NewPipeline(cfg *model.Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}

	var dumps cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Dir != "" {
		dumps = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}

	return &Pipeline{config: cfg, log: log, dumps: dumps}
}

// Process executes one request. The whole load/modify/save cycle runs under
// an exclusive advisory lock when locking is enabled; a lock held elsewhere
// past the bounded wait aborts the run with a timeout failure.
func (p *Pipeline) Process(ctx context.Context, req Request) (result *Result, err error) {
	if p.config.Lock.Enabled {
		lk, lockErr := lock.Acquire(ctx, req.KBPath, p.config.Lock.Timeout)
		if lockErr != nil {
			return nil, fmt.Errorf("lock %s: %w", req.KBPath, lockErr)
		}
		defer func() {
			if releaseErr := lk.Release(); releaseErr != nil && err == nil {
				err = releaseErr
			}
		}()
	}

	base, err := kb.Open(req.KBPath, kb.Options{
		TypeDelim: p.config.KB.TypeDelim,
		Logger:    p.log,
	})
	if err != nil {
		return nil, err
	}

	if req.PageviewsPath != "" || req.BacklinksPath != "" {
		loader := stats.NewLoader(p.dumps, p.config.Cache.TTL, p.log)
		records, err := loader.Load(req.PageviewsPath, req.BacklinksPath)
		if err != nil {
			return nil, err
		}
		if err := stats.NewIngestor(base, p.log).Insert(records); err != nil {
			return nil, fmt.Errorf("ingest statistics: %w", err)
		}
	}

	engine := score.NewEngine(base, p.log, p.progressRate())
	if err := engine.InsertMetrics(); err != nil {
		return nil, fmt.Errorf("insert metrics: %w", err)
	}

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = kb.DefaultOutputPath(req.KBPath)
	}
	if err := base.Save(outputPath); err != nil {
		return nil, fmt.Errorf("save knowledge base: %w", err)
	}

	rows, err := base.RowCount()
	if err != nil {
		return nil, err
	}

	return &Result{
		KBPath:     req.KBPath,
		OutputPath: outputPath,
		Rows:       rows,
	}, nil
}

func (p *Pipeline) progressRate() float64 {
	if !p.config.Output.Progress {
		return 0
	}
	return p.config.Output.ProgressPerSecond
}
