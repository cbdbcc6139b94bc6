package score

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/knot-kb/kbmetrics/internal/kb"
	"github.com/knot-kb/kbmetrics/internal/util"
)

// Engine computes the derived metrics for a knowledge base from its
// percentile tables.
type Engine struct {
	kb           *kb.KnowledgeBase
	tables       *Tables
	log          *zap.Logger
	progressRate float64
}

// NewEngine creates a score engine for an opened knowledge base. The logger
// may be nil. progressRate caps progress repaints per second; zero or less
// disables progress output.
func NewEngine(base *kb.KnowledgeBase, log *zap.Logger, progressRate float64) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{kb: base, log: log, progressRate: progressRate}
}

// progress returns a reporter for one engine phase, nil when disabled.
func (e *Engine) progress(message string) *util.Progress {
	if e.progressRate <= 0 {
		return nil
	}
	return util.NewProgress(message, e.progressRate)
}

// Tables exposes the percentile tables built by the last InsertMetrics run.
func (e *Engine) Tables() *Tables { return e.tables }

// Percentile returns the percentile score of a row for one metric, using the
// tables built by InsertMetrics (or a prior BuildTables).
func (e *Engine) Percentile(row kb.RowRef, metric string) (float64, error) {
	if e.tables == nil {
		return 0, fmt.Errorf("percentile tables not built")
	}
	set, err := e.kb.EntTypes(row)
	if err != nil {
		return 0, err
	}
	value, err := rowMetricValue(e.kb, row, metric)
	if err != nil {
		return 0, err
	}
	pct, ok := e.tables.Percentile(set.Key(), metric, value)
	if !ok {
		return 0, fmt.Errorf("no percentile for metric %q value %d in bucket %q", metric, value, set.Key())
	}
	return pct, nil
}

// InsertMetrics computes SCORE WIKI, SCORE METRICS and CONFIDENCE for every
// row and writes them into the __stats__ block as fixed two-decimal strings.
//
// Idempotent only by precondition: when the schema already declares all
// statistic and metric columns the engine refuses to run with a warning,
// because re-collecting observations over already-scored rows would fold the
// score columns into the columns_number counts. Missing input statistics
// (backlinks/hits/primary sense) likewise make this a warned no-op.
func (e *Engine) InsertMetrics() error {
	if _, err := e.kb.RowCount(); err != nil {
		return err
	}

	if e.allStatsPresent() {
		e.log.Warn("no metrics added: all statistics and metrics already present",
			zap.String("path", e.kb.Path()))
		return nil
	}
	if !e.ensureMetricColumns() {
		e.log.Warn("no metrics added: missing input statistics (backlinks/hits/primary sense)",
			zap.String("path", e.kb.Path()))
		return nil
	}

	tables, err := BuildTables(e.kb, e.progress("computing statistics..."))
	if err != nil {
		return err
	}
	e.tables = tables

	total, err := e.kb.RowCount()
	if err != nil {
		return err
	}
	prog := e.progress("computing metrics...")
	for i := 1; i <= total; i++ {
		row := kb.Line(i)
		if err := e.scoreRow(row); err != nil {
			return fmt.Errorf("score row %d: %w", i, err)
		}
		prog.Step(i, total)
	}
	prog.Finish()
	return nil
}

// scoreRow derives the three output scores of one row from the tables.
func (e *Engine) scoreRow(row kb.RowRef) error {
	scoreWiki := 0.0
	if e.kb.HasBacklinks(row) {
		backlinks, err := e.Percentile(row, MetricWikiBacklinks)
		if err != nil {
			return err
		}
		hits, err := e.Percentile(row, MetricWikiHits)
		if err != nil {
			return err
		}
		ps, err := e.Percentile(row, MetricWikiPS)
		if err != nil {
			return err
		}
		scoreWiki = 100 * weightedAverage(
			[]float64{backlinks, hits, ps},
			[]float64{5, 5, 1},
		)
	}
	if err := e.setMetric(row, "SCORE WIKI", scoreWiki); err != nil {
		return err
	}

	descLen, err := e.Percentile(row, MetricDescriptionLength)
	if err != nil {
		return err
	}
	cols, err := e.Percentile(row, MetricColumnsNumber)
	if err != nil {
		return err
	}
	scoreMetrics := 100 * average([]float64{descLen, cols})
	if err := e.setMetric(row, "SCORE METRICS", scoreMetrics); err != nil {
		return err
	}

	confidence := weightedAverage(
		[]float64{scoreWiki, scoreMetrics},
		[]float64{5, 1},
	)
	return e.setMetric(row, "CONFIDENCE", confidence)
}

func (e *Engine) setMetric(row kb.RowRef, name string, value float64) error {
	col, err := e.kb.ColumnForType(row, name, kb.StatsType)
	if err != nil {
		return err
	}
	return e.kb.SetField(row, col, fmt.Sprintf("%.2f", value))
}

// allStatsPresent reports whether the __stats__ block already declares every
// statistic and metric column.
func (e *Engine) allStatsPresent() bool {
	block, ok := e.kb.Schema().Block(kb.StatsType)
	if !ok {
		return false
	}
	for _, name := range kb.AllStatNames() {
		if _, ok := block.Offset(name); !ok {
			return false
		}
	}
	return true
}

// ensureMetricColumns verifies the three input statistics exist and appends
// any missing metric columns to the __stats__ block. Returns false when the
// input statistics are absent, in which case nothing can be computed.
func (e *Engine) ensureMetricColumns() bool {
	block, ok := e.kb.Schema().Block(kb.StatsType)
	if !ok {
		return false
	}
	for _, name := range kb.StatNames {
		if _, ok := block.Offset(name); !ok {
			return false
		}
	}
	for _, name := range kb.MetricNames {
		block.Append(name)
	}
	return true
}

func weightedAverage(values, weights []float64) float64 {
	var sum, weightSum float64
	for i, v := range values {
		sum += v * weights[i]
		weightSum += weights[i]
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
