// Package score turns raw per-entity-type statistics into comparable [0,1]
// percentile scores and writes the derived metrics back into the KB.
package score

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/knot-kb/kbmetrics/internal/kb"
	"github.com/knot-kb/kbmetrics/internal/util"
)

// Metric names used for percentile bucketing.
const (
	MetricDescriptionLength = "description_length"
	MetricColumnsNumber     = "columns_number"
	MetricWikiBacklinks     = "wiki_backlinks"
	MetricWikiHits          = "wiki_hits"
	MetricWikiPS            = "wiki_ps"
)

// tailCapFactor compresses the long popularity tail: for backlink and hit
// counts the normalization cap is 25% of the bucket maximum, so the top
// quartile saturates to percentile 1.0 instead of a few outliers squashing
// every other score toward zero.
const tailCapFactor = 0.25

func capped(metric string) bool {
	return metric == MetricWikiBacklinks || metric == MetricWikiHits
}

// Tables maps (type-set bucket, metric, raw value) to a percentile in [0,1].
// Built in one pass over the KB, never updated incrementally; adding rows
// requires a full rebuild.
type Tables struct {
	index map[string]map[string]map[int]float64
}

// Percentile looks up the score of a raw value within its bucket.
func (t *Tables) Percentile(bucket, metric string, value int) (float64, bool) {
	byMetric, ok := t.index[bucket]
	if !ok {
		return 0, false
	}
	byValue, ok := byMetric[metric]
	if !ok {
		return 0, false
	}
	pct, ok := byValue[value]
	return pct, ok
}

// BuildTables runs the three percentile passes over every loaded row:
// collect the per-bucket observations, sort them, then index each distinct
// value against the bucket's normalization cap. Buckets are keyed by the
// normalized (order-independent) type-set so permuted type declarations
// never fragment the statistics.
func BuildTables(k *kb.KnowledgeBase, prog *util.Progress) (*Tables, error) {
	total, err := k.RowCount()
	if err != nil {
		return nil, err
	}

	// Pass 1: collect.
	observed := make(map[string]map[string][]int)
	for i := 1; i <= total; i++ {
		row := kb.Line(i)
		set, err := k.EntTypes(row)
		if err != nil {
			return nil, err
		}
		bucket := set.Key()
		metrics := observed[bucket]
		if metrics == nil {
			metrics = make(map[string][]int)
			observed[bucket] = metrics
		}

		cols, err := k.NonemptyColumns(row)
		if err != nil {
			return nil, err
		}
		metrics[MetricColumnsNumber] = append(metrics[MetricColumnsNumber], cols)

		descLen, err := k.DescriptionLength(row)
		if err != nil {
			return nil, err
		}
		metrics[MetricDescriptionLength] = append(metrics[MetricDescriptionLength], descLen)

		if k.HasBacklinks(row) {
			for key, metric := range map[string]string{
				"backlinks": MetricWikiBacklinks,
				"hits":      MetricWikiHits,
				"ps":        MetricWikiPS,
			} {
				val, err := wikiObservation(k, row, key)
				if err != nil {
					return nil, err
				}
				metrics[metric] = append(metrics[metric], val)
			}
		}
		prog.Step(i, total)
	}
	prog.Finish()

	// Pass 2: sort.
	for _, metrics := range observed {
		for _, values := range metrics {
			sort.Ints(values)
		}
	}

	// Pass 3: index.
	index := make(map[string]map[string]map[int]float64, len(observed))
	for bucket, metrics := range observed {
		index[bucket] = make(map[string]map[int]float64, len(metrics))
		for metric, values := range metrics {
			byValue := make(map[int]float64)
			limit := float64(values[len(values)-1])
			if capped(metric) {
				limit *= tailCapFactor
			}
			for _, v := range values {
				if _, done := byValue[v]; done {
					continue
				}
				if limit == 0 {
					byValue[v] = 1.0
					continue
				}
				pct := float64(v) / limit
				if pct > 1.0 {
					pct = 1.0
				}
				byValue[v] = pct
			}
			index[bucket][metric] = byValue
		}
	}

	return &Tables{index: index}, nil
}

// rowMetricValue computes the raw observation of a metric for one row, the
// same way the collect pass does.
func rowMetricValue(k *kb.KnowledgeBase, row kb.RowRef, metric string) (int, error) {
	switch metric {
	case MetricDescriptionLength:
		return k.DescriptionLength(row)
	case MetricColumnsNumber:
		return k.NonemptyColumns(row)
	case MetricWikiBacklinks:
		return wikiObservation(k, row, "backlinks")
	case MetricWikiHits:
		return wikiObservation(k, row, "hits")
	case MetricWikiPS:
		return wikiObservation(k, row, "ps")
	default:
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
}

// wikiObservation parses a wiki statistic as an integer, reading the absent
// sentinels as zero.
func wikiObservation(k *kb.KnowledgeBase, row kb.RowRef, key string) (int, error) {
	val, err := k.WikiValue(row, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: wiki %s %q is not a number: %w", row, key, val, err)
	}
	return n, nil
}
