// Package stats ingests external popularity dumps (pageview and backlink
// counts keyed by article name) into a knowledge base's __stats__ block.
package stats

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/knot-kb/kbmetrics/internal/cache"
	"github.com/knot-kb/kbmetrics/internal/kb"
)

// Record holds the raw statistics gathered for one article. Values are kept
// as the strings that will land in the KB columns.
type Record struct {
	Backlinks    string `json:"backlinks"`
	Hits         string `json:"hits"`
	PrimarySense string `json:"primary_sense"`
}

// Records maps article names (underscore placeholders restored to spaces) to
// their statistics.
type Records map[string]Record

// Loader parses the external dump files, optionally through a cache keyed by
// the dump file's identity so unchanged dumps parse once.
type Loader struct {
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewLoader creates a dump loader. A nil cache disables caching; a nil
// logger disables warnings.
func NewLoader(c cache.Cache, ttl time.Duration, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{cache: c, ttl: ttl, log: log}
}

// Load reads and merges the pageview dump (ARTICLE \t PAGEVIEWS) and the
// backlink dump (ARTICLE \t BACKLINKS \t PRIMARY_SENSE). Either path may be
// empty to skip that dump.
func (l *Loader) Load(pageviewsPath, backlinksPath string) (Records, error) {
	records := make(Records)

	if pageviewsPath != "" {
		views, err := loadDump[string](l, pageviewsPath, parsePageviewLine)
		if err != nil {
			return nil, fmt.Errorf("load pageviews: %w", err)
		}
		for name, hits := range views {
			rec := records[name]
			rec.Hits = hits
			records[name] = rec
		}
	}

	if backlinksPath != "" {
		links, err := loadDump[backlinkEntry](l, backlinksPath, parseBacklinkLine)
		if err != nil {
			return nil, fmt.Errorf("load backlinks: %w", err)
		}
		for name, entry := range links {
			rec := records[name]
			rec.Backlinks = entry.Backlinks
			rec.PrimarySense = entry.PrimarySense
			records[name] = rec
		}
	}

	return records, nil
}

type backlinkEntry struct {
	Backlinks    string `json:"backlinks"`
	PrimarySense string `json:"primary_sense"`
}

// loadDump parses one dump file through the cache.
func loadDump[V any](l *Loader, path string, parse func(fields []string) (V, bool)) (map[string]V, error) {
	var key string
	if l.cache != nil {
		k, err := cache.FileKey(path)
		if err == nil {
			key = k
			if data, found := l.cache.Get(key); found {
				var cached map[string]V
				if err := json.Unmarshal(data, &cached); err == nil {
					l.log.Debug("stats dump served from cache", zap.String("path", path))
					return cached, nil
				}
				// Corrupt entry: fall through to a fresh parse.
				_ = l.cache.Delete(key)
			}
		}
	}

	parsed, err := parseDumpFile(l, path, parse)
	if err != nil {
		return nil, err
	}

	if l.cache != nil && key != "" {
		if data, err := json.Marshal(parsed); err == nil {
			_ = l.cache.Set(key, data, l.ttl)
		}
	}
	return parsed, nil
}

func parseDumpFile[V any](l *Loader, path string, parse func(fields []string) (V, bool)) (map[string]V, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stats dump: %w", err)
	}
	defer func() { _ = f.Close() }()

	result := make(map[string]V)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		value, ok := parse(fields)
		if !ok {
			l.log.Warn("skipping malformed stats line",
				zap.String("path", path),
				zap.Int("line", lineNum),
				zap.Int("fields", len(fields)))
			continue
		}
		// Dumps carry article names with "_" as a space placeholder.
		name := strings.ReplaceAll(fields[0], "_", " ")
		result[name] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stats dump: %w", err)
	}
	return result, nil
}

func parsePageviewLine(fields []string) (string, bool) {
	if len(fields) != 2 {
		return "", false
	}
	return normalize(fields[1]), true
}

func parseBacklinkLine(fields []string) (backlinkEntry, bool) {
	if len(fields) != 3 {
		return backlinkEntry{}, false
	}
	return backlinkEntry{
		Backlinks:    normalize(fields[1]),
		PrimarySense: normalize(strings.TrimRight(fields[2], "\r")),
	}, true
}

// normalize maps the absent sentinels to "0".
func normalize(v string) string {
	if v == "" || v == "NF" {
		return "0"
	}
	return v
}

// Ingestor writes loaded statistics into a knowledge base.
type Ingestor struct {
	kb  *kb.KnowledgeBase
	log *zap.Logger
}

// NewIngestor creates an ingestor for an opened knowledge base.
func NewIngestor(base *kb.KnowledgeBase, log *zap.Logger) *Ingestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{kb: base, log: log}
}

// Insert appends a __stats__ block to the schema and fills the three input
// statistic columns by NAME lookup. When the KB already carries a __stats__
// block this is a no-op with a warning, preserving the existing data. The KB
// must define the __generic__ block and a NAME attribute; otherwise the
// ingestion refuses and the KB is left unmodified.
func (in *Ingestor) Insert(records Records) error {
	total, err := in.kb.RowCount()
	if err != nil {
		return err
	}

	if in.kb.Schema().HasType(kb.StatsType) {
		in.log.Warn("no statistics inserted: __stats__ block already present",
			zap.String("path", in.kb.Path()))
		return nil
	}
	if err := in.validate(); err != nil {
		return err
	}

	in.kb.Schema().AddStatsBlock()

	matched := 0
	for i := 1; i <= total; i++ {
		row := kb.Line(i)

		nameCol, err := in.kb.ColumnFor(row, "NAME")
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		name, err := in.kb.Field(row, nameCol)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}

		rec, ok := records[name]
		if !ok {
			continue
		}
		matched++

		values := map[string]string{
			"WIKI BACKLINKS":     rec.Backlinks,
			"WIKI HITS":          rec.Hits,
			"WIKI PRIMARY SENSE": rec.PrimarySense,
		}
		for stat, value := range values {
			col, err := in.kb.ColumnForType(row, stat, kb.StatsType)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if err := in.kb.SetField(row, col, value); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
	}

	in.log.Info("statistics inserted",
		zap.String("path", in.kb.Path()),
		zap.Int("rows", total),
		zap.Int("matched", matched))
	return nil
}

// validate checks the KB head carries what the ingestion needs before any
// mutation happens.
func (in *Ingestor) validate() error {
	schema := in.kb.Schema()
	if !schema.HasType(kb.GenericType) {
		return fmt.Errorf("KB head has no %s block, cannot ingest statistics", kb.GenericType)
	}
	for _, tag := range schema.Types() {
		block, _ := schema.Block(tag)
		if _, ok := block.Offset("NAME"); ok {
			return nil
		}
	}
	return fmt.Errorf("KB head defines no NAME attribute, cannot match dump articles")
}
