// Package kb implements the flat-file entity knowledge base: the
// self-describing HEAD schema, lazily loaded DATA rows, per-row polymorphic
// column resolution and the format-preserving serializer.
package kb

import (
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultTypeDelim separates entity-type tags inside a row's TYPE field.
const DefaultTypeDelim = "+"

// MultivalueDelim separates repeated values inside one field.
const MultivalueDelim = "|"

// Options tunes how a knowledge base is opened.
type Options struct {
	// TypeDelim overrides the tag delimiter in TYPE fields (default "+").
	TypeDelim string
	// Logger receives engine warnings. Nil means no logging.
	Logger *zap.Logger
}

// KnowledgeBase is a tab-separated, multi-typed entity store. The schema is
// parsed at construction; data rows are read on first access. All mutation
// happens in memory until Save.
type KnowledgeBase struct {
	path      string
	schema    *Schema
	typeDelim string
	log       *zap.Logger

	loaded bool
	lines  [][]string
}

// Open parses the HEAD of the KB file at path. Data rows are not read until
// first access. An empty file or an inconsistent TYPE column is fatal.
func Open(path string, opts Options) (*KnowledgeBase, error) {
	version, headLines, err := readHead(path)
	if err != nil {
		return nil, err
	}
	schema, err := parseSchema(version, headLines)
	if err != nil {
		return nil, err
	}

	delim := opts.TypeDelim
	if delim == "" {
		delim = DefaultTypeDelim
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &KnowledgeBase{
		path:      path,
		schema:    schema,
		typeDelim: delim,
		log:       log,
	}, nil
}

// Path returns the file the knowledge base was opened from.
func (k *KnowledgeBase) Path() string { return k.path }

// Schema returns the parsed column layout.
func (k *KnowledgeBase) Schema() *Schema { return k.schema }

// DataFor returns the value of the named column for a row, with the absent
// sentinels (empty string and "NF") normalized to "0".
func (k *KnowledgeBase) DataFor(row RowRef, name string) (string, error) {
	col, err := k.ColumnFor(row, name)
	if err != nil {
		return "", err
	}
	val, err := k.Field(row, col)
	if err != nil {
		return "", err
	}
	if val == "" || val == "NF" {
		val = "0"
	}
	return val, nil
}

// wikiColumns maps the short statistic keys onto __stats__ column names.
var wikiColumns = map[string]string{
	"backlinks": "WIKI BACKLINKS",
	"hits":      "WIKI HITS",
	"ps":        "WIKI PRIMARY SENSE",
}

// WikiValue returns a Wikipedia statistic (or the article link) for a row,
// normalized like DataFor.
func (k *KnowledgeBase) WikiValue(row RowRef, key string) (string, error) {
	switch {
	case key == "link":
		return k.DataFor(row, "WIKIPEDIA URL")
	case wikiColumns[key] != "":
		return k.DataFor(row, wikiColumns[key])
	default:
		return k.DataFor(row, key)
	}
}

// HasBacklinks reports whether the row carries an actual backlink count,
// i.e. the WIKI BACKLINKS field exists and is neither empty nor "NF".
func (k *KnowledgeBase) HasBacklinks(row RowRef) bool {
	col, err := k.ColumnForType(row, "WIKI BACKLINKS", StatsType)
	if err != nil {
		return false
	}
	val, err := k.Field(row, col)
	if err != nil {
		return false
	}
	return val != "" && val != "NF"
}

// NonemptyColumns counts the non-empty fields of a row outside the __stats__
// block, measuring content density without the derived metrics.
func (k *KnowledgeBase) NonemptyColumns(row RowRef) (int, error) {
	fields, err := k.rowFields(row)
	if err != nil {
		return 0, err
	}

	excluded := make(map[int]bool)
	if stats, ok := k.schema.Block(StatsType); ok {
		for _, name := range stats.Names() {
			col, err := k.ColumnForType(row, name, StatsType)
			if err != nil {
				return 0, err
			}
			excluded[col] = true
		}
	} else {
		k.log.Warn("no stats columns in KB head, counting all columns",
			zap.String("path", k.path))
	}

	count := 0
	for col, val := range fields {
		if val != "" && !excluded[col] {
			count++
		}
	}
	return count, nil
}

// DescriptionLength returns the character length of a row's DESCRIPTION
// field. A missing or absent field counts as length zero.
func (k *KnowledgeBase) DescriptionLength(row RowRef) (int, error) {
	col, err := k.ColumnFor(row, "DESCRIPTION")
	if err != nil {
		if errors.Is(err, ErrColumnNotFound) {
			return 0, nil
		}
		return 0, err
	}
	val, err := k.Field(row, col)
	if err != nil {
		return 0, err
	}
	if val == "NF" {
		return 0, nil
	}
	return utf8.RuneCountInString(val), nil
}
