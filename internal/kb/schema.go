package kb

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// Reserved entity-type tags with special layout rules.
const (
	// GenericType names the block implicitly prefixed to every row's layout.
	GenericType = "__generic__"
	// StatsType names the block implicitly appended to every row's layout.
	// It holds the raw popularity statistics and the derived scores.
	StatsType = "__stats__"
)

// Statistic and metric column names carried by the __stats__ block.
var (
	StatNames   = []string{"WIKI BACKLINKS", "WIKI HITS", "WIKI PRIMARY SENSE"}
	MetricNames = []string{"SCORE WIKI", "SCORE METRICS", "CONFIDENCE"}
)

// AllStatNames returns the statistic names followed by the metric names, in
// the order they appear in a fully populated __stats__ block.
func AllStatNames() []string {
	all := make([]string, 0, len(StatNames)+len(MetricNames))
	all = append(all, StatNames...)
	all = append(all, MetricNames...)
	return all
}

// Fatal configuration errors detected while opening a knowledge base.
var (
	ErrEmptyKB            = errors.New("knowledge base file is empty")
	ErrEmptyData          = errors.New("knowledge base has no data rows")
	ErrTypeColumnMismatch = errors.New("TYPE column offset differs between type blocks")
)

// HEAD grammar. The first field of a block line is <TYPE>{FLAGS}[PREFIX]NAME
// with everything after the type tag optional; subsequent fields are
// {FLAGS}[PREFIX]NAME. A field that fails the grammar registers no attribute
// name but still occupies a column slot.
const attrPattern = `(?:\{(?:\w| )*(?:\[[^\]]+\])?\})?((?:\w| )+)`

var (
	firstColRe = regexp.MustCompile(`^<([^>]+)>(?:` + attrPattern + `)?$`)
	otherColRe = regexp.MustCompile(`^` + attrPattern + `$`)
)

// Block is the contiguous run of columns owned by one entity type.
type Block struct {
	names   []string       // attribute names in local offset order
	offsets map[string]int // attribute name -> local offset
	width   int            // total column slots, including unnamed ones
}

func newBlock() *Block {
	return &Block{offsets: make(map[string]int)}
}

// Offset returns the local column offset of the named attribute.
func (b *Block) Offset(name string) (int, bool) {
	off, ok := b.offsets[name]
	return off, ok
}

// Width returns the number of column slots the block occupies in a row.
func (b *Block) Width() int { return b.width }

// Names returns the attribute names defined by the block in offset order.
func (b *Block) Names() []string { return b.names }

func (b *Block) define(name string, offset int) {
	if _, dup := b.offsets[name]; !dup {
		b.names = append(b.names, name)
	}
	b.offsets[name] = offset
}

// Append adds a new attribute at the next free slot and grows the block.
func (b *Block) Append(name string) {
	if _, ok := b.offsets[name]; ok {
		return
	}
	b.define(name, b.width)
	b.width++
}

// Schema is the typed column layout parsed from a KB HEAD section: one
// ordered block of attributes per entity-type tag, plus the absolute column
// every row declares its type-set in.
type Schema struct {
	blocks    map[string]*Block
	typeCol   int
	version   string
	headLines [][]string // raw HEAD fields, preserved for serialization
}

// Block returns the column block for an entity-type tag.
func (s *Schema) Block(tag string) (*Block, bool) {
	b, ok := s.blocks[tag]
	return b, ok
}

// Types returns every entity-type tag the schema defines, sorted.
func (s *Schema) Types() []string {
	tags := make([]string, 0, len(s.blocks))
	for tag := range s.blocks {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// HasType reports whether the schema defines a block for the tag.
func (s *Schema) HasType(tag string) bool {
	_, ok := s.blocks[tag]
	return ok
}

// TypeColumn returns the absolute column index holding a row's type tags.
func (s *Schema) TypeColumn() int { return s.typeCol }

// Version returns the opaque version line read from the KB file.
func (s *Schema) Version() string { return s.version }

// AddStatsBlock registers a fresh __stats__ block carrying the three input
// statistic columns. No-op when the block already exists.
func (s *Schema) AddStatsBlock() {
	if s.HasType(StatsType) {
		return
	}
	b := newBlock()
	for _, name := range StatNames {
		b.Append(name)
	}
	s.blocks[StatsType] = b
}

// parseSchema builds the schema from the version line and raw HEAD lines.
func parseSchema(version string, headLines [][]string) (*Schema, error) {
	s := &Schema{
		blocks:    make(map[string]*Block),
		typeCol:   -1,
		version:   version,
		headLines: headLines,
	}

	for _, fields := range headLines {
		if len(fields) == 0 {
			continue
		}

		m := firstColRe.FindStringSubmatch(fields[0])
		if m == nil {
			return nil, fmt.Errorf("malformed head line: first field %q has no <TYPE> tag", fields[0])
		}
		tag := m[1]

		block, ok := s.blocks[tag]
		if !ok {
			block = newBlock()
			s.blocks[tag] = block
		}
		if len(fields) > block.width {
			block.width = len(fields)
		}

		for col, field := range fields {
			var name string
			if col == 0 {
				name = m[2]
			} else if fm := otherColRe.FindStringSubmatch(field); fm != nil {
				name = fm[1]
			}
			if name == "" {
				// Unnamed slot: occupies a column, resolves to nothing.
				continue
			}
			block.define(name, col)

			if name == "TYPE" {
				if s.typeCol < 0 {
					s.typeCol = col
				} else if s.typeCol != col {
					return nil, fmt.Errorf("%w: %d vs %d (type %q)", ErrTypeColumnMismatch, s.typeCol, col, tag)
				}
			}
		}
	}

	if s.typeCol < 0 {
		return nil, errors.New("no TYPE attribute defined in KB head")
	}
	return s, nil
}
