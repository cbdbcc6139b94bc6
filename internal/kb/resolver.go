package kb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrColumnNotFound means no block in a row's type-set defines the
	// requested attribute. Expected when scoring a subset of entity types.
	ErrColumnNotFound = errors.New("column not found for this row")
	// ErrUnknownType means a row declares a type tag the HEAD never defined.
	ErrUnknownType = errors.New("entity type not defined in KB head")
)

// TypeSet is the duplicate-free collection of entity-type tags declared on a
// row. Iteration order (first appearance, generic block first, stats block
// last) determines the row's column layout; the normalized Key is
// order-independent and groups permuted declarations into one statistics
// bucket.
type TypeSet struct {
	tags []string
	seen map[string]struct{}
}

func newTypeSet() *TypeSet {
	return &TypeSet{seen: make(map[string]struct{})}
}

func (ts *TypeSet) add(tag string) {
	if _, dup := ts.seen[tag]; dup {
		return
	}
	ts.seen[tag] = struct{}{}
	ts.tags = append(ts.tags, tag)
}

// Tags returns the tags in layout order.
func (ts *TypeSet) Tags() []string { return ts.tags }

// Contains reports whether the set holds the tag.
func (ts *TypeSet) Contains(tag string) bool {
	_, ok := ts.seen[tag]
	return ok
}

// Key returns the order-independent bucket key for the set.
func (ts *TypeSet) Key() string {
	sorted := make([]string, len(ts.tags))
	copy(sorted, ts.tags)
	sort.Strings(sorted)
	return strings.Join(sorted, "+")
}

// layoutSet builds the ordered type-set for a raw TYPE field value: the
// generic block is prefixed and, when withStats is set, the stats block is
// appended, each only if present in the schema and not already declared.
func (k *KnowledgeBase) layoutSet(typeField string, withStats bool) *TypeSet {
	declared := strings.Split(typeField, k.typeDelim)

	set := newTypeSet()
	if k.schema.HasType(GenericType) {
		set.add(GenericType)
	}
	for _, tag := range declared {
		set.add(tag)
	}
	if withStats && k.schema.HasType(StatsType) {
		set.add(StatsType)
	}
	return set
}

// EntTypes returns the normalized type-set of a row, generic-prefixed and
// stats-suffixed per schema presence.
func (k *KnowledgeBase) EntTypes(row RowRef) (*TypeSet, error) {
	typeField, err := k.Field(row, k.schema.TypeColumn())
	if err != nil {
		return nil, err
	}
	return k.layoutSet(typeField, true), nil
}

// ColumnFor translates a semantic attribute name into the absolute column
// index for the given row, honoring the row's type-set layout.
func (k *KnowledgeBase) ColumnFor(row RowRef, name string) (int, error) {
	return k.resolve(row, name, "")
}

// ColumnForType restricts the lookup to a single named type block, failing
// immediately if the row's type-set lacks that block or the block does not
// define the name. Used when an attribute name is ambiguous across blocks.
func (k *KnowledgeBase) ColumnForType(row RowRef, name, typeHint string) (int, error) {
	return k.resolve(row, name, typeHint)
}

func (k *KnowledgeBase) resolve(row RowRef, name, hint string) (int, error) {
	set, err := k.EntTypes(row)
	if err != nil {
		return 0, err
	}
	if hint != "" && !set.Contains(hint) {
		return 0, fmt.Errorf("type %q not in type-set of %s: %w", hint, row, ErrColumnNotFound)
	}

	offset := 0
	for _, tag := range set.Tags() {
		block, ok := k.schema.Block(tag)
		if !ok {
			return 0, fmt.Errorf("%w: %q (%s)", ErrUnknownType, tag, row)
		}
		if hint == "" || hint == tag {
			if local, ok := block.Offset(name); ok {
				return offset + local, nil
			}
			if hint == tag {
				return 0, fmt.Errorf("column %q not defined by type %q: %w", name, hint, ErrColumnNotFound)
			}
		}
		offset += block.Width()
	}
	return 0, fmt.Errorf("column %q for %s: %w", name, row, ErrColumnNotFound)
}
