package kb

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Row-level lookup errors. These are expected failure modes for callers that
// probe columns a row's type-set does not carry; they are never defaulted.
var (
	ErrMissingColumn = errors.New("row is missing column")
	ErrRowOutOfRange = errors.New("row number out of range")
)

// RowRef addresses a KB row either by its 1-based line number in the DATA
// section (resolved lazily) or as an already materialized field list. The
// latter lets callers filter rows externally without forcing a full load.
type RowRef struct {
	line   int
	fields []string
}

// Line refers to the n-th data row, counted from one.
func Line(n int) RowRef { return RowRef{line: n} }

// Materialized wraps an in-memory field list as a row reference.
func Materialized(fields []string) RowRef { return RowRef{fields: fields} }

// String renders the reference for error messages.
func (r RowRef) String() string {
	if r.fields != nil {
		return fmt.Sprintf("row %v", r.fields)
	}
	return fmt.Sprintf("row #%d", r.line)
}

// readHead reads the version line and the HEAD section of a KB file. The
// HEAD ends at the first blank line.
func readHead(path string) (version string, lines [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := newKBScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", nil, fmt.Errorf("read knowledge base: %w", err)
		}
		return "", nil, fmt.Errorf("%s: %w", path, ErrEmptyKB)
	}
	version = sc.Text()

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		lines = append(lines, strings.Split(line, "\t"))
	}
	if err := sc.Err(); err != nil {
		return "", nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return version, lines, nil
}

// loadData reads the DATA section into memory, padding every row up to its
// schema minimum plus slack for not-yet-inserted statistic columns.
func (k *KnowledgeBase) loadData() error {
	f, err := os.Open(k.path)
	if err != nil {
		return fmt.Errorf("open knowledge base: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := newKBScanner(f)
	sc.Scan() // version line

	inData := false
	lineNum := 0
	var rows [][]string
	for sc.Scan() {
		line := sc.Text()
		lineNum++
		if line == "" {
			inData = true
			continue
		}
		if !inData {
			continue
		}

		fields := strings.Split(line, "\t")
		padded, err := k.padRow(fields)
		if err != nil {
			return fmt.Errorf("data row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, padded)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read knowledge base: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", k.path, ErrEmptyData)
	}

	k.lines = rows
	k.loaded = true
	return nil
}

// padRow right-pads a freshly read row with empty fields up to the sum of
// its (generic-augmented) block widths, plus one reserved slot per known
// statistic/metric column so later insertion never needs a reallocation.
func (k *KnowledgeBase) padRow(fields []string) ([]string, error) {
	typeCol := k.schema.TypeColumn()
	if typeCol >= len(fields) {
		return nil, fmt.Errorf("%w %d (TYPE)", ErrMissingColumn, typeCol)
	}

	set := k.layoutSet(fields[typeCol], false)
	min := 0
	for _, tag := range set.Tags() {
		if block, ok := k.schema.Block(tag); ok {
			min += block.Width()
		}
	}

	pad := min - len(fields)
	if pad < 0 {
		pad = 0
	}
	pad += len(AllStatNames())
	return append(fields, make([]string, pad)...), nil
}

func (k *KnowledgeBase) ensureLoaded() error {
	if k.loaded {
		return nil
	}
	return k.loadData()
}

// rowFields resolves a row reference to its field list, triggering the lazy
// load for line-numbered references.
func (k *KnowledgeBase) rowFields(row RowRef) ([]string, error) {
	if row.fields != nil {
		return row.fields, nil
	}
	if err := k.ensureLoaded(); err != nil {
		return nil, err
	}
	if row.line < 1 || row.line > len(k.lines) {
		return nil, fmt.Errorf("%s: %w (1..%d)", row, ErrRowOutOfRange, len(k.lines))
	}
	return k.lines[row.line-1], nil
}

// Field returns the value at an absolute column index of a row.
func (k *KnowledgeBase) Field(row RowRef, col int) (string, error) {
	fields, err := k.rowFields(row)
	if err != nil {
		return "", err
	}
	if col < 0 || col >= len(fields) {
		return "", fmt.Errorf("%s: %w %d", row, ErrMissingColumn, col)
	}
	return fields[col], nil
}

// SetField overwrites the value at an absolute column index of a row.
func (k *KnowledgeBase) SetField(row RowRef, col int, value string) error {
	fields, err := k.rowFields(row)
	if err != nil {
		return err
	}
	if col < 0 || col >= len(fields) {
		return fmt.Errorf("%s: %w %d", row, ErrMissingColumn, col)
	}
	fields[col] = value
	return nil
}

// RowCount returns the number of data rows, loading them if necessary.
func (k *KnowledgeBase) RowCount() (int, error) {
	if err := k.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(k.lines), nil
}

// newKBScanner returns a line scanner sized for wide KB rows, which can far
// exceed bufio's default token limit.
func newKBScanner(f *os.File) *bufio.Scanner {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return sc
}
