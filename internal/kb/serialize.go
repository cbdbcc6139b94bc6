package kb

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputSuffix is inserted before the extension of the default output path.
const OutputSuffix = "+stats"

// DefaultOutputPath derives the save path for a KB file: the input path with
// the "+stats" suffix inserted before the extension.
func DefaultOutputPath(kbPath string) string {
	dir := filepath.Dir(kbPath)
	base := filepath.Base(kbPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".tsv"
	}
	return filepath.Join(dir, name+OutputSuffix+ext)
}

// Save writes the knowledge base back out: version line verbatim, HEAD lines
// verbatim except the __stats__ line which is rewritten from the current
// schema (synthesized if it never existed), a blank separator, then the data
// rows tab-joined with a trailing blank line. An empty outputPath selects
// DefaultOutputPath.
func (k *KnowledgeBase) Save(outputPath string) error {
	if outputPath == "" {
		outputPath = DefaultOutputPath(k.path)
	}
	if err := k.ensureLoaded(); err != nil {
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)

	if _, err := fmt.Fprintln(w, k.schema.Version()); err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	statsWritten := false
	for _, fields := range k.schema.headLines {
		line := strings.Join(fields, "\t")
		if len(fields) > 0 && strings.Contains(fields[0], "<"+StatsType+">") {
			line = k.statsHeadLine()
			statsWritten = true
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write head: %w", err)
		}
	}
	if !statsWritten && k.schema.HasType(StatsType) {
		if _, err := fmt.Fprintln(w, k.statsHeadLine()); err != nil {
			return fmt.Errorf("write head: %w", err)
		}
	}

	// HEAD/DATA separator.
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}

	for _, row := range k.lines {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return fmt.Errorf("write data row: %w", err)
		}
	}
	// Trailing blank line.
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// statsHeadLine renders the __stats__ HEAD line from the current schema
// block, original statistic names first, appended metrics after. The first
// attribute name sits in column 0 together with the type tag.
func (k *KnowledgeBase) statsHeadLine() string {
	block, ok := k.schema.Block(StatsType)
	if !ok {
		return "<" + StatsType + ">"
	}
	return "<" + StatsType + ">" + strings.Join(block.Names(), "\t")
}
