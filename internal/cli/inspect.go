package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knot-kb/kbmetrics/internal/kb"
)

var inspectBuckets bool

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <kb.tsv>",
	Short: "Print the schema and shape of a knowledge base",
	Long: `Inspect parses a knowledge base head and reports its format version,
declared entity types and per-type column blocks. With --buckets it also
loads the data and counts rows per normalized type-set bucket, the same
grouping the percentile tables use.

Example:
  kbmetrics inspect KB_en_all.tsv
  kbmetrics inspect KB_en_all.tsv --buckets`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectBuckets, "buckets", false, "count rows per type-set bucket")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	log := buildLogger()
	defer func() { _ = log.Sync() }()

	base, err := kb.Open(args[0], kb.Options{TypeDelim: cfg.KB.TypeDelim, Logger: log})
	if err != nil {
		return err
	}
	schema := base.Schema()

	fmt.Printf("File:    %s\n", base.Path())
	fmt.Printf("Version: %s\n", schema.Version())
	fmt.Printf("Types:   %s\n", strings.Join(schema.Types(), ", "))
	fmt.Println()

	for _, tag := range schema.Types() {
		block, _ := schema.Block(tag)
		fmt.Printf("<%s> %d slot(s)\n", tag, block.Width())
		for _, name := range block.Names() {
			offset, _ := block.Offset(name)
			fmt.Printf("  %2d  %s\n", offset, name)
		}
	}

	if !inspectBuckets {
		return nil
	}

	rows, err := base.RowCount()
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for i := 1; i <= rows; i++ {
		set, err := base.EntTypes(kb.Line(i))
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		counts[set.Key()]++
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Printf("\n%d rows in %d bucket(s)\n", rows, len(keys))
	for _, key := range keys {
		fmt.Printf("  %8d  %s\n", counts[key], key)
	}
	return nil
}
