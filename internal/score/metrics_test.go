package score

import (
	"path/filepath"
	"testing"

	"github.com/knot-kb/kbmetrics/internal/kb"
)

func metricValue(t *testing.T, k *kb.KnowledgeBase, row kb.RowRef, name string) string {
	t.Helper()
	col, err := k.ColumnForType(row, name, kb.StatsType)
	if err != nil {
		t.Fatalf("ColumnForType(%s): %v", name, err)
	}
	val, err := k.Field(row, col)
	if err != nil {
		t.Fatalf("Field(%s): %v", name, err)
	}
	return val
}

func TestEngine_InsertMetrics(t *testing.T) {
	k := openScoreKB(t, scoreHead+
		"Ada\tPERSON\tabcd\t1815\t100\t80\t1\n"+
		"Bob\tPERSON\tab\t1900\t20\t40\t1\n"+
		"Carol\tPERSON\t\t\tNF\t\t\n"+
		"\n")

	e := NewEngine(k, nil, 0)
	if err := e.InsertMetrics(); err != nil {
		t.Fatalf("InsertMetrics: %v", err)
	}
	if e.Tables() == nil {
		t.Fatal("Tables() nil after a full run")
	}

	// Percentiles per bucket: backlinks cap 25 -> 100:1.0, 20:0.8; hits cap
	// 20 -> both 1.0; primary sense -> 1.0; description [0,2,4]; columns
	// [2,4,4]. Expected scores follow from the 5/5/1 and 5/1 weightings.
	cases := []struct {
		row        int
		scoreWiki  string
		scoreMet   string
		confidence string
	}{
		{1, "100.00", "100.00", "100.00"},
		{2, "90.91", "75.00", "88.26"},
		{3, "0.00", "25.00", "4.17"},
	}
	for _, tc := range cases {
		row := kb.Line(tc.row)
		if got := metricValue(t, k, row, "SCORE WIKI"); got != tc.scoreWiki {
			t.Errorf("row %d SCORE WIKI = %q, want %q", tc.row, got, tc.scoreWiki)
		}
		if got := metricValue(t, k, row, "SCORE METRICS"); got != tc.scoreMet {
			t.Errorf("row %d SCORE METRICS = %q, want %q", tc.row, got, tc.scoreMet)
		}
		if got := metricValue(t, k, row, "CONFIDENCE"); got != tc.confidence {
			t.Errorf("row %d CONFIDENCE = %q, want %q", tc.row, got, tc.confidence)
		}
	}
}

func TestEngine_InsertMetrics_AlreadyScored(t *testing.T) {
	k := openScoreKB(t, scoreHead+
		"Ada\tPERSON\tabcd\t1815\t100\t80\t1\n"+
		"Bob\tPERSON\tab\t1900\t20\t40\t1\n"+
		"\n")
	if err := NewEngine(k, nil, 0).InsertMetrics(); err != nil {
		t.Fatalf("first InsertMetrics: %v", err)
	}

	out := filepath.Join(t.TempDir(), "scored.tsv")
	if err := k.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	scored, err := kb.Open(out, kb.Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	// The saved head declares every statistic and metric column, so a second
	// run must refuse without touching anything.
	e := NewEngine(scored, nil, 0)
	if err := e.InsertMetrics(); err != nil {
		t.Fatalf("second InsertMetrics: %v", err)
	}
	if e.Tables() != nil {
		t.Error("second run built tables, want warned no-op")
	}
	if got := metricValue(t, scored, kb.Line(1), "SCORE WIKI"); got != "100.00" {
		t.Errorf("SCORE WIKI after no-op = %q, want 100.00", got)
	}
}

func TestEngine_InsertMetrics_MissingStats(t *testing.T) {
	head := "kb v1\n" +
		"<__generic__>NAME\tTYPE\tDESCRIPTION\n" +
		"<PERSON>BIRTH DATE\n" +
		"\n"
	k := openScoreKB(t, head+"Ada\tPERSON\tabcd\t1815\n\n")

	e := NewEngine(k, nil, 0)
	if err := e.InsertMetrics(); err != nil {
		t.Fatalf("InsertMetrics: %v", err)
	}
	if e.Tables() != nil {
		t.Error("tables built without input statistics, want warned no-op")
	}
	if k.Schema().HasType(kb.StatsType) {
		t.Error("no-op run mutated the schema")
	}
}

func TestEngine_Percentile_NotBuilt(t *testing.T) {
	k := openScoreKB(t, scoreHead+"Ada\tPERSON\tabcd\t1815\t1\t1\t1\n\n")
	e := NewEngine(k, nil, 0)
	if _, err := e.Percentile(kb.Line(1), MetricDescriptionLength); err == nil {
		t.Fatal("expected error before tables are built")
	}
}

func TestWeightedAverage(t *testing.T) {
	if got := weightedAverage([]float64{1, 0.5, 0}, []float64{5, 5, 1}); !near(got, 7.5/11) {
		t.Errorf("weightedAverage = %v, want %v", got, 7.5/11)
	}
	if got := weightedAverage(nil, nil); got != 0 {
		t.Errorf("weightedAverage(empty) = %v, want 0", got)
	}
	if got := average([]float64{0.25, 0.75}); !near(got, 0.5) {
		t.Errorf("average = %v, want 0.5", got)
	}
}
