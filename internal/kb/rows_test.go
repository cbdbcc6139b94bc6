package kb

import (
	"errors"
	"testing"
)

func TestRowCount_LazyLoad(t *testing.T) {
	k := openKB(t, basicHead+
		"Ada\tPERSON\td\tu\t1815\t1852\n"+
		"Bob\tPERSON\td\tu\t1900\t\n"+
		"\n")

	if k.loaded {
		t.Fatal("data loaded at Open, want lazy")
	}
	n, err := k.RowCount()
	if err != nil {
		t.Fatalf("RowCount: %v", err)
	}
	if n != 2 {
		t.Errorf("RowCount = %d, want 2", n)
	}
	if !k.loaded {
		t.Error("data not loaded after RowCount")
	}
}

func TestPadRow(t *testing.T) {
	// Generic width 4 + PERSON width 2 = 6 minimum; the row has 5 fields, so
	// padding adds 1 to reach the minimum plus one slot per stat/metric name.
	k := openKB(t, basicHead+"Ada\tPERSON\td\tu\t1815\n\n")

	row := Line(1)
	wantLen := 6 + len(AllStatNames())
	fields, err := k.rowFields(row)
	if err != nil {
		t.Fatalf("rowFields: %v", err)
	}
	if len(fields) != wantLen {
		t.Fatalf("padded length = %d, want %d", len(fields), wantLen)
	}

	if val, err := k.Field(row, wantLen-1); err != nil || val != "" {
		t.Errorf("Field(last) = %q,%v, want empty,nil", val, err)
	}
	if _, err := k.Field(row, wantLen); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("Field(past end) err = %v, want ErrMissingColumn", err)
	}
}

func TestField_RowOutOfRange(t *testing.T) {
	k := openKB(t, basicHead+"Ada\tPERSON\td\tu\t1815\t1852\n\n")

	if _, err := k.Field(Line(0), 0); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("Line(0) err = %v, want ErrRowOutOfRange", err)
	}
	if _, err := k.Field(Line(2), 0); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("Line(2) err = %v, want ErrRowOutOfRange", err)
	}
}

func TestMaterializedRow(t *testing.T) {
	k := openKB(t, basicHead+"Ada\tPERSON\td\tu\t1815\t1852\n\n")

	row := Materialized([]string{"Eve", "PERSON", "x", "y", "1700", "1750"})
	val, err := k.Field(row, 0)
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	if val != "Eve" {
		t.Errorf("Field = %q, want Eve", val)
	}
	// Materialized references never force the file load.
	if k.loaded {
		t.Error("materialized access loaded the data section")
	}
}

func TestSetField(t *testing.T) {
	k := openKB(t, basicHead+"Ada\tPERSON\td\tu\t1815\t1852\n\n")

	row := Line(1)
	if err := k.SetField(row, 2, "updated"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if val, _ := k.Field(row, 2); val != "updated" {
		t.Errorf("Field = %q, want updated", val)
	}
	if err := k.SetField(row, 99, "x"); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("SetField(99) err = %v, want ErrMissingColumn", err)
	}
}

func TestLoadData_Empty(t *testing.T) {
	k := openKB(t, basicHead)
	if _, err := k.RowCount(); !errors.Is(err, ErrEmptyData) {
		t.Fatalf("err = %v, want ErrEmptyData", err)
	}
}
