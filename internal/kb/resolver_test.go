package kb

import (
	"errors"
	"reflect"
	"testing"
)

const statsHead = "kb v1.2\n" +
	"<__generic__>NAME\tTYPE\tDESCRIPTION\tWIKIPEDIA URL\n" +
	"<PERSON>BIRTH DATE\tDEATH DATE\n" +
	"<ARTIST>GENRE\n" +
	"<__stats__>WIKI BACKLINKS\tWIKI HITS\tWIKI PRIMARY SENSE\n" +
	"\n"

func TestEntTypes_LayoutOrder(t *testing.T) {
	k := openKB(t, statsHead+"Ada\tPERSON\td\tu\t1815\t1852\t9\t9\t1\n\n")

	set, err := k.EntTypes(Line(1))
	if err != nil {
		t.Fatalf("EntTypes: %v", err)
	}
	want := []string{GenericType, "PERSON", StatsType}
	if !reflect.DeepEqual(set.Tags(), want) {
		t.Errorf("Tags = %v, want %v", set.Tags(), want)
	}
}

func TestTypeSetKey_OrderIndependent(t *testing.T) {
	k := openKB(t, statsHead+
		"X\tPERSON+ARTIST\td\tu\t1900\t\trock\n"+
		"Y\tARTIST+PERSON\td\tu\trock\t1900\t\n"+
		"\n")

	a, err := k.EntTypes(Line(1))
	if err != nil {
		t.Fatalf("EntTypes(1): %v", err)
	}
	b, err := k.EntTypes(Line(2))
	if err != nil {
		t.Fatalf("EntTypes(2): %v", err)
	}

	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	// The layouts themselves keep declaration order.
	if reflect.DeepEqual(a.Tags(), b.Tags()) {
		t.Errorf("Tags unexpectedly equal: %v", a.Tags())
	}
}

func TestTypeSet_DuplicateTags(t *testing.T) {
	k := openKB(t, statsHead+"X\tPERSON+PERSON\td\tu\t1900\t1950\n\n")

	set, err := k.EntTypes(Line(1))
	if err != nil {
		t.Fatalf("EntTypes: %v", err)
	}
	want := []string{GenericType, "PERSON", StatsType}
	if !reflect.DeepEqual(set.Tags(), want) {
		t.Errorf("Tags = %v, want %v", set.Tags(), want)
	}
}

func TestColumnFor_AcrossBlocks(t *testing.T) {
	// PERSON+ARTIST layout: generic (0-3), PERSON (4-5), ARTIST (6).
	k := openKB(t, statsHead+"X\tPERSON+ARTIST\td\tu\t1900\t1950\trock\n\n")
	row := Line(1)

	cases := []struct {
		name string
		want int
	}{
		{"NAME", 0},
		{"BIRTH DATE", 4},
		{"GENRE", 6},
		{"WIKI HITS", 8},
	}
	for _, tc := range cases {
		col, err := k.ColumnFor(row, tc.name)
		if err != nil {
			t.Errorf("ColumnFor(%s): %v", tc.name, err)
			continue
		}
		if col != tc.want {
			t.Errorf("ColumnFor(%s) = %d, want %d", tc.name, col, tc.want)
		}
	}
}

func TestColumnFor_NotFound(t *testing.T) {
	k := openKB(t, statsHead+"Ada\tPERSON\td\tu\t1815\t1852\n\n")

	_, err := k.ColumnFor(Line(1), "GENRE")
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("err = %v, want ErrColumnNotFound", err)
	}
}

func TestColumnForType_HintNotInSet(t *testing.T) {
	k := openKB(t, statsHead+"Ada\tPERSON\td\tu\t1815\t1852\n\n")

	_, err := k.ColumnForType(Line(1), "GENRE", "ARTIST")
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("err = %v, want ErrColumnNotFound", err)
	}
}

func TestColumnForType_NameNotInHintBlock(t *testing.T) {
	k := openKB(t, statsHead+"Ada\tPERSON\td\tu\t1815\t1852\n\n")

	// NAME exists in the generic block, but the hint restricts the lookup to
	// PERSON, which does not define it.
	_, err := k.ColumnForType(Line(1), "NAME", "PERSON")
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("err = %v, want ErrColumnNotFound", err)
	}
}

func TestColumnFor_UnknownType(t *testing.T) {
	k := openKB(t, statsHead+"Zed\tALIEN\td\tu\n\n")

	// NAME resolves inside the generic block before the unknown tag is ever
	// reached; a name beyond it trips over the missing block.
	_, err := k.ColumnFor(Line(1), "BIRTH DATE")
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
}

func TestOpen_CustomTypeDelim(t *testing.T) {
	path := writeKB(t, statsHead+"X\tPERSON;ARTIST\td\tu\t1900\t1950\trock\n\n")
	k, err := Open(path, Options{TypeDelim: ";"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	col, err := k.ColumnFor(Line(1), "GENRE")
	if err != nil {
		t.Fatalf("ColumnFor: %v", err)
	}
	if col != 6 {
		t.Errorf("GENRE col = %d, want 6", col)
	}
}
