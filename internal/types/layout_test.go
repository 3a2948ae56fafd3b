package types

import "testing"

func TestAlignmentScalars(t *testing.T) {
	cases := []struct {
		typ  *Type
		want uint32
	}{
		{Primitive(KindBool), 1},
		{Primitive(KindU8), 1},
		{Primitive(KindS16), 2},
		{Primitive(KindU32), 4},
		{Primitive(KindFloat32), 4},
		{Primitive(KindU64), 8},
		{Primitive(KindFloat64), 8},
		{Primitive(KindString), 4},
		{Own("file"), 4},
	}
	for _, c := range cases {
		if got := Alignment(c.typ); got != c.want {
			t.Errorf("Alignment(%v) = %d, want %d", c.typ.Kind, got, c.want)
		}
	}
}

func TestRecordAlignmentIsMaxOfFields(t *testing.T) {
	rec := Record([]Field{
		{Label: "a", Type: Primitive(KindU8)},
		{Label: "b", Type: Primitive(KindU64)},
	})
	if got := Alignment(rec); got != 8 {
		t.Fatalf("Alignment = %d, want 8", got)
	}
}

func TestRecordSizePadsBetweenFields(t *testing.T) {
	// u8 field followed by u32 field: 1 byte + 3 padding + 4 bytes = 8,
	// then padded to the record's own (max-field) alignment of 4.
	rec := Record([]Field{
		{Label: "a", Type: Primitive(KindU8)},
		{Label: "b", Type: Primitive(KindU32)},
	})
	if got := Size(rec); got != 8 {
		t.Fatalf("Size = %d, want 8", got)
	}
}

func TestDiscriminantTypeWidensWithCaseCount(t *testing.T) {
	small := make([]Case, 2)
	mid := make([]Case, 1000)
	big := make([]Case, 1<<17)
	if DiscriminantType(small).Kind != KindU8 {
		t.Errorf("2 cases should use u8 discriminant")
	}
	if DiscriminantType(mid).Kind != KindU16 {
		t.Errorf("1000 cases should use u16 discriminant")
	}
	if DiscriminantType(big).Kind != KindU32 {
		t.Errorf("2^17 cases should use u32 discriminant")
	}
}

func TestAlignToRoundsUp(t *testing.T) {
	if got := AlignTo(5, 4); got != 8 {
		t.Fatalf("AlignTo(5,4) = %d, want 8", got)
	}
	if got := AlignTo(8, 4); got != 8 {
		t.Fatalf("AlignTo(8,4) = %d, want 8 (already aligned)", got)
	}
}

func TestCaseLabelWithDefaultsChainsAliases(t *testing.T) {
	cases := []Case{
		{Label: "red"},
		{Label: "crimson", DefaultsTo: "red"},
	}
	got := CaseLabelWithDefaults(cases[1], cases)
	if got != "crimson|red" {
		t.Fatalf("got %q, want %q", got, "crimson|red")
	}
}
