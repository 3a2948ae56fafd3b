package memcodec

import (
	"math"
	"reflect"
	"testing"

	"github.com/component-model/canon-abi/internal/types"
)

func freshOpts(enc StringEncoding) (*Options, *uint32) {
	mem := NewSliceMemory(4096)
	next := uint32(8)
	realloc := Realloc(func(oldPtr, oldSize, align, newSize uint32) uint32 {
		p := types.AlignTo(next, align)
		next = p + newSize
		return p
	})
	return &Options{Memory: mem, StringEncoding: enc, Realloc: realloc}, &next
}

func TestStoreLoadScalarRoundtrip(t *testing.T) {
	opts, _ := freshOpts(UTF8)
	cases := []struct {
		typ *types.Type
		val types.Value
	}{
		{types.Primitive(types.KindU32), types.U32(0xdeadbeef)},
		{types.Primitive(types.KindS64), types.S64(-9001)},
		{types.Primitive(types.KindBool), types.Bool(true)},
		{types.Primitive(types.KindChar), types.CharV('λ')},
	}
	ptr := uint32(0)
	for _, c := range cases {
		ptr = types.AlignTo(ptr, types.Alignment(c.typ))
		Store(opts, c.val, c.typ, ptr)
		got := Load(opts, ptr, c.typ)
		if !reflect.DeepEqual(got, c.val) {
			t.Errorf("roundtrip %v: got %+v, want %+v", c.typ.Kind, got, c.val)
		}
		ptr += types.Size(c.typ)
	}
}

func TestFloatRoundtripCanonicalizesNaN(t *testing.T) {
	opts, _ := freshOpts(UTF8)
	nan := types.F32(float32(math.NaN()))
	Store(opts, nan, types.Primitive(types.KindFloat32), 0)
	got := Load(opts, 0, types.Primitive(types.KindFloat32))
	if math.Float32bits(got.F32) != CanonicalNaN32Bits {
		t.Fatalf("got bits %x, want canonical NaN %x", math.Float32bits(got.F32), CanonicalNaN32Bits)
	}
}

func TestStringRoundtripUTF8(t *testing.T) {
	opts, _ := freshOpts(UTF8)
	st := types.Primitive(types.KindString)
	s := types.Str("hello, 世界")
	ptr := allocate(opts, types.Size(st), types.Alignment(st))
	Store(opts, s, st, ptr)
	got := Load(opts, ptr, st)
	if got.Str != s.Str {
		t.Fatalf("got %q, want %q", got.Str, s.Str)
	}
}

func TestStringRoundtripLatin1UpgradesToUTF16(t *testing.T) {
	opts, _ := freshOpts(Latin1UTF16)
	st := types.Primitive(types.KindString)
	s := types.Str("plain ascii then λ widens")
	ptr := allocate(opts, types.Size(st), types.Alignment(st))
	Store(opts, s, st, ptr)
	got := Load(opts, ptr, st)
	if got.Str != s.Str {
		t.Fatalf("got %q, want %q", got.Str, s.Str)
	}
}

func TestRecordRoundtripWithPadding(t *testing.T) {
	opts, _ := freshOpts(UTF8)
	rt := types.Record([]types.Field{
		{Label: "flag", Type: types.Primitive(types.KindU8)},
		{Label: "count", Type: types.Primitive(types.KindU32)},
	})
	v := types.Value{Kind: types.KindRecord, Fields: []types.Value{types.U8(1), types.U32(99)}}
	Store(opts, v, rt, 0)
	got := Load(opts, 0, rt)
	if got.Fields[0].U8 != 1 || got.Fields[1].U32 != 99 {
		t.Fatalf("got %+v", got)
	}
}

func TestVariantRoundtripPicksPayloadByDiscriminant(t *testing.T) {
	opts, _ := freshOpts(UTF8)
	vt := types.Variant([]types.Case{
		{Label: "none"},
		{Label: "some", Type: types.Primitive(types.KindU32)},
	})
	v := types.Value{Kind: types.KindVariant, CaseIndex: 1, CaseLabel: "some", Payload: ptrVal(types.U32(7))}
	Store(opts, v, vt, 0)
	got := Load(opts, 0, vt)
	if got.CaseIndex != 1 || got.Payload == nil || got.Payload.U32 != 7 {
		t.Fatalf("got %+v", got)
	}
}

func TestFlagsRoundtrip(t *testing.T) {
	opts, _ := freshOpts(UTF8)
	ft := types.Flags([]string{"read", "write", "exec"})
	v := types.Value{Kind: types.KindFlags, Flags: []bool{true, false, true}}
	Store(opts, v, ft, 0)
	got := Load(opts, 0, ft)
	if !got.Flags[0] || got.Flags[1] || !got.Flags[2] {
		t.Fatalf("got %+v", got.Flags)
	}
}

func TestFlagsRoundtripBeyondSixtyFourLabels(t *testing.T) {
	opts, _ := freshOpts(UTF8)
	labels := make([]string, 70)
	for i := range labels {
		labels[i] = string(rune('a' + i%26))
	}
	ft := types.Flags(labels)
	flags := make([]bool, 70)
	flags[0] = true
	flags[31] = true
	flags[32] = true
	flags[69] = true
	v := types.Value{Kind: types.KindFlags, Flags: flags}
	Store(opts, v, ft, 0)
	got := Load(opts, 0, ft)
	for i, want := range flags {
		if got.Flags[i] != want {
			t.Fatalf("flag %d: got %v, want %v", i, got.Flags[i], want)
		}
	}
}

func TestLoadTrapsOnOutOfBounds(t *testing.T) {
	opts, _ := freshOpts(UTF8)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap reading past the end of memory")
		}
	}()
	Load(opts, opts.Memory.Len()-1, types.Primitive(types.KindU64))
}

func ptrVal(v types.Value) *types.Value { return &v }
