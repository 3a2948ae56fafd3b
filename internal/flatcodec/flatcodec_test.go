package flatcodec

import (
	"testing"

	"github.com/component-model/canon-abi/internal/memcodec"
	"github.com/component-model/canon-abi/internal/types"
)

func freshOpts() *memcodec.Options {
	mem := memcodec.NewSliceMemory(4096)
	next := uint32(8)
	realloc := memcodec.Realloc(func(oldPtr, oldSize, align, newSize uint32) uint32 {
		p := types.AlignTo(next, align)
		next = p + newSize
		return p
	})
	return &memcodec.Options{Memory: mem, StringEncoding: memcodec.UTF8, Realloc: realloc}
}

func TestLiftLowerFlatScalarRoundtrip(t *testing.T) {
	opts := freshOpts()
	u32t := types.Primitive(types.KindU32)
	flat := LowerFlat(opts, types.U32(123), u32t)
	got := LiftFlat(opts, NewValueIter(flat), u32t)
	if got.U32 != 123 {
		t.Fatalf("got %+v", got)
	}
}

func TestLiftLowerFlatStringRoundtrip(t *testing.T) {
	opts := freshOpts()
	st := types.Primitive(types.KindString)
	flat := LowerFlat(opts, types.Str("component model"), st)
	if len(flat) != 2 {
		t.Fatalf("string should flatten to a (ptr,len) pair, got %d slots", len(flat))
	}
	got := LiftFlat(opts, NewValueIter(flat), st)
	if got.Str != "component model" {
		t.Fatalf("got %q", got.Str)
	}
}

func TestLiftFlatVariantCoercesJoinedPayload(t *testing.T) {
	opts := freshOpts()
	vt := types.Variant([]types.Case{
		{Label: "a", Type: types.Primitive(types.KindU64)},
		{Label: "b", Type: types.Primitive(types.KindFloat32)},
	})
	v := types.Value{Kind: types.KindVariant, CaseIndex: 1, CaseLabel: "b", Payload: vp(types.F32(2.5))}
	flat := LowerFlat(opts, v, vt)
	// discriminant + one joined i64 payload slot (per join(u64,f32)=i64)
	if len(flat) != 2 {
		t.Fatalf("expected 2 flat slots, got %d", len(flat))
	}
	got := LiftFlat(opts, NewValueIter(flat), vt)
	if got.CaseIndex != 1 || got.Payload.F32 != 2.5 {
		t.Fatalf("got %+v", got)
	}
}

func TestLiftLowerFuncParamsUnderCap(t *testing.T) {
	opts := freshOpts()
	ts := []*types.Type{types.Primitive(types.KindU32), types.Primitive(types.KindBool)}
	vs := []types.Value{types.U32(7), types.Bool(true)}
	flat := Lower(opts, types.MaxFlatParams, vs, ts, nil)
	got := Lift(opts, types.MaxFlatParams, NewValueIter(flat), ts)
	if got[0].U32 != 7 || !got[1].Bool {
		t.Fatalf("got %+v", got)
	}
}

func TestLiftLowerFuncParamsOverCapBundleByPointer(t *testing.T) {
	opts := freshOpts()
	ts := make([]*types.Type, 20)
	vs := make([]types.Value, 20)
	for i := range ts {
		ts[i] = types.Primitive(types.KindU32)
		vs[i] = types.U32(uint32(i))
	}
	flat := Lower(opts, 16, vs, ts, nil)
	if len(flat) != 1 {
		t.Fatalf("expected a single pointer when over cap, got %d flat values", len(flat))
	}
	got := Lift(opts, 16, NewValueIter(flat), ts)
	for i, v := range got {
		if v.U32 != uint32(i) {
			t.Fatalf("field %d: got %d, want %d", i, v.U32, i)
		}
	}
}

func vp(v types.Value) *types.Value { return &v }
