package types

import (
	"reflect"
	"testing"
)

func TestFlattenScalars(t *testing.T) {
	if got := Flatten(Primitive(KindU32)); !reflect.DeepEqual(got, []FlatKind{FlatI32}) {
		t.Fatalf("u32 flattened to %v", got)
	}
	if got := Flatten(Primitive(KindU64)); !reflect.DeepEqual(got, []FlatKind{FlatI64}) {
		t.Fatalf("u64 flattened to %v", got)
	}
	if got := Flatten(Primitive(KindString)); !reflect.DeepEqual(got, []FlatKind{FlatI32, FlatI32}) {
		t.Fatalf("string flattened to %v", got)
	}
}

func TestFlattenVariantJoinsPayloadSlots(t *testing.T) {
	// one case carries an i32, the other an f32 at the same slot: joined
	// to i32 per the join() table.
	v := Variant([]Case{
		{Label: "a", Type: Primitive(KindU32)},
		{Label: "b", Type: Primitive(KindFloat32)},
	})
	got := Flatten(v)
	want := []FlatKind{FlatI32, FlatI32} // discriminant + joined(i32,f32)=i32
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFlattenVariantJoinDiffersWidthFallsBackToI64(t *testing.T) {
	v := Variant([]Case{
		{Label: "a", Type: Primitive(KindU64)},
		{Label: "b", Type: Primitive(KindFloat32)},
	})
	got := Flatten(v)
	want := []FlatKind{FlatI32, FlatI64}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFlattenFuncTypeParamsByPointerOverCap(t *testing.T) {
	params := make([]Field, MaxFlatParams+1)
	for i := range params {
		params[i] = Field{Label: indexLabel(i), Type: Primitive(KindU32)}
	}
	ft := &FuncType{Params: params}
	sig := FlattenFuncType(ft, Lift)
	if !sig.ParamsByPtr || len(sig.Params) != 1 || sig.Params[0] != FlatI32 {
		t.Fatalf("expected single i32 ptr param, got %+v", sig)
	}
}

func TestFlattenFuncTypeResultOverCapDiffersByDirection(t *testing.T) {
	ft := &FuncType{Result: Record([]Field{
		{Label: "a", Type: Primitive(KindU64)},
		{Label: "b", Type: Primitive(KindU64)},
	})}

	lift := FlattenFuncType(ft, Lift)
	if !lift.ResultsByPtr || len(lift.Results) != 1 {
		t.Fatalf("lift direction: expected result-by-pointer, got %+v", lift)
	}

	lower := FlattenFuncType(ft, Lower)
	if !lower.ResultOutParam || len(lower.Results) != 0 {
		t.Fatalf("lower direction: expected an appended out-param, got %+v", lower)
	}
	if lower.Params[len(lower.Params)-1] != FlatI32 {
		t.Fatalf("lower direction: expected trailing i32 out-param, got %+v", lower.Params)
	}
}
