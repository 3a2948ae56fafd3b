package types

// FlatKind is a core scalar value kind: i32, i64, f32, or f64.
type FlatKind byte

const (
	FlatI32 FlatKind = iota
	FlatI64
	FlatF32
	FlatF64
)

func (k FlatKind) String() string {
	switch k {
	case FlatI32:
		return "i32"
	case FlatI64:
		return "i64"
	case FlatF32:
		return "f32"
	case FlatF64:
		return "f64"
	}
	return "?"
}

// Caps on how many flat core values a single parameter list or result
// may flatten to before the caller must bundle them into an in-memory
// tuple and pass a pointer instead.
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// Flatten computes the ordered core-value-kind sequence representing a
// value of type t, once within the flattening cap.
func Flatten(t *Type) []FlatKind {
	switch Despecialize(t).Kind {
	case KindBool, KindS8, KindU8, KindS16, KindU16, KindS32, KindU32, KindChar:
		return []FlatKind{FlatI32}
	case KindS64, KindU64:
		return []FlatKind{FlatI64}
	case KindFloat32:
		return []FlatKind{FlatF32}
	case KindFloat64:
		return []FlatKind{FlatF64}
	case KindString, KindList:
		return []FlatKind{FlatI32, FlatI32}
	case KindRecord:
		return flattenRecord(Despecialize(t))
	case KindVariant:
		return flattenVariant(Despecialize(t).Cases)
	case KindFlags:
		n := len(Despecialize(t).Labels)
		out := make([]FlatKind, numI32Flags(n))
		for i := range out {
			out[i] = FlatI32
		}
		return out
	case KindOwn, KindBorrow:
		return []FlatKind{FlatI32}
	}
	return nil
}

func flattenRecord(d *Type) []FlatKind {
	var out []FlatKind
	for _, f := range d.Fields {
		out = append(out, Flatten(f.Type)...)
	}
	return out
}

// flattenVariant computes the joined payload slot sequence: at each
// position across cases, unify the types (equal -> self; {i32,f32} ->
// i32; else i64).
func flattenVariant(cases []Case) []FlatKind {
	var payload []FlatKind
	for _, c := range cases {
		if c.Type == nil {
			continue
		}
		flat := Flatten(c.Type)
		for i, k := range flat {
			if i >= len(payload) {
				payload = append(payload, k)
			} else {
				payload[i] = join(payload[i], k)
			}
		}
	}
	out := make([]FlatKind, 0, 1+len(payload))
	out = append(out, FlatI32) // discriminant
	out = append(out, payload...)
	return out
}

func join(a, b FlatKind) FlatKind {
	if a == b {
		return a
	}
	if (a == FlatI32 && b == FlatF32) || (a == FlatF32 && b == FlatI32) {
		return FlatI32
	}
	return FlatI64
}

// FlattenFunctionDirection selects whether params/results are being
// flattened for a lift (callee side) or a lower (caller side); the two
// differ in how the over-cap result case is handled.
type FlattenFunctionDirection byte

const (
	Lift FlattenFunctionDirection = iota
	Lower
)

// FlattenedSignature is the result of flattening a FuncType: the flat
// core param kinds, the flat core result kinds, and whether the params
// or results were bundled into an in-memory tuple passed by pointer.
type FlattenedSignature struct {
	Params        []FlatKind
	Results       []FlatKind
	ParamsByPtr   bool // params exceeded MaxFlatParams; single i32 ptr param
	ResultsByPtr  bool // lift: result exceeded MaxFlatResults; single i32 ptr result
	ResultOutParam bool // lower: result exceeded MaxFlatResults; caller passes an out-ptr i32 param
}

// FlattenFuncType flattens a function's parameter and result types into
// their core representation, applying the MaxFlatParams/MaxFlatResults
// caps.
func FlattenFuncType(ft *FuncType, dir FlattenFunctionDirection) FlattenedSignature {
	var sig FlattenedSignature

	paramTypes := make([]*Type, len(ft.Params))
	for i, p := range ft.Params {
		paramTypes[i] = p.Type
	}
	flatParams := flattenTypes(paramTypes)
	if len(flatParams) > MaxFlatParams {
		sig.Params = []FlatKind{FlatI32}
		sig.ParamsByPtr = true
	} else {
		sig.Params = flatParams
	}

	if ft.Result == nil {
		return sig
	}
	flatResults := Flatten(ft.Result)
	if len(flatResults) > MaxFlatResults {
		switch dir {
		case Lift:
			sig.Results = []FlatKind{FlatI32}
			sig.ResultsByPtr = true
		case Lower:
			sig.Params = append(sig.Params, FlatI32)
			sig.ResultOutParam = true
			sig.Results = nil
		}
	} else {
		sig.Results = flatResults
	}
	return sig
}

func flattenTypes(ts []*Type) []FlatKind {
	var out []FlatKind
	for _, t := range ts {
		out = append(out, Flatten(t)...)
	}
	return out
}
