package types

// Value is the dynamic representation of a component-level value: a
// tagged union over the closed set of kinds. The Kind of a Value always
// matches the Kind of the Type it was lifted against or will be lowered
// against — call sites know the Type statically, so this is never
// inspected without a corresponding Type in hand.
type Value struct {
	Kind Kind

	Bool bool
	I8   int8
	U8   uint8
	I16  int16
	U16  uint16
	I32  int32
	U32  uint32
	I64  int64
	U64  uint64
	F32  float32
	F64  float64
	Char rune
	Str  string

	List []Value // KindList

	// KindRecord / KindTuple: positional, parallel to the Type's Fields
	Fields []Value

	// KindVariant / KindEnum / KindOption / KindResult (despecialized
	// to variant): selected case index into the Type's Cases, label
	// with defaults resolved, and an optional payload.
	CaseIndex int
	CaseLabel string
	Payload   *Value

	// KindFlags: one bool per label, parallel to the Type's Labels
	Flags []bool

	// KindOwn / KindBorrow: a handle index (opaque to this package)
	Handle uint32

	// KindStream / KindFuture: an opaque endpoint index
	Endpoint uint32
}

func Bool(b bool) Value   { return Value{Kind: KindBool, Bool: b} }
func S8(v int8) Value     { return Value{Kind: KindS8, I8: v} }
func U8(v uint8) Value    { return Value{Kind: KindU8, U8: v} }
func S16(v int16) Value   { return Value{Kind: KindS16, I16: v} }
func U16(v uint16) Value  { return Value{Kind: KindU16, U16: v} }
func S32(v int32) Value   { return Value{Kind: KindS32, I32: v} }
func U32(v uint32) Value  { return Value{Kind: KindU32, U32: v} }
func S64(v int64) Value   { return Value{Kind: KindS64, I64: v} }
func U64(v uint64) Value  { return Value{Kind: KindU64, U64: v} }
func F32(v float32) Value { return Value{Kind: KindFloat32, F32: v} }
func F64(v float64) Value { return Value{Kind: KindFloat64, F64: v} }
func CharV(r rune) Value  { return Value{Kind: KindChar, Char: r} }
func Str(s string) Value  { return Value{Kind: KindString, Str: s} }
