// Package types implements the canonical ABI's structural type model:
// despecialization and the alignment/size/flatten computations a
// component function signature needs. A Type value is a small tagged
// union over a closed set of kinds — there is no open extension point,
// since the type of a value is known statically at each lift/lower call
// site, so a reflective type system would be the wrong tool.
package types

// Kind enumerates the structural kinds of a component-level type.
type Kind byte

const (
	KindInvalid Kind = iota
	KindBool
	KindS8
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindFloat32
	KindFloat64
	KindChar
	KindString
	KindList
	KindRecord
	KindTuple
	KindFlags
	KindVariant
	KindEnum
	KindOption
	KindResult
	KindOwn
	KindBorrow
	KindStream
	KindFuture
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindS8:
		return "s8"
	case KindU8:
		return "u8"
	case KindS16:
		return "s16"
	case KindU16:
		return "u16"
	case KindS32:
		return "s32"
	case KindU32:
		return "u32"
	case KindS64:
		return "s64"
	case KindU64:
		return "u64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindTuple:
		return "tuple"
	case KindFlags:
		return "flags"
	case KindVariant:
		return "variant"
	case KindEnum:
		return "enum"
	case KindOption:
		return "option"
	case KindResult:
		return "result"
	case KindOwn:
		return "own"
	case KindBorrow:
		return "borrow"
	case KindStream:
		return "stream"
	case KindFuture:
		return "future"
	}
	return "invalid"
}

// Field is a labeled member of a Record.
type Field struct {
	Label string
	Type  *Type
}

// Case is a labeled, optionally-payload-bearing member of a Variant. A
// nil Type denotes a unit (payload-less) case. DefaultsTo names a chain
// of alias labels resolved by CaseLabelWithDefaults.
type Case struct {
	Label      string
	Type       *Type // nil == unit
	DefaultsTo string
}

// Type is the closed tagged union of component-model structural types.
// Only the fields relevant to Kind are meaningful; one struct shared
// across every kind keeps this a small flat value type rather than a
// deep interface hierarchy.
type Type struct {
	Kind Kind

	// KindList, KindOption, KindStream, KindFuture: element type.
	// A nil Elem on Stream/Future means the "null"/empty payload case.
	Elem *Type

	// KindList with a fixed length (list<T, N>); 0 means dynamic.
	FixedLen uint32

	// KindRecord, KindTuple (despecializes into Record; Fields
	// populated directly for convenience, field label = stringified index)
	Fields []Field

	// KindVariant, KindEnum (despecializes into Variant)
	Cases []Case

	// KindFlags
	Labels []string

	// KindResult: Ok may be nil (unit), Err may be nil (unit)
	Ok  *Type
	Err *Type

	// KindOwn, KindBorrow: resource type identifier
	Resource string
}

// Convenience constructors for primitive kinds, used pervasively by
// callers building Type values for tests and canon wiring.
func Primitive(k Kind) *Type { return &Type{Kind: k} }

func List(elem *Type) *Type          { return &Type{Kind: KindList, Elem: elem} }
func FixedList(elem *Type, n uint32) *Type {
	return &Type{Kind: KindList, Elem: elem, FixedLen: n}
}
func Record(fields []Field) *Type { return &Type{Kind: KindRecord, Fields: fields} }
func Tuple(ts []*Type) *Type {
	fields := make([]Field, len(ts))
	for i, t := range ts {
		fields[i] = Field{Label: indexLabel(i), Type: t}
	}
	return &Type{Kind: KindTuple, Fields: fields}
}
func Flags(labels []string) *Type   { return &Type{Kind: KindFlags, Labels: labels} }
func Variant(cases []Case) *Type    { return &Type{Kind: KindVariant, Cases: cases} }
func Enum(labels []string) *Type {
	cases := make([]Case, len(labels))
	for i, l := range labels {
		cases[i] = Case{Label: l}
	}
	return &Type{Kind: KindEnum, Cases: cases}
}
func Option(t *Type) *Type            { return &Type{Kind: KindOption, Elem: t} }
func Result(ok, err *Type) *Type      { return &Type{Kind: KindResult, Ok: ok, Err: err} }
func Own(resource string) *Type       { return &Type{Kind: KindOwn, Resource: resource} }
func Borrow(resource string) *Type    { return &Type{Kind: KindBorrow, Resource: resource} }
func Stream(payload *Type) *Type      { return &Type{Kind: KindStream, Elem: payload} }
func Future(payload *Type) *Type      { return &Type{Kind: KindFuture, Elem: payload} }

func indexLabel(i int) string {
	// decimal field labels for tuples/unions (e.g. "0", "1", "2", ...)
	if i == 0 {
		return "0"
	}
	digits := [20]byte{}
	pos := len(digits)
	for i > 0 {
		pos--
		digits[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(digits[pos:])
}

// FuncType is a function signature: ordered parameter types and at most
// one result type (component-level result may itself be a tuple/record
// bundling multiple values — the "one result" constraint is at the
// function-type level, matching WIT's single-result functions).
type FuncType struct {
	Params []Field
	Result *Type // nil == no result
}
