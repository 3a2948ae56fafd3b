// Package flatcodec implements lift_flat/lower_flat: the bidirectional
// conversion between a typed value and a flat sequence of core scalar
// values, including the list of a function's parameters/results (for
// the common case under the flattening cap — the >cap case is handled
// by the memcodec-backed tuple-by-pointer path in Lift/Lower, func.go).
package flatcodec

import (
	"math"

	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/memcodec"
	"github.com/component-model/canon-abi/internal/types"
)

// FlatValue is one flat core scalar, tagged by kind so i32/f32 and i64/f64
// bit-reinterpretation at variant-join boundaries is explicit rather
// than inferred.
type FlatValue struct {
	Kind types.FlatKind
	I32  uint32
	I64  uint64
	F32  float32
	F64  float64
}

func I32V(v uint32) FlatValue  { return FlatValue{Kind: types.FlatI32, I32: v} }
func I64V(v uint64) FlatValue  { return FlatValue{Kind: types.FlatI64, I64: v} }
func F32V(v float32) FlatValue { return FlatValue{Kind: types.FlatF32, F32: v} }
func F64V(v float64) FlatValue { return FlatValue{Kind: types.FlatF64, F64: v} }

// ValueIter is a cursor over a flat core-value sequence.
type ValueIter struct {
	values []FlatValue
	i      int
}

func NewValueIter(values []FlatValue) *ValueIter { return &ValueIter{values: values} }

// Next consumes and returns the next flat value, trapping if exhausted
// (should never happen for a well-typed call).
func (vi *ValueIter) Next() FlatValue {
	abierr.RaiseIf(vi.i >= len(vi.values), "flat-value-iterator-exhausted")
	v := vi.values[vi.i]
	vi.i++
	return v
}

// Remaining returns how many flat values are left unconsumed.
func (vi *ValueIter) Remaining() int { return len(vi.values) - vi.i }

// LiftFlat implements lift_flat: consumes t's flattened scalars from vi
// and reassembles the typed value.
func LiftFlat(opts *memcodec.Options, vi *ValueIter, t *types.Type) types.Value {
	d := types.Despecialize(t)
	switch d.Kind {
	case types.KindBool:
		return types.Bool(liftFlatUnsigned(vi, 32, 1) != 0)
	case types.KindU8:
		return types.U8(uint8(liftFlatUnsigned(vi, 32, 8)))
	case types.KindU16:
		return types.U16(uint16(liftFlatUnsigned(vi, 32, 16)))
	case types.KindU32:
		return types.U32(uint32(liftFlatUnsigned(vi, 32, 32)))
	case types.KindU64:
		return types.U64(liftFlatUnsigned(vi, 64, 64))
	case types.KindS8:
		return types.S8(int8(liftFlatSigned(vi, 32, 8)))
	case types.KindS16:
		return types.S16(int16(liftFlatSigned(vi, 32, 16)))
	case types.KindS32:
		return types.S32(int32(liftFlatSigned(vi, 32, 32)))
	case types.KindS64:
		return types.S64(liftFlatSigned(vi, 64, 64))
	case types.KindFloat32:
		return types.F32(memcodec.CanonicalizeF32(vi.Next().F32))
	case types.KindFloat64:
		return types.F64(memcodec.CanonicalizeF64(vi.Next().F64))
	case types.KindChar:
		i := uint32(liftFlatUnsigned(vi, 32, 32))
		return types.CharV(charFromFlat(i))
	case types.KindString:
		ptr := uint32(vi.Next().I32)
		taggedLen := uint32(vi.Next().I32)
		return memcodec.LoadStringFromPointerLen(opts, ptr, taggedLen)
	case types.KindList:
		ptr := uint32(vi.Next().I32)
		length := uint32(vi.Next().I32)
		return memcodec.LoadListFromPointerLen(opts, ptr, length, d.Elem)
	case types.KindRecord:
		fields := make([]types.Value, len(d.Fields))
		for i, f := range d.Fields {
			fields[i] = LiftFlat(opts, vi, f.Type)
		}
		return types.Value{Kind: types.KindRecord, Fields: fields}
	case types.KindVariant:
		return liftFlatVariant(opts, vi, d)
	case types.KindFlags:
		return liftFlatFlags(vi, d.Labels)
	case types.KindOwn, types.KindBorrow:
		return types.Value{Kind: d.Kind, Handle: uint32(liftFlatUnsigned(vi, 32, 32))}
	}
	abierr.Raisef("bad-type", "lift_flat: unhandled kind %v", t.Kind)
	return types.Value{}
}

func liftFlatUnsigned(vi *ValueIter, coreWidth, tWidth int) uint64 {
	v := vi.Next()
	var raw uint64
	if coreWidth == 32 {
		raw = uint64(v.I32)
	} else {
		raw = v.I64
	}
	if tWidth < coreWidth {
		abierr.RaiseIf(raw >= (uint64(1) << uint(tWidth)), "integer-out-of-range")
	}
	return raw
}

func liftFlatSigned(vi *ValueIter, coreWidth, tWidth int) int64 {
	u := liftFlatUnsignedRaw(vi, coreWidth)
	if tWidth == coreWidth {
		return int64(u)
	}
	// reinterpret the high bit of the narrower type as sign
	signBit := uint64(1) << uint(tWidth-1)
	mask := signBit - 1
	if coreWidth == 32 && u >= (uint64(1)<<32)-signBit {
		// sign-extended negative value, as LowerFlat produces
		return int64(int32(uint32(u)))
	}
	abierr.RaiseIf(u > (signBit|mask), "integer-out-of-range")
	if u&signBit != 0 {
		return int64(u) - int64(signBit<<1)
	}
	return int64(u)
}

func liftFlatUnsignedRaw(vi *ValueIter, coreWidth int) uint64 {
	v := vi.Next()
	if coreWidth == 32 {
		return uint64(v.I32)
	}
	return v.I64
}

func charFromFlat(i uint32) rune {
	abierr.RaiseIf(i >= 0x110000 || (i >= 0xD800 && i <= 0xDFFF), "bad-char")
	return rune(i)
}

// liftFlatVariant reads the discriminant then, for each joined payload
// slot, coerces the flat carrier to the selected case's expected flat
// shape, draining any remaining joined slots unread by the narrower
// case.
func liftFlatVariant(opts *memcodec.Options, vi *ValueIter, d *types.Type) types.Value {
	discFlat := vi.Next()
	caseIndex := uint32(discFlat.I32)
	abierr.RaiseIf(caseIndex >= uint32(len(d.Cases)), "bad-discriminant")
	c := d.Cases[caseIndex]

	joined := types.Flatten(&types.Type{Kind: types.KindVariant, Cases: d.Cases})[1:] // payload shape only
	var payload *types.Value
	var caseFlat []types.FlatKind
	if c.Type != nil {
		caseFlat = types.Flatten(c.Type)
	}

	slots := make([]FlatValue, len(joined))
	for i := range joined {
		slots[i] = vi.Next()
	}

	if c.Type != nil {
		coerced := make([]FlatValue, len(caseFlat))
		for i, wantKind := range caseFlat {
			coerced[i] = coerceFlat(slots[i], joined[i], wantKind)
		}
		sub := NewValueIter(coerced)
		v := LiftFlat(opts, sub, c.Type)
		payload = &v
	}
	return types.Value{
		Kind:      types.KindVariant,
		CaseIndex: int(caseIndex),
		CaseLabel: types.CaseLabelWithDefaults(c, d.Cases),
		Payload:   payload,
	}
}

// coerceFlat implements the variant payload coercions: i32->f32
// reinterprets bits, i64->i32 narrows with a range check, i64->f32
// narrows then reinterprets, i64->f64 reinterprets.
func coerceFlat(v FlatValue, have, want types.FlatKind) FlatValue {
	if have == want {
		return v
	}
	switch {
	case have == types.FlatI32 && want == types.FlatF32:
		return F32V(math.Float32frombits(v.I32))
	case have == types.FlatI64 && want == types.FlatI32:
		abierr.RaiseIf(v.I64 > math.MaxUint32, "integer-out-of-range")
		return I32V(uint32(v.I64))
	case have == types.FlatI64 && want == types.FlatF32:
		abierr.RaiseIf(v.I64 > math.MaxUint32, "integer-out-of-range")
		return F32V(math.Float32frombits(uint32(v.I64)))
	case have == types.FlatI64 && want == types.FlatF64:
		return F64V(math.Float64frombits(v.I64))
	}
	abierr.Raisef("bad-type", "coerce_flat: unsupported %v -> %v", have, want)
	return FlatValue{}
}

func liftFlatFlags(vi *ValueIter, labels []string) types.Value {
	n := len(labels)
	nWords := (n + 31) / 32
	flags := make([]bool, n)
	for w := 0; w < nWords; w++ {
		word := vi.Next().I32
		for b := 0; b < 32; b++ {
			idx := w*32 + b
			if idx >= n {
				break
			}
			flags[idx] = (word>>uint(b))&1 != 0
		}
	}
	return types.Value{Kind: types.KindFlags, Flags: flags}
}
