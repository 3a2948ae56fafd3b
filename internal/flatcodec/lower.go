package flatcodec

import (
	"math"

	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/memcodec"
	"github.com/component-model/canon-abi/internal/types"
)

// LowerFlat implements lower_flat: the exact inverse of LiftFlat,
// widening payload slots with bit-preserving reinterpretation or signed
// two's complement widening.
func LowerFlat(opts *memcodec.Options, v types.Value, t *types.Type) []FlatValue {
	d := types.Despecialize(t)
	switch d.Kind {
	case types.KindBool:
		u := uint32(0)
		if v.Bool {
			u = 1
		}
		return []FlatValue{I32V(u)}
	case types.KindU8:
		return []FlatValue{I32V(uint32(v.U8))}
	case types.KindU16:
		return []FlatValue{I32V(uint32(v.U16))}
	case types.KindU32:
		return []FlatValue{I32V(v.U32)}
	case types.KindU64:
		return []FlatValue{I64V(v.U64)}
	case types.KindS8:
		return []FlatValue{I32V(lowerFlatSigned(int64(v.I8), 32))}
	case types.KindS16:
		return []FlatValue{I32V(lowerFlatSigned(int64(v.I16), 32))}
	case types.KindS32:
		return []FlatValue{I32V(lowerFlatSigned(int64(v.I32), 32))}
	case types.KindS64:
		return []FlatValue{I64V(uint64(v.I64))}
	case types.KindFloat32:
		return []FlatValue{F32V(memcodec.CanonicalizeF32(v.F32))}
	case types.KindFloat64:
		return []FlatValue{F64V(memcodec.CanonicalizeF64(v.F64))}
	case types.KindChar:
		return []FlatValue{I32V(uint32(v.Char))}
	case types.KindString:
		ptr, taggedLen := memcodec.StoreStringNew(opts, v.Str)
		return []FlatValue{I32V(ptr), I32V(taggedLen)}
	case types.KindList:
		ptr, length := memcodec.StoreListNew(opts, v.List, d.Elem)
		return []FlatValue{I32V(ptr), I32V(length)}
	case types.KindRecord:
		var out []FlatValue
		for i, f := range d.Fields {
			out = append(out, LowerFlat(opts, v.Fields[i], f.Type)...)
		}
		return out
	case types.KindVariant:
		return lowerFlatVariant(opts, v, d)
	case types.KindFlags:
		return lowerFlatFlags(v.Flags)
	case types.KindOwn, types.KindBorrow:
		return []FlatValue{I32V(v.Handle)}
	}
	abierr.Raisef("bad-type", "lower_flat: unhandled kind %v", t.Kind)
	return nil
}

func lowerFlatSigned(i int64, coreBits int) uint32 {
	if coreBits == 32 {
		return uint32(i)
	}
	return uint32(i)
}

func lowerFlatVariant(opts *memcodec.Options, v types.Value, d *types.Type) []FlatValue {
	c := d.Cases[v.CaseIndex]
	joined := types.Flatten(&types.Type{Kind: types.KindVariant, Cases: d.Cases})[1:]

	out := make([]FlatValue, 0, 1+len(joined))
	out = append(out, I32V(uint32(v.CaseIndex)))

	payload := make([]FlatValue, len(joined))
	if c.Type != nil && v.Payload != nil {
		caseFlat := LowerFlat(opts, *v.Payload, c.Type)
		for i, have := range typeKindsOf(c.Type) {
			payload[i] = widenFlat(caseFlat[i], have, joined[i])
		}
		for i := len(typeKindsOf(c.Type)); i < len(joined); i++ {
			payload[i] = zeroFlat(joined[i])
		}
	} else {
		for i := range joined {
			payload[i] = zeroFlat(joined[i])
		}
	}
	return append(out, payload...)
}

func typeKindsOf(t *types.Type) []types.FlatKind { return types.Flatten(t) }

func zeroFlat(k types.FlatKind) FlatValue {
	switch k {
	case types.FlatI32:
		return I32V(0)
	case types.FlatI64:
		return I64V(0)
	case types.FlatF32:
		return F32V(0)
	case types.FlatF64:
		return F64V(0)
	}
	return FlatValue{}
}

// widenFlat is the lowering-side inverse of coerceFlat: widen a case's
// flat slot up to the joined (unified) flat kind via bit-preserving
// reinterpretation or zero/sign extension.
func widenFlat(v FlatValue, have, want types.FlatKind) FlatValue {
	if have == want {
		return v
	}
	switch {
	case have == types.FlatF32 && want == types.FlatI32:
		return I32V(math.Float32bits(v.F32))
	case have == types.FlatI32 && want == types.FlatI64:
		return I64V(uint64(v.I32))
	case have == types.FlatF32 && want == types.FlatI64:
		return I64V(uint64(math.Float32bits(v.F32)))
	case have == types.FlatF64 && want == types.FlatI64:
		return I64V(math.Float64bits(v.F64))
	}
	abierr.Raisef("bad-type", "widen_flat: unsupported %v -> %v", have, want)
	return FlatValue{}
}

func lowerFlatFlags(flags []bool) []FlatValue {
	n := len(flags)
	nWords := (n + 31) / 32
	out := make([]FlatValue, nWords)
	for w := 0; w < nWords; w++ {
		var word uint32
		for b := 0; b < 32; b++ {
			idx := w*32 + b
			if idx >= n {
				break
			}
			if flags[idx] {
				word |= 1 << uint(b)
			}
		}
		out[w] = I32V(word)
	}
	return out
}
