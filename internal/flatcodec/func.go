package flatcodec

import (
	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/memcodec"
	"github.com/component-model/canon-abi/internal/types"
)

// Lift lifts a list of types either directly from vi (under the cap) or,
// if the caller bundled them into a tuple-by-pointer, by loading that
// tuple from memory.
func Lift(opts *memcodec.Options, maxFlat int, vi *ValueIter, ts []*types.Type) []types.Value {
	flatTypes := flattenAll(ts)
	if len(flatTypes) > maxFlat {
		ptr := vi.Next().I32
		tupleType := tupleOf(ts)
		requireAlignedPtr(ptr, types.Alignment(tupleType))
		loaded := memcodec.Load(opts, ptr, tupleType)
		return loaded.Fields
	}
	out := make([]types.Value, len(ts))
	for i, t := range ts {
		out[i] = LiftFlat(opts, vi, t)
	}
	return out
}

// Lower lowers a list of values either directly to flat values (under
// the cap) or, if it must be bundled, by storing a tuple to memory and
// appending/consuming an out-pointer.
//
// outParam, when non-nil, is the caller-provided out-pointer i32 taken
// from the tail of vi's already-consumed params: the lowered results
// are written into memory the caller owns, rather than freshly
// allocated.
func Lower(opts *memcodec.Options, maxFlat int, vs []types.Value, ts []*types.Type, outParam *uint32) []FlatValue {
	flatTypes := flattenAll(ts)
	if len(flatTypes) > maxFlat {
		tupleType := tupleOf(ts)
		tupleValue := types.Value{Kind: types.KindRecord, Fields: vs}
		var ptr uint32
		if outParam != nil {
			ptr = *outParam
		} else {
			ptr = allocateTuple(opts, tupleType)
		}
		memcodec.Store(opts, tupleValue, tupleType, ptr)
		if outParam != nil {
			return nil
		}
		return []FlatValue{I32V(ptr)}
	}
	var out []FlatValue
	for i, t := range ts {
		out = append(out, LowerFlat(opts, vs[i], t)...)
	}
	return out
}

func flattenAll(ts []*types.Type) []types.FlatKind {
	var out []types.FlatKind
	for _, t := range ts {
		out = append(out, types.Flatten(t)...)
	}
	return out
}

func tupleOf(ts []*types.Type) *types.Type { return types.Tuple(ts) }

func requireAlignedPtr(ptr, alignment uint32) {
	abierr.RaiseIf(ptr != types.AlignTo(ptr, alignment), "misaligned-pointer")
}

func allocateTuple(opts *memcodec.Options, t *types.Type) uint32 {
	abierr.RaiseIf(opts.Realloc == nil, "no-realloc")
	return opts.Realloc(0, 0, types.Alignment(t), types.Size(t))
}
