package main

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/types"
)

// vectorFile is the on-disk shape of a canonhost test-vector file: a
// named list of scenarios, each describing a flat scalar parameter list
// to lower, lift and pass to an identity callee. This is
// deliberately narrower than the full component type grammar — canonhost
// plays the external-collaborator host embedder, not the core engine, so
// it only needs enough type variety to exercise the codec and scheduler
// wiring end to end.
type vectorFile struct {
	Vectors []vector `json:"vectors"`
}

type vector struct {
	Name   string      `json:"name"`
	Params []paramSpec `json:"params"`
}

type paramSpec struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
	Str   string  `json:"str,omitempty"`
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func loadVectorFile(data []byte) (*vectorFile, error) {
	var vf vectorFile
	if err := jsonAPI.Unmarshal(data, &vf); err != nil {
		return nil, abierr.Wrap("bad-vector-json", err)
	}
	return &vf, nil
}

// paramTypes/paramValues convert a vector's scalar param specs into the
// component-level types and values canon.Lift expects.
func (v vector) paramTypes() []*types.Type {
	out := make([]*types.Type, len(v.Params))
	for i, p := range v.Params {
		out[i] = scalarType(p.Kind)
	}
	return out
}

func (v vector) paramValues() []types.Value {
	out := make([]types.Value, len(v.Params))
	for i, p := range v.Params {
		out[i] = scalarValue(p)
	}
	return out
}

func scalarType(kind string) *types.Type {
	switch kind {
	case "bool":
		return types.Primitive(types.KindBool)
	case "s8":
		return types.Primitive(types.KindS8)
	case "u8":
		return types.Primitive(types.KindU8)
	case "s16":
		return types.Primitive(types.KindS16)
	case "u16":
		return types.Primitive(types.KindU16)
	case "s32":
		return types.Primitive(types.KindS32)
	case "u32":
		return types.Primitive(types.KindU32)
	case "s64":
		return types.Primitive(types.KindS64)
	case "u64":
		return types.Primitive(types.KindU64)
	case "float32":
		return types.Primitive(types.KindFloat32)
	case "float64":
		return types.Primitive(types.KindFloat64)
	case "char":
		return types.Primitive(types.KindChar)
	case "string":
		return types.Primitive(types.KindString)
	}
	abierr.Raisef("unknown-vector-kind", "unknown vector param kind %q", kind)
	return nil
}

func scalarValue(p paramSpec) types.Value {
	switch p.Kind {
	case "bool":
		return types.Bool(p.Value != 0)
	case "s8":
		return types.S8(int8(p.Value))
	case "u8":
		return types.U8(uint8(p.Value))
	case "s16":
		return types.S16(int16(p.Value))
	case "u16":
		return types.U16(uint16(p.Value))
	case "s32":
		return types.S32(int32(p.Value))
	case "u32":
		return types.U32(uint32(p.Value))
	case "s64":
		return types.S64(int64(p.Value))
	case "u64":
		return types.U64(uint64(p.Value))
	case "float32":
		return types.F32(float32(p.Value))
	case "float64":
		return types.F64(p.Value)
	case "char":
		return types.CharV(rune(int32(p.Value)))
	case "string":
		return types.Str(p.Str)
	}
	abierr.Raisef("unknown-vector-kind", "unknown vector param kind %q", p.Kind)
	return types.Value{}
}
