package memcodec

import (
	"encoding/binary"
	"math"

	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/types"
)

const (
	charSurrogateLo = 0xD800
	charSurrogateHi = 0xDFFF
	charMax         = 0x110000
)

// Load reads a value of type t out of linear memory at ptr: requires
// ptr == AlignTo(ptr, Alignment(t)) and traps if ptr+Size(t) exceeds the
// memory bound.
func Load(opts *Options, ptr uint32, t *types.Type) types.Value {
	requireAligned(ptr, types.Alignment(t))
	requireInBounds(opts, ptr, types.Size(t))

	d := types.Despecialize(t)
	switch d.Kind {
	case types.KindBool:
		b := loadInt(opts, ptr, 1, false)
		abierr.RaiseIf(b > 1, "bool-out-of-range")
		return types.Bool(b != 0)
	case types.KindS8:
		return types.S8(int8(loadInt(opts, ptr, 1, true)))
	case types.KindU8:
		return types.U8(uint8(loadInt(opts, ptr, 1, false)))
	case types.KindS16:
		return types.S16(int16(loadInt(opts, ptr, 2, true)))
	case types.KindU16:
		return types.U16(uint16(loadInt(opts, ptr, 2, false)))
	case types.KindS32:
		return types.S32(int32(loadInt(opts, ptr, 4, true)))
	case types.KindU32:
		return types.U32(uint32(loadInt(opts, ptr, 4, false)))
	case types.KindS64:
		return types.S64(int64(loadInt(opts, ptr, 8, true)))
	case types.KindU64:
		return types.U64(loadInt(opts, ptr, 8, false))
	case types.KindFloat32:
		bits := uint32(loadInt(opts, ptr, 4, false))
		return types.F32(CanonicalizeF32(math.Float32frombits(bits)))
	case types.KindFloat64:
		bits := loadInt(opts, ptr, 8, false)
		return types.F64(CanonicalizeF64(math.Float64frombits(bits)))
	case types.KindChar:
		i := uint32(loadInt(opts, ptr, 4, false))
		return types.CharV(i32ToChar(i))
	case types.KindString:
		return loadString(opts, ptr)
	case types.KindList:
		return loadList(opts, ptr, t, d)
	case types.KindRecord:
		return loadRecord(opts, ptr, d)
	case types.KindVariant:
		return loadVariant(opts, ptr, d)
	case types.KindFlags:
		return loadFlags(opts, ptr, d)
	case types.KindOwn, types.KindBorrow:
		h := uint32(loadInt(opts, ptr, 4, false))
		return types.Value{Kind: d.Kind, Handle: h}
	}
	abierr.Raisef("bad-type", "load: unhandled kind %v", t.Kind)
	return types.Value{}
}

func requireAligned(ptr, alignment uint32) {
	abierr.RaiseIf(ptr != types.AlignTo(ptr, alignment), "misaligned-pointer")
}

func requireInBounds(opts *Options, ptr, size uint32) {
	memLen := opts.Memory.Len()
	abierr.RaiseIf(uint64(ptr)+uint64(size) > uint64(memLen), "out-of-bounds")
}

func loadInt(opts *Options, ptr, nbytes uint32, signed bool) uint64 {
	buf := opts.Memory.Bytes()[ptr : ptr+nbytes]
	var u uint64
	switch nbytes {
	case 1:
		u = uint64(buf[0])
	case 2:
		u = uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		u = uint64(binary.LittleEndian.Uint32(buf))
	case 8:
		u = binary.LittleEndian.Uint64(buf)
	}
	_ = signed // sign interpretation happens at the typed cast site above
	return u
}

func i32ToChar(i uint32) rune {
	abierr.RaiseIf(i >= charMax || (i >= charSurrogateLo && i <= charSurrogateHi), "bad-char")
	return rune(i)
}

func loadString(opts *Options, ptr uint32) types.Value {
	p := uint32(loadInt(opts, ptr, 4, false))
	taggedCodeUnits := uint32(loadInt(opts, ptr+4, 4, false))
	s := loadStringFromRange(opts, p, taggedCodeUnits)
	return types.Str(s)
}

// loadStringFromRange decodes code units at ptr according to the
// instance's configured encoding. Unlike storing, no transcoding happens
// here: a component always reads its own memory in its own configured
// encoding.
func loadStringFromRange(opts *Options, ptr, taggedCodeUnits uint32) string {
	switch opts.StringEncoding {
	case UTF8:
		requireInBounds(opts, ptr, taggedCodeUnits)
		b := opts.Memory.Bytes()[ptr : ptr+taggedCodeUnits]
		abierr.RaiseIf(!isValidUTF8(b), "invalid-utf8")
		return string(b)
	case UTF16LE:
		requireAligned(ptr, 2)
		byteLen := taggedCodeUnits * 2
		requireInBounds(opts, ptr, byteLen)
		units := make([]uint16, taggedCodeUnits)
		buf := opts.Memory.Bytes()[ptr : ptr+byteLen]
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(buf[i*2:])
		}
		return decodeUTF16(units)
	case Latin1UTF16:
		const utf16Tag = uint32(1) << 31
		if taggedCodeUnits&utf16Tag != 0 {
			codeUnits := taggedCodeUnits &^ utf16Tag
			requireAligned(ptr, 2)
			byteLen := codeUnits * 2
			requireInBounds(opts, ptr, byteLen)
			units := make([]uint16, codeUnits)
			buf := opts.Memory.Bytes()[ptr : ptr+byteLen]
			for i := range units {
				units[i] = binary.LittleEndian.Uint16(buf[i*2:])
			}
			return decodeUTF16(units)
		}
		requireInBounds(opts, ptr, taggedCodeUnits)
		b := opts.Memory.Bytes()[ptr : ptr+taggedCodeUnits]
		return decodeLatin1(b)
	}
	abierr.Raise("bad-encoding")
	return ""
}

// LoadStringFromPointerLen is loadStringFromRange exported for the flat
// codec, which reads a (ptr, tagged_code_units) pair straight out of a
// flat i32 pair rather than from an in-memory (ptr,len) record.
func LoadStringFromPointerLen(opts *Options, ptr, taggedCodeUnits uint32) types.Value {
	return types.Str(loadStringFromRange(opts, ptr, taggedCodeUnits))
}

// LoadListFromPointerLen is loadListFromRange exported for the flat codec.
func LoadListFromPointerLen(opts *Options, ptr, length uint32, elem *types.Type) types.Value {
	return loadListFromRange(opts, ptr, length, elem)
}

func loadList(opts *Options, ptr uint32, t, d *types.Type) types.Value {
	if t.FixedLen > 0 {
		return loadListFromRange(opts, ptr, t.FixedLen, d.Elem)
	}
	p := uint32(loadInt(opts, ptr, 4, false))
	length := uint32(loadInt(opts, ptr+4, 4, false))
	return loadListFromRange(opts, p, length, d.Elem)
}

func loadListFromRange(opts *Options, ptr, length uint32, elem *types.Type) types.Value {
	elemSize := types.Size(elem)
	requireAligned(ptr, types.Alignment(elem))
	requireInBounds(opts, ptr, elemSize*length)
	out := make([]types.Value, length)
	for i := uint32(0); i < length; i++ {
		out[i] = Load(opts, ptr+i*elemSize, elem)
	}
	return types.Value{Kind: types.KindList, List: out}
}

func loadRecord(opts *Options, ptr uint32, d *types.Type) types.Value {
	out := make([]types.Value, len(d.Fields))
	off := ptr
	for i, f := range d.Fields {
		off = types.AlignTo(off, types.Alignment(f.Type))
		out[i] = Load(opts, off, f.Type)
		off += types.Size(f.Type)
	}
	return types.Value{Kind: types.KindRecord, Fields: out}
}

func loadVariant(opts *Options, ptr uint32, d *types.Type) types.Value {
	discType := types.DiscriminantType(d.Cases)
	discSize := types.Size(discType)
	caseIndex := uint32(loadInt(opts, ptr, discSize, false))
	abierr.RaiseIf(caseIndex >= uint32(len(d.Cases)), "bad-discriminant")
	c := d.Cases[caseIndex]

	payloadOff := types.AlignTo(ptr+discSize, maxCaseAlignment(d.Cases))
	var payload *types.Value
	if c.Type != nil {
		v := Load(opts, payloadOff, c.Type)
		payload = &v
	}
	return types.Value{
		Kind:      types.KindVariant,
		CaseIndex: int(caseIndex),
		CaseLabel: types.CaseLabelWithDefaults(c, d.Cases),
		Payload:   payload,
	}
}

func maxCaseAlignment(cases []types.Case) uint32 {
	a := uint32(1)
	for _, c := range cases {
		if c.Type == nil {
			continue
		}
		if ca := types.Alignment(c.Type); ca > a {
			a = ca
		}
	}
	return a
}

func loadFlags(opts *Options, ptr uint32, d *types.Type) types.Value {
	n := len(d.Labels)
	size := sizeFlagsBytes(n)
	if size <= 8 {
		i := loadInt(opts, ptr, size, false)
		return unpackFlagsFromInt(i, d.Labels)
	}
	return loadFlagsWords(opts, ptr, size, d.Labels)
}

// loadFlagsWords reads a >64-label flags value as a sequence of i32
// words, the layout sizeFlagsBytes uses once a single 8-byte integer can
// no longer hold every bit. Mirrors liftFlatFlags's per-word unpacking.
func loadFlagsWords(opts *Options, ptr, size uint32, labels []string) types.Value {
	n := len(labels)
	flags := make([]bool, n)
	nWords := size / 4
	for w := uint32(0); w < nWords; w++ {
		word := uint32(loadInt(opts, ptr+w*4, 4, false))
		for b := 0; b < 32; b++ {
			idx := int(w)*32 + b
			if idx >= n {
				break
			}
			flags[idx] = (word>>uint(b))&1 != 0
		}
	}
	return types.Value{Kind: types.KindFlags, Flags: flags}
}

func sizeFlagsBytes(n int) uint32 {
	switch {
	case n <= 8:
		return 1
	case n <= 16:
		return 2
	default:
		return 4 * uint32((n+31)/32)
	}
}

func unpackFlagsFromInt(i uint64, labels []string) types.Value {
	flags := make([]bool, len(labels))
	for idx := range labels {
		flags[idx] = (i>>uint(idx))&1 != 0
	}
	// trap if any bit beyond the declared labels is set
	abierr.RaiseIf(len(labels) < 64 && (i>>uint(len(labels))) != 0, "bad-flags-bits")
	return types.Value{Kind: types.KindFlags, Flags: flags}
}
