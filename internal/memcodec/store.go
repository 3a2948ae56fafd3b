package memcodec

import (
	"encoding/binary"
	"math"

	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/transcode"
	"github.com/component-model/canon-abi/internal/types"
)

// Store writes a value of type t into linear memory at ptr, the inverse
// of Load.
func Store(opts *Options, v types.Value, t *types.Type, ptr uint32) {
	requireAligned(ptr, types.Alignment(t))
	requireInBounds(opts, ptr, types.Size(t))

	d := types.Despecialize(t)
	switch d.Kind {
	case types.KindBool:
		b := uint64(0)
		if v.Bool {
			b = 1
		}
		storeInt(opts, ptr, 1, b)
	case types.KindS8:
		storeInt(opts, ptr, 1, uint64(uint8(v.I8)))
	case types.KindU8:
		storeInt(opts, ptr, 1, uint64(v.U8))
	case types.KindS16:
		storeInt(opts, ptr, 2, uint64(uint16(v.I16)))
	case types.KindU16:
		storeInt(opts, ptr, 2, uint64(v.U16))
	case types.KindS32:
		storeInt(opts, ptr, 4, uint64(uint32(v.I32)))
	case types.KindU32:
		storeInt(opts, ptr, 4, uint64(v.U32))
	case types.KindS64:
		storeInt(opts, ptr, 8, uint64(v.I64))
	case types.KindU64:
		storeInt(opts, ptr, 8, v.U64)
	case types.KindFloat32:
		storeInt(opts, ptr, 4, uint64(math.Float32bits(CanonicalizeF32(v.F32))))
	case types.KindFloat64:
		storeInt(opts, ptr, 8, math.Float64bits(CanonicalizeF64(v.F64)))
	case types.KindChar:
		storeInt(opts, ptr, 4, uint64(charToI32(v.Char)))
	case types.KindString:
		storeString(opts, v.Str, ptr)
	case types.KindList:
		storeList(opts, v, ptr, t, d)
	case types.KindRecord:
		storeRecord(opts, v, ptr, d)
	case types.KindVariant:
		storeVariant(opts, v, ptr, d)
	case types.KindFlags:
		storeFlags(opts, v, ptr, d)
	case types.KindOwn, types.KindBorrow:
		storeInt(opts, ptr, 4, uint64(v.Handle))
	default:
		abierr.Raisef("bad-type", "store: unhandled kind %v", t.Kind)
	}
}

func storeInt(opts *Options, ptr, nbytes uint32, v uint64) {
	buf := opts.Memory.Bytes()[ptr : ptr+nbytes]
	switch nbytes {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	}
}

func charToI32(r rune) uint32 { return uint32(r) }

func storeString(opts *Options, s string, ptr uint32) {
	p, codeUnits := storeStringIntoRange(opts, s)
	storeInt(opts, ptr, 4, uint64(p))
	storeInt(opts, ptr+4, 4, uint64(codeUnits))
}

// storeStringIntoRange allocates fresh storage for s via realloc and
// transcodes it to the instance's configured encoding. Transcoding rules
// live in internal/transcode.
func storeStringIntoRange(opts *Options, s string) (ptr, taggedCodeUnits uint32) {
	abierr.RaiseIf(opts.Realloc == nil, "no-realloc")
	return transcode.EncodeNew(s, toTranscodeEncoding(opts.StringEncoding), transcode.Realloc(opts.Realloc), opts.Memory)
}

func toTranscodeEncoding(e StringEncoding) transcode.Encoding {
	switch e {
	case UTF8:
		return transcode.UTF8
	case UTF16LE:
		return transcode.UTF16LE
	case Latin1UTF16:
		return transcode.Latin1UTF16
	}
	abierr.Raise("bad-encoding")
	return transcode.UTF8
}

// StoreStringNew allocates fresh storage for s and returns its
// (ptr, tagged_code_units) pair, for the flat codec's string lowering
// (a string passed directly as a pair of flat i32 slots, rather than as
// an in-memory record field).
func StoreStringNew(opts *Options, s string) (ptr, taggedCodeUnits uint32) {
	return storeStringIntoRange(opts, s)
}

// StoreListNew allocates fresh storage for vals and returns its
// (ptr, length) pair, for the flat codec's list lowering.
func StoreListNew(opts *Options, vals []types.Value, elem *types.Type) (ptr, length uint32) {
	elemSize := types.Size(elem)
	p := allocate(opts, elemSize*uint32(len(vals)), types.Alignment(elem))
	storeListIntoRange(opts, vals, p, elem)
	return p, uint32(len(vals))
}

func storeList(opts *Options, v types.Value, ptr uint32, t, d *types.Type) {
	if t.FixedLen > 0 {
		storeListIntoRange(opts, v.List, ptr, d.Elem)
		return
	}
	elemSize := types.Size(d.Elem)
	byteLen := elemSize * uint32(len(v.List))
	p := allocate(opts, byteLen, types.Alignment(d.Elem))
	storeListIntoRange(opts, v.List, p, d.Elem)
	storeInt(opts, ptr, 4, uint64(p))
	storeInt(opts, ptr+4, 4, uint64(len(v.List)))
}

func storeListIntoRange(opts *Options, vals []types.Value, ptr uint32, elem *types.Type) {
	elemSize := types.Size(elem)
	off := ptr
	for _, v := range vals {
		Store(opts, v, elem, off)
		off += elemSize
	}
}

func allocate(opts *Options, size, align uint32) uint32 {
	abierr.RaiseIf(opts.Realloc == nil, "no-realloc")
	return opts.Realloc(0, 0, align, size)
}

func storeRecord(opts *Options, v types.Value, ptr uint32, d *types.Type) {
	off := ptr
	for i, f := range d.Fields {
		off = types.AlignTo(off, types.Alignment(f.Type))
		Store(opts, v.Fields[i], f.Type, off)
		off += types.Size(f.Type)
	}
}

func storeVariant(opts *Options, v types.Value, ptr uint32, d *types.Type) {
	c := d.Cases[v.CaseIndex]
	discType := types.DiscriminantType(d.Cases)
	storeInt(opts, ptr, types.Size(discType), uint64(v.CaseIndex))
	if c.Type != nil && v.Payload != nil {
		payloadOff := types.AlignTo(ptr+types.Size(discType), maxCaseAlignment(d.Cases))
		Store(opts, *v.Payload, c.Type, payloadOff)
	}
}

func storeFlags(opts *Options, v types.Value, ptr uint32, d *types.Type) {
	size := sizeFlagsBytes(len(d.Labels))
	if size <= 8 {
		storeInt(opts, ptr, size, packFlagsIntoInt(v.Flags))
		return
	}
	storeFlagsWords(opts, v.Flags, ptr, size)
}

// storeFlagsWords writes a >64-label flags value as a sequence of i32
// words, symmetric with loadFlagsWords.
func storeFlagsWords(opts *Options, flags []bool, ptr, size uint32) {
	nWords := size / 4
	for w := uint32(0); w < nWords; w++ {
		var word uint32
		for b := 0; b < 32; b++ {
			idx := int(w)*32 + b
			if idx >= len(flags) {
				break
			}
			if flags[idx] {
				word |= 1 << uint(b)
			}
		}
		storeInt(opts, ptr+w*4, 4, uint64(word))
	}
}

func packFlagsIntoInt(flags []bool) uint64 {
	var i uint64
	for idx, b := range flags {
		if b {
			i |= 1 << uint(idx)
		}
	}
	return i
}
