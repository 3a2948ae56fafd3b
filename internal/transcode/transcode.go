// Package transcode implements the canonical ABI's string transcoder: an
// encoding-aware copy of a Go string into component linear memory via
// the host-provided realloc callback, following the allocate/grow/shrink
// rules for each destination string encoding.
package transcode

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/component-model/canon-abi/internal/abierr"
)

// Encoding mirrors memcodec.StringEncoding; kept as its own type so this
// package has no dependency on memcodec (memcodec depends on transcode,
// not the reverse).
type Encoding byte

const (
	UTF8 Encoding = iota
	UTF16LE
	Latin1UTF16
)

// Realloc mirrors the host-provided allocator callback.
type Realloc func(oldPtr, oldSize, align, newSize uint32) uint32

// MemoryBytes is the minimal view of linear memory the transcoder needs
// to write into — satisfied structurally by memcodec.Memory.
type MemoryBytes interface {
	Bytes() []byte
}

const utf16Tag = uint32(1) << 31

// MaxStringByteLength is the maximum byte length a transcoded string may
// claim before a trap.
const MaxStringByteLength = (1 << 31) - 1

// EncodeNew allocates fresh storage for s in the destination encoding and
// returns (ptr, tagged_code_units). The "source" encoding here is always
// "whatever a Go string already is" (conceptually UTF-8, since that's
// Go's native string representation); the switch below treats a Go
// string as the UTF-8 source except when the destination encoding itself
// demands the three-way latin1/utf16 streaming logic.
func EncodeNew(s string, dst Encoding, realloc Realloc, mem MemoryBytes) (ptr, taggedCodeUnits uint32) {
	switch dst {
	case UTF8:
		return encodeUTF8(s, realloc, mem)
	case UTF16LE:
		return encodeUTF16(s, realloc, mem)
	case Latin1UTF16:
		return encodeLatin1OrUTF16(s, realloc, mem)
	}
	abierr.Raise("bad-encoding")
	return 0, 0
}

func encodeUTF8(s string, realloc Realloc, mem MemoryBytes) (uint32, uint32) {
	b := []byte(s)
	requireLen(len(b))
	ptr := realloc(0, 0, 1, uint32(len(b)))
	copy(mem.Bytes()[ptr:], b)
	return ptr, uint32(len(b))
}

// encodeUTF16 handles the UTF-8 -> UTF-16 case: allocate 2*code_units,
// shrink if the actual encoded length fits in less.
func encodeUTF16(s string, realloc Realloc, mem MemoryBytes) (uint32, uint32) {
	codeUnits := len(s)
	worst := uint32(codeUnits) * 2
	ptr := realloc(0, 0, 2, worst)
	units := utf16.Encode([]rune(s))
	buf := mem.Bytes()[ptr:]
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	actual := uint32(len(units)) * 2
	if actual < worst {
		ptr = realloc(ptr, worst, 2, actual)
	}
	requireLen(len(units))
	return ptr, uint32(len(units))
}

// encodeLatin1OrUTF16 implements the "any encoding -> latin1+utf16" rule:
// a streaming attempt at latin-1, upgrading to UTF-16 (and tagging the
// return length with utf16Tag) on the first non-latin-1 scalar, widening
// already-written latin-1 bytes in reverse order.
func encodeLatin1OrUTF16(s string, realloc Realloc, mem MemoryBytes) (uint32, uint32) {
	runes := []rune(s)
	// Optimistic path: allocate exactly len(runes) bytes, one per scalar,
	// and try to fill it as latin-1.
	ptr := realloc(0, 0, 2, uint32(len(runes)))
	buf := mem.Bytes()
	for i, r := range runes {
		if r > 0xFF {
			return upgradeToUTF16(ptr, runes, i, realloc, mem)
		}
		buf[int(ptr)+i] = byte(r)
	}
	return ptr, uint32(len(runes))
}

// upgradeToUTF16 widens the already-written latin-1 prefix (runes[:upto])
// into UTF-16 code units in place by walking backwards, then appends the
// UTF-16 encoding of the remaining scalars (runes[upto:]), and tags the
// returned length with utf16Tag.
func upgradeToUTF16(ptr uint32, runes []rune, upto int, realloc Realloc, mem MemoryBytes) (uint32, uint32) {
	tailUnits := utf16.Encode(runes[upto:])
	totalUnits := upto + len(tailUnits)
	newPtr := realloc(ptr, uint32(upto), 2, uint32(totalUnits)*2)

	buf := mem.Bytes()
	// Read the latin-1 prefix before it gets overwritten by widening.
	prefix := make([]byte, upto)
	copy(prefix, buf[ptr:int(ptr)+upto])

	dst := buf[newPtr:]
	for i := upto - 1; i >= 0; i-- {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(prefix[i]))
	}
	for i, u := range tailUnits {
		binary.LittleEndian.PutUint16(dst[(upto+i)*2:], u)
	}

	requireLen(totalUnits)
	return newPtr, uint32(totalUnits) | utf16Tag
}

func requireLen(n int) {
	abierr.RaiseIf(n > MaxStringByteLength, "string-too-long")
}

// CompactIfLatin1 compacts UTF-16 code units to latin-1 bytes if every
// code unit fits, returning the bytes and true; otherwise it returns
// nil, false. It does not touch any length tag. Nothing in this module
// calls it outside its test.
func CompactIfLatin1(units []uint16) (compacted []byte, ok bool) {
	out := make([]byte, len(units))
	for i, u := range units {
		if u > 0xFF {
			return nil, false
		}
		out[i] = byte(u)
	}
	return out, true
}
