// Package memcodec implements load/store over a component instance's
// linear memory. The flat codec (internal/flatcodec) calls down into it
// for the byte-addressed parts of a value; it in turn calls the string
// transcoder (internal/transcode) to encode strings.
package memcodec

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/component-model/canon-abi/internal/abierr"
)

// Memory is the host-provided mutable byte array backing an instance's
// linear memory. Two implementations are provided: SliceMemory, the
// common case of a plain Go byte slice (what the core engine's linear
// memory normally is), and MappedMemory, for host embedders that want to
// back an instance's memory with a real file mapping — e.g. to replay a
// captured core-memory snapshot without copying it into the Go heap,
// the way saferwall-pe memory-maps a PE image for zero-copy parsing.
type Memory interface {
	Bytes() []byte
	Len() uint32
}

// SliceMemory is a Memory backed by a plain byte slice.
type SliceMemory struct{ Buf []byte }

func NewSliceMemory(size uint32) *SliceMemory { return &SliceMemory{Buf: make([]byte, size)} }

func (m *SliceMemory) Bytes() []byte { return m.Buf }
func (m *SliceMemory) Len() uint32   { return uint32(len(m.Buf)) }

// MappedMemory is a Memory backed by an mmap-go mapping, grounded on
// saferwall-pe's use of edsrzf/mmap-go to map PE images directly instead
// of reading them into a []byte. Close unmaps the region.
type MappedMemory struct {
	region mmap.MMap
}

// NewMappedMemory maps the given file read-write, the way saferwall-pe
// maps an executable image for parsing.
func NewMappedMemory(f *os.File, length int) (*MappedMemory, error) {
	region, err := mmap.MapRegion(f, length, mmap.RDWR, 0, 0)
	if err != nil {
		return nil, abierr.Wrap("mmap-failed", err)
	}
	return &MappedMemory{region: region}, nil
}

func (m *MappedMemory) Bytes() []byte { return m.region }
func (m *MappedMemory) Len() uint32   { return uint32(len(m.region)) }

func (m *MappedMemory) Close() error {
	return m.region.Unmap()
}

// Realloc mirrors the host-provided `realloc(old_ptr, old_size, align,
// new_size) -> new_ptr` callback. The runtime never implements
// allocation itself; it only ever calls this callback, which the
// embedder backs with whatever allocator the guest module exports.
type Realloc func(oldPtr, oldSize, align, newSize uint32) uint32

// PostReturn is the type of the optional host-provided post_return
// cleanup callback. Options carries it; nothing in this module calls it.
type PostReturn func()

// StringEncoding is the instance-level encoding configured via canonical
// options.
type StringEncoding byte

const (
	UTF8 StringEncoding = iota
	UTF16LE
	Latin1UTF16
)

// Options bundles the host-provided canonical-options context: memory,
// encoding, and the realloc/post_return callbacks. It is threaded through
// every load/store, lift_flat/lower_flat, and transcode call.
type Options struct {
	Memory         Memory
	StringEncoding StringEncoding
	Realloc        Realloc
	PostReturn     PostReturn
}

// MaxStringByteLength is the maximum byte length a stored string may
// claim before a trap.
const MaxStringByteLength = (1 << 31) - 1
