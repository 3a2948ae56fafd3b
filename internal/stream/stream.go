// Package stream implements streams and futures: typed, bounded,
// cancellable, cross-component copy channels with partial-transfer
// reporting. A Stream is the shared pipe between its two endpoints; the
// copy engine in copy.go moves internal/types.Value payloads between a
// pending Write and a pending Read. Callers, including package canon,
// pass []types.Value buffers directly; no layer in this module maps a
// guest's (addr, n) pair in linear memory to or from such a buffer.
package stream

import (
	"hash"
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/task"
	"github.com/component-model/canon-abi/internal/types"
)

// Kind distinguishes a stream (unbounded sequence) from a future (at
// most one value).
type Kind byte

const (
	KindStream Kind = iota
	KindFuture
)

// Pipe is the shared state of a stream/future's two ends. Only one
// outstanding copy per end at a time.
type Pipe struct {
	Kind    Kind
	Elem    *types.Type // nil payload ("null") means a pure signaling channel
	Checker hash.Hash64

	mu       sync.Mutex
	pending  *op // at most one of the two ends has a pending op at a time
	closedR  bool
	closedW  bool
	written  bool // future: true once a value has been written
	read     bool // future: true once the written value has been read

	Readable *Endpoint
	Writable *Endpoint

	inst *task.Instance
}

// op is a presented buffer from one side awaiting its counterpart.
type op struct {
	isWrite bool
	values  []types.Value // the presented elements (or a placeholder slice of len=n for empty payloads)
	n       uint32        // requested count
	result  chan task.CopyResult
	moved   chan uint32
	done    bool
}

// Endpoint is a readable or writable end of a Pipe; it is itself a
// Waitable so it can be joined to a WaitableSet and raise
// STREAM_READ/STREAM_WRITE or FUTURE_READ/FUTURE_WRITE events.
type Endpoint struct {
	Waitable *task.Waitable
	pipe     *Pipe
	isWrite  bool
	remain   uint64 // independent remain() budget for this endpoint
}

// NewStream creates a stream<T> pipe (or stream<> if elem is nil) and
// registers both endpoints as waitables owned by inst. checksum enables
// the optional xxhash content integrity check described in SPEC_FULL.md
// (grounded on aistore's use of xxhash to checksum object content),
// useful for test harnesses verifying a long-lived copy didn't corrupt
// data across many partial transfers.
func NewStream(inst *task.Instance, elem *types.Type, checksum bool) *Pipe {
	return newPipe(KindStream, inst, elem, checksum)
}

// NewFuture creates a future<T> pipe (or future<> for pure signaling).
func NewFuture(inst *task.Instance, elem *types.Type, checksum bool) *Pipe {
	return newPipe(KindFuture, inst, elem, checksum)
}

func newPipe(kind Kind, inst *task.Instance, elem *types.Type, checksum bool) *Pipe {
	p := &Pipe{Kind: kind, Elem: elem, Readable: &Endpoint{}, Writable: &Endpoint{}, inst: inst}
	if checksum {
		p.Checker = xxhash.New64()
	}
	p.Readable.pipe = p
	p.Writable.pipe = p
	p.Readable.remain = ^uint64(0)
	p.Writable.remain = ^uint64(0)

	rw := &task.Waitable{}
	inst.RegisterWaitableFor(rw)
	p.Readable.Waitable = rw

	ww := &task.Waitable{}
	inst.RegisterWaitableFor(ww)
	p.Writable.Waitable = ww

	return p
}

// Remain returns the endpoint's remain value. Each endpoint has its own;
// it is set to the maximum uint64 when the pipe is created and no copy
// decrements it.
func (e *Endpoint) Remain() uint64 { return e.remain }

// DropReadable/DropWritable release a handle slot. Dropping a writable
// end with a pending write traps; the caller must cancel first.
func (p *Pipe) DropReadable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	abierr.RaiseIf(p.pending != nil && !p.pending.isWrite, "drop-readable-with-pending-read")
	p.closedR = true
	if p.pending != nil && p.pending.isWrite {
		p.failPending(task.CopyDropped)
	}
	p.inst.DropWaitableFor(p.Readable.Waitable.ID)
}

func (p *Pipe) DropWritable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	abierr.RaiseIf(p.pending != nil && p.pending.isWrite, "drop-writable-with-pending-write")
	p.closedW = true
	if p.pending != nil && !p.pending.isWrite {
		p.failPending(task.CopyDropped)
	}
	p.inst.DropWaitableFor(p.Writable.Waitable.ID)
}

// failPending resolves the current pending op with the given result and
// zero bytes moved, and clears it. Caller must hold p.mu.
func (p *Pipe) failPending(result task.CopyResult) {
	o := p.pending
	p.pending = nil
	if !o.done {
		o.done = true
		o.result <- result
		o.moved <- 0
	}
}
