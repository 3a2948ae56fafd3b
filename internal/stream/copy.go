package stream

import (
	"encoding/binary"

	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/task"
	"github.com/component-model/canon-abi/internal/types"
)

// Write implements stream_write as a write of len(vals) elements. It
// takes []types.Value directly; neither it nor package canon reads the
// elements from a guest (addr, n) pair in linear memory.
// If a matching pending read exists, the transfer completes immediately
// and CopyCompleted/CopyDropped is returned synchronously with n moved.
// Otherwise the caller is BLOCKED (ok=false); when a later Read drains
// the write, the Writable endpoint's Waitable is raised with a
// STREAM_WRITE/FUTURE_WRITE event carrying the outcome.
func (p *Pipe) Write(vals []types.Value) (result task.CopyResult, n uint32, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Kind == KindFuture {
		abierr.RaiseIf(p.written, "future-write-twice")
	}
	abierr.RaiseIf(p.pending != nil && p.pending.isWrite, "write-already-pending")

	if p.closedR {
		return task.CopyDropped, 0, true
	}
	if p.pending != nil && !p.pending.isWrite {
		result, moved, ok := p.completeAgainstReader(vals)
		return result, moved, ok
	}

	o := &op{isWrite: true, values: vals, n: uint32(len(vals)), result: make(chan task.CopyResult, 1), moved: make(chan uint32, 1)}
	p.pending = o
	return 0, 0, false
}

// Read implements stream_read(rsi, n): present a request for up to n
// elements. Symmetric to Write.
func (p *Pipe) Read(n uint32) (result task.CopyResult, vals []types.Value, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Kind == KindFuture && p.read {
		abierr.Raise("future-read-twice")
	}
	abierr.RaiseIf(p.pending != nil && !p.pending.isWrite, "read-already-pending")

	if p.pending != nil && p.pending.isWrite {
		w := p.pending
		p.pending = nil
		take := n
		if uint32(len(w.values)) < take {
			take = uint32(len(w.values))
		}
		got := w.values[:take]
		w.values = w.values[take:]
		p.checksumIn(got)
		if p.Kind == KindFuture {
			p.written = true
			p.read = true
		}
		if len(w.values) == 0 {
			w.done = true
			w.result <- task.CopyCompleted
			w.moved <- take
			p.Writable.Waitable.Raise(writeEvent(p.Kind), 0, task.PackCopyResult(task.CopyCompleted, take))
		} else {
			// writer still has remaining values; re-queue it for the next read
			p.pending = w
		}
		return task.CopyCompleted, got, true
	}

	if p.closedW {
		return task.CopyDropped, nil, true
	}

	o := &op{isWrite: false, n: n, result: make(chan task.CopyResult, 1), moved: make(chan uint32, 1)}
	p.pending = o
	return 0, nil, false
}

// completeAgainstReader matches a fresh Write against an already-pending
// Read, copying min(n, remain). Caller holds p.mu.
func (p *Pipe) completeAgainstReader(vals []types.Value) (task.CopyResult, uint32, bool) {
	r := p.pending
	p.pending = nil
	take := r.n
	if uint32(len(vals)) < take {
		take = uint32(len(vals))
	}
	moved := vals[:take]
	p.checksumIn(moved)
	if p.Kind == KindFuture {
		p.written = true
		p.read = true
	}
	r.done = true
	r.result <- task.CopyCompleted
	r.moved <- take
	p.Readable.Waitable.Raise(readEvent(p.Kind), 0, task.PackCopyResult(task.CopyCompleted, take))

	if take < uint32(len(vals)) {
		// writer has leftover values: re-present them as a fresh pending write
		o := &op{isWrite: true, values: vals[take:], n: uint32(len(vals)) - take, result: make(chan task.CopyResult, 1), moved: make(chan uint32, 1)}
		p.pending = o
		return task.CopyCompleted, take, false
	}
	return task.CopyCompleted, take, true
}

// checksumIn feeds each transferred element's scalar bytes into the
// running xxhash64, when checksumming is enabled. Only the scalar kinds
// a stream payload commonly carries are hashed directly; composite
// payloads (record/variant/etc.) are skipped, since the checksum is a
// best-effort integrity aid for the common stream<u8>-style byte/word
// pipes, not a general value hasher.
func (p *Pipe) checksumIn(vals []types.Value) {
	if p.Checker == nil {
		return
	}
	var b [8]byte
	for _, v := range vals {
		// only the field matching v.Kind is set, so OR-ing picks it out
		switch v.Kind {
		case types.KindU8, types.KindS8:
			b[0] = v.U8 | uint8(v.I8)
			p.Checker.Write(b[:1])
		case types.KindU16, types.KindS16:
			binary.LittleEndian.PutUint16(b[:2], v.U16|uint16(v.I16))
			p.Checker.Write(b[:2])
		case types.KindU32, types.KindS32, types.KindChar:
			binary.LittleEndian.PutUint32(b[:4], v.U32|uint32(v.I32)|uint32(v.Char))
			p.Checker.Write(b[:4])
		case types.KindU64, types.KindS64:
			binary.LittleEndian.PutUint64(b[:8], v.U64|uint64(v.I64))
			p.Checker.Write(b[:8])
		}
	}
}

// Checksum returns the running xxhash64 of every element copied through
// this pipe so far, or 0 if checksumming was not enabled.
func (p *Pipe) Checksum() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Checker == nil {
		return 0
	}
	return p.Checker.Sum64()
}

func readEvent(k Kind) task.Event {
	if k == KindFuture {
		return task.EventFutureRead
	}
	return task.EventStreamRead
}

func writeEvent(k Kind) task.Event {
	if k == KindFuture {
		return task.EventFutureWrite
	}
	return task.EventStreamWrite
}

// CancelWrite implements stream_cancel_write: cancels a pending write and
// always returns synchronously. It returns CopyCompleted if the pending
// op had already finished, otherwise CopyCancelled (also when no write
// is pending). The returned count is always 0; elements moved by earlier
// partial transfers are not reported, and there is no asynchronous
// (sync=false) mode.
func (p *Pipe) CancelWrite() (result task.CopyResult, n uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelPending(true)
}

// CancelRead is CancelWrite's symmetric counterpart.
func (p *Pipe) CancelRead() (result task.CopyResult, n uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelPending(false)
}

func (p *Pipe) cancelPending(isWrite bool) (task.CopyResult, uint32) {
	if p.pending == nil || p.pending.isWrite != isWrite {
		return task.CopyCancelled, 0
	}
	o := p.pending
	p.pending = nil
	if o.done {
		return task.CopyCompleted, 0
	}
	o.done = true
	o.result <- task.CopyCancelled
	o.moved <- 0
	return task.CopyCancelled, 0
}
