package canon

import (
	"github.com/component-model/canon-abi/internal/handle"
	"github.com/component-model/canon-abi/internal/stream"
	"github.com/component-model/canon-abi/internal/task"
	"github.com/component-model/canon-abi/internal/types"
)

// The functions in this file are thin pass-throughs exposing each
// canon_* builtin as a method call on the object that actually owns the
// behavior (a Context, a Subtask, a handle.Table, a stream.Pipe). A host
// embedder's core-call dispatcher calls these directly rather than going
// through any further indirection; package canon's only job past this
// point is naming them the way the guest-visible builtins are named.

// Yield implements canon_yield.
func Yield(ctx *task.Context) { ctx.Yield() }

// ContextGet/ContextSet implement canon_context_get/set.
func ContextGet(ctx *task.Context, slot uint32) uint64    { return ctx.ContextGet(slot) }
func ContextSet(ctx *task.Context, slot uint32, v uint64) { ctx.ContextSet(slot, v) }

// BackpressureInc/Dec implement canon_backpressure_inc/dec.
func BackpressureInc(ctx *task.Context) { ctx.BackpressureInc() }
func BackpressureDec(ctx *task.Context) { ctx.BackpressureDec() }

// TaskReturn implements canon_task_return.
func TaskReturn(ctx *task.Context, vals []types.Value) { ctx.Task().Return(ToAny(vals)) }

// TaskCancel implements canon_task_cancel.
func TaskCancel(ctx *task.Context) { ctx.Task().Cancel() }

// WaitableSetNew implements canon_waitable_set_new.
func WaitableSetNew(inst *task.Instance) *task.WaitableSet { return inst.NewWaitableSet() }

// WaitableSetDrop implements canon_waitable_set_drop.
func WaitableSetDrop(inst *task.Instance, set *task.WaitableSet) { inst.DropWaitableSet(set.ID) }

// WaitableJoin implements canon_waitable_join.
func WaitableJoin(w *task.Waitable, set *task.WaitableSet) { w.Join(set) }

// WaitableSetWait implements canon_waitable_set_wait.
func WaitableSetWait(ctx *task.Context, set *task.WaitableSet) (task.Event, uint32, uint32) {
	return ctx.Wait(set)
}

// WaitableSetPoll implements canon_waitable_set_poll.
func WaitableSetPoll(ctx *task.Context, set *task.WaitableSet) (task.Event, uint32, uint32) {
	return ctx.Poll(set)
}

// SubtaskCancel implements canon_subtask_cancel.
func SubtaskCancel(ctx *task.Context, sub *task.Subtask, sync bool) (task.SubtaskState, bool) {
	return sub.RequestCancel(ctx, sync)
}

// SubtaskDrop implements canon_subtask_drop.
func SubtaskDrop(sub *task.Subtask) { sub.Drop() }

// ResourceNew implements canon_resource_new.
func ResourceNew(rt *Runtime, inst *task.Instance, typ *handle.ResourceType, rep uint32) uint32 {
	return rt.Table(inst).New(typ, rep)
}

// ResourceRep implements canon_resource_rep.
func ResourceRep(rt *Runtime, inst *task.Instance, typ *handle.ResourceType, h uint32) uint32 {
	return rt.Table(inst).Rep(typ, h)
}

// ResourceDrop implements canon_resource_drop. If the dropped handle was
// the last owner, its destructor (if any) runs synchronously before
// returning, matching a resource whose destructor is itself a plain core
// function rather than something requiring its own Task.
func ResourceDrop(rt *Runtime, inst *task.Instance, h uint32) {
	_, runDestructor := rt.Table(inst).Drop(h)
	if runDestructor != nil {
		runDestructor()
	}
}

// ErrorContextNew implements canon_error_context_new.
func ErrorContextNew(rt *Runtime, inst *task.Instance, debugMessage string) uint32 {
	return rt.ErrorContexts(inst).New(debugMessage)
}

// ErrorContextDebugMessage implements canon_error_context_debug_message.
func ErrorContextDebugMessage(rt *Runtime, inst *task.Instance, h uint32) string {
	return rt.ErrorContexts(inst).DebugMessage(h)
}

// ErrorContextDrop implements canon_error_context_drop.
func ErrorContextDrop(rt *Runtime, inst *task.Instance, h uint32) {
	rt.ErrorContexts(inst).Drop(h)
}

// StreamNew implements canon_stream_new (and, with elem nil, the
// signaling "stream<>" degenerate case). checksum opts into the optional
// xxhash content check described in SPEC_FULL.md.
func StreamNew(inst *task.Instance, elem *types.Type, checksum bool) *stream.Pipe {
	return stream.NewStream(inst, elem, checksum)
}

// FutureNew implements canon_future_new.
func FutureNew(inst *task.Instance, elem *types.Type, checksum bool) *stream.Pipe {
	return stream.NewFuture(inst, elem, checksum)
}

// StreamRead/StreamWrite implement canon_stream_read/write (and, since
// the copy protocol is shared, canon_future_read/write too).
func StreamRead(p *stream.Pipe, n uint32) (task.CopyResult, []types.Value, bool) { return p.Read(n) }
func StreamWrite(p *stream.Pipe, vals []types.Value) (task.CopyResult, uint32, bool) {
	return p.Write(vals)
}

// StreamCancelRead/StreamCancelWrite implement canon_stream_cancel_read/write.
func StreamCancelRead(p *stream.Pipe) (task.CopyResult, uint32)  { return p.CancelRead() }
func StreamCancelWrite(p *stream.Pipe) (task.CopyResult, uint32) { return p.CancelWrite() }

// StreamDropReadable/StreamDropWritable implement
// canon_stream_drop_readable/writable.
func StreamDropReadable(p *stream.Pipe) { p.DropReadable() }
func StreamDropWritable(p *stream.Pipe) { p.DropWritable() }
