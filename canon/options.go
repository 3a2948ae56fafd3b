// Package canon is the top-level wiring of the canonical ABI: it
// composes internal/types, internal/memcodec, internal/flatcodec,
// internal/transcode, internal/task, internal/stream, and
// internal/handle into the public `canon_*` entrypoints, grouping
// lift/lower/resource/context/scheduling operations around a
// `CanonicalOptions`/`Runtime` pair the way a host embedding binds a
// memory, an allocator, and a set of callback hooks to a component
// instance.
package canon

import (
	"github.com/component-model/canon-abi/internal/handle"
	"github.com/component-model/canon-abi/internal/memcodec"
	"github.com/component-model/canon-abi/internal/task"
)

// CanonicalOptions is the host-provided context for a lift/lower call:
// memory, string encoding, realloc, post_return, callback, and sync.
type CanonicalOptions struct {
	Memory         memcodec.Memory
	StringEncoding memcodec.StringEncoding
	Realloc        memcodec.Realloc
	PostReturn     memcodec.PostReturn
	Callback       CallbackFunc
	Sync           bool
}

// CallbackFunc is the signature of an async-lift callback-mode
// entrypoint: the prior callback code's event, or a zero event on the
// initial entry. CanonicalOptions stores it, but Lift and LiftAsync do
// not invoke it; callback mode is not driven by this package.
type CallbackFunc func(ctx *task.Context, ev task.Event, index, payload uint32) CallbackCode

// CallbackCode encodes EXIT, YIELD, or WAIT(set), the three ways a
// callback invocation can hand control back to the scheduler.
type CallbackCode struct {
	Exit  bool
	Yield bool
	Wait  *task.WaitableSet
}

func (o *CanonicalOptions) memOptions() *memcodec.Options {
	return &memcodec.Options{
		Memory:         o.Memory,
		StringEncoding: o.StringEncoding,
		Realloc:        o.Realloc,
		PostReturn:     o.PostReturn,
	}
}

// Runtime is a Store: the scheduler plus the handle tables for every
// instance it hosts — the shared execution context several component
// instances live in.
type Runtime struct {
	Scheduler *task.Scheduler
	Metrics   *task.Metrics

	tables   map[task.InstanceID]*handle.Table
	errCtxs  map[task.InstanceID]*handle.ErrorContextTable
}

func NewRuntime(metrics *task.Metrics) *Runtime {
	return &Runtime{
		Scheduler: task.NewScheduler(metrics),
		Metrics:   metrics,
		tables:    make(map[task.InstanceID]*handle.Table),
		errCtxs:   make(map[task.InstanceID]*handle.ErrorContextTable),
	}
}

// NewInstance registers a fresh ComponentInstance with its own handle
// table and error-context table.
func (r *Runtime) NewInstance() *task.Instance {
	inst := r.Scheduler.NewInstance()
	r.tables[inst.ID] = handle.NewTable()
	r.errCtxs[inst.ID] = handle.NewErrorContextTable()
	return inst
}

// Table returns the resource handle table owned by inst.
func (r *Runtime) Table(inst *task.Instance) *handle.Table {
	return r.tables[inst.ID]
}

// ErrorContexts returns the error-context table owned by inst.
func (r *Runtime) ErrorContexts(inst *task.Instance) *handle.ErrorContextTable {
	return r.errCtxs[inst.ID]
}
