package canon

import (
	"github.com/component-model/canon-abi/internal/flatcodec"
	"github.com/component-model/canon-abi/internal/task"
	"github.com/component-model/canon-abi/internal/types"
)

// Callee is the target of canon_lower: a component-level function
// exposed to the caller's linear memory as flat core values in, flat core
// values out.
type Callee func(ctx *task.Context, flatArgs []flatcodec.FlatValue) []flatcodec.FlatValue

// LowerSync implements a synchronous canon_lower: run callee as a fresh
// Task scheduled under calleeInst, blocking the calling Task's Context
// (via ctx.BlockOnCall) until it resolves, then returning its flat
// results directly. This is what a `lower` with `callback` absent and the
// call target itself synchronous compiles down to.
func (rt *Runtime) LowerSync(ctx *task.Context, calleeInst *task.Instance, flatArgs []flatcodec.FlatValue, callee Callee) []flatcodec.FlatValue {
	t := rt.Scheduler.NewTask(calleeInst)
	var results []flatcodec.FlatValue
	body := func(calleeCtx *task.Context) {
		results = callee(calleeCtx, flatArgs)
	}
	done := make(chan struct{})
	go func() {
		rt.Scheduler.Run(t, body)
		close(done)
	}()
	for {
		select {
		case <-done:
			return results
		default:
		}
		ctx.BlockOnCall()
	}
}

// LowerAsync implements an asynchronous canon_lower: start callee as a
// subtask of the calling task's instance view and return its Subtask
// handle immediately without blocking, the way an async import call
// hands the caller a waitable it polls or waits on instead of the flat
// results directly.
func (rt *Runtime) LowerAsync(callerInst *task.Instance, calleeInst *task.Instance, flatArgs []flatcodec.FlatValue, callee Callee) *task.Subtask {
	t := rt.Scheduler.NewTask(calleeInst)
	sub := task.NewSubtask(callerInst, t)
	body := func(calleeCtx *task.Context) {
		callee(calleeCtx, flatArgs)
	}
	go rt.Scheduler.Run(t, body)
	return sub
}

// LiftCallee adapts a canon.Func (a host function operating on already-
// lifted values) into a Callee (flat core values in and out), so the same
// host function can be reached through either canon_lift (as an export)
// or canon_lower (as the target of an outgoing call) without duplicating
// its type-level plumbing.
func LiftCallee(opts *CanonicalOptions, paramTypes []*types.Type, resultType *types.Type, fn Func) Callee {
	return func(ctx *task.Context, flatArgs []flatcodec.FlatValue) []flatcodec.FlatValue {
		mo := opts.memOptions()
		vi := flatcodec.NewValueIter(flatArgs)
		args := flatcodec.Lift(mo, types.MaxFlatParams, vi, paramTypes)
		fn(ctx, args)
		return lowerResult(mo, resultType, ctx.Task())
	}
}
