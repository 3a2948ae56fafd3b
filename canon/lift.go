package canon

import (
	"github.com/component-model/canon-abi/internal/flatcodec"
	"github.com/component-model/canon-abi/internal/handle"
	"github.com/component-model/canon-abi/internal/memcodec"
	"github.com/component-model/canon-abi/internal/task"
	"github.com/component-model/canon-abi/internal/types"
)

// Func is the lifted form of a component-level function: host code that
// runs with a *task.Context for suspension points, receiving already-
// lifted argument values. It must call ctx.Task().Return(canon.ToAny(...))
// exactly once before returning, or ctx.Task().Cancel() if it observes a
// pending cancellation instead — the same split wazero's compiled
// function bodies use between "core value plumbing" and "the function's
// actual behavior."
type Func func(ctx *task.Context, args []types.Value)

// Lift implements canon_lift: given a core function's flat argument
// values, lift them to component values, run fn as a Task, and lower
// whatever it returns back to flat core values.
//
// Lift always runs fn to completion (task.return or task.cancel) before
// it returns, whatever opts.Sync says; it never hands back a Subtask.
// The non-blocking variant is LiftAsync.
func (rt *Runtime) Lift(inst *task.Instance, opts *CanonicalOptions, paramTypes []*types.Type, resultType *types.Type, flatArgs []flatcodec.FlatValue, fn Func) ([]flatcodec.FlatValue, error) {
	mo := opts.memOptions()
	vi := flatcodec.NewValueIter(flatArgs)
	args := flatcodec.Lift(mo, types.MaxFlatParams, vi, paramTypes)
	tbl := rt.Table(inst)
	bound := bindArgBorrows(tbl, args)

	t := rt.Scheduler.NewTask(inst)
	body := func(ctx *task.Context) { fn(ctx, args) }
	rt.Scheduler.Run(t, body)
	releaseArgBorrows(tbl, bound)

	if trap := t.Trap(); trap != nil {
		return nil, trap
	}
	return lowerResult(mo, resultType, t), nil
}

// LiftAsync is canon_lift with async callable: it starts fn's Task on a
// new goroutine and returns the *task.Subtask at once, without waiting
// for the Task to start, suspend or resolve; the caller observes its
// progress through the Subtask's waitable. The packed (state, index) core return value
// a real async canon_lift produces is built by the caller from the
// returned Subtask and the handle it assigns that Subtask in its own
// handle table, since handle allocation is component-instance state this
// package does not own.
func (rt *Runtime) LiftAsync(inst *task.Instance, callerInst *task.Instance, opts *CanonicalOptions, paramTypes []*types.Type, flatArgs []flatcodec.FlatValue, fn Func) *task.Subtask {
	mo := opts.memOptions()
	vi := flatcodec.NewValueIter(flatArgs)
	args := flatcodec.Lift(mo, types.MaxFlatParams, vi, paramTypes)
	tbl := rt.Table(inst)
	bound := bindArgBorrows(tbl, args)

	t := rt.Scheduler.NewTask(inst)
	sub := task.NewSubtask(callerInst, t)
	body := func(ctx *task.Context) { fn(ctx, args) }

	go func() {
		rt.Scheduler.Run(t, body)
		releaseArgBorrows(tbl, bound)
	}()
	return sub
}

// boundBorrow is one KindBorrow argument's table registration for the
// duration of a single lift call.
type boundBorrow struct {
	owner  uint32 // the own<R> handle the borrow was lent from
	handle uint32 // the fresh borrow handle bindArgBorrows registered and rewrote args[i].Handle to
}

// bindArgBorrows implements the "a borrow<R> may be produced only while
// an own<R> exists" rule's production half: for each top-level
// KindBorrow argument, registers a fresh borrow handle lent from the
// own<R> handle the wire value named, rewrites the lifted argument to
// that handle (so fn only ever sees a borrow, never the raw owner), and
// returns the bookkeeping releaseArgBorrows needs to undo it.
func bindArgBorrows(tbl *handle.Table, args []types.Value) []boundBorrow {
	var bound []boundBorrow
	for i := range args {
		if args[i].Kind != types.KindBorrow {
			continue
		}
		owner := args[i].Handle
		h := tbl.NewBorrow(tbl.OwnerResourceType(owner), owner)
		args[i].Handle = h
		bound = append(bound, boundBorrow{owner: owner, handle: h})
	}
	return bound
}

// releaseArgBorrows ends each bound borrow's dynamic extent at the call
// boundary, whether or not fn already dropped it itself, and releases
// the lender count it holds against the owning handle.
func releaseArgBorrows(tbl *handle.Table, bound []boundBorrow) {
	for _, b := range bound {
		if tbl.InUse(b.handle) {
			tbl.Drop(b.handle)
		}
		tbl.ReleaseBorrowOwner(b.owner)
	}
}

// lowerResult lowers a terminated Task's result (from task.return) back
// to flat core values, or an empty slice for a cancelled task / a
// function with no result type.
func lowerResult(mo *memcodec.Options, resultType *types.Type, t *task.Task) []flatcodec.FlatValue {
	if resultType == nil {
		return nil
	}
	vals := FromAny(t.Results())
	if vals == nil {
		return nil
	}
	return flatcodec.Lower(mo, types.MaxFlatResults, vals, []*types.Type{resultType}, nil)
}
