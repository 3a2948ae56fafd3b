package task

// SuspendReason describes why a Task's Body goroutine yielded control
// back to the scheduler at one of its cooperative suspension points.
type SuspendReason struct {
	Kind SuspendKind
	Set  *WaitableSet // for ReasonWait / ReasonPoll
	Sync bool
}

type SuspendKind byte

const (
	ReasonYield SuspendKind = iota
	ReasonWait
	ReasonPoll
	ReasonBackpressure
	ReasonBlockedCall
)

// Context is the suspension-point API a Task's Body uses. Each
// suspension point (Yield, Wait, a Poll that finds nothing, Backpressure
// Inc, BlockOnCall) parks the calling goroutine on a channel read until the
// Scheduler's driver decides to resume it — this goroutine is the
// "thread" of the cooperative execution model, and the channel hand-off
// is what makes the whole Store single-threaded-cooperative despite
// Body running on its own goroutine (see scheduler.go).
type Context struct {
	task  *Task
	sched *Scheduler

	contextVars map[uint32]uint64 // canon_context_get/set scratch storage
}

// Yield implements canon_yield: an unconditional suspension point that
// lets other runnable tasks make progress.
func (c *Context) Yield() {
	c.suspend(SuspendReason{Kind: ReasonYield})
}

// Wait implements canon_waitable_set_wait: suspends until set has a
// pending event, then returns it. Traps if set has no joined members and
// no cancellation is pending — waiting on a genuinely empty set can never
// make progress, but a pending cancellation always has somewhere to go,
// so it is reported as EventTaskCancelled instead of trapping. On a
// non-empty set a pending cancellation is not checked, and a
// cancellation requested during the wait does not wake the task.
func (c *Context) Wait(set *WaitableSet) (Event, uint32, uint32) {
	if set.Empty() {
		if c.task.cancelPending() {
			return EventTaskCancelled, 0, 0
		}
		set.RequireNonEmptyOrTrap()
	}
	if c.task.metrics != nil {
		c.task.metrics.WaitsBlocked.Inc()
	}
	msg := c.suspend(SuspendReason{Kind: ReasonWait, Set: set, Sync: true})
	return msg.event, msg.index, msg.payload
}

// Poll implements canon_waitable_set_poll: the non-blocking variant.
// Traps if set has no joined members, even with a cancellation pending:
// unlike Wait, a poll that silently reported a cancellation (or NONE)
// for an empty set would mask the same caller bug Wait's empty-set trap
// exists to catch. On a non-empty set, returns EventNone immediately if
// nothing is pending; otherwise behaves like Wait's delivery.
func (c *Context) Poll(set *WaitableSet) (Event, uint32, uint32) {
	set.RequireNonEmptyOrTrap()
	if w, p, ok := set.PollOnce(); ok {
		return p.Event, uint32(w.ID), p.Payload
	}
	if c.task.cancelPending() {
		return EventTaskCancelled, 0, 0
	}
	msg := c.suspend(SuspendReason{Kind: ReasonPoll, Set: set, Sync: true})
	return msg.event, msg.index, msg.payload
}

// BackpressureInc implements canon_backpressure_inc: sets the instance's
// backpressure flag, which gates new entries, and yields once.
func (c *Context) BackpressureInc() {
	c.task.Instance.SetBackpressure(true)
	c.suspend(SuspendReason{Kind: ReasonBackpressure})
}

// BackpressureDec implements canon_backpressure_dec.
func (c *Context) BackpressureDec() {
	c.task.Instance.SetBackpressure(false)
}

// BlockOnCall is used by a synchronous canon_lower into an async callee,
// a synchronous subtask.cancel, or a synchronous stream/future copy that
// must wait for its peer — the shared "blocked on some other op
// finishing" suspension point.
func (c *Context) BlockOnCall() {
	c.suspend(SuspendReason{Kind: ReasonBlockedCall})
}

// CancelRequested reports whether an external cancellation is pending
// for this task's Body to observe at its next suspension point.
func (c *Context) CancelRequested() bool { return c.task.cancelPending() }

// ContextGet/ContextSet implement canon_context_{get,set}: per-task
// scratch storage a callback-mode Body uses to persist state across
// re-entries, in lieu of capturing a stack.
func (c *Context) ContextGet(slot uint32) uint64 {
	if c.contextVars == nil {
		return 0
	}
	return c.contextVars[slot]
}

func (c *Context) ContextSet(slot uint32, v uint64) {
	if c.contextVars == nil {
		c.contextVars = make(map[uint32]uint64)
	}
	c.contextVars[slot] = v
}

// Task exposes the underlying Task, for Return/Cancel.
func (c *Context) Task() *Task { return c.task }

func (c *Context) suspend(reason SuspendReason) resumeMsg {
	c.task.suspendCh <- reason
	return <-c.task.resumeCh
}
