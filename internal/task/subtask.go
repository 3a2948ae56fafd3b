package task

import "github.com/component-model/canon-abi/internal/abierr"

// Subtask is the caller's handle onto a lowered outgoing call: the same
// underlying Task, observed through the caller's own Waitable and handle
// table entry.
type Subtask struct {
	Task       *Task
	callerInst *Instance
}

// NewSubtask registers t as a waitable owned by callerInst and returns
// the caller-side handle. Call this once, right after the callee Task is
// created via canon_lower.
func NewSubtask(callerInst *Instance, t *Task) *Subtask {
	w := &Waitable{}
	callerInst.registerWaitable(w)
	t.CallerView = w
	return &Subtask{Task: t, callerInst: callerInst}
}

// State maps the underlying Task state to the caller-observable
// SubtaskState.
func (s *Subtask) State() SubtaskState {
	switch s.Task.State() {
	case StateInitial, StateStarting:
		return SubtaskStarting
	case StateStarted:
		return SubtaskStarted
	case StateReturned:
		return SubtaskReturned
	case StateCancelledBeforeStarted:
		return SubtaskCancelledBeforeStarted
	case StateCancelledBeforeReturned:
		return SubtaskCancelledBeforeReturned
	case StateResolved:
		// RESOLVED carries forward whichever terminal state preceded it;
		// the caller should have observed that transition via the
		// waitable event before the task fully resolved.
		return SubtaskReturned
	}
	return SubtaskStarting
}

// Drop releases the caller-side waitable for this subtask, per
// canon_subtask_drop. Traps if the subtask has not reached a terminal
// state.
func (s *Subtask) Drop() {
	st := s.Task.State()
	abierr.RaiseIf(st != StateResolved && st != StateReturned &&
		st != StateCancelledBeforeStarted && st != StateCancelledBeforeReturned,
		"subtask-drop-not-terminal")
	if s.Task.CallerView != nil {
		s.callerInst.dropWaitable(s.Task.CallerView.ID)
	}
}

// RequestCancel implements canon_subtask_cancel. If sync is true, the
// caller's Context suspends (via ctx.BlockOnCall) until the subtask
// reaches a terminal state; otherwise it returns immediately, reporting
// whether the subtask was already terminal ("done") or will deliver an
// EventSubtask event later ("blocked").
func (s *Subtask) RequestCancel(ctx *Context, sync bool) (state SubtaskState, blocked bool) {
	switch s.State() {
	case SubtaskReturned, SubtaskCancelledBeforeStarted, SubtaskCancelledBeforeReturned:
		return s.State(), false
	}
	s.Task.RequestCancel()
	if !sync {
		return s.State(), true
	}
	for {
		switch s.State() {
		case SubtaskReturned, SubtaskCancelledBeforeStarted, SubtaskCancelledBeforeReturned:
			return s.State(), false
		}
		ctx.BlockOnCall()
	}
}
