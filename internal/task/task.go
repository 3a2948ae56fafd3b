package task

import (
	"sync"

	"github.com/component-model/canon-abi/internal/abierr"
)

// State is a Task's position in its lifecycle state machine.
type State byte

const (
	StateInitial State = iota
	StateStarting
	StateStarted
	StateReturned
	StateCancelledBeforeStarted
	StateCancelledBeforeReturned
	StateResolved
)

// Body is the user code a Task runs: it receives a *Context for
// suspension points and returns result values via ctx.Task().Return
// before returning, or calls ctx.Task().Cancel instead. The runtime
// invokes this on its own goroutine, treating it as an explicit
// continuation driven by one Scheduler.Run call (see scheduler.go).
// There is no Store-wide run token: Run calls made from different
// goroutines drive their Bodies at the same time.
type Body func(ctx *Context)

// Task is a unit of lifted execution.
type Task struct {
	ID       TaskID
	Instance *Instance

	// ParentID is a weak reference: a TaskID looked up in the Store's
	// registry, never a strong pointer, so cancellation traversal never
	// extends a parent's lifetime.
	ParentID  TaskID
	HasParent bool

	// CallerView is this task's Waitable identity as observed by its
	// caller: a Subtask raises EventSubtask on this waitable as its
	// state changes.
	CallerView *Waitable

	mu              sync.Mutex
	state           State
	pendingCancel   bool
	results         []any
	trap            error
	enteredInstance bool // true once Enter cleared Instance.MayEnter for this task

	suspendCh chan SuspendReason // Body goroutine -> scheduler driver
	resumeCh  chan resumeMsg     // scheduler driver -> Body goroutine
	bodyDone  chan struct{}      // closed when the Body function returns
	doneCh    chan struct{}      // closed by Exit, once fully RESOLVED

	metrics *Metrics
}

type resumeMsg struct {
	event   Event
	index   uint32
	payload uint32
}

// newTask constructs a Task bound to inst, not yet started.
func newTask(id TaskID, inst *Instance, m *Metrics) *Task {
	t := &Task{
		ID:        id,
		Instance:  inst,
		state:     StateInitial,
		suspendCh: make(chan SuspendReason),
		resumeCh:  make(chan resumeMsg),
		bodyDone:  make(chan struct{}),
		doneCh:    make(chan struct{}),
		metrics:   m,
	}
	return t
}

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Enter implements the INITIAL -> STARTING transition, gated by
// instance-level backpressure and may_enter. Returns false if the task
// must wait for backpressure/may_enter to clear before starting (the
// scheduler retries later).
func (t *Task) Enter() bool {
	t.Instance.mu.Lock()
	gated := t.Instance.Backpressure || !t.Instance.MayEnter
	if !gated {
		t.Instance.MayEnter = false
	}
	t.Instance.mu.Unlock()
	if gated {
		return false
	}
	t.setState(StateStarting)
	t.enteredInstance = true
	if t.metrics != nil {
		t.metrics.TasksStarted.Inc()
		t.metrics.TasksActive.Inc()
	}
	return true
}

// RequestCancel marks a pending external cancellation; it surfaces at
// the task's next suspension point, per the cooperative cancellation
// rule: a task only observes cancellation where it already yields.
func (t *Task) RequestCancel() {
	t.mu.Lock()
	t.pendingCancel = true
	t.mu.Unlock()
}

func (t *Task) cancelPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pendingCancel
}

// Return implements task.return: STARTED -> RETURNED. Traps if called
// twice or before STARTED — exactly one of task.return or task.cancel
// may complete a task.
func (t *Task) Return(results []any) {
	t.mu.Lock()
	abierr.RaiseIf(t.state != StateStarted, "task-return-invalid-state")
	t.results = results
	t.state = StateReturned
	t.mu.Unlock()
	if t.CallerView != nil {
		t.CallerView.Raise(EventSubtask, 0, uint32(SubtaskReturned))
	}
}

// Cancel implements task.cancel: STARTING|STARTED -> CANCELLED_BEFORE_*.
// Traps if the task already returned.
func (t *Task) Cancel() {
	t.mu.Lock()
	var next State
	var subState SubtaskState
	switch t.state {
	case StateStarting:
		next = StateCancelledBeforeStarted
		subState = SubtaskCancelledBeforeStarted
	case StateStarted:
		next = StateCancelledBeforeReturned
		subState = SubtaskCancelledBeforeReturned
	default:
		t.mu.Unlock()
		abierr.Raise("task-cancel-invalid-state")
		return
	}
	t.state = next
	t.mu.Unlock()
	if t.CallerView != nil {
		t.CallerView.Raise(EventSubtask, 0, uint32(subState))
	}
	if t.metrics != nil {
		t.metrics.TasksCancelled.Inc()
	}
}

// Exit implements the RETURNED|CANCELLED_* -> RESOLVED transition, run
// after the task's Body goroutine has fully exited. No post_return
// callback is run before it: nothing in this module calls the
// PostReturn option. If this task ever cleared its instance's
// MayEnter gate in Enter, Exit reopens it for the next task to claim.
func (t *Task) Exit() {
	t.setState(StateResolved)
	if t.enteredInstance {
		t.Instance.SetMayEnter(true)
	}
	close(t.doneCh)
	if t.metrics != nil {
		if t.Trap() != nil {
			t.metrics.TasksTrapped.Inc()
		} else {
			t.metrics.TasksResolved.Inc()
		}
		t.metrics.TasksActive.Dec()
	}
}

// Results returns the values passed to task.return; valid once State()
// is StateReturned or beyond.
func (t *Task) Results() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.results
}

// Done reports whether the task's Body goroutine has exited and Exit
// has been called.
func (t *Task) Done() <-chan struct{} { return t.doneCh }

// setTrap records a trap that unwound this task's Body, recovered at the
// Scheduler's Spawn boundary (see Scheduler.Spawn's deferred recover).
func (t *Task) setTrap(err error) {
	t.mu.Lock()
	t.trap = err
	t.mu.Unlock()
}

// Trap returns the error a trap unwound this task's Body with, or nil if
// it resolved normally.
func (t *Task) Trap() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trap
}
