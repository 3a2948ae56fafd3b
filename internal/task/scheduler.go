package task

import (
	"sync"

	"github.com/component-model/canon-abi/internal/abierr"
)

// Scheduler is the cooperative run-loop owner. Each Task's Body runs on
// its own goroutine; Resume/Spawn are synchronous calls that push exactly
// one Task forward from its last suspension point to its next one (or to
// completion) before returning, so one driving goroutine runs one Body
// at a time. Run calls from different goroutines are not serialized
// against each other, and their Bodies run concurrently.
// This realizes "threads as explicit continuations" using Go's own
// goroutine+channel primitives as the continuation mechanism, rather
// than any OS-level parallelism.
type Scheduler struct {
	mu       sync.Mutex
	tasks    map[TaskID]*Task
	nextID   TaskID
	instance map[InstanceID]*Instance
	metrics  *Metrics

	progressMu   sync.Mutex
	progressCond *sync.Cond
}

func NewScheduler(m *Metrics) *Scheduler {
	s := &Scheduler{
		tasks:    make(map[TaskID]*Task),
		instance: make(map[InstanceID]*Instance),
		metrics:  m,
	}
	s.progressCond = sync.NewCond(&s.progressMu)
	return s
}

// Notify wakes every goroutine parked in WaitProgress. Called whenever any
// task suspends, resumes, or finishes, so a task blocked on some other
// part of the Store finishing (ReasonBlockedCall) has a cheap retry signal
// instead of a tight busy-spin.
func (s *Scheduler) Notify() {
	s.progressCond.Broadcast()
}

// WaitProgress blocks until the next Notify call.
func (s *Scheduler) WaitProgress() {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.progressCond.Wait()
}

// NewInstance registers and returns a fresh ComponentInstance.
func (s *Scheduler) NewInstance() *Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := InstanceID(len(s.instance) + 1)
	inst := NewInstance(id)
	s.instance[id] = inst
	return inst
}

// NewTask allocates a Task bound to inst, in StateInitial.
func (s *Scheduler) NewTask(inst *Instance) *Task {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	t := newTask(id, inst, s.metrics)
	s.mu.Lock()
	s.tasks[id] = t
	s.mu.Unlock()
	return t
}

// Lookup resolves a TaskID to its Task, used for weak parent-link
// traversal during cancellation — a miss (task already destroyed) is
// reported via ok=false rather than a trap, since the parent edge is
// advisory, not load-bearing.
func (s *Scheduler) Lookup(id TaskID) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *Scheduler) forget(id TaskID) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

// Spawn starts t's Body goroutine and runs it until its first suspension
// point or completion, the STARTING -> on_start transition. Callers
// must have already gated entry via t.Enter().
func (s *Scheduler) Spawn(t *Task, body Body) (SuspendReason, bool) {
	ctx := &Context{task: t, sched: s}
	t.setState(StateStarted)
	go func() {
		defer close(t.bodyDone)
		defer func() {
			if r := recover(); r != nil {
				if tr, ok := r.(*abierr.Trap); ok {
					t.setTrap(tr)
					return
				}
				panic(r)
			}
		}()
		body(ctx)
	}()
	return s.wait(t)
}

// Resume continues t past whichever suspension point it last parked at,
// delivering the given event (zero value if the suspension wasn't an
// event wait), and runs it until its next suspension or completion.
func (s *Scheduler) Resume(t *Task, event Event, index, payload uint32) (SuspendReason, bool) {
	t.resumeCh <- resumeMsg{event: event, index: index, payload: payload}
	return s.wait(t)
}

func (s *Scheduler) wait(t *Task) (SuspendReason, bool) {
	defer s.Notify()
	select {
	case reason := <-t.suspendCh:
		return reason, true
	case <-t.bodyDone:
		if t.State() != StateResolved {
			t.Exit()
		}
		s.forget(t.ID)
		return SuspendReason{}, false
	}
}

// Run drives t from t.Enter() through every suspension point to
// completion, interpreting each SuspendReason the way a host embedder
// must: ReasonYield and ReasonBackpressure resume immediately (this
// Scheduler runs one task's continuation at a time rather than
// round-robining a ready queue, so "let others run" collapses to "carry
// on"); ReasonPoll resumes immediately with whatever Context.Poll already
// found, since poll must never block; ReasonWait blocks the driving
// goroutine on the target WaitableSet's notification channel; and
// ReasonBlockedCall blocks on the Scheduler's shared progress signal,
// retrying once anything else in the Store has moved. Returns once t's
// Body has returned/cancelled and Exit has run.
func (s *Scheduler) Run(t *Task, body Body) {
	for !t.Enter() {
		s.WaitProgress()
	}
	reason, ok := s.Spawn(t, body)
	for ok {
		reason, ok = s.step(t, reason)
	}
}

func (s *Scheduler) step(t *Task, reason SuspendReason) (SuspendReason, bool) {
	switch reason.Kind {
	case ReasonYield, ReasonBackpressure:
		return s.Resume(t, EventNone, 0, 0)
	case ReasonPoll:
		return s.Resume(t, EventNone, 0, 0)
	case ReasonWait:
		ch := reason.Set.ensureNotifyCh()
		for {
			if w, p, found := reason.Set.PollOnce(); found {
				return s.Resume(t, p.Event, uint32(w.ID), p.Payload)
			}
			<-ch
		}
	case ReasonBlockedCall:
		s.WaitProgress()
		return s.Resume(t, EventNone, 0, 0)
	default:
		return s.Resume(t, EventNone, 0, 0)
	}
}
