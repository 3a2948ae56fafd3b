package task

import (
	"sync"

	"github.com/component-model/canon-abi/internal/abierr"
)

// Waitable is anything that can raise an event: a Subtask, a stream end,
// or a future end. It carries an owner instance, an optional joined
// WaitableSet, and at most one pending event.
type Waitable struct {
	ID    WaitableID
	Owner InstanceID

	mu      sync.Mutex
	set     *WaitableSet
	pending *Pending
}

// Join attaches this waitable to a WaitableSet, per canon_waitable_join.
// Joining nil detaches it.
func (w *Waitable) Join(set *WaitableSet) {
	w.mu.Lock()
	old := w.set
	w.set = set
	w.mu.Unlock()

	if old != nil {
		old.remove(w)
	}
	if set != nil {
		set.add(w)
	}
}

// Raise delivers an event to this waitable, overwriting any pending
// event. Treating the most recent delivery as authoritative is safe
// because a waitable never has two logically concurrent producers: a
// subtask resolves once, a stream end completes one copy at a time.
func (w *Waitable) Raise(event Event, index, payload uint32) {
	w.mu.Lock()
	w.pending = &Pending{Event: event, Index: index, Payload: payload}
	set := w.set
	w.mu.Unlock()
	if set != nil {
		set.notify()
	}
}

// TakePending consumes and clears the pending event, if any.
func (w *Waitable) TakePending() (Pending, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return Pending{}, false
	}
	p := *w.pending
	w.pending = nil
	return p, true
}

func (w *Waitable) HasPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

// WaitableSet is a dynamic bag of waitables used as a wait target.
// wait/poll suspend or poll the owning task until any member has a
// pending event.
type WaitableSet struct {
	ID    WaitableSetID
	Owner InstanceID

	mu       sync.Mutex
	members  map[WaitableID]*Waitable
	notifyCh chan struct{}
}

func (s *WaitableSet) add(w *Waitable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[w.ID] = w
}

func (s *WaitableSet) remove(w *Waitable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, w.ID)
}

func (s *WaitableSet) notify() {
	s.mu.Lock()
	ch := s.notifyCh
	s.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Empty reports whether the set has no joined members, used by Wait to
// implement the conservative "empty set traps" rule.
func (s *WaitableSet) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members) == 0
}

// PollOnce scans members for any with a pending event, returning the
// first found in map iteration order. Iteration order over a Go map is undefined,
// so callers that need strict FIFO-per-waitable delivery rely on each
// individual Waitable's own pending slot being at-most-one, not on
// cross-waitable ordering — no ordering is guaranteed between
// independent waitables.
func (s *WaitableSet) PollOnce() (*Waitable, Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.members {
		if p, ok := w.TakePending(); ok {
			return w, p, true
		}
	}
	return nil, Pending{}, false
}

func (s *WaitableSet) ensureNotifyCh() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyCh == nil {
		s.notifyCh = make(chan struct{}, 1)
	}
	return s.notifyCh
}

// RequireNonEmptyOrTrap enforces the wait-on-empty-set rule.
func (s *WaitableSet) RequireNonEmptyOrTrap() {
	abierr.RaiseIf(s.Empty(), "wait-on-empty-set")
}
