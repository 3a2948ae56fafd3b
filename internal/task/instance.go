package task

import "sync"

// Instance is a component instance: it owns a handle table
// (internal/handle, wired in separately to avoid an import cycle — the
// Store holds the handle.Table keyed by InstanceID), the reentrancy
// flags, and the set of live waitables it owns.
type Instance struct {
	ID InstanceID

	mu   sync.Mutex
	cond *sync.Cond

	// Backpressure gates new STARTING tasks when true.
	Backpressure bool

	// MayEnter/MayLeave are the reentrancy guards: a task entering this
	// instance clears MayEnter until it resolves. MayLeave is set true
	// by NewInstance and nothing in this module clears or checks it.
	MayEnter bool
	MayLeave bool

	waitables map[WaitableID]*Waitable
	sets      map[WaitableSetID]*WaitableSet

	nextWaitableID WaitableID
	nextSetID      WaitableSetID
}

// NewInstance creates an Instance ready to accept its first task.
func NewInstance(id InstanceID) *Instance {
	inst := &Instance{
		ID:        id,
		MayEnter:  true,
		MayLeave:  true,
		waitables: make(map[WaitableID]*Waitable),
		sets:      make(map[WaitableSetID]*WaitableSet),
	}
	inst.cond = sync.NewCond(&inst.mu)
	return inst
}

// WaitUntilMayEnter blocks the calling goroutine (one that is not itself
// a scheduled Task and so has no Context suspension point to use) until
// backpressure clears and MayEnter is true, then atomically claims entry
// by clearing MayEnter. Nothing in this module calls it: Scheduler.Run
// gates entry with its own Task.Enter / WaitProgress retry loop.
func (inst *Instance) WaitUntilMayEnter() {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for inst.Backpressure || !inst.MayEnter {
		inst.cond.Wait()
	}
	inst.MayEnter = false
}

// SetBackpressure updates the backpressure flag and wakes any goroutine
// parked in WaitUntilMayEnter.
func (inst *Instance) SetBackpressure(on bool) {
	inst.mu.Lock()
	inst.Backpressure = on
	inst.mu.Unlock()
	inst.cond.Broadcast()
}

// SetMayEnter updates MayEnter (e.g. once a prior task resolves) and
// wakes any goroutine parked in WaitUntilMayEnter.
func (inst *Instance) SetMayEnter(v bool) {
	inst.mu.Lock()
	inst.MayEnter = v
	inst.mu.Unlock()
	inst.cond.Broadcast()
}

// RegisterWaitableFor exposes registerWaitable to other internal
// packages (internal/stream) that create their own Waitable-bearing
// objects (stream endpoints) owned by this instance.
func (inst *Instance) RegisterWaitableFor(w *Waitable) { inst.registerWaitable(w) }

// DropWaitableFor exposes dropWaitable to other internal packages.
func (inst *Instance) DropWaitableFor(id WaitableID) { inst.dropWaitable(id) }

// NewWaitableSet exposes newWaitableSet to other internal packages and
// to package canon (canon_waitable_set_new).
func (inst *Instance) NewWaitableSet() *WaitableSet { return inst.newWaitableSet() }

// DropWaitableSet exposes dropWaitableSet to other internal packages.
func (inst *Instance) DropWaitableSet(id WaitableSetID) { inst.dropWaitableSet(id) }

func (inst *Instance) registerWaitable(w *Waitable) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.nextWaitableID++
	w.ID = inst.nextWaitableID
	w.Owner = inst.ID
	inst.waitables[w.ID] = w
}

func (inst *Instance) dropWaitable(id WaitableID) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	delete(inst.waitables, id)
}

func (inst *Instance) newWaitableSet() *WaitableSet {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.nextSetID++
	s := &WaitableSet{ID: inst.nextSetID, Owner: inst.ID, members: make(map[WaitableID]*Waitable)}
	inst.sets[s.ID] = s
	return s
}

func (inst *Instance) dropWaitableSet(id WaitableSetID) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	delete(inst.sets, id)
}
