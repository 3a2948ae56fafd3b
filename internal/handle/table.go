// Package handle implements per-instance resource handle tables:
// allocation with a free-list, own/borrow discipline, and destructor
// scheduling.
package handle

import "github.com/component-model/canon-abi/internal/abierr"

// ResourceType is declared by one instance; carries an optional
// destructor, run when the last owning handle is dropped.
type ResourceType struct {
	Name       string
	Destructor func(rep uint32)
}

// Kind distinguishes an owning handle from a non-owning borrow.
type Kind byte

const (
	Own Kind = iota
	Borrow
)

type entry struct {
	kind        Kind
	resource    *ResourceType
	rep         uint32
	lenderCount int  // borrow: number of outstanding borrows lent from this own entry
	ownerLive   bool // borrow: whether the lending own handle is still present
	inUse       bool
}

// Table is a per-component-instance handle table: a free-listed array
// of handles, ≥1 (0 reserved).
type Table struct {
	entries  []entry
	freeList []uint32
}

func NewTable() *Table {
	// index 0 reserved; seed with a dummy entry so real handles start at 1.
	return &Table{entries: make([]entry, 1)}
}

// New allocates an own-handle pointing at representation integer rep,
// per canon_resource_new.
func (t *Table) New(rt *ResourceType, rep uint32) uint32 {
	h := t.alloc()
	t.entries[h] = entry{kind: Own, resource: rt, rep: rep, ownerLive: true, inUse: true}
	return h
}

// NewBorrow produces a borrow<R> handle lent from the own-handle owner
// and increments the owner's lender count. It traps with
// "borrow-from-invalid-owner" if ownerHandle is not a live own handle;
// the call-boundary dynamic extent of the borrow is not tracked here.
func (t *Table) NewBorrow(rt *ResourceType, ownerHandle uint32) uint32 {
	owner := &t.entries[ownerHandle]
	abierr.RaiseIf(!owner.inUse || owner.kind != Own, "borrow-from-invalid-owner")
	owner.lenderCount++
	h := t.alloc()
	t.entries[h] = entry{kind: Borrow, resource: rt, rep: owner.rep, ownerLive: true, inUse: true}
	return h
}

func (t *Table) alloc() uint32 {
	if n := len(t.freeList); n > 0 {
		h := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		return h
	}
	t.entries = append(t.entries, entry{})
	return uint32(len(t.entries) - 1)
}

// Rep implements canon_resource_rep: returns the representation integer
// for h, trapping if h is not of type rt.
func (t *Table) Rep(rt *ResourceType, h uint32) uint32 {
	e := t.require(h)
	abierr.RaiseIf(e.resource != rt, "handle-type-mismatch")
	return e.rep
}

// Drop implements canon_resource_drop. For an own handle it runs the
// destructor (the caller in package canon decides sync/async dispatch);
// for a borrow handle it only frees the slot and does not change the
// owner's lender count (ReleaseBorrowOwner does that). Traps on dropping
// an invalid handle or an own handle while its borrow count is nonzero.
func (t *Table) Drop(h uint32) (rep uint32, runDestructor func()) {
	e := t.require(h)
	switch e.kind {
	case Own:
		abierr.RaiseIf(e.lenderCount > 0, "drop-own-with-live-borrows")
		rep = e.rep
		dtor := e.resource.Destructor
		t.free(h)
		if dtor != nil {
			return rep, func() { dtor(rep) }
		}
		return rep, nil
	case Borrow:
		rep = e.rep
		t.free(h)
		return rep, nil
	}
	abierr.Raise("bad-handle-kind")
	return 0, nil
}

// ReleaseBorrowOwner decrements the lender count on ownerHandle, the own
// handle that lent a borrow's representation, called when its dynamic extent
// (the lifting call boundary) ends. Traps if the owner was already
// dropped while this borrow was outstanding.
func (t *Table) ReleaseBorrowOwner(ownerHandle uint32) {
	owner := &t.entries[ownerHandle]
	abierr.RaiseIf(!owner.inUse, "use-after-lender-drop")
	abierr.RaiseIf(owner.lenderCount == 0, "borrow-over-release")
	owner.lenderCount--
}

// OwnerResourceType returns the resource type tag of handle h. It lets a
// caller holding only a handle index (an already-lifted own<R>/borrow<R>
// argument, say) recover what NewBorrow needs without a separate
// name-to-type registry, since the table already has it on file.
func (t *Table) OwnerResourceType(h uint32) *ResourceType {
	return t.require(h).resource
}

// InUse reports whether h currently refers to a live entry, letting a
// caller that released a handle through some other path (the callee
// explicitly dropping a borrow before its call returns, say) check
// before attempting to free it again.
func (t *Table) InUse(h uint32) bool {
	return h != 0 && int(h) < len(t.entries) && t.entries[h].inUse
}

func (t *Table) require(h uint32) *entry {
	abierr.RaiseIf(h == 0 || int(h) >= len(t.entries) || !t.entries[h].inUse, "invalid-handle")
	return &t.entries[h]
}

func (t *Table) free(h uint32) {
	t.entries[h] = entry{}
	t.freeList = append(t.freeList, h)
}
