package handle

import "testing"

func TestNewAndRepRoundtrip(t *testing.T) {
	tbl := NewTable()
	rt := &ResourceType{Name: "file"}
	h := tbl.New(rt, 42)
	if got := tbl.Rep(rt, h); got != 42 {
		t.Fatalf("Rep = %d, want 42", got)
	}
}

func TestRepTrapsOnTypeMismatch(t *testing.T) {
	tbl := NewTable()
	rtA := &ResourceType{Name: "a"}
	rtB := &ResourceType{Name: "b"}
	h := tbl.New(rtA, 1)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap on resource type mismatch")
		}
	}()
	tbl.Rep(rtB, h)
}

func TestDropOwnRunsDestructor(t *testing.T) {
	tbl := NewTable()
	var destructedRep uint32
	var destructed bool
	rt := &ResourceType{Name: "file", Destructor: func(rep uint32) {
		destructed = true
		destructedRep = rep
	}}
	h := tbl.New(rt, 7)
	rep, runDestructor := tbl.Drop(h)
	if rep != 7 {
		t.Fatalf("rep = %d, want 7", rep)
	}
	if runDestructor == nil {
		t.Fatal("expected a destructor thunk")
	}
	runDestructor()
	if !destructed || destructedRep != 7 {
		t.Fatalf("destructor not invoked with rep 7: destructed=%v rep=%d", destructed, destructedRep)
	}
}

func TestDropOwnWithLiveBorrowTraps(t *testing.T) {
	tbl := NewTable()
	rt := &ResourceType{Name: "file"}
	owner := tbl.New(rt, 1)
	tbl.NewBorrow(rt, owner)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap dropping an owner with a live borrow")
		}
	}()
	tbl.Drop(owner)
}

func TestBorrowReleaseThenDropOwnSucceeds(t *testing.T) {
	tbl := NewTable()
	rt := &ResourceType{Name: "file"}
	owner := tbl.New(rt, 1)
	tbl.NewBorrow(rt, owner)
	tbl.ReleaseBorrowOwner(owner)

	rep, _ := tbl.Drop(owner)
	if rep != 1 {
		t.Fatalf("rep = %d, want 1", rep)
	}
}

func TestOverReleaseBorrowTraps(t *testing.T) {
	tbl := NewTable()
	rt := &ResourceType{Name: "file"}
	owner := tbl.New(rt, 1)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap releasing a borrow that was never lent")
		}
	}()
	tbl.ReleaseBorrowOwner(owner)
}

func TestInvalidHandleTraps(t *testing.T) {
	tbl := NewTable()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap on an invalid handle")
		}
	}()
	tbl.Drop(999)
}

func TestFreedHandleIsReused(t *testing.T) {
	tbl := NewTable()
	rt := &ResourceType{Name: "file"}
	h1 := tbl.New(rt, 1)
	tbl.Drop(h1)
	h2 := tbl.New(rt, 2)
	if h2 != h1 {
		t.Fatalf("expected freed handle %d to be reused, got %d", h1, h2)
	}
}

func TestErrorContextRoundtrip(t *testing.T) {
	tbl := NewErrorContextTable()
	h := tbl.New("something went wrong")
	if got := tbl.DebugMessage(h); got != "something went wrong" {
		t.Fatalf("got %q", got)
	}
	tbl.Drop(h)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap reading a dropped error context")
		}
	}()
	tbl.DebugMessage(h)
}
