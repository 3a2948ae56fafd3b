package stream

import (
	"testing"

	"github.com/component-model/canon-abi/internal/task"
	"github.com/component-model/canon-abi/internal/types"
)

func newTestInstance() *task.Instance { return task.NewInstance(1) }

func TestWriteThenReadCompletesSynchronously(t *testing.T) {
	inst := newTestInstance()
	p := NewStream(inst, types.Primitive(types.KindU32), false)

	result, n, ok := p.Write([]types.Value{types.U32(1), types.U32(2)})
	if ok {
		t.Fatalf("write with no reader yet should block, got result=%v n=%d", result, n)
	}

	result, vals, ok := p.Read(2)
	if !ok || result != task.CopyCompleted || len(vals) != 2 {
		t.Fatalf("read should complete against the pending write, got result=%v vals=%+v ok=%v", result, vals, ok)
	}
	if vals[0].U32 != 1 || vals[1].U32 != 2 {
		t.Fatalf("got %+v", vals)
	}
}

func TestReadThenWriteCompletesSynchronously(t *testing.T) {
	inst := newTestInstance()
	p := NewStream(inst, types.Primitive(types.KindU32), false)

	result, vals, ok := p.Read(3)
	if ok {
		t.Fatalf("read with no writer yet should block, got result=%v vals=%+v", result, vals)
	}

	result, n, ok := p.Write([]types.Value{types.U32(9), types.U32(8), types.U32(7)})
	if !ok || result != task.CopyCompleted || n != 3 {
		t.Fatalf("write should complete against the pending read, got result=%v n=%d ok=%v", result, n, ok)
	}
}

func TestPartialTransferReQueuesRemainder(t *testing.T) {
	inst := newTestInstance()
	p := NewStream(inst, types.Primitive(types.KindU32), false)

	_, _, ok := p.Write([]types.Value{types.U32(1), types.U32(2), types.U32(3)})
	if ok {
		t.Fatal("write should block pending a reader")
	}

	result, vals, ok := p.Read(1)
	if !ok || result != task.CopyCompleted || len(vals) != 1 || vals[0].U32 != 1 {
		t.Fatalf("first partial read: result=%v vals=%+v ok=%v", result, vals, ok)
	}

	// the write is still pending with 2 elements left; a second read drains it.
	result, vals, ok = p.Read(2)
	if !ok || result != task.CopyCompleted || len(vals) != 2 || vals[0].U32 != 2 || vals[1].U32 != 3 {
		t.Fatalf("second partial read: result=%v vals=%+v ok=%v", result, vals, ok)
	}
}

func TestCancelReadWithNoPendingWriteReturnsCancelled(t *testing.T) {
	inst := newTestInstance()
	p := NewStream(inst, types.Primitive(types.KindU32), false)

	_, _, ok := p.Read(1)
	if ok {
		t.Fatal("read should block pending a writer")
	}
	result, n := p.CancelRead()
	if result != task.CopyCancelled || n != 0 {
		t.Fatalf("got result=%v n=%d", result, n)
	}
}

func TestDropWritableWithPendingWriteTraps(t *testing.T) {
	inst := newTestInstance()
	p := NewStream(inst, types.Primitive(types.KindU32), false)

	_, _, ok := p.Write([]types.Value{types.U32(1)})
	if ok {
		t.Fatal("write should block pending a reader")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap dropping a writable end with a pending write")
		}
	}()
	p.DropWritable()
}

func TestChecksumAccumulatesAcrossTransfers(t *testing.T) {
	inst := newTestInstance()
	p := NewStream(inst, types.Primitive(types.KindU8), true)

	_, _, ok := p.Write([]types.Value{types.U8(1), types.U8(2)})
	if ok {
		t.Fatal("write should block pending a reader")
	}
	p.Read(2)
	if p.Checksum() == 0 {
		t.Fatal("expected a nonzero checksum after transferring bytes")
	}
}

func TestFutureCannotBeWrittenTwice(t *testing.T) {
	inst := newTestInstance()
	p := NewFuture(inst, types.Primitive(types.KindU32), false)

	// read first so the matching write completes via completeAgainstReader,
	// which is what marks the future as written.
	p.Read(1)
	p.Write([]types.Value{types.U32(1)})

	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap writing to a future a second time")
		}
	}()
	p.Write([]types.Value{types.U32(2)})
}
