package canon

import (
	"testing"
	"time"

	"github.com/component-model/canon-abi/internal/handle"
	"github.com/component-model/canon-abi/internal/task"
)

func TestResourceNewRepDropRunsDestructor(t *testing.T) {
	rt := NewRuntime(nil)
	inst := rt.NewInstance()

	var destructed uint32
	rtype := &handle.ResourceType{Name: "widget", Destructor: func(rep uint32) { destructed = rep }}

	h := ResourceNew(rt, inst, rtype, 55)
	if got := ResourceRep(rt, inst, rtype, h); got != 55 {
		t.Fatalf("got %d", got)
	}
	ResourceDrop(rt, inst, h)
	if destructed != 55 {
		t.Fatalf("expected destructor to run with rep 55, got %d", destructed)
	}
}

func TestErrorContextNewDebugMessageDrop(t *testing.T) {
	rt := NewRuntime(nil)
	inst := rt.NewInstance()

	h := ErrorContextNew(rt, inst, "bad input")
	if got := ErrorContextDebugMessage(rt, inst, h); got != "bad input" {
		t.Fatalf("got %q", got)
	}
	ErrorContextDrop(rt, inst, h)
}

func TestWaitableSetNewJoinWaitDeliversViaBuiltins(t *testing.T) {
	rt := NewRuntime(nil)
	inst := rt.NewInstance()

	set := WaitableSetNew(inst)
	w := &task.Waitable{}
	inst.RegisterWaitableFor(w)
	WaitableJoin(w, set)

	tk := rt.Scheduler.NewTask(inst)
	done := make(chan struct{})
	go func() {
		rt.Scheduler.Run(tk, func(ctx *task.Context) {
			ev, idx, _ := WaitableSetWait(ctx, set)
			if ev != task.EventSubtask || idx != uint32(w.ID) {
				t.Errorf("unexpected delivery: %v %d", ev, idx)
			}
			ctx.Task().Return(nil)
		})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	w.Raise(task.EventSubtask, 0, 1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never resolved")
	}
}

func TestYieldAndBackpressureBuiltins(t *testing.T) {
	rt := NewRuntime(nil)
	inst := rt.NewInstance()
	tk := rt.Scheduler.NewTask(inst)

	rt.Scheduler.Run(tk, func(ctx *task.Context) {
		Yield(ctx)
		BackpressureInc(ctx)
		BackpressureDec(ctx)
		TaskReturn(ctx, nil)
	})

	if tk.Trap() != nil {
		t.Fatalf("unexpected trap: %v", tk.Trap())
	}
}
