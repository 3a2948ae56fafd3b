package canon

import (
	"testing"

	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/flatcodec"
	"github.com/component-model/canon-abi/internal/handle"
	"github.com/component-model/canon-abi/internal/memcodec"
	"github.com/component-model/canon-abi/internal/task"
	"github.com/component-model/canon-abi/internal/types"
)

func freshCanonicalOptions() *CanonicalOptions {
	mem := memcodec.NewSliceMemory(1 << 16)
	next := uint32(8)
	realloc := memcodec.Realloc(func(oldPtr, oldSize, align, newSize uint32) uint32 {
		p := types.AlignTo(next, align)
		next = p + newSize
		return p
	})
	return &CanonicalOptions{Memory: mem, StringEncoding: memcodec.UTF8, Realloc: realloc, Sync: true}
}

func TestLiftRunsFuncAndLowersResult(t *testing.T) {
	rt := NewRuntime(nil)
	inst := rt.NewInstance()
	opts := freshCanonicalOptions()

	paramTypes := []*types.Type{types.Primitive(types.KindU32)}
	resultType := types.Primitive(types.KindU32)

	doubler := func(ctx *task.Context, args []types.Value) {
		ctx.Task().Return(ToAny([]types.Value{types.U32(args[0].U32 * 2)}))
	}

	flatArgs := flatcodec.Lower(opts.memOptions(), types.MaxFlatParams, []types.Value{types.U32(21)}, paramTypes, nil)
	flatResult, err := rt.Lift(inst, opts, paramTypes, resultType, flatArgs, doubler)
	if err != nil {
		t.Fatalf("unexpected trap: %v", err)
	}
	got := flatcodec.Lift(opts.memOptions(), types.MaxFlatParams, flatcodec.NewValueIter(flatResult), []*types.Type{resultType})
	if got[0].U32 != 42 {
		t.Fatalf("got %+v", got)
	}
}

func TestLiftSurfacesTrapAsError(t *testing.T) {
	rt := NewRuntime(nil)
	inst := rt.NewInstance()
	opts := freshCanonicalOptions()

	paramTypes := []*types.Type{types.Primitive(types.KindU32)}

	boom := func(ctx *task.Context, args []types.Value) {
		abierr.Raise("intentional-test-trap")
	}

	flatArgs := flatcodec.Lower(opts.memOptions(), types.MaxFlatParams, []types.Value{types.U32(1)}, paramTypes, nil)
	_, err := rt.Lift(inst, opts, paramTypes, nil, flatArgs, boom)
	if err == nil {
		t.Fatal("expected Lift to surface the trap as an error")
	}
}

func TestLiftRoundtripsString(t *testing.T) {
	rt := NewRuntime(nil)
	inst := rt.NewInstance()
	opts := freshCanonicalOptions()

	paramTypes := []*types.Type{types.Primitive(types.KindString)}
	resultType := types.Primitive(types.KindString)

	echo := func(ctx *task.Context, args []types.Value) {
		ctx.Task().Return(ToAny([]types.Value{types.Str(args[0].Str)}))
	}

	flatArgs := flatcodec.Lower(opts.memOptions(), types.MaxFlatParams, []types.Value{types.Str("component model")}, paramTypes, nil)
	flatResult, err := rt.Lift(inst, opts, paramTypes, resultType, flatArgs, echo)
	if err != nil {
		t.Fatalf("unexpected trap: %v", err)
	}
	got := flatcodec.Lift(opts.memOptions(), types.MaxFlatParams, flatcodec.NewValueIter(flatResult), []*types.Type{resultType})
	if got[0].Str != "component model" {
		t.Fatalf("got %q", got[0].Str)
	}
}

// TestLiftBindsAndReleasesBorrowArgument exercises the borrow discipline
// through the real call path, not just internal/handle's own unit tests:
// lifting a borrow<R> argument must lend from the owner for the call's
// duration and release it again once fn returns, so the owner can be
// dropped immediately afterward.
func TestLiftBindsAndReleasesBorrowArgument(t *testing.T) {
	rt := NewRuntime(nil)
	inst := rt.NewInstance()
	opts := freshCanonicalOptions()

	rtype := &handle.ResourceType{Name: "widget"}
	owner := ResourceNew(rt, inst, rtype, 99)

	paramTypes := []*types.Type{types.Borrow("widget")}
	var seenRep uint32
	reader := func(ctx *task.Context, args []types.Value) {
		seenRep = ResourceRep(rt, inst, rtype, args[0].Handle)
		ctx.Task().Return(nil)
	}

	flatArgs := flatcodec.Lower(opts.memOptions(), types.MaxFlatParams, []types.Value{{Kind: types.KindBorrow, Handle: owner}}, paramTypes, nil)
	if _, err := rt.Lift(inst, opts, paramTypes, nil, flatArgs, reader); err != nil {
		t.Fatalf("unexpected trap: %v", err)
	}
	if seenRep != 99 {
		t.Fatalf("rep seen by callee = %d, want 99", seenRep)
	}

	// the borrow must have been released by the time Lift returns, so
	// dropping the owner now must succeed rather than trap.
	ResourceDrop(rt, inst, owner)
}

// TestLiftTrapsDroppingOwnerWithLiveBorrowArgument confirms the lender
// count actually gates the owner: dropping it from inside fn, while the
// lifted borrow argument still lends from it, must trap.
func TestLiftTrapsDroppingOwnerWithLiveBorrowArgument(t *testing.T) {
	rt := NewRuntime(nil)
	inst := rt.NewInstance()
	opts := freshCanonicalOptions()

	rtype := &handle.ResourceType{Name: "widget"}
	owner := ResourceNew(rt, inst, rtype, 1)

	paramTypes := []*types.Type{types.Borrow("widget")}
	dropsOwner := func(ctx *task.Context, args []types.Value) {
		ResourceDrop(rt, inst, owner)
		ctx.Task().Return(nil)
	}

	flatArgs := flatcodec.Lower(opts.memOptions(), types.MaxFlatParams, []types.Value{{Kind: types.KindBorrow, Handle: owner}}, paramTypes, nil)
	if _, err := rt.Lift(inst, opts, paramTypes, nil, flatArgs, dropsOwner); err == nil {
		t.Fatal("expected a trap dropping an owner with a live borrow argument")
	}
}
