package main

import (
	"fmt"

	"github.com/component-model/canon-abi/canon"
	"github.com/component-model/canon-abi/internal/abierr"
	"github.com/component-model/canon-abi/internal/flatcodec"
	"github.com/component-model/canon-abi/internal/memcodec"
	"github.com/component-model/canon-abi/internal/task"
	"github.com/component-model/canon-abi/internal/types"
)

// runVector plays the host embedder's part for one vector: lower the
// vector's declared values into a freshly allocated linear memory (as if
// a caller component had produced them), hand the resulting flat core
// values to canon.Lift against an identity callee, and report the
// parameters the callee received — exercising the lower/lift path of the
// memcodec/flatcodec/task stack without needing an actual compiled guest
// module. No result type is passed to Lift, so no result is lowered.
func runVector(rt *canon.Runtime, inst *task.Instance, v vector) (result string, err error) {
	defer abierr.Recover(&err)

	mem := memcodec.NewSliceMemory(1 << 16)
	nextPtr := uint32(8)
	realloc := func(oldPtr, oldSize, align, newSize uint32) uint32 {
		p := types.AlignTo(nextPtr, align)
		nextPtr = p + newSize
		return p
	}
	opts := &canon.CanonicalOptions{
		Memory:         mem,
		StringEncoding: memcodec.UTF8,
		Realloc:        memcodec.Realloc(realloc),
		Sync:           true,
	}

	paramTypes := v.paramTypes()
	vals := v.paramValues()

	mo := &memcodec.Options{Memory: mem, StringEncoding: memcodec.UTF8, Realloc: memcodec.Realloc(realloc)}
	flatArgs := flatcodec.Lower(mo, types.MaxFlatParams, vals, paramTypes, nil)

	var echoed []types.Value
	identity := func(ctx *task.Context, args []types.Value) {
		echoed = args
		ctx.Task().Return(canon.ToAny(args))
	}

	flatOut, liftErr := rt.Lift(inst, opts, paramTypes, nil, flatArgs, identity)
	if liftErr != nil {
		return "", liftErr
	}
	_ = flatOut

	return fmt.Sprintf("%s: ok, %d param(s) round-tripped (%v)", v.Name, len(echoed), summarize(echoed)), nil
}

func summarize(vals []types.Value) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.Kind.String()
	}
	return out
}
