package canon

import "github.com/component-model/canon-abi/internal/types"

// ToAny adapts a result list to the []any a Task.Return call expects;
// Task's result slot is untyped so internal/task never needs to import
// internal/types.
func ToAny(vals []types.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// FromAny is ToAny's inverse, used when reading a resolved Task's results
// back out as component values.
func FromAny(raw []any) []types.Value {
	if raw == nil {
		return nil
	}
	out := make([]types.Value, len(raw))
	for i, r := range raw {
		out[i] = r.(types.Value)
	}
	return out
}
