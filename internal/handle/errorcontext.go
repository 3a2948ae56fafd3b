package handle

import "github.com/component-model/canon-abi/internal/abierr"

// ErrorContextTable is a per-instance free-listed table of debug strings,
// the handle-table shaped home for canon_error_context_new/drop: an error
// context carries only a human-readable debug-message and is otherwise
// opaque to the guest, so it needs none of Table's own/borrow bookkeeping.
type ErrorContextTable struct {
	entries  []string
	inUse    []bool
	freeList []uint32
}

func NewErrorContextTable() *ErrorContextTable {
	return &ErrorContextTable{entries: []string{""}, inUse: []bool{true}}
}

// New implements canon_error_context_new(debug_message).
func (t *ErrorContextTable) New(debugMessage string) uint32 {
	if n := len(t.freeList); n > 0 {
		h := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[h] = debugMessage
		t.inUse[h] = true
		return h
	}
	t.entries = append(t.entries, debugMessage)
	t.inUse = append(t.inUse, true)
	return uint32(len(t.entries) - 1)
}

// DebugMessage implements canon_error_context_debug_message.
func (t *ErrorContextTable) DebugMessage(h uint32) string {
	abierr.RaiseIf(h == 0 || int(h) >= len(t.entries) || !t.inUse[h], "invalid-error-context")
	return t.entries[h]
}

// Drop implements canon_error_context_drop.
func (t *ErrorContextTable) Drop(h uint32) {
	abierr.RaiseIf(h == 0 || int(h) >= len(t.entries) || !t.inUse[h], "invalid-error-context")
	t.entries[h] = ""
	t.inUse[h] = false
	t.freeList = append(t.freeList, h)
}
