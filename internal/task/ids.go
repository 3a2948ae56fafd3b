package task

// InstanceID, TaskID, and WaitableID are opaque handles into the Store's
// registries. Using plain integers instead of pointers for Task's parent
// link lets cancellation traversal look a task up by ID without holding
// a strong reference to it, so a task can be freed while other tasks
// still hold its ID.
type InstanceID uint64
type TaskID uint64
type WaitableSetID uint64
type WaitableID uint64
