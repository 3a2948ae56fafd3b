// Package abierr distinguishes the two failure kinds of the canonical ABI:
// traps, which unwind the enclosing task, and in-band results, which are
// ordinary return values the caller inspects.
package abierr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Trap is a fatal failure of the enclosing task and its transitive
// subtasks. It is raised as a panic; the scheduler recovers it from a
// Task's Body and records it on the Task (Task.Trap), and Recover turns
// it into an error at an embedder-facing boundary.
type Trap struct {
	// Reason is a short machine-checkable tag, e.g. "out-of-bounds",
	// "bad-discriminant", so tests can assert on trap kind without
	// string-matching the message.
	Reason string
	cause  error
}

func (t *Trap) Error() string {
	if t.cause != nil {
		return fmt.Sprintf("trap: %s: %v", t.Reason, t.cause)
	}
	return fmt.Sprintf("trap: %s", t.Reason)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (t *Trap) Unwrap() error { return t.cause }

// New builds a Trap with no further cause.
func New(reason string) *Trap {
	return &Trap{Reason: reason, cause: errors.New(reason)}
}

// Newf builds a Trap with a formatted cause, stack-captured via pkg/errors
// so an embedder can log where in the codec/scheduler the trap originated.
func Newf(reason, format string, args ...any) *Trap {
	return &Trap{Reason: reason, cause: errors.Errorf(format, args...)}
}

// Wrap attaches reason context to an existing error and turns it into a Trap.
func Wrap(reason string, err error) *Trap {
	if err == nil {
		return nil
	}
	return &Trap{Reason: reason, cause: errors.Wrap(err, reason)}
}

// Raise panics with a *Trap. Codec and scheduler internals call this
// wherever a value, handle, or scheduling operation is invalid and must
// abort the call immediately — panicking, rather than threading an
// error return through every lift/lower call, keeps call sites that are
// not supposed to fail (the common path) free of error checks.
func Raise(reason string) {
	panic(New(reason))
}

// Raisef is Raise with a formatted cause.
func Raisef(reason, format string, args ...any) {
	panic(Newf(reason, format, args...))
}

// RaiseIf raises when cond is true.
func RaiseIf(cond bool, reason string) {
	if cond {
		Raise(reason)
	}
}

// Recover converts a panicking *Trap into an error return. Call this in a
// deferred function at every boundary the embedder crosses (canon_lift,
// canon_lower, a scheduler tick) so a Trap never escapes as a bare panic.
func Recover(errp *error) {
	if r := recover(); r != nil {
		if t, ok := r.(*Trap); ok {
			*errp = t
			return
		}
		panic(r)
	}
}
