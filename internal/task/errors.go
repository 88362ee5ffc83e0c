package task

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is the kind for operations invoked outside their
	// valid state. It indicates caller misuse, not a transient fault.
	ErrInvalidState = errors.New("invalid task state")

	// ErrSpawn is the kind for OS process-creation failures. The Task
	// remains in NEW; spawn never leaves it half-running.
	ErrSpawn = errors.New("spawn failed")
)

// StateError wraps an ErrInvalidState occurrence with the rejected operation
// and the state it was attempted in.
type StateError struct {
	Op    string
	State Status
}

func (e *StateError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: cannot %s in state %s", ErrInvalidState.Error(), e.Op, e.State)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

func stateErrorf(op string, st Status) error {
	return &StateError{Op: op, State: st}
}

// SpawnError wraps an ErrSpawn occurrence with the command that failed and
// the underlying OS error.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %q: %v", ErrSpawn.Error(), e.Command, e.Err)
}

// Is makes errors.Is(err, ErrSpawn) match while Unwrap still exposes the OS
// cause chain.
func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

func (e *SpawnError) Unwrap() error { return e.Err }
