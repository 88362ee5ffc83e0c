package task

// Status is the lifecycle state of a Task.
//
// Transitions are monotonic: NEW -> RUNNING -> {COMPLETE | SIGNALED}.
// COMPLETE and SIGNALED are terminal; no transition leaves them, and once
// terminal the captured exit code / termination signal are frozen.
type Status string

const (
	// StatusNew is the initial state: no process has been spawned.
	StatusNew Status = "NEW"

	// StatusRunning means the process was spawned and has not yet been
	// observed dead.
	StatusRunning Status = "RUNNING"

	// StatusComplete means the process exited normally; the exit code is
	// captured.
	StatusComplete Status = "COMPLETE"

	// StatusSignaled means the process was terminated by a signal; the
	// signal is captured and no exit code exists.
	StatusSignaled Status = "SIGNALED"
)

// Terminal reports whether the status is terminal (finished).
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusSignaled:
		return true
	default:
		return false
	}
}
