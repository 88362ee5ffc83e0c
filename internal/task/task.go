package task

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/arashataei/phlask/internal/spec"
)

// DefaultTermSignal is the policy-default termination signal, used by
// Terminate and by timeout enforcement.
const DefaultTermSignal = syscall.SIGTERM

// Task owns one spawned OS process for the lifetime of one execution attempt.
//
// Zero synchronization by design: a Task is owned and polled by exactly one
// logical caller; calling StatusCheck concurrently from multiple control
// flows on the same Task is not a supported contract.
type Task struct {
	spec spec.Specification

	pid int

	status     Status
	exitCode   int
	exited     bool
	termSignal syscall.Signal
	signaled   bool

	startedAt time.Time
	endedAt   time.Time

	// timeoutFired latches the one-shot timeout SIGTERM so a poll past the
	// deadline does not re-deliver on every sweep.
	timeoutFired bool
}

// New creates a Task in NEW owning the given specification.
func New(s spec.Specification) *Task {
	return &Task{spec: s, status: StatusNew}
}

// Run spawns the OS process described by the specification and transitions
// NEW -> RUNNING.
//
// The command line runs under "sh -c" in the specification's working
// directory, with the inherited environment overlaid by the specification's
// additions. The pid and start time are recorded once, here.
//
// Fails with ErrInvalidState when the Task is not NEW (prevents
// double-spawn) and with ErrSpawn when the OS cannot create the process; on
// spawn failure the Task remains NEW.
func (t *Task) Run() error {
	if t.status != StatusNew {
		return stateErrorf("run", t.status)
	}

	cmd := exec.Command("sh", "-c", t.spec.Command())
	cmd.Dir = t.spec.Cwd()
	cmd.Env = overlayEnv(os.Environ(), t.spec.Env())

	if err := cmd.Start(); err != nil {
		return &SpawnError{Command: t.spec.Command(), Err: err}
	}

	t.pid = cmd.Process.Pid
	t.startedAt = time.Now()
	t.status = StatusRunning
	return nil
}

// StatusCheck performs one non-blocking inspection of the child process.
//
// From RUNNING it queries the OS with a WNOHANG wait and returns immediately
// whether or not the process has died:
//   - Normal exit: captures the exit code, records the end time, transitions
//     to COMPLETE.
//   - Signal death: captures the signal, records the end time, transitions
//     to SIGNALED. No exit code exists in this case.
//   - Still alive: when the specification is not a daemon, has a timeout,
//     and the elapsed time exceeds it, delivers the default termination
//     signal as a side effect and stays RUNNING; the SIGNALED transition is
//     observed on a later poll once the OS reports the death.
//
// Once terminal, StatusCheck is a pure read: repeated calls mutate nothing
// and the captured exit code / signal are never lost. Callers poll in a loop
// and may well call once more after observing the terminal state.
//
// The successful terminal observation is also the reap; a caller that never
// polls never observes completion and leaves a zombie behind.
func (t *Task) StatusCheck() error {
	if t.status.Terminal() {
		return nil
	}
	if t.status != StatusRunning {
		return stateErrorf("status-check", t.status)
	}

	var ws syscall.WaitStatus
	wpid, err := wait4NoHang(t.pid, &ws)
	if err != nil {
		return fmt.Errorf("wait on pid %d: %w", t.pid, err)
	}
	if wpid == 0 {
		// Still alive.
		t.enforceTimeout()
		return nil
	}

	switch {
	case ws.Exited():
		t.exitCode = ws.ExitStatus()
		t.exited = true
		t.endedAt = time.Now()
		t.status = StatusComplete
	case ws.Signaled():
		t.termSignal = ws.Signal()
		t.signaled = true
		t.endedAt = time.Now()
		t.status = StatusSignaled
	default:
		// Stop/continue reports are not requested (no WUNTRACED); if one
		// surfaces anyway the process is not dead, so stay RUNNING.
	}
	return nil
}

// enforceTimeout piggybacks on the poll: past the deadline it sends the
// default termination signal once. Daemon tasks are permanently exempt.
// Delivery failure is not fatal; the next poll classifies the death.
func (t *Task) enforceTimeout() {
	if t.timeoutFired || t.spec.IsDaemon() {
		return
	}
	timeout := t.spec.Timeout()
	if timeout <= 0 || time.Since(t.startedAt) <= timeout {
		return
	}
	t.timeoutFired = true
	_ = deliverSignal(t.pid, DefaultTermSignal)
}

// Terminate requests early termination with the default signal.
//
// Valid only while RUNNING; any other state returns ErrInvalidState.
// Terminate does not itself change the status: the caller observes the
// SIGNALED transition through a subsequent StatusCheck.
func (t *Task) Terminate() error {
	return t.TerminateWith(DefaultTermSignal)
}

// TerminateWith is Terminate with a caller-chosen signal.
//
// Delivery to a process that already died but has not been reaped yet is not
// an error; the next StatusCheck observes and classifies the death.
func (t *Task) TerminateWith(sig syscall.Signal) error {
	if t.status != StatusRunning {
		return stateErrorf("terminate", t.status)
	}
	if err := deliverSignal(t.pid, sig); err != nil {
		return fmt.Errorf("signal pid %d: %w", t.pid, err)
	}
	return nil
}

// Pid returns the OS process identifier, or 0 before Run.
func (t *Task) Pid() int { return t.pid }

// Status returns the current lifecycle state.
func (t *Task) Status() Status { return t.status }

// Name returns the specification's human-readable name.
func (t *Task) Name() string { return t.spec.Name() }

// ID returns the specification's unique identifier.
func (t *Task) ID() string { return t.spec.ID() }

// Spec returns the owned specification.
func (t *Task) Spec() spec.Specification { return t.spec }

// ExitCode returns the captured exit code. It is present only in COMPLETE;
// in every other state ok is false and the value must not be read.
func (t *Task) ExitCode() (code int, ok bool) {
	return t.exitCode, t.exited
}

// TermSignal returns the captured termination signal. It is present only in
// SIGNALED; in every other state ok is false.
func (t *Task) TermSignal() (sig syscall.Signal, ok bool) {
	return t.termSignal, t.signaled
}

// Runtime returns the elapsed execution time: endedAt-startedAt once
// terminal (frozen thereafter), the elapsed time so far while RUNNING, and
// zero before Run.
func (t *Task) Runtime() time.Duration {
	switch {
	case t.status.Terminal():
		return t.endedAt.Sub(t.startedAt)
	case t.status == StatusRunning:
		return time.Since(t.startedAt)
	default:
		return 0
	}
}

// wait4NoHang queries the child's state without blocking. A zero pid result
// means the child is still alive.
func wait4NoHang(pid int, ws *syscall.WaitStatus) (int, error) {
	for {
		wpid, err := syscall.Wait4(pid, ws, syscall.WNOHANG, nil)
		if err == syscall.EINTR {
			continue
		}
		return wpid, err
	}
}

// deliverSignal sends sig to pid. ESRCH means the process is already gone,
// which callers treat as success: the death is classified by the next poll.
func deliverSignal(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(pid, sig); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}

// overlayEnv appends the additions to the inherited environment. The OS exec
// layer uses the last value for a duplicated key, so additions override
// inherited variables of the same name without replacing the environment.
func overlayEnv(inherited []string, additions map[string]string) []string {
	if len(additions) == 0 {
		return inherited
	}
	env := make([]string, 0, len(inherited)+len(additions))
	env = append(env, inherited...)
	for k, v := range additions {
		env = append(env, k+"="+v)
	}
	return env
}
