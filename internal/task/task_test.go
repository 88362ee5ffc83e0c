package task

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/arashataei/phlask/internal/spec"
)

func boolPtr(b bool) *bool { return &b }

// shellTask builds a non-daemon shell task; most scenarios want timeout
// semantics available, so daemon is off unless a test opts back in.
func shellTask(t *testing.T, cfg spec.Config) *Task {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "test-task"
	}
	if cfg.Cwd == "" {
		cfg.Cwd = t.TempDir()
	}
	if cfg.Daemon == nil {
		cfg.Daemon = boolPtr(false)
	}
	s, err := spec.NewShellSpec(cfg)
	if err != nil {
		t.Fatalf("building spec: %v", err)
	}
	tk := New(s)
	t.Cleanup(func() { reapIfRunning(t, tk) })
	return tk
}

// reapIfRunning force-kills and reaps a task a test left running so no
// zombie outlives the test binary.
func reapIfRunning(t *testing.T, tk *Task) {
	t.Helper()
	if tk.Status() != StatusRunning {
		return
	}
	_ = tk.TerminateWith(syscall.SIGKILL)
	deadline := time.Now().Add(5 * time.Second)
	for !tk.Status().Terminal() && time.Now().Before(deadline) {
		_ = tk.StatusCheck()
		time.Sleep(10 * time.Millisecond)
	}
}

// pollUntilTerminal drives the cooperative polling contract: sleep-then-check
// until a terminal state or the deadline.
func pollUntilTerminal(t *testing.T, tk *Task, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := tk.StatusCheck(); err != nil {
			t.Fatalf("status check: %v", err)
		}
		if tk.Status().Terminal() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %q did not reach a terminal state within %v (status %s)", tk.Name(), timeout, tk.Status())
}

func TestRun_SpawnsProcessAndRecordsPid(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "sleep 30"})

	if tk.Pid() != 0 {
		t.Fatalf("pid before Run = %d, want 0", tk.Pid())
	}
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if tk.Status() != StatusRunning {
		t.Fatalf("status = %s, want %s", tk.Status(), StatusRunning)
	}
	if tk.Pid() <= 1 {
		t.Fatalf("pid = %d, want a real process id", tk.Pid())
	}
}

func TestRun_Twice_RejectedAsInvalidState(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "sleep 30"})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := tk.Run(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Run: expected ErrInvalidState, got %v", err)
	}
}

func TestRun_SpawnFailure_TaskStaysNew(t *testing.T) {
	dir := t.TempDir()
	s, err := spec.NewShellSpec(spec.Config{Cmd: "echo hi", Name: "doomed", Cwd: dir, Daemon: boolPtr(false)})
	if err != nil {
		t.Fatalf("building spec: %v", err)
	}
	// The directory passed its static checks; remove it so the chdir at
	// spawn time fails.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tk := New(s)
	err = tk.Run()
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if tk.Status() != StatusNew {
		t.Fatalf("status after failed spawn = %s, want %s", tk.Status(), StatusNew)
	}
	if tk.Pid() != 0 {
		t.Fatalf("pid after failed spawn = %d, want 0", tk.Pid())
	}
}

func TestStatusCheck_OnNewTask_RejectedAsInvalidState(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "echo hi"})
	if err := tk.StatusCheck(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestStatusCheck_NormalExit_CapturesCodeIdempotently(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "exit 7"})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)

	if tk.Status() != StatusComplete {
		t.Fatalf("status = %s, want %s", tk.Status(), StatusComplete)
	}
	code, ok := tk.ExitCode()
	if !ok || code != 7 {
		t.Fatalf("ExitCode() = (%d, %v), want (7, true)", code, ok)
	}
	if _, ok := tk.TermSignal(); ok {
		t.Fatalf("TermSignal must be absent in %s", StatusComplete)
	}
	if tk.Runtime() <= 0 {
		t.Fatalf("Runtime() = %v, want > 0", tk.Runtime())
	}

	// Repeated polling after the terminal state is a pure read.
	runtime := tk.Runtime()
	for i := 0; i < 3; i++ {
		if err := tk.StatusCheck(); err != nil {
			t.Fatalf("status check after terminal: %v", err)
		}
	}
	if code2, ok := tk.ExitCode(); !ok || code2 != 7 {
		t.Fatalf("exit code lost after repeated polls: (%d, %v)", code2, ok)
	}
	if tk.Status() != StatusComplete {
		t.Fatalf("status changed after repeated polls: %s", tk.Status())
	}
	if tk.Runtime() != runtime {
		t.Fatalf("runtime changed after repeated polls: %v != %v", tk.Runtime(), runtime)
	}
}

func TestStatusCheck_IsNonBlockingWhileProcessRuns(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "sleep 30"})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := tk.StatusCheck(); err != nil {
			t.Fatalf("status check: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("50 polls of a live process took %v; StatusCheck must not block", elapsed)
	}
	if tk.Status() != StatusRunning {
		t.Fatalf("status = %s, want %s", tk.Status(), StatusRunning)
	}
}

func TestTerminate_DefaultSignal_ObservedAsSignaled(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "sleep 30"})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := tk.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	// Terminate does not transition by itself; the death is observed by
	// polling.
	pollUntilTerminal(t, tk, 5*time.Second)

	if tk.Status() != StatusSignaled {
		t.Fatalf("status = %s, want %s", tk.Status(), StatusSignaled)
	}
	sig, ok := tk.TermSignal()
	if !ok || sig != syscall.SIGTERM {
		t.Fatalf("TermSignal() = (%v, %v), want (SIGTERM, true)", sig, ok)
	}
	if _, ok := tk.ExitCode(); ok {
		t.Fatalf("ExitCode must be absent in %s", StatusSignaled)
	}
	if tk.Runtime() <= 0 {
		t.Fatalf("Runtime() = %v, want > 0", tk.Runtime())
	}
}

func TestTerminateWith_CustomSignal(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "sleep 30"})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := tk.TerminateWith(syscall.SIGABRT); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)

	sig, ok := tk.TermSignal()
	if !ok || sig != syscall.SIGABRT {
		t.Fatalf("TermSignal() = (%v, %v), want (SIGABRT, true)", sig, ok)
	}
}

func TestTerminate_OutsideRunning_RejectedAsInvalidState(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "exit 0"})
	if err := tk.Terminate(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("terminate on NEW: expected ErrInvalidState, got %v", err)
	}

	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)
	if err := tk.Terminate(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("terminate on terminal: expected ErrInvalidState, got %v", err)
	}
}

func TestTerminate_ProcessAlreadyDead_NextPollClassifies(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "exit 0"})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	// Let the process die without polling it; it is a zombie now and the
	// task still believes it is RUNNING.
	time.Sleep(200 * time.Millisecond)

	if err := tk.Terminate(); err != nil {
		t.Fatalf("terminate on dead-but-unreaped process: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)

	// The late signal must not rewrite history: the process exited normally.
	if tk.Status() != StatusComplete {
		t.Fatalf("status = %s, want %s", tk.Status(), StatusComplete)
	}
	if code, ok := tk.ExitCode(); !ok || code != 0 {
		t.Fatalf("ExitCode() = (%d, %v), want (0, true)", code, ok)
	}
}

func TestTimeout_NonDaemonTerminatedByPolling(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "sleep 30", Timeout: 100 * time.Millisecond})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)

	if tk.Status() != StatusSignaled {
		t.Fatalf("status = %s, want %s", tk.Status(), StatusSignaled)
	}
	sig, ok := tk.TermSignal()
	if !ok || sig != DefaultTermSignal {
		t.Fatalf("TermSignal() = (%v, %v), want the default termination signal", sig, ok)
	}
}

func TestTimeout_DaemonPermanentlyExempt(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "sleep 30", Timeout: 50 * time.Millisecond, Daemon: boolPtr(true)})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Poll well past the configured timeout; a daemon must never be
	// timeout-terminated.
	deadline := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(deadline) {
		if err := tk.StatusCheck(); err != nil {
			t.Fatalf("status check: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if tk.Status() != StatusRunning {
		t.Fatalf("daemon was terminated: status = %s", tk.Status())
	}
}

func TestRuntime_ZeroBeforeRunAndFrozenAfterTerminal(t *testing.T) {
	tk := shellTask(t, spec.Config{Cmd: "exit 0"})
	if tk.Runtime() != 0 {
		t.Fatalf("Runtime before Run = %v, want 0", tk.Runtime())
	}
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)

	frozen := tk.Runtime()
	if frozen <= 0 {
		t.Fatalf("Runtime after terminal = %v, want > 0", frozen)
	}
	time.Sleep(50 * time.Millisecond)
	if tk.Runtime() != frozen {
		t.Fatalf("Runtime moved after terminal state: %v != %v", tk.Runtime(), frozen)
	}
}

func TestArgumentEscaping_MetacharactersSurviveAsOneToken(t *testing.T) {
	// "test A = A" exits 0 only if both operands reach the command as the
	// same single token, shell metacharacters and all.
	hostile := `a b;echo$(date)`
	tk := shellTask(t, spec.Config{Cmd: "test", Args: []string{hostile, "=", hostile}})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)

	if code, ok := tk.ExitCode(); !ok || code != 0 {
		t.Fatalf("ExitCode() = (%d, %v), want (0, true): argument was split or interpreted", code, ok)
	}
}

func TestRun_EnvAdditionsOverlayInheritedEnvironment(t *testing.T) {
	// The addition must be visible and the inherited environment must
	// survive the overlay (PATH is how "test" is found at all).
	tk := shellTask(t, spec.Config{
		Cmd:  `test "$PHLASK_TEST_VAR" = hello -a -n "$PATH"`,
		Env:  map[string]string{"PHLASK_TEST_VAR": "hello"},
		Name: "env-overlay",
	})
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)

	if code, ok := tk.ExitCode(); !ok || code != 0 {
		t.Fatalf("ExitCode() = (%d, %v), want (0, true)", code, ok)
	}
}
