package task

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arashataei/phlask/internal/spec"
)

// interpreterTask writes a script into its own working directory and builds
// a task that runs it through sh, the one interpreter every test host has.
func interpreterTask(t *testing.T, script string) *Task {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "job.sh")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	s, err := spec.NewInterpreterSpec(spec.Config{
		Interpreter: "sh",
		Script:      path,
		Name:        "script-task",
		Cwd:         dir,
	})
	if err != nil {
		t.Fatalf("building spec: %v", err)
	}
	tk := New(s)
	t.Cleanup(func() { reapIfRunning(t, tk) })
	return tk
}

func TestInterpreterTask_DeliberateExitCodeCaptured(t *testing.T) {
	tk := interpreterTask(t, "exit 200\n")
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)

	if tk.Status() != StatusComplete {
		t.Fatalf("status = %s, want %s", tk.Status(), StatusComplete)
	}
	code, ok := tk.ExitCode()
	if !ok || code != 200 {
		t.Fatalf("ExitCode() = (%d, %v), want (200, true)", code, ok)
	}
	if _, ok := tk.TermSignal(); ok {
		t.Fatalf("TermSignal must be absent after a normal exit")
	}
}

func TestInterpreterTask_FatalErrorExitCodeCaptured(t *testing.T) {
	// Interpreters report their own fatal errors as ordinary exits with a
	// reserved code; the engine records the number and the trust flag tells
	// the caller not to read meaning into it.
	tk := interpreterTask(t, "exit 255\n")
	if err := tk.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	pollUntilTerminal(t, tk, 5*time.Second)

	code, ok := tk.ExitCode()
	if !ok || code != 255 {
		t.Fatalf("ExitCode() = (%d, %v), want (255, true)", code, ok)
	}
	if tk.Spec().TrustExitCode() {
		t.Fatalf("interpreter task should not trust its exit code by default")
	}
}
