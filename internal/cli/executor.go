package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/arashataei/phlask/internal/specfile"
	"github.com/arashataei/phlask/internal/task"
)

// termGrace is how long a terminated task gets to die before the supervisor
// escalates to SIGKILL.
const termGrace = 5 * time.Second

// Outcome is the observed end state of one supervised task.
type Outcome struct {
	ID     string
	Name   string
	Status task.Status

	// ExitCode is set only when Status is COMPLETE.
	ExitCode *int

	// TermSignal is set only when Status is SIGNALED.
	TermSignal *syscall.Signal

	Runtime time.Duration

	// SpawnErr is set when the task never left NEW because the OS spawn
	// failed; no other fields beyond ID/Name/Status are meaningful then.
	SpawnErr error
}

// Result is the summary of a supervisor run.
type Result struct {
	ExitCode int
	Outcomes []Outcome
}

// Execute loads the task definitions named by the invocation and supervises
// them to terminal states, reporting to stdout.
func Execute(ctx context.Context, inv Invocation) (Result, error) {
	return ExecuteWithOutput(ctx, inv, os.Stdout)
}

// ExecuteWithOutput is Execute with an injected report writer, used by tests.
func ExecuteWithOutput(ctx context.Context, inv Invocation, out io.Writer) (Result, error) {
	specs, err := specfile.Load(inv.SpecPath, inv.WorkDir)
	if err != nil {
		return Result{ExitCode: ExitConfigError},
			&InvocationError{ExitCode: ExitConfigError, Message: err.Error()}
	}

	tasks := make([]*task.Task, 0, len(specs))
	for _, s := range specs {
		tasks = append(tasks, task.New(s))
	}
	return Supervise(ctx, tasks, inv.PollInterval, out)
}

// Supervise runs every task and drives all of them to terminal states from a
// single control thread: one cooperative polling loop, no goroutines.
//
// The loop runs until every task finished on its own or the context is
// cancelled; daemon tasks run indefinitely, so a run containing one ends
// only by cancellation. On shutdown, still-running tasks are terminated and
// polled to their SIGNALED states, with a SIGKILL escalation after a grace
// period.
func Supervise(ctx context.Context, tasks []*task.Task, interval time.Duration, out io.Writer) (Result, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	spawnErrs := make(map[*task.Task]error)
	for _, t := range tasks {
		if err := t.Run(); err != nil {
			spawnErrs[t] = err
			fmt.Fprintf(out, "task %s (%s): spawn failed: %v\n", t.Name(), t.ID(), err)
			continue
		}
		fmt.Fprintf(out, "task %s (%s): started pid=%d\n", t.Name(), t.ID(), t.Pid())
	}

	// Main loop: poll until everything finished on its own terms or the
	// context asks for shutdown.
	for !settled(tasks, spawnErrs) && ctx.Err() == nil {
		if err := sweep(tasks, spawnErrs, out); err != nil {
			return Result{ExitCode: ExitInternalError}, err
		}
		sleepOrDone(ctx, interval)
	}

	// Shutdown: terminate whatever still runs (daemons, or everything on
	// cancellation) and poll the deaths in.
	if err := drain(tasks, spawnErrs, interval, out); err != nil {
		return Result{ExitCode: ExitInternalError}, err
	}

	res := summarize(tasks, spawnErrs)
	for _, o := range res.Outcomes {
		reportOutcome(out, o)
	}
	return res, nil
}

// sweep polls every running task once.
func sweep(tasks []*task.Task, spawnErrs map[*task.Task]error, out io.Writer) error {
	for _, t := range tasks {
		if _, failed := spawnErrs[t]; failed {
			continue
		}
		before := t.Status()
		if err := t.StatusCheck(); err != nil {
			return err
		}
		if after := t.Status(); after != before && after.Terminal() {
			fmt.Fprintf(out, "task %s (%s): %s\n", t.Name(), t.ID(), after)
		}
	}
	return nil
}

// settled reports whether the supervised work is finished on its own terms:
// every non-daemon task terminal and no daemon still running. A run with
// live daemons never settles; it ends only on context cancellation, which is
// what "expected to run indefinitely" means to a supervisor.
func settled(tasks []*task.Task, spawnErrs map[*task.Task]error) bool {
	for _, t := range tasks {
		if _, failed := spawnErrs[t]; failed {
			continue
		}
		if !t.Status().Terminal() {
			return false
		}
	}
	return true
}

// drain terminates every still-running task and polls until all are
// terminal. Tasks that ignore the default signal past the grace period get
// SIGKILL, which cannot be ignored.
func drain(tasks []*task.Task, spawnErrs map[*task.Task]error, interval time.Duration, out io.Writer) error {
	anyRunning := false
	for _, t := range tasks {
		if _, failed := spawnErrs[t]; failed {
			continue
		}
		if t.Status() == task.StatusRunning {
			anyRunning = true
			fmt.Fprintf(out, "task %s (%s): terminating\n", t.Name(), t.ID())
			if err := t.Terminate(); err != nil {
				return err
			}
		}
	}
	if !anyRunning {
		return nil
	}

	deadline := time.Now().Add(termGrace)
	killed := false
	for {
		allTerminal := true
		for _, t := range tasks {
			if _, failed := spawnErrs[t]; failed {
				continue
			}
			if t.Status().Terminal() {
				continue
			}
			if err := t.StatusCheck(); err != nil {
				return err
			}
			if !t.Status().Terminal() {
				allTerminal = false
				if !killed && time.Now().After(deadline) {
					if err := t.TerminateWith(syscall.SIGKILL); err != nil {
						return err
					}
				}
			}
		}
		if allTerminal {
			return nil
		}
		if time.Now().After(deadline) {
			killed = true
		}
		time.Sleep(interval)
	}
}

// summarize derives the per-task outcomes and the semantic exit code.
//
// Failure accounting:
//   - A spawn failure is a failure.
//   - A non-daemon task that was signaled (timeout or otherwise) is a
//     failure; daemons are terminated by the supervisor itself, so SIGNALED
//     is their expected end.
//   - A COMPLETE task with a non-zero exit code is a failure only when its
//     specification trusts the exit code.
func summarize(tasks []*task.Task, spawnErrs map[*task.Task]error) Result {
	res := Result{ExitCode: ExitSuccess}
	for _, t := range tasks {
		o := Outcome{ID: t.ID(), Name: t.Name(), Status: t.Status(), Runtime: t.Runtime()}
		if err, failed := spawnErrs[t]; failed {
			o.SpawnErr = err
			res.ExitCode = ExitTaskFailure
			res.Outcomes = append(res.Outcomes, o)
			continue
		}
		if code, ok := t.ExitCode(); ok {
			c := code
			o.ExitCode = &c
			if c != 0 && t.Spec().TrustExitCode() {
				res.ExitCode = ExitTaskFailure
			}
		}
		if sig, ok := t.TermSignal(); ok {
			s := sig
			o.TermSignal = &s
			if !t.Spec().IsDaemon() {
				res.ExitCode = ExitTaskFailure
			}
		}
		res.Outcomes = append(res.Outcomes, o)
	}
	return res
}

func reportOutcome(out io.Writer, o Outcome) {
	switch {
	case o.SpawnErr != nil:
		fmt.Fprintf(out, "result %s (%s): never started: %v\n", o.Name, o.ID, o.SpawnErr)
	case o.ExitCode != nil:
		fmt.Fprintf(out, "result %s (%s): %s exit=%d runtime=%v\n", o.Name, o.ID, o.Status, *o.ExitCode, o.Runtime)
	case o.TermSignal != nil:
		fmt.Fprintf(out, "result %s (%s): %s signal=%d runtime=%v\n", o.Name, o.ID, o.Status, int(*o.TermSignal), o.Runtime)
	default:
		fmt.Fprintf(out, "result %s (%s): %s\n", o.Name, o.ID, o.Status)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
