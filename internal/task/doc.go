// Package task implements the process-lifecycle state machine that runs one
// validated specification as one OS process.
//
// It is intentionally split into:
//   - Immutable inputs: the owned Specification and, once spawned, the pid.
//   - Mutable execution state: the NEW -> RUNNING -> {COMPLETE | SIGNALED}
//     machine plus the terminal fields (exit code or termination signal).
//
// The scheduling model is single-threaded cooperative polling. The engine
// creates no goroutines, timers, or locks; every transition beyond RUNNING
// happens synchronously inside a caller-invoked StatusCheck, which inspects
// the child with a non-blocking wait and returns immediately either way. This
// lets an external scheduler poll many tasks from one control thread without
// per-task thread overhead.
//
// A Task is owned and polled by exactly one logical caller at a time and is
// single-use: re-running work requires a new Task.
package task
