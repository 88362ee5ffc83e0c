package spec

import (
	"os"
	"time"
)

// Specification is the contract shared by all task variants.
//
// A Specification is immutable once constructed; the task engine depends only
// on this contract, never on concrete variants.
type Specification interface {
	// ID uniquely identifies the task among concurrently active tasks.
	// Caller-supplied, or generated at construction time when absent.
	ID() string

	// Name is the human-readable task name. Never empty.
	Name() string

	// Command is the fully resolved command line, safe to hand to a shell.
	// Argument escaping is the variant's responsibility.
	Command() string

	// Env returns additional environment variables to overlay on the
	// inherited process environment. An empty map means "no additions".
	Env() map[string]string

	// Cwd is the working directory the process is spawned in. Validated at
	// construction time to exist, be a directory, and be readable.
	Cwd() string

	// IsDaemon reports whether the process is expected to run indefinitely.
	// Daemon tasks are permanently exempt from timeout enforcement.
	IsDaemon() bool

	// Timeout is the per-task time limit. Zero means "no timeout".
	// Ignored entirely when IsDaemon is true.
	Timeout() time.Duration

	// TrustExitCode reports whether the numeric exit code is a meaningful
	// success/failure indicator. Some interpreters return unreliable codes
	// for certain failure modes; the caller decides how much weight to give
	// the code, the engine never guesses.
	TrustExitCode() bool
}

// Config is the input record for the variant factories.
//
// Required fields depend on the variant: shell tasks require Cmd, interpreter
// tasks require Interpreter and Script. Name and Cwd are required everywhere.
// Everything else is optional; unrecognized inputs at the file boundary are
// ignored, not errors.
type Config struct {
	// Cmd is the base command for shell tasks.
	Cmd string

	// Interpreter is the interpreter executable for interpreter tasks.
	Interpreter string

	// Script is the script file for interpreter tasks.
	Script string

	// Name is the required, non-empty human-readable name.
	Name string

	// Cwd is the required working directory.
	Cwd string

	// Args are positional arguments, each individually shell-escaped before
	// command composition.
	Args []string

	// ID is the optional caller-supplied identifier. Generated when empty.
	ID string

	// Env holds additional environment variables. Optional.
	Env map[string]string

	// Timeout is the optional time limit. Must be non-negative.
	Timeout time.Duration

	// Daemon overrides the variant's daemon default when non-nil.
	Daemon *bool

	// TrustExitCode overrides the variant's exit-code trust default when
	// non-nil.
	TrustExitCode *bool
}

// validateCommon checks the fields every variant requires.
func validateCommon(cfg Config) error {
	if cfg.Name == "" {
		return configErrorf("name", "required")
	}
	if cfg.Timeout < 0 {
		return configErrorf("timeout", "must be non-negative (got %v)", cfg.Timeout)
	}
	return validateCwd(cfg.Cwd)
}

// validateCwd enforces the working-directory invariant: the path must exist,
// be a directory, and be readable at construction time.
func validateCwd(cwd string) error {
	if cwd == "" {
		return configErrorf("cwd", "required")
	}
	info, err := os.Stat(cwd)
	if err != nil {
		if os.IsNotExist(err) {
			return configErrorf("cwd", "does not exist: %q", cwd)
		}
		return configErrorf("cwd", "not accessible: %v", err)
	}
	if !info.IsDir() {
		return configErrorf("cwd", "not a directory: %q", cwd)
	}
	// Opening the directory is the readability check; a stat alone does not
	// prove read permission.
	f, err := os.Open(cwd)
	if err != nil {
		return configErrorf("cwd", "not readable: %q", cwd)
	}
	_ = f.Close()
	return nil
}

// copyEnv returns a defensive copy so the Specification stays immutable even
// if the caller mutates the Config map afterwards.
func copyEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// resolveFlag applies an optional tri-state override over a variant default.
func resolveFlag(override *bool, def bool) bool {
	if override != nil {
		return *override
	}
	return def
}
