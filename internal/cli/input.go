package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

const (
	ExitSuccess           = 0
	ExitTaskFailure       = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// DefaultPollInterval is the sleep between status sweeps. Short enough that
// timeout enforcement stays close to schedule, long enough not to busy-spin.
const DefaultPollInterval = 50 * time.Millisecond

// Invocation is the fully canonicalized description of a supervisor run.
//
// All relative paths are resolved against WorkDir.
//
// NOTE: WorkDir is required and must be absolute; this prevents any
// dependency on the process current working directory.
type Invocation struct {
	SpecPath     string
	WorkDir      string
	PollInterval time.Duration

	OriginalSpec string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to its semantic process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.ExitCode
	}
	return ExitInternalError
}

// ParseInvocation parses CLI flags into a canonical Invocation.
//
// No env-var defaults and no reliance on the process CWD: the working
// directory is explicit and absolute.
func ParseInvocation(args []string) (Invocation, error) {
	fs := flag.NewFlagSet("phlask", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var workDir string
	var specPath string
	var pollInterval time.Duration

	fs.StringVar(&workDir, "workdir", "", "Absolute working directory. Required.")
	fs.StringVar(&specPath, "spec", "", "Task definition file. Required.")
	fs.DurationVar(&pollInterval, "poll-interval", DefaultPollInterval, "Sleep between status sweeps.")

	if err := fs.Parse(args); err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	if workDir == "" {
		return Invocation{}, invalidInvocationf("--workdir is required")
	}
	workDir = filepath.Clean(workDir)
	if !filepath.IsAbs(workDir) {
		return Invocation{}, invalidInvocationf("--workdir must be an absolute path (got %q)", workDir)
	}

	if specPath == "" {
		return Invocation{}, invalidInvocationf("--spec is required")
	}
	if pollInterval <= 0 {
		return Invocation{}, invalidInvocationf("--poll-interval must be positive (got %v)", pollInterval)
	}

	return Invocation{
		SpecPath:     canonicalPath(specPath, workDir),
		WorkDir:      workDir,
		PollInterval: pollInterval,
		OriginalSpec: specPath,
	}, nil
}

func canonicalPath(p, workDir string) string {
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workDir, p)
}
