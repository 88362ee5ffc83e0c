package spec

import "time"

// Interpreter variant defaults. Scripts are expected to terminate, and an
// interpreter's own fatal-error exit codes are not semantically equivalent to
// a deliberate program exit, so the exit code is untrusted by default.
const (
	interpreterDefaultDaemon        = false
	interpreterDefaultTrustExitCode = false
)

// InterpreterSpec runs a script file through a named interpreter executable,
// e.g. a PHP worker through the php binary.
type InterpreterSpec struct {
	id      string
	name    string
	command string
	cwd     string
	env     map[string]string
	daemon  bool
	trust   bool
	timeout time.Duration
}

// NewInterpreterSpec validates cfg and builds an InterpreterSpec.
//
// Fails with ErrInvalidConfiguration when Interpreter, Script, or Name is
// missing or the working directory fails its checks.
func NewInterpreterSpec(cfg Config) (*InterpreterSpec, error) {
	return NewInterpreterSpecWithIDs(cfg, UUIDGenerator)
}

// NewInterpreterSpecWithIDs is NewInterpreterSpec with an injectable ID
// generator, used when the caller omits Config.ID.
func NewInterpreterSpecWithIDs(cfg Config, gen IDGenerator) (*InterpreterSpec, error) {
	if cfg.Interpreter == "" {
		return nil, configErrorf("interpreter", "required")
	}
	if cfg.Script == "" {
		return nil, configErrorf("script", "required")
	}
	if err := validateCommon(cfg); err != nil {
		return nil, err
	}
	return &InterpreterSpec{
		id:      resolveID(cfg.ID, gen),
		name:    cfg.Name,
		command: composeCommand(Quote(cfg.Interpreter)+" "+Quote(cfg.Script), cfg.Args),
		cwd:     cfg.Cwd,
		env:     copyEnv(cfg.Env),
		daemon:  resolveFlag(cfg.Daemon, interpreterDefaultDaemon),
		trust:   resolveFlag(cfg.TrustExitCode, interpreterDefaultTrustExitCode),
		timeout: cfg.Timeout,
	}, nil
}

func (s *InterpreterSpec) ID() string      { return s.id }
func (s *InterpreterSpec) Name() string    { return s.name }
func (s *InterpreterSpec) Command() string { return s.command }
func (s *InterpreterSpec) Cwd() string     { return s.cwd }

func (s *InterpreterSpec) Env() map[string]string { return copyEnv(s.env) }

func (s *InterpreterSpec) IsDaemon() bool         { return s.daemon }
func (s *InterpreterSpec) Timeout() time.Duration { return s.timeout }
func (s *InterpreterSpec) TrustExitCode() bool    { return s.trust }

var _ Specification = (*InterpreterSpec)(nil)
