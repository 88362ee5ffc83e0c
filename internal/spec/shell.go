package spec

import "time"

// Shell variant defaults. Shell tasks are assumed long-running and
// exit-code-trustworthy unless the configuration says otherwise; callers that
// need timeout enforcement set Daemon explicitly to false.
const (
	shellDefaultDaemon        = true
	shellDefaultTrustExitCode = true
)

// ShellSpec runs an arbitrary shell command plus a sequence of positional
// arguments, each argument shell-escaped before concatenation.
type ShellSpec struct {
	id      string
	name    string
	command string
	cwd     string
	env     map[string]string
	daemon  bool
	trust   bool
	timeout time.Duration
}

// NewShellSpec validates cfg and builds a ShellSpec. The returned value is
// immutable; the command line is composed once, here.
//
// Fails with ErrInvalidConfiguration when Cmd or Name is missing or the
// working directory fails its existence/directory/readability checks.
func NewShellSpec(cfg Config) (*ShellSpec, error) {
	return NewShellSpecWithIDs(cfg, UUIDGenerator)
}

// NewShellSpecWithIDs is NewShellSpec with an injectable ID generator, used
// when the caller omits Config.ID.
func NewShellSpecWithIDs(cfg Config, gen IDGenerator) (*ShellSpec, error) {
	if cfg.Cmd == "" {
		return nil, configErrorf("cmd", "required")
	}
	if err := validateCommon(cfg); err != nil {
		return nil, err
	}
	return &ShellSpec{
		id:      resolveID(cfg.ID, gen),
		name:    cfg.Name,
		command: composeCommand(cfg.Cmd, cfg.Args),
		cwd:     cfg.Cwd,
		env:     copyEnv(cfg.Env),
		daemon:  resolveFlag(cfg.Daemon, shellDefaultDaemon),
		trust:   resolveFlag(cfg.TrustExitCode, shellDefaultTrustExitCode),
		timeout: cfg.Timeout,
	}, nil
}

func (s *ShellSpec) ID() string      { return s.id }
func (s *ShellSpec) Name() string    { return s.name }
func (s *ShellSpec) Command() string { return s.command }
func (s *ShellSpec) Cwd() string     { return s.cwd }

// Env returns the configured additions only; the shell variant adds nothing
// implicitly.
func (s *ShellSpec) Env() map[string]string { return copyEnv(s.env) }

func (s *ShellSpec) IsDaemon() bool         { return s.daemon }
func (s *ShellSpec) Timeout() time.Duration { return s.timeout }
func (s *ShellSpec) TrustExitCode() bool    { return s.trust }

var _ Specification = (*ShellSpec)(nil)
