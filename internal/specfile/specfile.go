// Package specfile loads task definitions from a YAML file and materializes
// them into validated specifications.
//
// The file boundary is deliberately thin: it maps recognized keys onto the
// factory Config record and lets the factories do all validation.
// Unrecognized keys are ignored, not errors.
package specfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arashataei/phlask/internal/spec"
)

// File is the top-level YAML document shape.
type File struct {
	Tasks []Definition `yaml:"tasks"`
}

// Definition is one task entry as written in the file.
//
// Variant selection: an explicit "type" of "shell" or "interpreter" wins;
// otherwise the presence of interpreter/script selects the interpreter
// variant and cmd selects the shell variant.
type Definition struct {
	Name          string            `yaml:"name"`
	Type          string            `yaml:"type"`
	Cmd           string            `yaml:"cmd"`
	Interpreter   string            `yaml:"interpreter"`
	Script        string            `yaml:"script"`
	Args          []string          `yaml:"args"`
	Cwd           string            `yaml:"cwd"`
	ID            string            `yaml:"id"`
	Env           map[string]string `yaml:"env"`
	TimeoutMS     int64             `yaml:"timeout_ms"`
	Daemon        *bool             `yaml:"daemon"`
	TrustExitCode *bool             `yaml:"trust_exit_code"`
}

const (
	typeShell       = "shell"
	typeInterpreter = "interpreter"
)

// Load reads and parses path, resolving relative working directories against
// workDir, and returns one validated specification per task entry.
func Load(path, workDir string) ([]spec.Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec file: %w", err)
	}
	return Parse(data, workDir)
}

// Parse parses YAML task definitions and builds specifications through the
// validating factories. The first invalid definition aborts the parse; a
// partially usable set is never returned.
func Parse(data []byte, workDir string) ([]spec.Specification, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse spec file: %w", err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("spec file defines no tasks")
	}

	specs := make([]spec.Specification, 0, len(f.Tasks))
	for i, def := range f.Tasks {
		s, err := build(def, workDir)
		if err != nil {
			return nil, fmt.Errorf("task %d (%q): %w", i, def.Name, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

func build(def Definition, workDir string) (spec.Specification, error) {
	cfg := spec.Config{
		Cmd:           def.Cmd,
		Interpreter:   def.Interpreter,
		Script:        def.Script,
		Name:          def.Name,
		Cwd:           resolveCwd(def.Cwd, workDir),
		Args:          def.Args,
		ID:            def.ID,
		Env:           def.Env,
		Timeout:       time.Duration(def.TimeoutMS) * time.Millisecond,
		Daemon:        def.Daemon,
		TrustExitCode: def.TrustExitCode,
	}

	switch variant(def) {
	case typeShell:
		return spec.NewShellSpec(cfg)
	case typeInterpreter:
		return spec.NewInterpreterSpec(cfg)
	default:
		return nil, fmt.Errorf("unknown task type %q", def.Type)
	}
}

func variant(def Definition) string {
	if def.Type != "" {
		return def.Type
	}
	if def.Interpreter != "" || def.Script != "" {
		return typeInterpreter
	}
	return typeShell
}

// resolveCwd resolves a relative working directory against workDir. An empty
// cwd stays empty so the factory reports the missing field itself.
func resolveCwd(cwd, workDir string) string {
	if cwd == "" {
		return ""
	}
	if filepath.IsAbs(cwd) {
		return filepath.Clean(cwd)
	}
	return filepath.Join(workDir, cwd)
}
