package command

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Spec describes one subprocess invocation
type Spec struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the parent environment
}

// String renders the command line for logs
func (s Spec) String() string {
	return strings.TrimSpace(s.Name + " " + strings.Join(s.Args, " "))
}

// Result holds the captured output of a finished subprocess
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external tools. Converters and extraction engines depend on
// it so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, spec Spec) (Result, error)

// Run calls f(ctx, spec)
func (f RunnerFunc) Run(ctx context.Context, spec Spec) (Result, error) {
	return f(ctx, spec)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run starts the command and waits for it, capturing stdout and stderr.
// A non-zero exit is returned as an error together with the captured output.
func (ExecRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s: %w", spec.Name, ctx.Err())
		}
		return res, fmt.Errorf("%s exited with code %d: %w", spec.Name, res.ExitCode, err)
	}

	return res, nil
}

// Locate returns the first candidate path that exists as a regular file, then
// falls back to a PATH lookup of each name. It returns "" when nothing is found.
func Locate(candidates []string, names ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}

	for _, name := range names {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}

	return ""
}
