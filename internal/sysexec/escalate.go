package sysexec

import (
	"context"
	"errors"
	"os"
)

// escalation helpers probed in order of preference.
var escalationHelpers = []string{"sudo", "doas"}

// ErrNoEscalation is returned when a privileged command is requested
// but the process is unprivileged and no escalation helper exists.
var ErrNoEscalation = errors.New("not running as root and no privilege escalation helper (sudo, doas) was found")

// Escalator runs commands with elevated privileges. When the process
// already runs as root, commands execute directly; otherwise they are
// prefixed with the first available escalation helper. It is used only
// for system-wide mutations, never for home directory operations.
type Escalator struct {
	runner Runner
	root   bool
	helper string
}

// NewEscalator probes the current privilege level and the available
// escalation helpers. A missing helper is not an error until a
// privileged command is actually attempted.
func NewEscalator(runner Runner) *Escalator {
	e := &Escalator{runner: runner, root: os.Geteuid() == 0}
	if e.root {
		return e
	}
	for _, helper := range escalationHelpers {
		if _, err := runner.LookPath(helper); err == nil {
			e.helper = helper
			break
		}
	}
	return e
}

// NewEscalatorWith returns an Escalator with a fixed privilege state.
func NewEscalatorWith(runner Runner, root bool, helper string) *Escalator {
	return &Escalator{runner: runner, root: root, helper: helper}
}

// Root reports whether the process already runs with elevated
// privileges.
func (e *Escalator) Root() bool {
	return e.root
}

// Helper returns the escalation helper in use, or empty when running
// as root or when none was found.
func (e *Escalator) Helper() string {
	return e.helper
}

// Run executes a command with elevated privileges.
func (e *Escalator) Run(ctx context.Context, cmd Cmd) error {
	wrapped, err := e.wrap(cmd)
	if err != nil {
		return err
	}
	return e.runner.Run(ctx, wrapped)
}

// Output executes a command with elevated privileges and returns its
// stdout.
func (e *Escalator) Output(ctx context.Context, cmd Cmd) (string, error) {
	wrapped, err := e.wrap(cmd)
	if err != nil {
		return "", err
	}
	return e.runner.Output(ctx, wrapped)
}

func (e *Escalator) wrap(cmd Cmd) (Cmd, error) {
	if e.root {
		return cmd, nil
	}
	if e.helper == "" {
		return Cmd{}, ErrNoEscalation
	}
	return Cmd{
		Name: e.helper,
		Args: append([]string{cmd.Name}, cmd.Args...),
		Dir:  cmd.Dir,
		Env:  cmd.Env,
	}, nil
}
