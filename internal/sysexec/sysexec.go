// Package sysexec runs the external commands provisioning depends on.
// It separates plain user-level execution from privileged execution so
// steps that mutate system paths can be handed an escalating runner
// while everything else stays unprivileged.
package sysexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Cmd describes one external command invocation.
type Cmd struct {
	Name string
	Args []string
	// Dir sets the working directory. Empty inherits the process dir.
	Dir string
	// Env entries are appended to the current environment.
	Env []string
}

// String renders the invocation for logs and error messages.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes external commands. Implementations must be safe for
// sequential reuse; the provisioner never runs commands concurrently.
type Runner interface {
	// Run executes the command, discarding stdout. Failure includes
	// the trailing stderr output in the returned error.
	Run(ctx context.Context, cmd Cmd) error
	// Output executes the command and returns its stdout.
	Output(ctx context.Context, cmd Cmd) (string, error)
	// LookPath reports the absolute path of a binary, or an error if
	// it is not resolvable via the current command lookup path.
	LookPath(name string) (string, error)
}

// Executor is the os/exec backed Runner.
type Executor struct {
	log zerolog.Logger
}

// NewExecutor returns a Runner backed by the host system.
func NewExecutor(log zerolog.Logger) *Executor {
	return &Executor{log: log}
}

func (e *Executor) Run(ctx context.Context, cmd Cmd) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	var stderr bytes.Buffer
	c.Stdout = nil
	c.Stderr = &stderr

	e.log.Debug().Str("command", cmd.String()).Str("dir", cmd.Dir).Msg("running command")
	if err := c.Run(); err != nil {
		return commandError(cmd, err, stderr.String())
	}
	return nil
}

func (e *Executor) Output(ctx context.Context, cmd Cmd) (string, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	e.log.Debug().Str("command", cmd.String()).Str("dir", cmd.Dir).Msg("running command")
	if err := c.Run(); err != nil {
		return "", commandError(cmd, err, stderr.String())
	}
	return stdout.String(), nil
}

func (e *Executor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// commandError wraps a command failure with the tail of its stderr so
// the message carries the external tool's own diagnostic.
func commandError(cmd Cmd, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("command %q failed: %w", cmd.String(), err)
	}
	const maxStderr = 512
	if len(stderr) > maxStderr {
		stderr = "..." + stderr[len(stderr)-maxStderr:]
	}
	return fmt.Errorf("command %q failed: %w: %s", cmd.String(), err, stderr)
}
