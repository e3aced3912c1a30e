// Package testutil provides testing utilities shared across packages.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pulsemon/provision/internal/sysexec"
)

// NewTestLogger creates a test logger that outputs to t.Log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

// NopLogger returns a no-op logger for tests that don't need output.
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// Call records one command passed to the FakeRunner.
type Call struct {
	Cmd    sysexec.Cmd
	Method string // "run" or "output"
}

// FakeRunner is a sysexec.Runner that records invocations instead of
// executing them. Responses are keyed on the command name; unmatched
// commands succeed with empty output.
type FakeRunner struct {
	Calls []Call

	// Errors maps a command name to the error its Run/Output returns.
	Errors map[string]error
	// Outputs maps a command name to the stdout Output returns.
	Outputs map[string]string
	// Binaries lists names LookPath resolves. Nil resolves everything.
	Binaries map[string]string
}

// NewFakeRunner returns an empty recording runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Errors:   make(map[string]error),
		Outputs:  make(map[string]string),
		Binaries: nil,
	}
}

func (f *FakeRunner) Run(_ context.Context, cmd sysexec.Cmd) error {
	f.Calls = append(f.Calls, Call{Cmd: cmd, Method: "run"})
	if err, ok := f.Errors[cmd.Name]; ok {
		return err
	}
	return nil
}

func (f *FakeRunner) Output(_ context.Context, cmd sysexec.Cmd) (string, error) {
	f.Calls = append(f.Calls, Call{Cmd: cmd, Method: "output"})
	if err, ok := f.Errors[cmd.Name]; ok {
		return "", err
	}
	return f.Outputs[cmd.Name], nil
}

func (f *FakeRunner) LookPath(name string) (string, error) {
	if f.Binaries == nil {
		return "/usr/bin/" + name, nil
	}
	if path, ok := f.Binaries[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%s: executable file not found in $PATH", name)
}

// CommandLines renders every recorded call as "name arg arg..." for
// simple assertions on order and content.
func (f *FakeRunner) CommandLines() []string {
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, c.Cmd.String())
	}
	return lines
}

// Reset clears the recorded calls.
func (f *FakeRunner) Reset() {
	f.Calls = nil
}

// WriteFile writes a file under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

// SourceDir builds a minimal application payload in a temp directory:
// the entry file plus static and templates assets.
func SourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, dir, "main.py", "print('pulsemon')\n")
	WriteFile(t, dir, filepath.Join("static", "css", "style.css"), "body {}\n")
	WriteFile(t, dir, filepath.Join("static", "js", "app.js"), "void 0;\n")
	WriteFile(t, dir, filepath.Join("static", "images", "logo.svg"), "<svg/>\n")
	WriteFile(t, dir, filepath.Join("templates", "index.html"), "<html></html>\n")
	return dir
}
