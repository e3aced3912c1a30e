package pyenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pulsemon/provision/internal/testutil"
)

func TestEnsureCreatesNewEnvironment(t *testing.T) {
	fake := testutil.NewFakeRunner()
	fake.Binaries = map[string]string{"python3": "/usr/bin/python3"}
	b := NewBuilder(fake, testutil.NopLogger())

	venv := filepath.Join(t.TempDir(), "venv")
	created, err := b.Ensure(context.Background(), venv)
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if !created {
		t.Error("Ensure() reported reuse for a fresh directory")
	}

	lines := fake.CommandLines()
	if len(lines) != 1 || lines[0] != "python3 -m venv "+venv {
		t.Errorf("commands = %v, want python3 -m venv", lines)
	}
}

func TestEnsureReusesExistingMarker(t *testing.T) {
	fake := testutil.NewFakeRunner()
	b := NewBuilder(fake, testutil.NopLogger())

	venv := t.TempDir()
	if err := os.MkdirAll(filepath.Join(venv, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	created, err := b.Ensure(context.Background(), venv)
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if created {
		t.Error("Ensure() recreated an environment whose marker exists")
	}
	if len(fake.Calls) != 0 {
		t.Errorf("Ensure() ran %v on reuse, want no commands", fake.CommandLines())
	}
}

func TestEnsureSecondRunIsIdempotent(t *testing.T) {
	fake := testutil.NewFakeRunner()
	fake.Binaries = map[string]string{"python3": "/usr/bin/python3"}
	b := NewBuilder(fake, testutil.NopLogger())

	venv := filepath.Join(t.TempDir(), "venv")
	if _, err := b.Ensure(context.Background(), venv); err != nil {
		t.Fatalf("first Ensure() error: %v", err)
	}
	// Simulate the venv tool having created the marker.
	if err := os.MkdirAll(filepath.Join(venv, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	fake.Reset()

	created, err := b.Ensure(context.Background(), venv)
	if err != nil {
		t.Fatalf("second Ensure() error: %v", err)
	}
	if created || len(fake.Calls) != 0 {
		t.Error("second Ensure() was not a no-op")
	}
}

func TestEnsureFallsBackToPython(t *testing.T) {
	fake := testutil.NewFakeRunner()
	fake.Binaries = map[string]string{"python": "/usr/bin/python"}
	b := NewBuilder(fake, testutil.NopLogger())

	venv := filepath.Join(t.TempDir(), "venv")
	if _, err := b.Ensure(context.Background(), venv); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if lines := fake.CommandLines(); !strings.HasPrefix(lines[0], "python -m venv") {
		t.Errorf("commands = %v, want python fallback", lines)
	}
}

func TestEnsureNoInterpreter(t *testing.T) {
	fake := testutil.NewFakeRunner()
	fake.Binaries = map[string]string{}
	b := NewBuilder(fake, testutil.NopLogger())

	if _, err := b.Ensure(context.Background(), filepath.Join(t.TempDir(), "venv")); err == nil {
		t.Error("Ensure() succeeded with no python interpreter available")
	}
}

func TestUpgradeTooling(t *testing.T) {
	fake := testutil.NewFakeRunner()
	b := NewBuilder(fake, testutil.NopLogger())

	if err := b.UpgradeTooling(context.Background(), "/home/u/.pulsemon", []string{"pip"}); err != nil {
		t.Fatalf("UpgradeTooling() error: %v", err)
	}
	lines := fake.CommandLines()
	want := "/home/u/.pulsemon/bin/pip install --upgrade pip"
	if len(lines) != 1 || lines[0] != want {
		t.Errorf("commands = %v, want [%s]", lines, want)
	}
}

func TestInstallDepsPreservesOrder(t *testing.T) {
	fake := testutil.NewFakeRunner()
	b := NewBuilder(fake, testutil.NopLogger())

	deps := []string{"flask", "flask-sqlalchemy", "flask-migrate", "psutil"}
	if err := b.InstallDeps(context.Background(), "/home/u/.pulsemon", deps); err != nil {
		t.Fatalf("InstallDeps() error: %v", err)
	}
	lines := fake.CommandLines()
	want := "/home/u/.pulsemon/bin/pip install flask flask-sqlalchemy flask-migrate psutil"
	if len(lines) != 1 || lines[0] != want {
		t.Errorf("commands = %v, want [%s]", lines, want)
	}
}

func TestInstallDepsEmptySetIsNoOp(t *testing.T) {
	fake := testutil.NewFakeRunner()
	b := NewBuilder(fake, testutil.NopLogger())

	if err := b.InstallDeps(context.Background(), "/home/u/.pulsemon", nil); err != nil {
		t.Fatalf("InstallDeps() error: %v", err)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("InstallDeps(empty) ran %v, want nothing", fake.CommandLines())
	}
}

func TestInstallDepsFailure(t *testing.T) {
	fake := testutil.NewFakeRunner()
	fake.Errors["/home/u/.pulsemon/bin/pip"] = errors.New("exit status 1")
	b := NewBuilder(fake, testutil.NopLogger())

	if err := b.InstallDeps(context.Background(), "/home/u/.pulsemon", []string{"flask"}); err == nil {
		t.Error("InstallDeps() succeeded despite pip failure")
	}
}
