package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pulsemon/provision/internal/sysexec"
	"github.com/pulsemon/provision/internal/testutil"
)

func newPublisher(fake *testutil.FakeRunner) *Publisher {
	esc := sysexec.NewEscalatorWith(fake, true, "")
	return NewPublisher(esc, testutil.NopLogger())
}

func TestRenderLauncher(t *testing.T) {
	script := RenderLauncher("/home/u/.pulsemon", "/home/u/.pulsemon", "main.py")

	if !strings.HasPrefix(script, "#!/bin/sh\n") {
		t.Errorf("launcher missing shebang: %q", script)
	}
	if !strings.Contains(script, "/home/u/.pulsemon/bin/python") {
		t.Errorf("launcher does not use the venv interpreter: %q", script)
	}
	if !strings.Contains(script, "/home/u/.pulsemon/main.py") {
		t.Errorf("launcher does not run the deployed entry file: %q", script)
	}
	if !strings.Contains(script, `"$@"`) {
		t.Errorf("launcher does not forward arguments: %q", script)
	}
}

func TestWriteLauncher(t *testing.T) {
	install := t.TempDir()
	p := newPublisher(testutil.NewFakeRunner())

	path, err := p.WriteLauncher(install, "pulsemon-web", "/home/u/.pulsemon", "main.py")
	if err != nil {
		t.Fatalf("WriteLauncher() error: %v", err)
	}
	if path != filepath.Join(install, "pulsemon-web") {
		t.Errorf("WriteLauncher() path = %q", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat launcher: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("launcher mode = %v, want executable", info.Mode())
	}
}

func TestPublishCommandSequence(t *testing.T) {
	fake := testutil.NewFakeRunner()
	p := newPublisher(fake)

	err := p.Publish(context.Background(), "/home/u/.pulsemon/pulsemon-web", "/usr/local/bin", "pulsemon-web", []string{"pulsemonweb", "pmweb"})
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	want := []string{
		"cp /home/u/.pulsemon/pulsemon-web /usr/local/bin/pulsemon-web",
		"chmod +x /usr/local/bin/pulsemon-web",
		"rm -f /usr/local/bin/pulsemonweb",
		"ln -s /usr/local/bin/pulsemon-web /usr/local/bin/pulsemonweb",
		"rm -f /usr/local/bin/pmweb",
		"ln -s /usr/local/bin/pulsemon-web /usr/local/bin/pmweb",
	}
	got := fake.CommandLines()
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %d entries", got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPublishSymlinksAlwaysPointAtExecutable(t *testing.T) {
	fake := testutil.NewFakeRunner()
	p := newPublisher(fake)

	// Repeated publish runs produce the same link target every time.
	for i := 0; i < 3; i++ {
		if err := p.Publish(context.Background(), "/src/launcher", "/usr/local/bin", "pulsemon-web", []string{"pmweb"}); err != nil {
			t.Fatalf("Publish() run %d error: %v", i, err)
		}
	}
	for _, line := range fake.CommandLines() {
		if strings.HasPrefix(line, "ln ") && !strings.Contains(line, "/usr/local/bin/pulsemon-web /usr/local/bin/pmweb") {
			t.Errorf("symlink points elsewhere: %q", line)
		}
	}
}

func TestPublishNoSymlinks(t *testing.T) {
	fake := testutil.NewFakeRunner()
	p := newPublisher(fake)

	if err := p.Publish(context.Background(), "/src/launcher", "/usr/local/bin", "pulsemon-web", nil); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if len(fake.Calls) != 2 {
		t.Errorf("commands = %v, want cp and chmod only", fake.CommandLines())
	}
}

func TestPublishCopyFailureIsFatal(t *testing.T) {
	fake := testutil.NewFakeRunner()
	fake.Errors["cp"] = errors.New("exit status 1")
	p := newPublisher(fake)

	if err := p.Publish(context.Background(), "/src/launcher", "/usr/local/bin", "pulsemon-web", nil); err == nil {
		t.Error("Publish() succeeded despite copy failure")
	}
}

func TestPublishEscalatesWhenUnprivileged(t *testing.T) {
	fake := testutil.NewFakeRunner()
	esc := sysexec.NewEscalatorWith(fake, false, "sudo")
	p := NewPublisher(esc, testutil.NopLogger())

	if err := p.Publish(context.Background(), "/src/launcher", "/usr/local/bin", "pulsemon-web", nil); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	for _, line := range fake.CommandLines() {
		if !strings.HasPrefix(line, "sudo ") {
			t.Errorf("system mutation not escalated: %q", line)
		}
	}
}
