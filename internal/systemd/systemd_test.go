package systemd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/pulsemon/provision/internal/sysexec"
	"github.com/pulsemon/provision/internal/testutil"
)

func testUnitConfig() UnitConfig {
	return UnitConfig{
		Unit:        "pulsemon",
		Description: "Pulsemon system monitoring daemon",
		User:        "monitor",
		VenvDir:     "/home/monitor/.pulsemon",
		InstallDir:  "/home/monitor/.pulsemon",
		Entry:       "main.py",
		LogPath:     "/var/log/pulsemon.log",
		ErrPath:     "/var/log/pulsemon.err",
	}
}

func TestGenerateUnitFileGolden(t *testing.T) {
	content := GenerateUnitFile(testUnitConfig())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "daemon-unit", []byte(content))
}

func TestGenerateUnitFileFields(t *testing.T) {
	content := GenerateUnitFile(testUnitConfig())

	checks := []string{
		"User=monitor",
		"WorkingDirectory=/home/monitor/.pulsemon",
		"ExecStart=/home/monitor/.pulsemon/bin/python /home/monitor/.pulsemon/main.py",
		"Restart=always",
		"StandardOutput=append:/var/log/pulsemon.log",
		"StandardError=append:/var/log/pulsemon.err",
		"WantedBy=multi-user.target",
	}
	for _, want := range checks {
		if !strings.Contains(content, want) {
			t.Errorf("unit file missing %q:\n%s", want, content)
		}
	}
}

func TestUnitPath(t *testing.T) {
	if got := UnitPath("pulsemon"); got != "/etc/systemd/system/pulsemon.service" {
		t.Errorf("UnitPath() = %q", got)
	}
}

func TestInstallCommandSequence(t *testing.T) {
	fake := testutil.NewFakeRunner()
	esc := sysexec.NewEscalatorWith(fake, true, "")
	m := NewManager(esc, testutil.NopLogger())

	if err := m.Install(context.Background(), testUnitConfig()); err != nil {
		t.Fatalf("Install() error: %v", err)
	}

	lines := fake.CommandLines()
	if len(lines) != 5 {
		t.Fatalf("commands = %v, want 5", lines)
	}
	if !strings.HasPrefix(lines[0], "cp ") || !strings.HasSuffix(lines[0], "/etc/systemd/system/pulsemon.service") {
		t.Errorf("command[0] = %q, want cp to unit path", lines[0])
	}
	if lines[1] != "chmod 644 /etc/systemd/system/pulsemon.service" {
		t.Errorf("command[1] = %q", lines[1])
	}
	want := []string{
		"systemctl daemon-reload",
		"systemctl enable pulsemon.service",
		"systemctl restart pulsemon.service",
	}
	for i, w := range want {
		if lines[i+2] != w {
			t.Errorf("command[%d] = %q, want %q", i+2, lines[i+2], w)
		}
	}
}

func TestInstallEscalatesEverything(t *testing.T) {
	fake := testutil.NewFakeRunner()
	esc := sysexec.NewEscalatorWith(fake, false, "sudo")
	m := NewManager(esc, testutil.NopLogger())

	if err := m.Install(context.Background(), testUnitConfig()); err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	for _, line := range fake.CommandLines() {
		if !strings.HasPrefix(line, "sudo ") {
			t.Errorf("unescalated system mutation: %q", line)
		}
	}
}

func TestInstallSystemctlFailureIsFatal(t *testing.T) {
	fake := testutil.NewFakeRunner()
	fake.Errors["systemctl"] = errors.New("exit status 1")
	esc := sysexec.NewEscalatorWith(fake, true, "")
	m := NewManager(esc, testutil.NopLogger())

	if err := m.Install(context.Background(), testUnitConfig()); err == nil {
		t.Error("Install() succeeded despite systemctl failure")
	}
}

func TestUninstallContinuesPastStopFailure(t *testing.T) {
	fake := testutil.NewFakeRunner()
	fake.Errors["systemctl"] = errors.New("exit status 5")
	esc := sysexec.NewEscalatorWith(fake, true, "")
	m := NewManager(esc, testutil.NopLogger())

	// stop and disable fail but the unit file removal still runs; the
	// final daemon-reload failure surfaces.
	err := m.Uninstall(context.Background(), "pulsemon")
	if err == nil {
		t.Error("Uninstall() swallowed the daemon-reload failure")
	}

	foundRemove := false
	for _, line := range fake.CommandLines() {
		if line == "rm -f /etc/systemd/system/pulsemon.service" {
			foundRemove = true
		}
	}
	if !foundRemove {
		t.Errorf("unit file was not removed: %v", fake.CommandLines())
	}
}
