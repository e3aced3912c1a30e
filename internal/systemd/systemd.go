// Package systemd generates the daemon's service unit and installs it
// through systemctl.
package systemd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pulsemon/provision/internal/sysexec"
)

// UnitDir is where generated service units are installed.
const UnitDir = "/etc/systemd/system"

// UnitConfig describes the generated service unit.
type UnitConfig struct {
	// Unit is the service name without the .service suffix.
	Unit        string
	Description string
	// User runs the daemon.
	User string
	// VenvDir and Entry locate the interpreter and application.
	VenvDir    string
	InstallDir string
	Entry      string
	// LogPath and ErrPath receive stdout and stderr appends.
	LogPath string
	ErrPath string
}

// GenerateUnitFile produces a complete systemd unit file for the
// monitoring daemon.
func GenerateUnitFile(cfg UnitConfig) string {
	python := filepath.Join(cfg.VenvDir, "bin", "python")
	app := filepath.Join(cfg.InstallDir, cfg.Entry)

	return fmt.Sprintf(`[Unit]
Description=%s
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User=%s
WorkingDirectory=%s
ExecStart=%s %s
Restart=always
RestartSec=5s
StandardOutput=append:%s
StandardError=append:%s

[Install]
WantedBy=multi-user.target
`, cfg.Description, cfg.User, cfg.InstallDir, python, app, cfg.LogPath, cfg.ErrPath)
}

// Manager installs and removes service units. All operations run
// through the privileged runner.
type Manager struct {
	escalator *sysexec.Escalator
	log       zerolog.Logger
}

// NewManager creates a new systemd manager.
func NewManager(escalator *sysexec.Escalator, log zerolog.Logger) *Manager {
	return &Manager{
		escalator: escalator,
		log:       log.With().Str("component", "systemd").Logger(),
	}
}

// UnitPath returns the installed path of a unit.
func UnitPath(unit string) string {
	return filepath.Join(UnitDir, unit+".service")
}

// Install writes the unit file, reloads the daemon, and enables and
// restarts the service.
func (m *Manager) Install(ctx context.Context, cfg UnitConfig) error {
	content := GenerateUnitFile(cfg)

	tmp, err := os.CreateTemp("", cfg.Unit+"-*.service")
	if err != nil {
		return fmt.Errorf("failed to create temp unit file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close unit file: %w", err)
	}

	unitPath := UnitPath(cfg.Unit)
	if err := m.escalator.Run(ctx, sysexec.Cmd{Name: "cp", Args: []string{tmpPath, unitPath}}); err != nil {
		return fmt.Errorf("failed to install unit file: %w", err)
	}
	if err := m.escalator.Run(ctx, sysexec.Cmd{Name: "chmod", Args: []string{"644", unitPath}}); err != nil {
		return fmt.Errorf("failed to set unit file mode: %w", err)
	}
	m.log.Info().Str("unit", unitPath).Msg("unit file installed")

	if err := m.systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	if err := m.systemctl(ctx, "enable", cfg.Unit+".service"); err != nil {
		return err
	}
	if err := m.systemctl(ctx, "restart", cfg.Unit+".service"); err != nil {
		return err
	}
	m.log.Info().Str("unit", cfg.Unit).Msg("service enabled and started")
	return nil
}

// Uninstall stops and disables the service and removes its unit file.
// Individual failures are warnings so a partial install can still be
// torn down.
func (m *Manager) Uninstall(ctx context.Context, unit string) error {
	if err := m.systemctl(ctx, "stop", unit+".service"); err != nil {
		m.log.Warn().Err(err).Msg("failed to stop service, continuing")
	}
	if err := m.systemctl(ctx, "disable", unit+".service"); err != nil {
		m.log.Warn().Err(err).Msg("failed to disable service, continuing")
	}
	unitPath := UnitPath(unit)
	if err := m.escalator.Run(ctx, sysexec.Cmd{Name: "rm", Args: []string{"-f", unitPath}}); err != nil {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}
	return m.systemctl(ctx, "daemon-reload")
}

func (m *Manager) systemctl(ctx context.Context, args ...string) error {
	if err := m.escalator.Run(ctx, sysexec.Cmd{Name: "systemctl", Args: args}); err != nil {
		return fmt.Errorf("systemctl %v: %w", args, err)
	}
	return nil
}
