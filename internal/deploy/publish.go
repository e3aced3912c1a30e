package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pulsemon/provision/internal/sysexec"
)

// Publisher installs the launcher into the system binary directory
// and wires its alternate-name symlinks. Every mutation goes through
// the privileged runner because the binary directory is a system
// path; the launcher itself is written user-level into the install
// directory first.
type Publisher struct {
	escalator *sysexec.Escalator
	log       zerolog.Logger
}

// NewPublisher creates a new executable publisher.
func NewPublisher(escalator *sysexec.Escalator, log zerolog.Logger) *Publisher {
	return &Publisher{
		escalator: escalator,
		log:       log.With().Str("component", "publish").Logger(),
	}
}

// RenderLauncher returns the launcher script that runs the deployed
// application with the environment's own interpreter.
func RenderLauncher(venvDir, installDir, entry string) string {
	python := filepath.Join(venvDir, "bin", "python")
	app := filepath.Join(installDir, entry)
	return fmt.Sprintf("#!/bin/sh\nexec %q %q \"$@\"\n", python, app)
}

// WriteLauncher writes the launcher script into the install directory
// under the executable name and returns its path.
func (p *Publisher) WriteLauncher(installDir, executable, venvDir, entry string) (string, error) {
	path := filepath.Join(installDir, executable)
	content := RenderLauncher(venvDir, installDir, entry)
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return "", fmt.Errorf("failed to write launcher: %w", err)
	}
	p.log.Info().Str("path", path).Msg("launcher written")
	return path, nil
}

// Publish copies the launcher into binDir, sets the executable bit,
// then replaces each alternate name with a symlink to the canonical
// executable. Replacement is unconditional: whatever existed at a
// symlink name is removed first.
func (p *Publisher) Publish(ctx context.Context, launcherPath, binDir, executable string, symlinks []string) error {
	target := filepath.Join(binDir, executable)

	if err := p.escalator.Run(ctx, sysexec.Cmd{Name: "cp", Args: []string{launcherPath, target}}); err != nil {
		return fmt.Errorf("failed to install executable: %w", err)
	}
	if err := p.escalator.Run(ctx, sysexec.Cmd{Name: "chmod", Args: []string{"+x", target}}); err != nil {
		return fmt.Errorf("failed to set executable bit: %w", err)
	}
	p.log.Info().Str("path", target).Msg("executable installed")

	for _, link := range symlinks {
		linkPath := filepath.Join(binDir, link)
		if err := p.escalator.Run(ctx, sysexec.Cmd{Name: "rm", Args: []string{"-f", linkPath}}); err != nil {
			return fmt.Errorf("failed to remove old path %s: %w", linkPath, err)
		}
		if err := p.escalator.Run(ctx, sysexec.Cmd{Name: "ln", Args: []string{"-s", target, linkPath}}); err != nil {
			return fmt.Errorf("failed to create symlink %s: %w", linkPath, err)
		}
		p.log.Info().Str("link", linkPath).Str("target", target).Msg("symlink created")
	}
	return nil
}
