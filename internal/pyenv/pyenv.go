// Package pyenv creates and populates the Python virtual environment.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pulsemon/provision/internal/sysexec"
)

// markerDir keys venv reuse. Its presence alone decides whether an
// existing environment is reused; no version or package integrity
// check is performed on reuse.
const markerDir = "bin"

// python interpreter names probed in order.
var pythonNames = []string{"python3", "python"}

// Builder creates virtual environments and installs packages into
// them. All operations are user-level; nothing here escalates.
type Builder struct {
	runner sysexec.Runner
	log    zerolog.Logger
}

// NewBuilder creates a new environment builder.
func NewBuilder(runner sysexec.Runner, log zerolog.Logger) *Builder {
	return &Builder{
		runner: runner,
		log:    log.With().Str("component", "pyenv").Logger(),
	}
}

// Ensure creates the virtual environment at venvDir unless its marker
// subdirectory already exists, in which case the environment is reused
// unmodified. Returns whether a new environment was created.
func (b *Builder) Ensure(ctx context.Context, venvDir string) (bool, error) {
	marker := filepath.Join(venvDir, markerDir)
	if info, err := os.Stat(marker); err == nil && info.IsDir() {
		b.log.Info().Str("venv", venvDir).Msg("reusing existing virtual environment")
		return false, nil
	}

	python, err := b.findPython()
	if err != nil {
		return false, err
	}

	b.log.Info().Str("venv", venvDir).Str("python", python).Msg("creating virtual environment")
	if err := b.runner.Run(ctx, sysexec.Cmd{Name: python, Args: []string{"-m", "venv", venvDir}}); err != nil {
		return false, fmt.Errorf("failed to create virtual environment: %w", err)
	}
	return true, nil
}

// UpgradeTooling upgrades the installer tooling packages inside the
// environment. This runs unconditionally, reused environment or not.
func (b *Builder) UpgradeTooling(ctx context.Context, venvDir string, tooling []string) error {
	if len(tooling) == 0 {
		return nil
	}
	args := append([]string{"install", "--upgrade"}, tooling...)
	b.log.Info().Strs("packages", tooling).Msg("upgrading environment tooling")
	if err := b.runner.Run(ctx, sysexec.Cmd{Name: b.pip(venvDir), Args: args}); err != nil {
		return fmt.Errorf("failed to upgrade tooling: %w", err)
	}
	return nil
}

// InstallDeps installs the dependency set in declared order. An empty
// set is a valid no-op.
func (b *Builder) InstallDeps(ctx context.Context, venvDir string, deps []string) error {
	if len(deps) == 0 {
		b.log.Debug().Msg("no dependencies declared, skipping install")
		return nil
	}
	args := append([]string{"install"}, deps...)
	b.log.Info().Strs("packages", deps).Msg("installing dependencies")
	if err := b.runner.Run(ctx, sysexec.Cmd{Name: b.pip(venvDir), Args: args}); err != nil {
		return fmt.Errorf("failed to install dependencies: %w", err)
	}
	return nil
}

// pip returns the pip binary inside the environment. Using the venv's
// own pip keeps installs isolated from the system interpreter.
func (b *Builder) pip(venvDir string) string {
	return filepath.Join(venvDir, markerDir, "pip")
}

func (b *Builder) findPython() (string, error) {
	for _, name := range pythonNames {
		if _, err := b.runner.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no python interpreter found on PATH (tried %v)", pythonNames)
}
