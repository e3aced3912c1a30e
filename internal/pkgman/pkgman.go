// Package pkgman detects the system package manager and installs the
// Python toolchain through it. Probing follows a fixed priority order
// and the first match wins; there is no generic fallback.
package pkgman

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pulsemon/provision/internal/sysexec"
)

// Manager describes one supported package manager and the packages
// that provide python3 with venv support on its distro family.
type Manager struct {
	Name        string
	UpdateArgs  []string
	InstallArgs []string
	Packages    []string
}

// managers in probe priority order. First match wins.
var managers = []Manager{
	{
		Name:        "apt-get",
		UpdateArgs:  []string{"update"},
		InstallArgs: []string{"install", "-y"},
		Packages:    []string{"python3", "python3-venv", "python3-pip"},
	},
	{
		Name:        "dnf",
		InstallArgs: []string{"install", "-y"},
		Packages:    []string{"python3", "python3-pip"},
	},
	{
		Name:        "yum",
		InstallArgs: []string{"install", "-y"},
		Packages:    []string{"python3", "python3-pip"},
	},
	{
		Name:        "pacman",
		InstallArgs: []string{"-Sy", "--noconfirm"},
		Packages:    []string{"python", "python-pip"},
	},
	{
		Name:        "zypper",
		InstallArgs: []string{"install", "-y"},
		Packages:    []string{"python3", "python3-pip"},
	},
}

// ErrNoManager is returned when no supported package manager binary is
// resolvable. The pipeline treats this as fatal.
var ErrNoManager = errors.New("Could not detect a supported package manager. Install python3 and its venv module manually, then run the installer again")

// Selector probes for package managers and drives installs.
type Selector struct {
	runner    sysexec.Runner
	escalator *sysexec.Escalator
	log       zerolog.Logger
}

// NewSelector creates a new package manager selector.
func NewSelector(runner sysexec.Runner, escalator *sysexec.Escalator, log zerolog.Logger) *Selector {
	return &Selector{
		runner:    runner,
		escalator: escalator,
		log:       log.With().Str("component", "pkgman").Logger(),
	}
}

// Detect returns the first supported package manager found on the
// lookup path.
func (s *Selector) Detect() (*Manager, error) {
	for i := range managers {
		mgr := &managers[i]
		path, err := s.runner.LookPath(mgr.Name)
		if err != nil {
			continue
		}
		s.log.Info().Str("manager", mgr.Name).Str("path", path).Msg("package manager detected")
		return mgr, nil
	}
	return nil, ErrNoManager
}

// InstallPython installs the Python toolchain packages for mgr using
// elevated privileges. The package index is refreshed first for
// managers that separate the two operations.
func (s *Selector) InstallPython(ctx context.Context, mgr *Manager) error {
	if len(mgr.UpdateArgs) > 0 {
		s.log.Info().Str("manager", mgr.Name).Msg("refreshing package index")
		if err := s.escalator.Run(ctx, sysexec.Cmd{Name: mgr.Name, Args: mgr.UpdateArgs}); err != nil {
			return fmt.Errorf("failed to refresh package index: %w", err)
		}
	}

	args := append(append([]string{}, mgr.InstallArgs...), mgr.Packages...)
	s.log.Info().Str("manager", mgr.Name).Strs("packages", mgr.Packages).Msg("installing python toolchain")
	if err := s.escalator.Run(ctx, sysexec.Cmd{Name: mgr.Name, Args: args}); err != nil {
		return fmt.Errorf("failed to install python packages: %w", err)
	}
	return nil
}
