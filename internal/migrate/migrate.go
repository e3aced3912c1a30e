// Package migrate drives the Flask migration tooling against the
// deployed application. The tooling's own transactional guarantees
// are the only rollback story; this layer just sequences the calls
// and fails fast.
package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pulsemon/provision/internal/sysexec"
)

// MigrationsDirName tracks whether migration tooling was initialized
// in a previous run.
const MigrationsDirName = "migrations"

// flaskAppEnv designates the application entry module to the
// migration tool.
const flaskAppEnv = "FLASK_APP"

// Options locates the environment and application to migrate.
type Options struct {
	VenvDir    string
	InstallDir string
	// App is the entry module exported as FLASK_APP.
	App string
	// Message labels the generated migration revision.
	Message string
}

// Migrator initializes and applies database migrations.
type Migrator struct {
	runner sysexec.Runner
	log    zerolog.Logger
}

// NewMigrator creates a new schema migrator.
func NewMigrator(runner sysexec.Runner, log zerolog.Logger) *Migrator {
	return &Migrator{
		runner: runner,
		log:    log.With().Str("component", "migrate").Logger(),
	}
}

// Run initializes migration tooling when its tracking directory is
// absent, generates a revision, and applies all pending migrations.
// Every sub-step runs in the install directory and is fatal on
// failure.
func (m *Migrator) Run(ctx context.Context, opts Options) error {
	flask := filepath.Join(opts.VenvDir, "bin", "flask")
	env := []string{flaskAppEnv + "=" + opts.App}

	if _, err := os.Stat(filepath.Join(opts.InstallDir, MigrationsDirName)); os.IsNotExist(err) {
		m.log.Info().Msg("initializing migration tooling")
		cmd := sysexec.Cmd{Name: flask, Args: []string{"db", "init"}, Dir: opts.InstallDir, Env: env}
		if err := m.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("failed to initialize migrations: %w", err)
		}
	} else {
		m.log.Debug().Msg("migration tooling already initialized")
	}

	m.log.Info().Str("message", opts.Message).Msg("generating migration revision")
	cmd := sysexec.Cmd{Name: flask, Args: []string{"db", "migrate", "-m", opts.Message}, Dir: opts.InstallDir, Env: env}
	if err := m.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to generate migration: %w", err)
	}

	m.log.Info().Msg("applying pending migrations")
	cmd = sysexec.Cmd{Name: flask, Args: []string{"db", "upgrade"}, Dir: opts.InstallDir, Env: env}
	if err := m.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
