package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pulsemon/provision/internal/config"
	"github.com/pulsemon/provision/internal/installer"
	"github.com/pulsemon/provision/internal/journal"
	"github.com/pulsemon/provision/internal/logger"
	"github.com/pulsemon/provision/internal/manifest"
	"github.com/pulsemon/provision/internal/sysexec"
)

// runEnv is the shared wiring every command builds before doing work.
type runEnv struct {
	cfg  *config.Config
	log  *logger.Logger
	jrnl *journal.Journal
}

// setup loads configuration, applies flag overrides, and opens the
// logger and install journal. The journal is optional; failing to open
// it degrades to a warning.
func setup(opts *RootOptions, overrides ...func(*config.Config)) (*runEnv, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	for _, apply := range overrides {
		apply(cfg)
	}
	// Flag overrides may carry "~" or relative paths.
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Level:      level,
		Format:     cfg.Logging.Format,
		Dir:        cfg.State.Dir,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})

	jrnl, err := journal.Open(filepath.Join(cfg.State.Dir, journal.FileName))
	if err != nil {
		log.Warn().Err(err).Msg("install journal unavailable, runs will not be recorded")
		jrnl = nil
	}

	return &runEnv{cfg: cfg, log: log, jrnl: jrnl}, nil
}

// close releases the journal and log file.
func (e *runEnv) close() {
	if e.jrnl != nil {
		e.jrnl.Close()
	}
	e.log.Close()
}

// provision runs one of the pipelines and prints its summary. The
// returned error is the first failed step's, so the process exits
// non-zero on a fatal step.
func provision(cmd *cobra.Command, opts *RootOptions, variant string, steps []installer.Step, overrides ...func(*config.Config)) error {
	env, err := setup(opts, overrides...)
	if err != nil {
		return err
	}
	defer env.close()

	m, err := manifest.Load(env.cfg.Source.Dir)
	if err != nil {
		return err
	}

	runner := sysexec.NewExecutor(env.log.Logger)
	st := &installer.State{
		Config:    env.cfg,
		Manifest:  m,
		Log:       env.log.Logger,
		Runner:    runner,
		Escalator: sysexec.NewEscalator(runner),
	}

	driver := installer.NewDriver(env.jrnl, config.Version, env.log.Logger)
	report := driver.Run(cmd.Context(), variant, steps, st)

	fmt.Fprint(cmd.OutOrStdout(), renderSummary(report, st))
	return report.Err
}
