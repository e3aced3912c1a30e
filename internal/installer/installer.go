// Package installer sequences the provisioning pipeline. Steps run
// strictly in order, each exactly once; the first failure halts the
// run with the failed step recorded. There is no rollback beyond the
// explicit database backup/restore pairing and no retry of any
// external command.
package installer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsemon/provision/internal/config"
	"github.com/pulsemon/provision/internal/deploy"
	"github.com/pulsemon/provision/internal/firewall"
	"github.com/pulsemon/provision/internal/journal"
	"github.com/pulsemon/provision/internal/manifest"
	"github.com/pulsemon/provision/internal/sysexec"
	"github.com/pulsemon/provision/internal/verify"
)

// Variant names the provisioning pipelines as recorded in the journal.
const (
	VariantWebapp    = "webapp"
	VariantDaemon    = "daemon"
	VariantUninstall = "uninstall"
)

// Step is one unit of provisioning work.
type Step interface {
	Name() string
	Run(ctx context.Context, st *State) error
}

// State is threaded through every step of a run. It carries the wiring
// steps share and the facts they discover along the way. Working
// directories travel on individual commands, never on the process.
type State struct {
	Config    *config.Config
	Manifest  *manifest.Manifest
	Log       zerolog.Logger
	Runner    sysexec.Runner
	Escalator *sysexec.Escalator

	// Discovered as the run progresses.
	FreshInstall  bool
	VenvCreated   bool
	ServiceUser   string
	Backup        *deploy.BackupManager
	LauncherPath  string
	AdminPassword string
	AddedEnvKeys  []string
	ExecResult    *verify.Result
	ServiceActive bool
	Advisory      *firewall.Advisory

	warnings []string
}

// Warn records a non-fatal finding for the run summary. A run with
// warnings completes but is reported as degraded.
func (s *State) Warn(msg string) {
	s.warnings = append(s.warnings, msg)
	s.Log.Warn().Msg(msg)
}

// Warnings lists the non-fatal findings recorded so far.
func (s *State) Warnings() []string {
	return s.warnings
}

// StepResult records one executed step.
type StepResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Report is the outcome of a pipeline run.
type Report struct {
	Variant  string
	RunID    string
	Results  []StepResult
	Outcome  journal.Outcome
	Err      error
	Warnings []string
}

// Driver runs pipelines and records them in the install journal. A
// nil journal disables recording; journal write failures degrade to
// log warnings because provisioning must never fail on bookkeeping.
type Driver struct {
	journal *journal.Journal
	version string
	log     zerolog.Logger
}

// NewDriver creates a pipeline driver.
func NewDriver(j *journal.Journal, version string, log zerolog.Logger) *Driver {
	return &Driver{
		journal: j,
		version: version,
		log:     log.With().Str("component", "installer").Logger(),
	}
}

// Run executes the steps in order against the shared state, stopping
// at the first failure.
func (d *Driver) Run(ctx context.Context, variant string, steps []Step, st *State) *Report {
	report := &Report{Variant: variant}
	report.RunID = d.startRun(ctx, variant)

	for _, step := range steps {
		stepLog := st.Log.With().Str("step", step.Name()).Logger()
		stepLog.Info().Msg("step started")

		start := time.Now()
		err := step.Run(ctx, st)
		elapsed := time.Since(start)

		report.Results = append(report.Results, StepResult{Name: step.Name(), Duration: elapsed, Err: err})
		d.recordStep(ctx, report.RunID, step.Name(), elapsed, err)

		if err != nil {
			stepLog.Error().Err(err).Dur("elapsed", elapsed).Msg("step failed, aborting")
			report.Err = fmt.Errorf("%s: %w", step.Name(), err)
			report.Outcome = journal.OutcomeFailed
			report.Warnings = st.Warnings()
			d.finishRun(ctx, report.RunID, journal.OutcomeFailed, step.Name(), err.Error())
			return report
		}
		stepLog.Info().Dur("elapsed", elapsed).Msg("step completed")
	}

	report.Warnings = st.Warnings()
	report.Outcome = journal.OutcomeSuccess
	if len(report.Warnings) > 0 {
		report.Outcome = journal.OutcomeWarning
	}
	d.finishRun(ctx, report.RunID, report.Outcome, "", "")
	return report
}

func (d *Driver) startRun(ctx context.Context, variant string) string {
	if d.journal == nil {
		return ""
	}
	id, err := d.journal.StartRun(ctx, variant, d.version)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to record run start")
		return ""
	}
	return id
}

func (d *Driver) recordStep(ctx context.Context, runID, name string, elapsed time.Duration, stepErr error) {
	if d.journal == nil || runID == "" {
		return
	}
	rec := journal.StepRecord{RunID: runID, Name: name, Status: "ok", Duration: elapsed}
	if stepErr != nil {
		rec.Status = "failed"
		rec.Detail = stepErr.Error()
	}
	if err := d.journal.RecordStep(ctx, rec); err != nil {
		d.log.Warn().Err(err).Str("step", name).Msg("failed to record step")
	}
}

func (d *Driver) finishRun(ctx context.Context, runID string, outcome journal.Outcome, failedStep, errText string) {
	if d.journal == nil || runID == "" {
		return
	}
	if err := d.journal.FinishRun(ctx, runID, outcome, failedStep, errText); err != nil {
		d.log.Warn().Err(err).Msg("failed to record run finish")
	}
}
