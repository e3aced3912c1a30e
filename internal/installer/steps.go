package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/pulsemon/provision/internal/deploy"
	"github.com/pulsemon/provision/internal/envfile"
	"github.com/pulsemon/provision/internal/firewall"
	"github.com/pulsemon/provision/internal/migrate"
	"github.com/pulsemon/provision/internal/pkgman"
	"github.com/pulsemon/provision/internal/preflight"
	"github.com/pulsemon/provision/internal/prompt"
	"github.com/pulsemon/provision/internal/pyenv"
	"github.com/pulsemon/provision/internal/secrets"
	"github.com/pulsemon/provision/internal/sysexec"
	"github.com/pulsemon/provision/internal/systemd"
	"github.com/pulsemon/provision/internal/verify"
)

// preflightStep validates the source payload and target filesystem
// before anything is mutated.
type preflightStep struct{}

func (preflightStep) Name() string { return "preflight" }

func (preflightStep) Run(_ context.Context, st *State) error {
	checker := preflight.New(st.Log)

	if err := checker.CheckRequired(st.Config.Source.Dir, st.Manifest.RequiredPaths()); err != nil {
		return err
	}

	parent := filepath.Dir(st.Config.Target.VenvDir)
	if err := checker.CheckFolderWritable(parent); err != nil {
		return err
	}
	if err := checker.CheckDiskSpace(st.Config.Target.VenvDir, preflight.DefaultMinDiskBytes); err != nil {
		return err
	}

	if _, err := os.Stat(st.Config.Target.InstallDir); os.IsNotExist(err) {
		st.FreshInstall = true
	}
	return nil
}

// systemDepsStep installs python3 and venv support through whichever
// package manager the host carries.
type systemDepsStep struct{}

func (systemDepsStep) Name() string { return "system dependencies" }

func (systemDepsStep) Run(ctx context.Context, st *State) error {
	sel := pkgman.NewSelector(st.Runner, st.Escalator, st.Log)
	mgr, err := sel.Detect()
	if err != nil {
		return err
	}
	return sel.InstallPython(ctx, mgr)
}

// resolveUserStep determines which account the daemon runs as.
// Configuration wins; otherwise the operator is prompted.
type resolveUserStep struct {
	ask func(defaultUser string) (string, error)
}

func newResolveUserStep() *resolveUserStep {
	return &resolveUserStep{ask: prompt.Username}
}

func (*resolveUserStep) Name() string { return "service user" }

func (s *resolveUserStep) Run(_ context.Context, st *State) error {
	if configured := st.Config.Service.User; configured != "" {
		if !prompt.UserExists(configured) {
			return fmt.Errorf("configured service user %q does not exist on this system", configured)
		}
		st.ServiceUser = configured
		return nil
	}

	name, err := s.ask(prompt.CurrentUsername())
	if err != nil {
		return err
	}
	st.ServiceUser = name
	return nil
}

// backupStep copies an existing database aside before cleanup.
type backupStep struct{}

func (backupStep) Name() string { return "database backup" }

func (backupStep) Run(_ context.Context, st *State) error {
	mgr := deploy.NewBackupManager(st.Config.Target.InstallDir, st.Log)
	if err := mgr.Backup(); err != nil {
		return err
	}
	st.Backup = mgr
	return nil
}

// cleanupStep removes stale files from a previous install. Individual
// removals warn and continue; the step itself never fails.
type cleanupStep struct{}

func (cleanupStep) Name() string { return "cleanup" }

func (cleanupStep) Run(_ context.Context, st *State) error {
	deploy.NewCleanup(st.Log).Run(st.Config.Target.InstallDir, st.Manifest.Cleanup.Stale)
	return nil
}

// venvStep ensures the virtual environment exists and carries the
// declared dependencies.
type venvStep struct{}

func (venvStep) Name() string { return "python environment" }

func (venvStep) Run(ctx context.Context, st *State) error {
	builder := pyenv.NewBuilder(st.Runner, st.Log)

	created, err := builder.Ensure(ctx, st.Config.Target.VenvDir)
	if err != nil {
		return err
	}
	st.VenvCreated = created

	if err := builder.UpgradeTooling(ctx, st.Config.Target.VenvDir, st.Manifest.Python.Tooling); err != nil {
		return err
	}
	return builder.InstallDeps(ctx, st.Config.Target.VenvDir, st.Manifest.Python.Dependencies)
}

// deployStep copies the application payload into the install dir.
type deployStep struct{}

func (deployStep) Name() string { return "deploy" }

func (deployStep) Run(_ context.Context, st *State) error {
	d := deploy.NewDeployer(st.Log)
	return d.Deploy(st.Config.Source.Dir, st.Config.Target.InstallDir, st.Manifest.App.Entry, st.Manifest.App.AssetDirs)
}

// restoreStep moves a backed-up database back into place after the
// redeploy and sanity-checks what came back.
type restoreStep struct{}

func (restoreStep) Name() string { return "database restore" }

func (restoreStep) Run(_ context.Context, st *State) error {
	if st.Backup == nil {
		return nil
	}
	if err := st.Backup.Restore(); err != nil {
		return err
	}

	dbPath := filepath.Join(st.Config.Target.InstallDir, deploy.DatabaseFileName)
	if _, err := os.Stat(dbPath); err == nil {
		if err := deploy.CheckDatabase(dbPath); err != nil {
			st.Warn(fmt.Sprintf("restored database failed its integrity check: %v", err))
		}
	}
	return nil
}

// envFileStep provisions the deployed application's .env. Secrets are
// generated only when their keys are absent, so upgrade runs never
// rotate credentials.
type envFileStep struct {
	variant string
}

func (envFileStep) Name() string { return "environment file" }

func (s envFileStep) Run(_ context.Context, st *State) error {
	password, err := secrets.GeneratePassword()
	if err != nil {
		return err
	}

	values := map[string]string{}
	var passwordKey string

	switch s.variant {
	case VariantDaemon:
		digest, err := secrets.DaemonPasswordDigest(password)
		if err != nil {
			return err
		}
		passwordKey = "PULSEMON_PASSWORD_DIGEST"
		values["PULSEMON_PORT"] = strconv.Itoa(st.Config.Service.Port)
		values[passwordKey] = digest
	default:
		key, err := secrets.GenerateSecretKey()
		if err != nil {
			return err
		}
		hash, err := secrets.HashPassword(password)
		if err != nil {
			return err
		}
		passwordKey = "ADMIN_PASSWORD_HASH"
		values["FLASK_APP"] = st.Config.Migrate.App
		values["SECRET_KEY"] = key
		values[passwordKey] = hash
	}

	added, err := envfile.SetIfAbsent(st.Config.Target.InstallDir, values)
	if err != nil {
		return err
	}
	st.AddedEnvKeys = added

	// Surface the plaintext only when its hash was freshly written.
	if slices.Contains(added, passwordKey) {
		st.AdminPassword = password
	}
	return nil
}

// migrateStep brings the application database schema up to date.
type migrateStep struct{}

func (migrateStep) Name() string { return "schema migration" }

func (migrateStep) Run(ctx context.Context, st *State) error {
	m := migrate.NewMigrator(st.Runner, st.Log)
	return m.Run(ctx, migrate.Options{
		VenvDir:    st.Config.Target.VenvDir,
		InstallDir: st.Config.Target.InstallDir,
		App:        st.Config.Migrate.App,
		Message:    st.Config.Migrate.Message,
	})
}

// publishStep writes the launcher and publishes it with its symlinks
// into the system bin directory.
type publishStep struct{}

func (publishStep) Name() string { return "publish" }

func (publishStep) Run(ctx context.Context, st *State) error {
	p := deploy.NewPublisher(st.Escalator, st.Log)

	launcher, err := p.WriteLauncher(st.Config.Target.InstallDir, st.Config.Target.Executable, st.Config.Target.VenvDir, st.Manifest.App.Entry)
	if err != nil {
		return err
	}
	st.LauncherPath = launcher

	return p.Publish(ctx, launcher, st.Config.Target.BinDir, st.Config.Target.Executable, st.Config.Target.Symlinks)
}

// verifyStep confirms the published executable works and is on PATH.
type verifyStep struct{}

func (verifyStep) Name() string { return "verify" }

func (verifyStep) Run(_ context.Context, st *State) error {
	v := verify.NewVerifier(st.Runner, st.Log)
	res, err := v.Executable(st.Config.Target.BinDir, st.Config.Target.Executable)
	if err != nil {
		return err
	}
	st.ExecResult = res
	if !res.OK() {
		st.Warn(res.Remediation)
	}
	return nil
}

// unitInstallStep generates and installs the systemd unit, then
// enables and restarts the service.
type unitInstallStep struct{}

func (unitInstallStep) Name() string { return "service unit" }

func (unitInstallStep) Run(ctx context.Context, st *State) error {
	mgr := systemd.NewManager(st.Escalator, st.Log)
	return mgr.Install(ctx, systemd.UnitConfig{
		Unit:        st.Config.Service.Unit,
		Description: "Pulsemon system monitoring daemon",
		User:        st.ServiceUser,
		VenvDir:     st.Config.Target.VenvDir,
		InstallDir:  st.Config.Target.InstallDir,
		Entry:       st.Manifest.App.Entry,
		LogPath:     st.Config.Service.LogPath,
		ErrPath:     st.Config.Service.ErrPath,
	})
}

// serviceVerifyStep checks the freshly restarted unit is running.
type serviceVerifyStep struct{}

func (serviceVerifyStep) Name() string { return "service status" }

func (serviceVerifyStep) Run(ctx context.Context, st *State) error {
	v := verify.NewVerifier(st.Runner, st.Log)
	unit := st.Config.Service.UnitFile()
	st.ServiceActive = v.ServiceActive(ctx, unit)
	if !st.ServiceActive {
		st.Warn(fmt.Sprintf("service %s is not active; inspect it with journalctl -u %s", unit, unit))
	}
	return nil
}

// firewallStep probes the host firewall for the daemon port. Purely
// advisory.
type firewallStep struct{}

func (firewallStep) Name() string { return "firewall advisory" }

func (firewallStep) Run(ctx context.Context, st *State) error {
	adv := firewall.NewChecker(st.Log).Advise(ctx, st.Config.Service.Port)
	st.Advisory = adv
	if adv.Blocked() {
		msg := adv.Message
		if adv.Remediation != "" {
			msg += "; open it with: " + adv.Remediation
		}
		st.Warn(msg)
	}
	return nil
}

// serviceRemoveStep tears down the systemd unit when one is installed.
type serviceRemoveStep struct{}

func (serviceRemoveStep) Name() string { return "service removal" }

func (serviceRemoveStep) Run(ctx context.Context, st *State) error {
	unitPath := systemd.UnitPath(st.Config.Service.Unit)
	if _, err := os.Stat(unitPath); os.IsNotExist(err) {
		st.Log.Debug().Str("unit", unitPath).Msg("no unit file installed, skipping")
		return nil
	}
	return systemd.NewManager(st.Escalator, st.Log).Uninstall(ctx, st.Config.Service.Unit)
}

// unpublishStep removes the published executable and its symlinks from
// the bin directory. The venv, application files, and database stay.
type unpublishStep struct{}

func (unpublishStep) Name() string { return "unpublish" }

func (unpublishStep) Run(ctx context.Context, st *State) error {
	names := append([]string{st.Config.Target.Executable}, st.Config.Target.Symlinks...)
	for _, name := range names {
		path := filepath.Join(st.Config.Target.BinDir, name)
		if err := st.Escalator.Run(ctx, sysexec.Cmd{Name: "rm", Args: []string{"-f", path}}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		st.Log.Info().Str("path", path).Msg("removed published file")
	}
	return nil
}

// WebappSteps is the provisioning pipeline for the web application
// variant: published as an executable plus symlinks, with database
// backup/restore and schema migration around the redeploy.
func WebappSteps() []Step {
	return []Step{
		preflightStep{},
		systemDepsStep{},
		backupStep{},
		cleanupStep{},
		venvStep{},
		deployStep{},
		restoreStep{},
		envFileStep{variant: VariantWebapp},
		migrateStep{},
		publishStep{},
		verifyStep{},
	}
}

// DaemonSteps is the provisioning pipeline for the monitoring daemon
// variant: installed as a systemd service under a chosen account.
func DaemonSteps() []Step {
	return []Step{
		preflightStep{},
		systemDepsStep{},
		newResolveUserStep(),
		venvStep{},
		deployStep{},
		envFileStep{variant: VariantDaemon},
		unitInstallStep{},
		serviceVerifyStep{},
		firewallStep{},
	}
}

// UninstallSteps removes the system-level integration (service unit,
// published executable, symlinks) while leaving user data untouched.
func UninstallSteps() []Step {
	return []Step{
		serviceRemoveStep{},
		unpublishStep{},
	}
}
