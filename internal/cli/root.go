// Package cli wires the provisioning commands: the two install
// variants, verification, run history, and uninstall.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the pulsemon-provision root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "pulsemon-provision",
		Short:   "Provision the pulsemon monitoring daemon and web application",
		Version: version,
		Long: `pulsemon-provision installs or upgrades pulsemon on this machine.

The webapp variant deploys the Flask application into a per-user virtual
environment, migrates its database, and publishes a launcher into the
system bin directory. The daemon variant deploys the monitoring daemon
and registers it as a systemd service.

Both variants are safe to re-run: existing virtual environments are
reused, the application database is backed up before redeploy and
restored after, and generated secrets are never rotated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default searches ., ./configs, ~/.pulsemon)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewWebappCommand(opts))
	cmd.AddCommand(NewDaemonCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewUninstallCommand(opts))

	return cmd
}
