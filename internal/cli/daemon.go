package cli

import (
	"github.com/spf13/cobra"

	"github.com/pulsemon/provision/internal/config"
	"github.com/pulsemon/provision/internal/installer"
)

// NewDaemonCommand creates the daemon install command.
func NewDaemonCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		sourceDir string
		svcUser   string
		unit      string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "daemon [source-dir]",
		Short: "Install the pulsemon monitoring daemon as a systemd service",
		Long: `Install the pulsemon monitoring daemon from a source payload
directory (default: the current directory) and register it as a systemd
service.

The daemon runs under a service account: pass one with --user, set
service.user in the configuration, or answer the interactive prompt.
After the service starts, the host firewall is probed for the daemon
port and a remediation hint is printed if it looks blocked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				sourceDir = args[0]
			}
			return provision(cmd, rootOpts, installer.VariantDaemon, installer.DaemonSteps(), func(cfg *config.Config) {
				if sourceDir != "" {
					cfg.Source.Dir = sourceDir
				}
				if svcUser != "" {
					cfg.Service.User = svcUser
				}
				if unit != "" {
					cfg.Service.Unit = unit
				}
				if port != 0 {
					cfg.Service.Port = port
				}
			})
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "", "application payload directory")
	cmd.Flags().StringVar(&svcUser, "user", "", "account the service runs as (prompts when unset)")
	cmd.Flags().StringVar(&unit, "unit", "", "systemd unit name")
	cmd.Flags().IntVar(&port, "port", 0, "TCP port the daemon listens on")

	return cmd
}
