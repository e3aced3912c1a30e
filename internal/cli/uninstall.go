package cli

import (
	"github.com/spf13/cobra"

	"github.com/pulsemon/provision/internal/installer"
)

// NewUninstallCommand creates the uninstall command.
func NewUninstallCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the systemd service and published executables",
		Long: `Stop and remove the pulsemon systemd service if it is installed,
then remove the published executable and its symlinks.

Application data is never touched: the virtual environment, the deployed
application, and its database stay where they are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return provision(cmd, rootOpts, installer.VariantUninstall, installer.UninstallSteps())
		},
	}

	return cmd
}
