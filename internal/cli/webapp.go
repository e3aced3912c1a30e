package cli

import (
	"github.com/spf13/cobra"

	"github.com/pulsemon/provision/internal/config"
	"github.com/pulsemon/provision/internal/installer"
)

// NewWebappCommand creates the webapp install command.
func NewWebappCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		sourceDir  string
		venvDir    string
		binDir     string
		executable string
	)

	cmd := &cobra.Command{
		Use:   "webapp [source-dir]",
		Short: "Install or upgrade the pulsemon web application",
		Long: `Install or upgrade the pulsemon web application from a source
payload directory (default: the current directory).

The payload is deployed into a virtual environment under your home
directory, its database schema is migrated, and a launcher plus short
symlinks are published into the system bin directory. An existing
database is backed up before redeploy and restored afterwards.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				sourceDir = args[0]
			}
			return provision(cmd, rootOpts, installer.VariantWebapp, installer.WebappSteps(), func(cfg *config.Config) {
				if sourceDir != "" {
					cfg.Source.Dir = sourceDir
				}
				if venvDir != "" {
					cfg.Target.VenvDir = venvDir
					cfg.Target.InstallDir = venvDir
				}
				if binDir != "" {
					cfg.Target.BinDir = binDir
				}
				if executable != "" {
					cfg.Target.Executable = executable
				}
			})
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "", "application payload directory")
	cmd.Flags().StringVar(&venvDir, "venv", "", "virtual environment directory (must be under your home)")
	cmd.Flags().StringVar(&binDir, "bin-dir", "", "system bin directory for the launcher")
	cmd.Flags().StringVar(&executable, "executable", "", "published launcher name")

	return cmd
}
