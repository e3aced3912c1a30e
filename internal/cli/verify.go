package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulsemon/provision/internal/sysexec"
	"github.com/pulsemon/provision/internal/systemd"
	"github.com/pulsemon/provision/internal/verify"
)

// NewVerifyCommand creates the standalone verification command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an existing install without changing anything",
		Long: `Check that the published executable exists, carries the executable
bit, and resolves through PATH. When the systemd unit file is installed,
also report whether the service is active. Nothing is modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(rootOpts)
			if err != nil {
				return err
			}
			defer env.close()

			runner := sysexec.NewExecutor(env.log.Logger)
			verifier := verify.NewVerifier(runner, env.log.Logger)

			res, err := verifier.Executable(env.cfg.Target.BinDir, env.cfg.Target.Executable)
			if err != nil {
				return err
			}

			unit := env.cfg.Service.UnitFile()
			serviceChecked := false
			serviceActive := false
			if _, statErr := os.Stat(systemd.UnitPath(env.cfg.Service.Unit)); statErr == nil {
				serviceChecked = true
				serviceActive = verifier.ServiceActive(cmd.Context(), unit)
			}

			fmt.Fprint(cmd.OutOrStdout(), renderVerify(res, serviceChecked, serviceActive, unit))
			return nil
		},
	}

	return cmd
}
