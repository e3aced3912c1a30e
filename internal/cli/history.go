package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pulsemon/provision/internal/journal"
)

// NewHistoryCommand creates the command that lists recorded runs.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded provisioning runs",
		Long: `List recent provisioning runs from the install journal, newest
first. Pass --verbose to include the per-step results of each run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(rootOpts)
			if err != nil {
				return err
			}
			defer env.close()

			if env.jrnl == nil {
				return fmt.Errorf("install journal unavailable at %s", filepath.Join(env.cfg.State.Dir, journal.FileName))
			}

			runs, err := env.jrnl.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to read install journal: %w", err)
			}

			var steps map[string][]journal.StepRecord
			if rootOpts.Verbose {
				steps = make(map[string][]journal.StepRecord, len(runs))
				for _, run := range runs {
					recs, err := env.jrnl.Steps(cmd.Context(), run.ID)
					if err != nil {
						return fmt.Errorf("failed to read steps for run %s: %w", run.ID, err)
					}
					steps[run.ID] = recs
				}
			}

			fmt.Fprint(cmd.OutOrStdout(), renderHistory(runs, steps))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of runs to list")

	return cmd
}
