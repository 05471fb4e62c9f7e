package cli

import (
	"github.com/spf13/cobra"
)

func newSweepCommand(app *App) *cobra.Command {
	var owners []string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the daily sweep: generate, match, then flag missed",
		Long: `Run the daily sweep for the given owners, or for every owner with an
active template when none are given. Owners are processed in parallel up to
recurrence.max_parallel_owners; one owner failing does not stop the rest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Service(cmd.Context())
			if err != nil {
				return err
			}
			results, err := svc.SweepAll(cmd.Context(), owners)
			PrintSweepSummary(cmd.OutOrStdout(), results)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&owners, "owner", nil, "Owner to sweep (repeatable, default all)")
	cmd.AddCommand(newSweepRunsCommand(app))
	return cmd
}

func newSweepRunsCommand(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent sweep runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Storage(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := store.ListSweepRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			PrintSweepRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}
