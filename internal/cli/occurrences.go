package cli

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/storage"
)

func newOccurrencesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "occurrences",
		Aliases: []string{"occ"},
		Short:   "Inspect and resolve expected occurrences",
	}
	cmd.AddCommand(
		newOccurrencesListCommand(app),
		newOccurrencesConfirmCommand(app),
		newOccurrencesSkipCommand(app),
	)
	return cmd
}

func newOccurrencesListCommand(app *App) *cobra.Command {
	var (
		owner, template, property, status, from, to string
		limit                                       int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List occurrences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(owner); err != nil {
				return err
			}
			filters := storage.OccurrenceFilters{
				OwnerID:    owner,
				TemplateID: template,
				PropertyID: property,
				Limit:      limit,
			}
			if status != "" {
				st, err := recurrence.ParseStatus(status)
				if err != nil {
					return err
				}
				filters.Status = st
			}
			var err error
			if filters.From, err = parseOptionalDate("--from", from); err != nil {
				return err
			}
			if filters.To, err = parseOptionalDate("--to", to); err != nil {
				return err
			}

			store, err := app.Storage(cmd.Context())
			if err != nil {
				return err
			}
			occs, err := store.ListOccurrences(cmd.Context(), filters)
			if err != nil {
				return err
			}
			PrintOccurrences(cmd.OutOrStdout(), occs)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&owner, "owner", "", "Owner identifier (required)")
	flags.StringVar(&template, "template", "", "Filter by template")
	flags.StringVar(&property, "property", "", "Filter by property")
	flags.StringVar(&status, "status", "", "pending, matched, missed or skipped")
	flags.StringVar(&from, "from", "", "Earliest expected date YYYY-MM-DD")
	flags.StringVar(&to, "to", "", "Latest expected date YYYY-MM-DD")
	flags.IntVar(&limit, "limit", 0, "Maximum rows (0 = no limit)")
	return cmd
}

func newOccurrencesConfirmCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <occurrence-id> <transaction-id>",
		Short: "Match a pending occurrence to a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.ConfirmMatch(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Occurrence %s matched to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newOccurrencesSkipCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <occurrence-id>",
		Short: "Mark a pending occurrence as not expected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Skip(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Occurrence %s skipped\n", args[0])
			return nil
		},
	}
}

func parseOptionalDate(flag, value string) (civil.Date, error) {
	if value == "" {
		return civil.Date{}, nil
	}
	d, err := calendar.Parse(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%s: %w", flag, err)
	}
	return d, nil
}
