package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

type templateAddFlags struct {
	owner           string
	property        string
	description     string
	amount          string
	category        string
	transactionType string
	frequency       string
	start           string
	end             string
	dayOfMonth      int
	dayOfWeek       int
	amountTolerance string
	dateTolerance   int
	alertDelay      int
}

func newTemplateCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage recurring templates",
	}
	cmd.AddCommand(newTemplateAddCommand(app), newTemplateListCommand(app))
	return cmd
}

func newTemplateAddCommand(app *App) *cobra.Command {
	f := &templateAddFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a template and generate its first expectations",
		Long: `Create a recurring template. Expectations are generated immediately from
today over the creation horizon.

Examples:
  recurrence template add --owner u1 --property p1 --description "Rent" \
    --amount 2500 --category rent --frequency monthly --start 2024-01-01 --day-of-month 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := f.template(cmd)
			if err != nil {
				return err
			}

			svc, err := app.Service(cmd.Context())
			if err != nil {
				return err
			}
			generated, err := svc.CreateTemplate(cmd.Context(), &t)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created template %s (%s %s, %d expectation(s) generated)\n",
				t.ID, t.Frequency, t.Amount.StringFixed(2), generated)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.owner, "owner", "", "Owner identifier (required)")
	flags.StringVar(&f.property, "property", "", "Property identifier (required)")
	flags.StringVar(&f.description, "description", "", "Description shown to the owner")
	flags.StringVar(&f.amount, "amount", "", "Expected amount, positive (required)")
	flags.StringVar(&f.category, "category", "", "Transaction category")
	flags.StringVar(&f.transactionType, "type", "expense", "income or expense")
	flags.StringVar(&f.frequency, "frequency", "monthly", "weekly, fortnightly, monthly, quarterly or annually")
	flags.StringVar(&f.start, "start", "", "Start date YYYY-MM-DD (required)")
	flags.StringVar(&f.end, "end", "", "Optional end date YYYY-MM-DD")
	flags.IntVar(&f.dayOfMonth, "day-of-month", 0, "Anchor day for monthly, quarterly and annual series (1-31)")
	flags.IntVar(&f.dayOfWeek, "day-of-week", 0, "Anchor weekday for weekly and fortnightly series (0 = Sunday)")
	flags.StringVar(&f.amountTolerance, "amount-tolerance", recurrence.DefaultAmountTolerancePercent.String(), "Amount tolerance percent")
	flags.IntVar(&f.dateTolerance, "date-tolerance", recurrence.DefaultDateToleranceDays, "Date tolerance in days")
	flags.IntVar(&f.alertDelay, "alert-delay", recurrence.DefaultAlertDelayDays, "Days past the expected date before an occurrence is missed")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("property")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func (f *templateAddFlags) template(cmd *cobra.Command) (recurrence.Template, error) {
	freq, err := recurrence.ParseFrequency(f.frequency)
	if err != nil {
		return recurrence.Template{}, err
	}
	txType, err := recurrence.ParseTransactionType(f.transactionType)
	if err != nil {
		return recurrence.Template{}, err
	}
	amount, err := decimal.NewFromString(f.amount)
	if err != nil {
		return recurrence.Template{}, fmt.Errorf("--amount %q: %w", f.amount, err)
	}
	tolerance, err := decimal.NewFromString(f.amountTolerance)
	if err != nil {
		return recurrence.Template{}, fmt.Errorf("--amount-tolerance %q: %w", f.amountTolerance, err)
	}
	start, err := calendar.Parse(f.start)
	if err != nil {
		return recurrence.Template{}, fmt.Errorf("--start: %w", err)
	}

	t := recurrence.NewTemplate(freq, start, amount)
	t.OwnerID = f.owner
	t.PropertyID = f.property
	t.Description = f.description
	t.Category = f.category
	t.TransactionType = txType
	t.AmountTolerancePercent = tolerance
	t.DateToleranceDays = f.dateTolerance
	t.AlertDelayDays = f.alertDelay

	if f.end != "" {
		end, err := calendar.Parse(f.end)
		if err != nil {
			return recurrence.Template{}, fmt.Errorf("--end: %w", err)
		}
		t.EndDate = &end
	}
	if cmd.Flags().Changed("day-of-month") {
		t.DayOfMonth = recurrence.IntPtr(f.dayOfMonth)
	}
	if cmd.Flags().Changed("day-of-week") {
		t.DayOfWeek = recurrence.IntPtr(f.dayOfWeek)
	}
	return t, nil
}

func newTemplateListCommand(app *App) *cobra.Command {
	var (
		owner string
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(owner); err != nil {
				return err
			}
			store, err := app.Storage(cmd.Context())
			if err != nil {
				return err
			}
			templates, err := store.ListTemplates(cmd.Context(), owner, !all)
			if err != nil {
				return err
			}
			PrintTemplates(cmd.OutOrStdout(), templates)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner identifier (required)")
	cmd.Flags().BoolVar(&all, "all", false, "Include inactive templates")
	return cmd
}
