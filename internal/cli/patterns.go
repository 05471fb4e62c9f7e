package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ItsMattG/property-tracker-sub002/internal/adapters/csvimport"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/pattern"
)

// csvOwner stands in for rows without an owner when a file is analysed
// offline
const csvOwner = "csv"

func newPatternsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Detect recurring patterns in transaction history",
	}
	cmd.AddCommand(newPatternsDetectCommand(app), newPatternsAcceptCommand(app))
	return cmd
}

func newPatternsDetectCommand(app *App) *cobra.Command {
	var owner, csvPath, outPath string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Suggest templates from transaction history",
		Long: `Suggest templates from an owner's stored transactions, or from a CSV file
without touching the database. Suggestions already covered by an active
template are marked as tracked.

Examples:
  recurrence patterns detect --owner u1
  recurrence patterns detect --csv history.csv --out suggestions.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var suggestions []pattern.Suggestion
			switch {
			case csvPath != "":
				fileOwner := owner
				if fileOwner == "" {
					fileOwner = csvOwner
				}
				txns, err := csvimport.ReadTransactionsFile(csvPath, fileOwner)
				if err != nil {
					return err
				}
				suggestions = pattern.Detect(txns)
			case owner != "":
				svc, err := app.Service(cmd.Context())
				if err != nil {
					return err
				}
				if suggestions, err = svc.SuggestPatterns(cmd.Context(), owner); err != nil {
					return err
				}
			default:
				return fmt.Errorf("either --owner or --csv is required")
			}

			if outPath != "" {
				if err := csvimport.WriteSuggestionsFile(outPath, suggestions); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d suggestion(s) to %s\n", len(suggestions), outPath)
				return nil
			}
			PrintSuggestions(cmd.OutOrStdout(), suggestions)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner whose stored transactions are analysed")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Analyse this CSV file instead of the database")
	cmd.Flags().StringVar(&outPath, "out", "", "Write suggestions as CSV to this file")
	return cmd
}

func newPatternsAcceptCommand(app *App) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "accept <key>",
		Short: "Create a template from a detected pattern",
		Long: `Create a template from the suggestion with the given key
(category|property|bucket). The template starts at the pattern's next
expected date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(owner); err != nil {
				return err
			}
			svc, err := app.Service(cmd.Context())
			if err != nil {
				return err
			}
			suggestions, err := svc.SuggestPatterns(cmd.Context(), owner)
			if err != nil {
				return err
			}

			for _, s := range suggestions {
				if s.Key != args[0] {
					continue
				}
				if s.AlreadyTracked {
					return fmt.Errorf("pattern %s is already tracked by an active template", s.Key)
				}
				t := s.ProposedTemplate(owner)
				generated, err := svc.CreateTemplate(cmd.Context(), &t)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created template %s from %s (%s, %d expectation(s) generated)\n",
					t.ID, s.Key, t.Frequency, generated)
				return nil
			}
			return fmt.Errorf("no pattern with key %q", args[0])
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner identifier (required)")
	return cmd
}
