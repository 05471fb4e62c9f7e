package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ItsMattG/property-tracker-sub002/internal/adapters/csvimport"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/storage"
)

func newTransactionsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn"},
		Short:   "Import and inspect bank transactions",
	}
	cmd.AddCommand(newTransactionsImportCommand(app), newTransactionsListCommand(app))
	return cmd
}

func newTransactionsImportCommand(app *App) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Import transactions from a CSV file with the header
id,owner_id,property_id,date,amount,category,description

Amounts are signed (expenses negative). Rows without an id get a stable
content-derived id, so importing the same file twice is a no-op.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(owner); err != nil {
				return err
			}
			txns, err := csvimport.ReadTransactionsFile(args[0], owner)
			if err != nil {
				return err
			}
			store, err := app.Storage(cmd.Context())
			if err != nil {
				return err
			}
			inserted, err := store.SaveTransactions(cmd.Context(), txns)
			if err != nil {
				return err
			}

			app.logger.Info("Transactions imported", "file", args[0], "read", len(txns), "inserted", inserted)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d transaction(s) (%d already present)\n",
				inserted, len(txns), len(txns)-inserted)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner for rows without an owner_id (required)")
	return cmd
}

func newTransactionsListCommand(app *App) *cobra.Command {
	var owner, property, from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(owner); err != nil {
				return err
			}
			filters := storage.TransactionFilters{OwnerID: owner, PropertyID: property}
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
			txns, err := store.ListTransactions(cmd.Context(), filters)
			if err != nil {
				return err
			}
			PrintTransactions(cmd.OutOrStdout(), txns)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner identifier (required)")
	cmd.Flags().StringVar(&property, "property", "", "Filter by property")
	cmd.Flags().StringVar(&from, "from", "", "Earliest date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Latest date YYYY-MM-DD")
	return cmd
}

// PrintTransactions prints one row per transaction
func PrintTransactions(w io.Writer, txns []recurrence.Transaction) {
	if len(txns) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROPERTY\tDATE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, tx := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.PropertyID, tx.Date, tx.Amount.StringFixed(2), tx.Category, truncate(tx.Description, 40))
	}
	_ = tw.Flush()
}
