// Package cli implements the recurrence command line.
//
// Every command shares one bootstrap: load config (YAML, then env), build a
// logger on stderr, open the SQLite store and wire the reconcile service.
// Data goes to stdout so it can be piped.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ItsMattG/property-tracker-sub002/internal/application/reconcile"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/config"
	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/logging"
	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/storage"
)

// App carries the state shared by every subcommand
type App struct {
	ConfigPath   string
	DatabasePath string
	AsOf         string
	Verbose      bool

	cfg    *config.Config
	logger *slog.Logger
	store  *storage.Storage
}

// Execute runs the root command against os.Args
func Execute() error {
	app := &App{}
	defer app.Close()
	return NewRootCommand(app).Execute()
}

// NewRootCommand builds the full command tree around app. The caller closes
// app when the command returns.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "recurrence",
		Short: "Track expected recurring property transactions",
		Long: `recurrence materialises expected occurrences from recurring templates,
matches them against imported bank transactions and flags the ones that
never arrived.

Examples:
  # Add a monthly rent template
  recurrence template add --owner u1 --property p1 --description "Rent" \
    --amount 2500 --category rent --frequency monthly --start 2024-01-01

  # Import bank history and run the daily sweep
  recurrence transactions import history.csv --owner u1
  recurrence sweep

  # Suggest templates from history
  recurrence patterns detect --owner u1`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.ConfigPath, "config", "config.yaml", "Path to config file")
	flags.StringVar(&app.DatabasePath, "db", "", "SQLite database path (overrides config)")
	flags.StringVar(&app.AsOf, "as-of", "", "Evaluate as of this date (YYYY-MM-DD) instead of today")
	flags.BoolVarP(&app.Verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newTemplateCommand(app),
		newTransactionsCommand(app),
		newSweepCommand(app),
		newOccurrencesCommand(app),
		newPatternsCommand(app),
	)
	return root
}

func (a *App) init(logOut io.Writer) error {
	cfg, fileErr := config.LoadOrEnv(a.ConfigPath)
	if a.DatabasePath != "" {
		cfg.Storage.DatabasePath = a.DatabasePath
	}
	if a.Verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if a.AsOf != "" {
		if _, err := calendar.Parse(a.AsOf); err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
	}

	a.cfg = cfg
	a.logger = logging.NewLoggerTo(logOut, cfg.Observability.Logging).With(logging.ComponentKey, "cli")
	if fileErr != nil {
		a.logger.Debug("config file not used, falling back to environment", "path", a.ConfigPath, "error", fileErr)
	}
	return nil
}

// Storage opens the database on first use
func (a *App) Storage(ctx context.Context) (*storage.Storage, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := storage.NewStorageContext(ctx, a.cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.logger.Debug("database opened", "path", a.cfg.Storage.DatabasePath)
	a.store = store
	return store, nil
}

// Clock returns the clock commands evaluate "today" against
func (a *App) Clock() calendar.Clock {
	if a.AsOf != "" {
		return calendar.NewFixedClock(calendar.MustParse(a.AsOf))
	}
	// Validate has already rejected an unknown timezone
	loc, _ := a.cfg.Location()
	return calendar.SystemClock{Location: loc}
}

// Service wires the reconcile service onto the store
func (a *App) Service(ctx context.Context) (*reconcile.Service, error) {
	store, err := a.Storage(ctx)
	if err != nil {
		return nil, err
	}
	opts := reconcile.OptionsFromConfig(a.cfg.Recurrence)
	return reconcile.NewService(store, a.Clock(), opts, a.logger), nil
}

// Close releases the database if it was opened
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func requireOwner(owner string) error {
	if owner == "" {
		return fmt.Errorf("--owner is required")
	}
	return nil
}
