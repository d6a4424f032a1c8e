// Package cmd implements the civiledger CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/opencivic/civiledger/internal/config"
	"github.com/opencivic/civiledger/internal/ledger"
	"github.com/opencivic/civiledger/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagDBPath string
	flagQuiet  bool
)

var rootCmd = &cobra.Command{
	Use:   "civiledger",
	Short: "Municipal Budget Ledger CLI",
	Long:  "Track fiscal-year budgets, grievance reservations, settlements, and payroll for a municipal dashboard.",
	RunE:  runStatus,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDBPath, "db", "d", "", "Ledger database path (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// openEngine is the shared setup path used by all commands. The caller must
// Close the returned store.
func openEngine() (*ledger.Engine, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	dbPath := flagDBPath
	if dbPath == "" {
		dbPath = config.DBPath(cfg)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening ledger database: %w", err)
	}

	return ledger.New(st, nil), st, nil
}
