package cmd

import (
	"fmt"

	"github.com/opencivic/civiledger/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Fiscal year starts: month %d\n", cfg.General.FiscalYearStartMonth)
	fmt.Printf("    Database:           %s\n", config.DBPath(cfg))
	fmt.Println()

	fmt.Println("  [Grievance API]")
	if cfg.GrievanceAPI.BaseURL != "" {
		fmt.Printf("    Base URL: %s\n", cfg.GrievanceAPI.BaseURL)
	} else {
		fmt.Println("    Base URL: not configured")
	}
	token := config.GetGrievanceToken(cfg)
	if token != "" {
		fmt.Printf("    Token:    %s\n", maskToken(token))
	} else {
		fmt.Println("    Token:    not configured (set CIVILEDGER_GRIEVANCE_TOKEN or run setup)")
	}
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:       %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Poll interval: %ds\n", cfg.Daemon.PollIntervalSec)
	fmt.Printf("    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	fmt.Println()

	fmt.Println("  Run `civiledger setup` to reconfigure.")
	return nil
}
