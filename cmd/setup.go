package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opencivic/civiledger/internal/config"
	"github.com/opencivic/civiledger/internal/ledger"
	"github.com/opencivic/civiledger/internal/money"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)

	// Load existing config or defaults
	cfg, _ := config.Load()

	fmt.Println()
	fmt.Println("  Welcome to civiledger!")
	fmt.Println()

	// 1. Grievance dashboard API
	fmt.Println("  1. Grievance dashboard API base URL")
	fmt.Println("     Lets confirm/sync talk to the grievance workflow. Leave blank to skip.")
	if cfg.GrievanceAPI.BaseURL != "" {
		fmt.Printf("     Current: %s\n", cfg.GrievanceAPI.BaseURL)
	}
	fmt.Print("     > ")
	baseURL, _ := reader.ReadString('\n')
	baseURL = strings.TrimSpace(baseURL)
	if baseURL != "" {
		cfg.GrievanceAPI.BaseURL = baseURL
	}
	fmt.Println()

	fmt.Println("  2. Grievance dashboard API token")
	existing := config.GetGrievanceToken(cfg)
	if existing != "" {
		fmt.Printf("     Current: %s\n", maskToken(existing))
	}
	fmt.Print("     > ")
	token, _ := reader.ReadString('\n')
	token = strings.TrimSpace(token)
	if token != "" {
		cfg.GrievanceAPI.Token = token
	}
	fmt.Println()

	// 3. Fiscal year start
	fmt.Println("  3. Fiscal year start month")
	fmt.Println("     (4) April [default, Indian municipal FY]")
	fmt.Println("     (1) January")
	fmt.Print("     > ")
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)
	if choice != "" {
		if month, err := strconv.Atoi(choice); err == nil && month >= 1 && month <= 12 {
			cfg.General.FiscalYearStartMonth = month
		}
	}
	if cfg.General.FiscalYearStartMonth == 0 {
		cfg.General.FiscalYearStartMonth = 4
	}
	fmt.Println()

	// 4. Database location
	fmt.Println("  4. Ledger database path")
	fmt.Printf("     Default: %s\n", config.DefaultDBPath())
	fmt.Print("     > ")
	dbPath, _ := reader.ReadString('\n')
	dbPath = strings.TrimSpace(dbPath)
	if dbPath != "" {
		cfg.General.DBPath = dbPath
	}

	// Save before the budget step so the draft lands in the configured DB.
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println()

	if err := setupFirstBudget(reader, cfg.General.FiscalYearStartMonth); err != nil {
		return err
	}

	fmt.Println("  Run `civiledger setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}

// setupFirstBudget offers to create the first draft budget. Every prompt is
// skippable; blank fiscal year skips the whole step.
func setupFirstBudget(reader *bufio.Reader, startMonth int) error {
	defaultFY := fiscalYearLabel(time.Now(), startMonth)

	fmt.Println("  5. First draft budget")
	fmt.Printf("     Fiscal year [%s], blank to skip\n", defaultFY)
	fmt.Print("     > ")
	fy, _ := reader.ReadString('\n')
	fy = strings.TrimSpace(fy)
	if fy == "" {
		fmt.Println("     Skipped. Create one later with `civiledger budget create`.")
		fmt.Println()
		return nil
	}
	if fy == defaultFY || strings.EqualFold(fy, "y") || strings.EqualFold(fy, "yes") {
		fy = defaultFY
	}

	start, end, err := fiscalYearDates(fy, startMonth)
	if err != nil {
		return err
	}

	total, err := promptAmount(reader, "Total budget (e.g. 50,00,000)")
	if err != nil {
		return err
	}
	salary, err := promptAmount(reader, "Salary pool")
	if err != nil {
		return err
	}
	operational, err := promptAmount(reader, "Operational pool")
	if err != nil {
		return err
	}

	engine, st, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	_, err = engine.CreateBudget(ledger.CreateBudgetParams{
		FiscalYear:           fy,
		StartDate:            start,
		EndDate:              end,
		TotalAllocated:       total,
		SalaryAllocated:      salary,
		OperationalAllocated: operational,
	})
	if err != nil {
		return fmt.Errorf("creating budget %s: %w", fy, err)
	}

	fmt.Println()
	fmt.Printf("  Draft budget %s created.\n", fy)
	fmt.Println("  Allocate categories with `civiledger budget allocate`, then")
	fmt.Println("  `civiledger budget activate` to open it for reservations.")
	fmt.Println()
	return nil
}

func promptAmount(reader *bufio.Reader, label string) (money.Paise, error) {
	fmt.Printf("     %s\n", label)
	fmt.Print("     > ")
	raw, _ := reader.ReadString('\n')
	amount, err := money.Parse(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// fiscalYearLabel names the fiscal year containing t, e.g. "2026-27" for any
// date from Apr 2026 through Mar 2027 with an April start.
func fiscalYearLabel(t time.Time, startMonth int) string {
	startYear := t.Year()
	if int(t.Month()) < startMonth {
		startYear--
	}
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

func maskToken(token string) string {
	if len(token) > 16 {
		return token[:8] + "..." + token[len(token)-4:]
	}
	if len(token) > 4 {
		return token[:4] + "..."
	}
	return "****"
}
