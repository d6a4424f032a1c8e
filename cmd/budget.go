package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opencivic/civiledger/internal/cli"
	"github.com/opencivic/civiledger/internal/config"
	"github.com/opencivic/civiledger/internal/ledger"
	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"

	"github.com/spf13/cobra"
)

var (
	flagBudgetTotal       string
	flagBudgetSalary      string
	flagBudgetOperational string
	flagBudgetAllocs      []string
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage fiscal-year budgets",
}

var budgetCreateCmd = &cobra.Command{
	Use:   "create <fiscal-year>",
	Short: "Create a draft budget, e.g. civiledger budget create 2026-27 --total 5000000 --salary 2000000 --operational 3000000",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetCreate,
}

var budgetActivateCmd = &cobra.Command{
	Use:   "activate <fiscal-year>",
	Short: "Activate a draft budget, closing the current active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetActivate,
}

var budgetAllocateCmd = &cobra.Command{
	Use:   "allocate <category> <amount>",
	Short: "Set a category allocation on the active budget",
	Args:  cobra.ExactArgs(2),
	RunE:  runBudgetAllocate,
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all budgets",
	RunE:  runBudgetList,
}

func init() {
	budgetCreateCmd.Flags().StringVar(&flagBudgetTotal, "total", "", "Total sanctioned amount in rupees")
	budgetCreateCmd.Flags().StringVar(&flagBudgetSalary, "salary", "", "Salary pool in rupees")
	budgetCreateCmd.Flags().StringVar(&flagBudgetOperational, "operational", "", "Operational pool in rupees")
	budgetCreateCmd.Flags().StringArrayVar(&flagBudgetAllocs, "alloc", nil, "Category allocation as category=amount (repeatable)")
	_ = budgetCreateCmd.MarkFlagRequired("total")
	_ = budgetCreateCmd.MarkFlagRequired("salary")
	_ = budgetCreateCmd.MarkFlagRequired("operational")

	budgetCmd.AddCommand(budgetCreateCmd)
	budgetCmd.AddCommand(budgetActivateCmd)
	budgetCmd.AddCommand(budgetAllocateCmd)
	budgetCmd.AddCommand(budgetListCmd)
	rootCmd.AddCommand(budgetCmd)
}

// fiscalYearDates resolves "2026-27" to its start and end dates using the
// configured fiscal year start month (April by default).
func fiscalYearDates(fy string, startMonth int) (time.Time, time.Time, error) {
	parts := strings.SplitN(fy, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("fiscal year must look like 2026-27, got %q", fy)
	}
	startYear, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("fiscal year must look like 2026-27, got %q", fy)
	}
	endSuffix, err := strconv.Atoi(parts[1])
	if err != nil || (startYear+1)%100 != endSuffix {
		return time.Time{}, time.Time{}, fmt.Errorf("fiscal year %q does not span consecutive years", fy)
	}
	if startMonth < 1 || startMonth > 12 {
		startMonth = 4
	}

	start := time.Date(startYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(1, 0, -1)
	return start, end, nil
}

func runBudgetCreate(_ *cobra.Command, args []string) error {
	fy := args[0]

	cfg, _ := config.Load()
	start, end, err := fiscalYearDates(fy, cfg.General.FiscalYearStartMonth)
	if err != nil {
		return err
	}

	total, err := money.Parse(flagBudgetTotal)
	if err != nil {
		return fmt.Errorf("total: %w", err)
	}
	salary, err := money.Parse(flagBudgetSalary)
	if err != nil {
		return fmt.Errorf("salary: %w", err)
	}
	operational, err := money.Parse(flagBudgetOperational)
	if err != nil {
		return fmt.Errorf("operational: %w", err)
	}

	allocs := make(map[model.Category]money.Paise)
	for _, raw := range flagBudgetAllocs {
		k, v, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("allocation %q must be category=amount", raw)
		}
		cat, err := model.ParseCategory(strings.TrimSpace(k))
		if err != nil {
			return err
		}
		amt, err := money.Parse(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("allocation for %s: %w", cat, err)
		}
		allocs[cat] = amt
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := eng.CreateBudget(ledger.CreateBudgetParams{
		FiscalYear:           fy,
		StartDate:            start,
		EndDate:              end,
		TotalAllocated:       total,
		SalaryAllocated:      salary,
		OperationalAllocated: operational,
		CategoryAllocations:  allocs,
	})
	if err != nil {
		return err
	}

	fmt.Printf("  Created draft budget %s\n", b.FiscalYear)
	fmt.Printf("  Total %s  Salary %s  Operational %s\n",
		cli.FormatAmount(b.TotalAllocated),
		cli.FormatAmount(b.Salary.Allocated),
		cli.FormatAmount(b.Operational.Allocated),
	)
	fmt.Printf("  Activate with: civiledger budget activate %s\n", b.FiscalYear)
	return nil
}

func runBudgetActivate(_ *cobra.Command, args []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.Activate(args[0]); err != nil {
		return err
	}
	fmt.Printf("  Budget %s is now active\n", args[0])
	return nil
}

func runBudgetAllocate(_ *cobra.Command, args []string) error {
	cat, err := model.ParseCategory(args[0])
	if err != nil {
		return err
	}
	amount, err := money.Parse(args[1])
	if err != nil {
		return err
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.UpdateAllocation(cat, amount); err != nil {
		return err
	}
	fmt.Printf("  %s allocation set to %s\n", cat, cli.FormatAmount(amount))
	return nil
}

func runBudgetList(_ *cobra.Command, _ []string) error {
	_, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	budgets, err := st.ListBudgets()
	if err != nil {
		return err
	}
	if len(budgets) == 0 {
		fmt.Println("  No budgets yet. Create one with: civiledger budget create 2026-27 ...")
		return nil
	}

	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		rows = append(rows, []string{
			b.FiscalYear,
			string(b.Status),
			cli.FormatAmount(b.TotalAllocated),
			cli.FormatAmount(b.Salary.Allocated),
			cli.FormatAmount(b.Operational.Allocated),
			cli.FormatDate(b.StartDate),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Budgets",
		Headers: []string{"Fiscal Year", "Status", "Total", "Salary", "Operational", "Starts"},
		Rows:    rows,
	}))
	return nil
}
