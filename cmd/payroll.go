package cmd

import (
	"fmt"
	"time"

	"github.com/opencivic/civiledger/internal/cli"

	"github.com/spf13/cobra"
)

var (
	flagPayrollMonth int
	flagPayrollYear  int
)

var payrollCmd = &cobra.Command{
	Use:   "payroll",
	Short: "Run and inspect monthly salary payroll",
}

var payrollPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Preview the salary bill for a month without debiting",
	RunE:  runPayrollPending,
}

var payrollRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Debit active engineer salaries for a month (at most once per month)",
	RunE:  runPayrollRun,
}

var payrollHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List payroll receipts on the active budget",
	RunE:  runPayrollHistory,
}

func init() {
	now := time.Now()
	payrollCmd.PersistentFlags().IntVar(&flagPayrollMonth, "month", int(now.Month()), "Calendar month 1-12")
	payrollCmd.PersistentFlags().IntVar(&flagPayrollYear, "year", now.Year(), "Calendar year")

	payrollCmd.AddCommand(payrollPendingCmd)
	payrollCmd.AddCommand(payrollRunCmd)
	payrollCmd.AddCommand(payrollHistoryCmd)
	rootCmd.AddCommand(payrollCmd)
}

func runPayrollPending(_ *cobra.Command, _ []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := eng.PayrollPending(flagPayrollMonth, flagPayrollYear)
	if err != nil {
		return err
	}

	fmt.Printf("  Payroll for %s\n", cli.FormatMonth(p.Month, p.Year))
	if p.AlreadyProcessed {
		fmt.Println("  Already processed — nothing pending.")
		return nil
	}

	fmt.Printf("  Active engineers: %d\n", p.ActiveEngineers)
	fmt.Printf("  Pending salaries: %s\n", cli.FormatAmount(p.TotalPendingSalary))
	fmt.Printf("  Salary pool left: %s\n", cli.FormatAmount(p.SalaryBudgetRemaining))
	if p.TotalPendingSalary > p.SalaryBudgetRemaining {
		fmt.Printf("  %s\n", cli.Warn("salary pool will go negative — payroll still runs"))
	}
	return nil
}

func runPayrollRun(_ *cobra.Command, _ []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := eng.ProcessPayroll(flagPayrollMonth, flagPayrollYear)
	if err != nil {
		return err
	}

	r := result.Receipt
	fmt.Printf("  Paid %d engineers %s for %s\n",
		r.EngineerCount, cli.Spent(cli.FormatAmount(r.TotalAmount)), cli.FormatMonth(r.Month, r.Year))
	fmt.Printf("  Salary pool remaining: %s\n", cli.FormatAmount(result.Remaining))
	if result.Shortfall {
		fmt.Printf("  %s\n", cli.Warn("salary pool overdrawn — raise the allocation"))
	}
	return nil
}

func runPayrollHistory(_ *cobra.Command, _ []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := eng.ActiveBudget()
	if err != nil {
		return err
	}
	if len(b.PayrollHistory) == 0 {
		fmt.Println("  No payroll runs yet.")
		return nil
	}

	rows := make([][]string, 0, len(b.PayrollHistory))
	for _, r := range b.PayrollHistory {
		rows = append(rows, []string{
			cli.FormatMonth(r.Month, r.Year),
			fmt.Sprintf("%d", r.EngineerCount),
			cli.FormatAmount(r.TotalAmount),
			cli.FormatDate(r.ProcessedAt),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Payroll — %s", b.FiscalYear),
		Headers: []string{"Month", "Engineers", "Amount", "Processed"},
		Rows:    rows,
	}))
	fmt.Printf("  Salary pool: %s spent of %s\n",
		cli.FormatAmount(b.Salary.Spent), cli.FormatAmount(b.Salary.Allocated))
	return nil
}
