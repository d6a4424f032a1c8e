package cmd

import (
	"fmt"

	"github.com/opencivic/civiledger/internal/cli"
	"github.com/opencivic/civiledger/internal/report"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Full-budget summary with reservation and payroll aggregates",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := eng.ActiveBudget()
	if err != nil {
		return err
	}
	bindings, err := st.ListBindings(b.FiscalYear, "")
	if err != nil {
		return err
	}

	s := report.Summarize(b, bindings)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SUMMARY %s (%s)", s.FiscalYear, s.Status)))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Funds",
		Headers: []string{"", "Amount"},
		Rows: [][]string{
			{"Total sanctioned", cli.FormatAmount(s.TotalAllocated)},
			{"---"},
			{"Salary allocated", cli.FormatAmount(s.SalaryAllocated)},
			{"Salary spent", cli.FormatAmount(s.SalarySpent)},
			{"Salary remaining", cli.FormatAmount(s.SalaryRemaining)},
			{"---"},
			{"Operational allocated", cli.FormatAmount(s.OperationalAllocated)},
			{"Operational spent", cli.FormatAmount(s.OperationalSpent)},
			{"Reserved (in-flight)", cli.FormatAmount(s.OperationalReserved)},
			{"Awaiting review", cli.FormatAmount(s.OperationalPending)},
			{"Operational available", cli.FormatAmount(s.OperationalAvailable)},
		},
	}))

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Activity",
		Headers: []string{"", "Count"},
		Rows: [][]string{
			{"Open reservations", fmt.Sprintf("%d", s.OpenBindings)},
			{"Awaiting review", fmt.Sprintf("%d", s.ReviewableBindings)},
			{"Settled", fmt.Sprintf("%d", s.SettledBindings)},
			{"Active engineers", fmt.Sprintf("%d", s.ActiveEngineers)},
			{"Payroll runs", fmt.Sprintf("%d", s.PayrollRuns)},
		},
	}))

	monthly := report.MonthlyBreakdown(bindings)
	if len(monthly) > 0 {
		values := make([]float64, len(monthly))
		rows := make([][]string, 0, len(monthly))
		peak := monthly[0]
		for i, m := range monthly {
			values[i] = float64(m.Spent)
			if m.Spent > peak.Spent {
				peak = m
			}
			rows = append(rows, []string{
				cli.FormatMonth(m.Month, m.Year),
				fmt.Sprintf("%d", m.Settled),
				cli.FormatAmount(m.Spent),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Settled by Month",
			Headers: []string{"Month", "Settled", "Spent"},
			Rows:    rows,
		}))
		fmt.Printf("  Trend: %s  peak %s in %s\n",
			cli.RenderSparkline(values),
			cli.FormatCompact(peak.Spent),
			cli.FormatMonth(peak.Month, peak.Year))
	}

	fmt.Println()
	return nil
}
