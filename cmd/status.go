package cmd

import (
	"errors"
	"fmt"

	"github.com/opencivic/civiledger/internal/cli"
	"github.com/opencivic/civiledger/internal/ledger"
	"github.com/opencivic/civiledger/internal/report"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active budget's pools and category utilization",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := eng.ActiveBudget()
	if err != nil {
		if errors.Is(err, ledger.ErrNoActiveBudget) {
			fmt.Println()
			fmt.Println("  No active budget.")
			fmt.Println("  Create one:   civiledger budget create 2026-27 --total ... --salary ... --operational ...")
			fmt.Println("  Activate it:  civiledger budget activate 2026-27")
			fmt.Println()
			return nil
		}
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("BUDGET %s", b.FiscalYear)))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Pools",
		Headers: []string{"Pool", "Allocated", "Spent", "Held", "Available"},
		Rows: [][]string{
			{
				"Salary",
				cli.FormatAmount(b.Salary.Allocated),
				cli.FormatAmount(b.Salary.Spent),
				"—",
				cli.FormatAmount(b.Salary.Remaining()),
			},
			{
				"Operational",
				cli.FormatAmount(b.Operational.Allocated),
				cli.FormatAmount(b.Operational.Spent),
				cli.FormatAmount(b.Operational.Reserved),
				cli.FormatAmount(b.Operational.Available()),
			},
		},
	}))

	fmt.Printf("  Salary      %s\n", cli.RenderUtilizationBar(int64(b.Salary.Spent), int64(b.Salary.Allocated), 24))
	fmt.Printf("  Operational %s\n",
		cli.RenderUtilizationBar(int64(b.Operational.Spent+b.Operational.Reserved), int64(b.Operational.Allocated), 24))
	fmt.Println()

	rows := make([][]string, 0, 10)
	for _, u := range report.Utilization(b) {
		if u.Allocated == 0 && u.GrievanceCount == 0 {
			continue
		}
		name := string(u.Category)
		if u.Overrun {
			name = name + " !"
		}
		rows = append(rows, []string{
			name,
			cli.FormatAmount(u.Allocated),
			cli.FormatAmount(u.Spent),
			cli.FormatAmount(u.Pending),
			cli.FormatAmount(u.Available),
			fmt.Sprintf("%d", u.GrievanceCount),
			cli.FormatPercent(u.UsedPercent),
		})
	}
	if len(rows) > 0 {
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Categories",
			Headers: []string{"Category", "Allocated", "Spent", "Pending", "Available", "Grievances", "Used"},
			Rows:    rows,
		}))
	} else {
		fmt.Println("  " + cli.Muted("No category allocations yet. Set one with: civiledger budget allocate water 100000"))
	}

	fmt.Println()
	return nil
}
