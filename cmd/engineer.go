package cmd

import (
	"fmt"
	"time"

	"github.com/opencivic/civiledger/internal/cli"
	"github.com/opencivic/civiledger/internal/money"

	"github.com/spf13/cobra"
)

var flagEngineerJoined string

var engineerCmd = &cobra.Command{
	Use:   "engineer",
	Short: "Manage salaried engineers on the active budget",
}

var engineerAddCmd = &cobra.Command{
	Use:   "add <ref> <monthly-salary>",
	Short: "Add an engineer, e.g. civiledger engineer add ENG-014 45000",
	Args:  cobra.ExactArgs(2),
	RunE:  runEngineerAdd,
}

var engineerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List engineers on the active budget",
	RunE:  runEngineerList,
}

var engineerDeactivateCmd = &cobra.Command{
	Use:   "deactivate <ref>",
	Short: "Exclude an engineer from future payroll runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runEngineerDeactivate,
}

func init() {
	engineerAddCmd.Flags().StringVar(&flagEngineerJoined, "joined", "", "Joining date as YYYY-MM-DD (default today)")

	engineerCmd.AddCommand(engineerAddCmd)
	engineerCmd.AddCommand(engineerListCmd)
	engineerCmd.AddCommand(engineerDeactivateCmd)
	rootCmd.AddCommand(engineerCmd)
}

func runEngineerAdd(_ *cobra.Command, args []string) error {
	salary, err := money.Parse(args[1])
	if err != nil {
		return fmt.Errorf("monthly salary: %w", err)
	}

	joined := time.Now()
	if flagEngineerJoined != "" {
		joined, err = time.ParseInLocation("2006-01-02", flagEngineerJoined, time.Local)
		if err != nil {
			return fmt.Errorf("joined date: %w", err)
		}
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.AddEngineer(args[0], salary, joined); err != nil {
		return err
	}
	fmt.Printf("  Added engineer %s at %s/month\n", args[0], cli.FormatAmount(salary))
	return nil
}

func runEngineerList(_ *cobra.Command, _ []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := eng.ActiveBudget()
	if err != nil {
		return err
	}
	if len(b.Engineers) == 0 {
		fmt.Println("  No engineers on this budget yet.")
		return nil
	}

	rows := make([][]string, 0, len(b.Engineers))
	var monthly money.Paise
	for _, e := range b.Engineers {
		status := "active"
		if !e.Active {
			status = "inactive"
		} else {
			monthly += e.MonthlySalary
		}
		rows = append(rows, []string{
			e.Ref,
			cli.FormatAmount(e.MonthlySalary),
			status,
			cli.FormatDate(e.JoinedDate),
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"Monthly bill", cli.FormatAmount(monthly), "", ""})

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Engineers — %s", b.FiscalYear),
		Headers: []string{"Ref", "Salary", "Status", "Joined"},
		Rows:    rows,
	}))
	return nil
}

func runEngineerDeactivate(_ *cobra.Command, args []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.SetEngineerActive(args[0], false); err != nil {
		return err
	}
	fmt.Printf("  Engineer %s removed from payroll\n", args[0])
	return nil
}
