package cmd

import (
	"fmt"

	"github.com/opencivic/civiledger/internal/cli"
	"github.com/opencivic/civiledger/internal/importer"
	"github.com/opencivic/civiledger/internal/money"

	"github.com/spf13/cobra"
)

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Log expenses and bills against reserved grievances",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add <grievance-ref> <description> <amount>",
	Short: "Log one expense line, e.g. civiledger expense add GRV-2041 \"pipe replacement\" 8200",
	Args:  cobra.ExactArgs(3),
	RunE:  runExpenseAdd,
}

var expenseBillCmd = &cobra.Command{
	Use:   "bill <grievance-ref> <bill-ref>",
	Short: "Attach a bill reference to a grievance's binding",
	Args:  cobra.ExactArgs(2),
	RunE:  runExpenseBill,
}

var expenseImportCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Bulk import expenses from a field-device CSV export",
	Args:  cobra.ExactArgs(1),
	RunE:  runExpenseImport,
}

func init() {
	expenseCmd.AddCommand(expenseAddCmd)
	expenseCmd.AddCommand(expenseBillCmd)
	expenseCmd.AddCommand(expenseImportCmd)
	rootCmd.AddCommand(expenseCmd)
}

func runExpenseAdd(_ *cobra.Command, args []string) error {
	amount, err := money.Parse(args[2])
	if err != nil {
		return err
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.AddExpense(args[0], args[1], amount); err != nil {
		return err
	}
	fmt.Printf("  Logged %s against %s\n", cli.FormatAmount(amount), args[0])
	return nil
}

func runExpenseBill(_ *cobra.Command, args []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.AttachBill(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("  Attached bill %s to %s\n", args[1], args[0])
	return nil
}

func runExpenseImport(_ *cobra.Command, args []string) error {
	result, err := importer.ParseFile(args[0])
	if err != nil {
		return err
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	importer.Apply(eng, result)

	fmt.Printf("  Applied %d of %d expense rows\n", result.Applied, len(result.Rows))
	for _, re := range result.RowErrors {
		fmt.Printf("  %s\n", cli.Errorf("line %d: %v", re.Line, re.Err))
	}
	return nil
}
