package cmd

import (
	"fmt"

	"github.com/opencivic/civiledger/internal/cli"
	"github.com/opencivic/civiledger/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagReservationsState  string
	flagReservationsReview bool
)

var reservationsCmd = &cobra.Command{
	Use:   "reservations",
	Short: "List grievance reservations on the active budget",
	RunE:  runReservations,
}

func init() {
	reservationsCmd.Flags().StringVar(&flagReservationsState, "state", "reserved", "reserved, settled, or all")
	reservationsCmd.Flags().BoolVar(&flagReservationsReview, "review", false, "Only those awaiting review")

	rootCmd.AddCommand(reservationsCmd)
}

func runReservations(_ *cobra.Command, _ []string) error {
	var state model.BindingState
	switch flagReservationsState {
	case "reserved":
		state = model.BindingReserved
	case "settled":
		state = model.BindingSettled
	case "all":
		state = ""
	default:
		return fmt.Errorf("unknown state %q (want reserved, settled, or all)", flagReservationsState)
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := eng.ActiveBudget()
	if err != nil {
		return err
	}

	bindings, err := st.ListBindings(b.FiscalYear, state)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(bindings))
	for _, binding := range bindings {
		if flagReservationsReview && !binding.Reviewable {
			continue
		}
		flag := string(binding.State)
		if binding.State == model.BindingReserved && binding.Reviewable {
			flag = "review"
		}
		rows = append(rows, []string{
			binding.GrievanceRef,
			string(binding.Category),
			cli.FormatAmount(binding.ReservedAmount),
			cli.FormatAmount(binding.SpentAmount),
			fmt.Sprintf("%d", len(binding.BillRefs)),
			flag,
			cli.FormatDate(binding.CreatedAt),
		})
	}

	if len(rows) == 0 {
		fmt.Println("  No matching reservations.")
		return nil
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Reservations — %s", b.FiscalYear),
		Headers: []string{"Grievance", "Category", "Reserved", "Accrued", "Bills", "State", "Created"},
		Rows:    rows,
	}))
	return nil
}
