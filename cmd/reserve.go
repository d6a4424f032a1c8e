package cmd

import (
	"fmt"

	"github.com/opencivic/civiledger/internal/cli"
	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"

	"github.com/spf13/cobra"
)

var reserveCmd = &cobra.Command{
	Use:   "reserve <grievance-ref> <category> <amount>",
	Short: "Reserve funds for a grievance, e.g. civiledger reserve GRV-2041 water 15000",
	Args:  cobra.ExactArgs(3),
	RunE:  runReserve,
}

func init() {
	rootCmd.AddCommand(reserveCmd)
}

func runReserve(_ *cobra.Command, args []string) error {
	cat, err := model.ParseCategory(args[1])
	if err != nil {
		return err
	}
	amount, err := money.Parse(args[2])
	if err != nil {
		return err
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	binding, err := eng.Reserve(args[0], cat, amount)
	if err != nil {
		return err
	}

	fmt.Printf("  Reserved %s for %s under %s\n",
		cli.Reserved(cli.FormatAmount(binding.ReservedAmount)), binding.GrievanceRef, binding.Category)
	fmt.Printf("  Binding: %s\n", binding.ID)

	b, err := eng.ActiveBudget()
	if err == nil {
		pool := b.Pool(cat)
		fmt.Printf("  %s available: %s of %s\n",
			cat, cli.FormatAmount(pool.Available()), cli.FormatAmount(pool.Allocated))
	}
	return nil
}
