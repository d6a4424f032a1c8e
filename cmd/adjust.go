package cmd

import (
	"fmt"
	"strings"

	"github.com/opencivic/civiledger/internal/cli"
	"github.com/opencivic/civiledger/internal/money"

	"github.com/spf13/cobra"
)

var flagAdjustNote string

var adjustCmd = &cobra.Command{
	Use:   "adjust <grievance-ref> <amount>",
	Short: "Record a correction against a settled grievance (prefix with - to reduce spend)",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdjust,
}

func init() {
	adjustCmd.Flags().StringVar(&flagAdjustNote, "note", "", "Reason for the correction")
	_ = adjustCmd.MarkFlagRequired("note")

	rootCmd.AddCommand(adjustCmd)
}

func runAdjust(_ *cobra.Command, args []string) error {
	raw := args[1]
	negative := strings.HasPrefix(raw, "-")
	amount, err := money.Parse(strings.TrimPrefix(raw, "-"))
	if err != nil {
		return err
	}
	if negative {
		amount = -amount
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	adj, err := eng.Adjust(args[0], amount, flagAdjustNote)
	if err != nil {
		return err
	}

	verb := "added to"
	shown := adj.Amount
	if adj.Amount < 0 {
		verb = "removed from"
		shown = -adj.Amount
	}
	fmt.Printf("  Correction recorded: %s %s %s spend\n",
		cli.FormatAmount(shown), verb, adj.Category)
	return nil
}
