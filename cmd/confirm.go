package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/opencivic/civiledger/internal/cli"
	"github.com/opencivic/civiledger/internal/config"
	"github.com/opencivic/civiledger/internal/grievance"
	"github.com/opencivic/civiledger/internal/ledger"

	"github.com/spf13/cobra"
)

var (
	flagConfirmDecision string
	flagConfirmNotes    string
)

var confirmCmd = &cobra.Command{
	Use:   "confirm <grievance-ref>",
	Short: "Settle a completed grievance's reservation (approve, rework, or reject)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfirm,
}

var confirmAllCmd = &cobra.Command{
	Use:   "all [grievance-refs...]",
	Short: "Approve every completed-awaiting-review reservation in one sweep",
	RunE:  runConfirmAll,
}

func init() {
	confirmCmd.PersistentFlags().StringVar(&flagConfirmDecision, "decision", "approve", "approve, rework, or reject")
	confirmCmd.PersistentFlags().StringVar(&flagConfirmNotes, "notes", "", "Admin notes recorded on the binding")

	confirmCmd.AddCommand(confirmAllCmd)
	rootCmd.AddCommand(confirmCmd)
}

func runConfirm(_ *cobra.Command, args []string) error {
	decision, err := ledger.ParseDecision(flagConfirmDecision)
	if err != nil {
		return err
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	binding, err := st.GetBindingByGrievance(args[0])
	if err != nil {
		return fmt.Errorf("no reservation for grievance %s", args[0])
	}

	result, err := eng.ConfirmSingle(binding.ID, decision, flagConfirmNotes)
	if err != nil {
		return err
	}

	switch result.Decision {
	case ledger.DecisionRework:
		fmt.Printf("  %s sent back for rework; %s stays reserved\n",
			result.GrievanceRef, cli.FormatAmount(binding.ReservedAmount))
	case ledger.DecisionReject:
		fmt.Printf("  %s rejected; released %s back to %s\n",
			result.GrievanceRef, cli.FormatAmount(result.Returned), result.Category)
	default:
		fmt.Printf("  %s settled at %s", result.GrievanceRef, cli.FormatAmount(result.ActualSpent))
		if result.Returned > 0 {
			fmt.Printf("; returned %s to %s", cli.FormatAmount(result.Returned), result.Category)
		}
		fmt.Println()
	}
	if result.Overrun {
		fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf("%s is over its allocation", result.Category)))
	}

	signalWorkflow(result.GrievanceRef, result.Decision)
	return nil
}

func runConfirmAll(_ *cobra.Command, args []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	// Explicit refs become binding IDs; no refs sweeps everything reviewable.
	ids := make([]string, 0, len(args))
	for _, ref := range args {
		b, err := st.GetBindingByGrievance(ref)
		if err != nil {
			return fmt.Errorf("no reservation for grievance %s", ref)
		}
		ids = append(ids, b.ID)
	}

	result, err := eng.ConfirmAll(ids, flagConfirmNotes)
	if err != nil {
		return err
	}

	if result.TotalCount == 0 {
		fmt.Println("  Nothing awaiting review.")
		return nil
	}

	fmt.Printf("  Settled %d of %d reservations\n", result.ConfirmedCount, result.TotalCount)
	fmt.Printf("  Spent %s, returned %s to category pools\n",
		cli.FormatAmount(result.TotalSpent), cli.FormatAmount(result.TotalReturned))
	if result.Overruns > 0 {
		fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf("%d categories pushed over allocation", result.Overruns)))
	}
	for _, be := range result.Errors {
		fmt.Printf("  %s\n", cli.Errorf("%s: %v", be.GrievanceRef, be.Err))
	}
	return nil
}

// signalWorkflow tells the grievance dashboard about the outcome so the task
// moves out of completed-awaiting-review. Best effort: the settlement already
// committed, so a workflow failure is a warning only.
func signalWorkflow(grievanceRef string, decision ledger.Decision) {
	cfg, _ := config.Load()
	client := grievance.NewClient(cfg.GrievanceAPI.BaseURL, config.GetGrievanceToken(cfg))
	if client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	switch decision {
	case ledger.DecisionRework:
		err = client.SignalRework(ctx, grievanceRef, flagConfirmNotes)
	default:
		err = client.SignalSettled(ctx, grievanceRef, flagConfirmNotes)
	}
	if err != nil && !flagQuiet {
		fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf("workflow not notified: %v", err)))
	}
}
