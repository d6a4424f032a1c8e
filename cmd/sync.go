package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opencivic/civiledger/internal/config"
	"github.com/opencivic/civiledger/internal/grievance"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh review marks from the grievance dashboard",
	RunE:  runSync,
}

var markCmd = &cobra.Command{
	Use:   "mark <grievance-ref>",
	Short: "Manually mark a grievance completed-awaiting-review",
	Args:  cobra.ExactArgs(1),
	RunE:  runMark,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(markCmd)
}

func runSync(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()
	client := grievance.NewClient(cfg.GrievanceAPI.BaseURL, config.GetGrievanceToken(cfg))
	if client == nil {
		return errors.New("grievance API not configured — run `civiledger setup` first")
	}

	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	updated, err := eng.SyncReviewable(ctx, client)
	fmt.Printf("  Updated review marks on %d bindings\n", updated)
	if err != nil {
		if errors.Is(err, grievance.ErrUnauthorized) {
			return errors.New("api token expired or invalid — update it with `civiledger setup`")
		}
		return err
	}
	return nil
}

func runMark(_ *cobra.Command, args []string) error {
	eng, st, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.MarkReviewable(args[0]); err != nil {
		return err
	}
	fmt.Printf("  %s is now awaiting review\n", args[0])
	return nil
}
