package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/standby-systems/standby/internal/config"
	"github.com/standby-systems/standby/internal/store"
	"github.com/standby-systems/standby/pkg/types"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var historyLimit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show DR posture, the active execution, and recent history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(historyLimit)
		},
	}
	cmd.Flags().IntVar(&historyLimit, "history", 5, "Number of archived executions to show")
	return cmd
}

func runStatus(historyLimit int) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	defer func() { _ = st.Stop(ctx) }()

	posture, err := st.GetPosture(ctx)
	if err != nil {
		return fmt.Errorf("reading posture: %w", err)
	}

	bold := color.New(color.Bold)
	_, _ = bold.Println("Standby DR status")
	fmt.Println()
	if posture == types.PostureActivePrimary {
		color.Green("  Posture: %s", posture)
	} else {
		color.Red("  Posture: %s", posture)
	}

	active, err := st.GetActive(ctx)
	switch {
	case err == nil:
		fmt.Println()
		_, _ = bold.Println("  Active execution:")
		printExecution(ctx, st, *active, true)
	case errors.Is(err, store.ErrNoActiveExecution):
		fmt.Println("  No active execution")
	default:
		return fmt.Errorf("reading active execution: %w", err)
	}

	history, err := st.ListHistory(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	if len(history) > 0 {
		fmt.Println()
		_, _ = bold.Println("  Recent executions:")
		for _, exec := range history {
			printExecution(ctx, st, exec, false)
		}
	}
	fmt.Println()
	return nil
}

func printExecution(ctx context.Context, st store.Store, exec types.DrExecution, detailed bool) {
	phaseStr := string(exec.Phase)
	switch exec.Phase {
	case types.PhaseFailedOver, types.PhaseNormal:
		phaseStr = color.GreenString(phaseStr)
	case types.PhaseFailoverFailed, types.PhaseFailbackFailed:
		phaseStr = color.RedString(phaseStr)
	case types.PhaseAborted:
		phaseStr = color.YellowString(phaseStr)
	default:
		phaseStr = color.CyanString(phaseStr)
	}
	fmt.Printf("    %s  %-8s  %s  %s\n",
		exec.ExecutionID, exec.Direction, phaseStr, exec.UpdatedAt.Format(time.RFC3339))

	if !detailed {
		return
	}
	fmt.Printf("      reason:  %s\n", exec.TriggerReason)
	fmt.Printf("      started: %s\n", exec.StartedAt.Format(time.RFC3339))
	for _, r := range exec.StepResults {
		statusStr := string(r.Status)
		switch r.Status {
		case types.ActionSucceeded:
			statusStr = color.GreenString(statusStr)
		case types.ActionFailed, types.ActionTimedOut:
			statusStr = color.RedString(statusStr)
		}
		fmt.Printf("      %-20s %s (attempt %d)", r.ActionName, statusStr, r.AttemptCount)
		if r.ErrorDetail != "" && r.Status != types.ActionSucceeded {
			fmt.Printf("  %s", r.ErrorDetail)
		}
		fmt.Println()
	}

	events, err := st.ListEvents(ctx, exec.ExecutionID, 5)
	if err == nil && len(events) > 0 {
		fmt.Println("      recent events:")
		for _, ev := range events {
			fmt.Printf("        %s  %s  %s\n",
				ev.Timestamp.Format(time.RFC3339), ev.Kind, ev.Message)
		}
	}
}
