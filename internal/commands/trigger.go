package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/standby-systems/standby/internal/config"
	"github.com/standby-systems/standby/internal/lifecycle"
	"github.com/standby-systems/standby/internal/orchestrator"
	"github.com/standby-systems/standby/internal/store"
	"github.com/standby-systems/standby/pkg/types"
)

// NewFailoverCmd creates the failover command.
func NewFailoverCmd() *cobra.Command {
	var reason string
	var noWait bool

	cmd := &cobra.Command{
		Use:   "failover",
		Short: "Promote the standby region and cut traffic over to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				reason = "operator requested failover"
			}
			return runTrigger(types.DirectionFailover, reason, noWait)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why this failover is happening (recorded in the audit trail)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Trigger and exit without waiting for completion")
	return cmd
}

// NewFailbackCmd creates the failback command.
func NewFailbackCmd() *cobra.Command {
	var reason string
	var noWait bool

	cmd := &cobra.Command{
		Use:   "failback",
		Short: "Return traffic and the write role to the recovered primary region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				reason = "operator requested failback"
			}
			return runTrigger(types.DirectionFailback, reason, noWait)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why this failback is happening (recorded in the audit trail)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Trigger and exit without waiting for completion")
	return cmd
}

// NewAbortCmd creates the abort command.
func NewAbortCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Cancel the active execution before its first side effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				reason = "operator abort"
			}
			return runAbort(reason)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the execution is being aborted")
	return cmd
}

// NewRecoverCmd creates the recover command.
func NewRecoverCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "recover [execution-id]",
		Short: "Move a failed execution forward: resume, retry, or abandon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			executionID := ""
			if len(args) > 0 {
				executionID = args[0]
			}
			return runRecover(executionID, mode)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "resume", "resume continues from the failed step, retry restarts its attempts, abandon frees the slot")
	return cmd
}

func setup(ctx context.Context) (*types.ProjectConfig, store.Store, *orchestrator.Orchestrator, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	st, err := newStore(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating store: %w", err)
	}
	if err := st.Start(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to store: %w", err)
	}
	orch, _, err := buildOrchestrator(ctx, cfg, st, slog.Default())
	if err != nil {
		_ = st.Stop(ctx)
		return nil, nil, nil, err
	}
	return cfg, st, orch, nil
}

func runTrigger(direction types.Direction, reason string, noWait bool) error {
	ctx := context.Background()
	_, st, orch, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Stop(ctx) }()

	var exec *types.DrExecution
	if direction == types.DirectionFailover {
		exec, err = orch.StartFailover(ctx, reason, false)
	} else {
		exec, err = orch.StartFailback(ctx, reason)
	}
	if err != nil {
		if errors.Is(err, store.ErrExecutionActive) {
			return fmt.Errorf("an execution is already active; inspect it with 'standby status'")
		}
		return err
	}

	_, _ = color.New(color.Bold).Printf("%s started: %s\n", direction, exec.ExecutionID)
	if noWait {
		fmt.Println("Not waiting; follow progress with 'standby status'.")
		return nil
	}
	return waitForOutcome(ctx, st, exec.ExecutionID)
}

func runAbort(reason string) error {
	ctx := context.Background()
	_, st, orch, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Stop(ctx) }()

	if err := orch.Abort(ctx, reason); err != nil {
		if errors.Is(err, orchestrator.ErrNotAbortable) {
			return fmt.Errorf("%w; use 'standby recover' once it parks in a failed phase", err)
		}
		return err
	}
	color.Yellow("Execution aborted")
	return nil
}

func runRecover(executionID, mode string) error {
	ctx := context.Background()
	_, st, orch, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Stop(ctx) }()

	if err := orch.Recover(ctx, executionID, mode); err != nil {
		return err
	}
	if mode == "abandon" {
		color.Yellow("Execution abandoned; posture unchanged")
		return nil
	}
	if executionID == "" {
		active, err := st.GetActive(ctx)
		if err != nil {
			return err
		}
		executionID = active.ExecutionID
	}
	return waitForOutcome(ctx, st, executionID)
}

// waitForOutcome polls the store until the execution reaches a terminal
// phase or parks in a failed one, echoing phase changes as they land.
func waitForOutcome(ctx context.Context, st store.Store, executionID string) error {
	lastPhase := types.Phase("")
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		exec, err := st.GetExecution(ctx, executionID)
		if err != nil {
			return fmt.Errorf("reading execution: %w", err)
		}
		if exec.Phase != lastPhase {
			lastPhase = exec.Phase
			fmt.Printf("  phase: %s\n", exec.Phase)
		}

		switch {
		case lifecycle.IsTerminal(exec.Phase):
			if exec.Phase == types.PhaseAborted {
				color.Yellow("Execution aborted")
			} else {
				color.Green("Execution completed: %s", exec.Phase)
			}
			return nil
		case lifecycle.IsFailed(exec.Phase):
			color.Red("Execution failed in %s", exec.Phase)
			for _, r := range exec.StepResults {
				if r.Status == types.ActionFailed || r.Status == types.ActionTimedOut {
					fmt.Printf("  %s: %s (%s)\n", r.ActionName, r.ErrorDetail, r.FailureKind)
				}
			}
			return fmt.Errorf("recover with 'standby recover %s --mode resume|retry|abandon'", executionID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
