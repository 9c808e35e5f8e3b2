package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/standby-systems/standby/internal/lifecycle"
	"github.com/standby-systems/standby/internal/metrics"
	"github.com/standby-systems/standby/internal/store"
	"github.com/standby-systems/standby/pkg/types"
)

// Operator-facing sentinel errors.
var (
	// ErrNotAbortable means the execution has passed the point of no return.
	ErrNotAbortable = errors.New("execution is no longer abortable")

	// ErrNotFailed means recover was requested on a non-failed execution.
	ErrNotFailed = errors.New("execution is not in a failed phase")

	// ErrWrongPosture means failback was requested without a failed-over
	// posture.
	ErrWrongPosture = errors.New("failback requires posture FAILED_OVER")

	// ErrNotAwaitingApproval means confirm was called on an execution that
	// is not parked at trigger validation.
	ErrNotAwaitingApproval = errors.New("execution is not awaiting approval")

	// ErrUnknownRecoverMode means the recover mode is not one of
	// resume, retry, abandon.
	ErrUnknownRecoverMode = errors.New("unknown recover mode")
)

// StartFailover begins a failover execution. With requireApproval the
// execution parks at trigger validation until Confirm. Returns
// store.ErrExecutionActive when an execution already holds the slot.
func (o *Orchestrator) StartFailover(ctx context.Context, reason string, requireApproval bool) (*types.DrExecution, error) {
	return o.startExecution(ctx, types.DirectionFailover, reason, requireApproval)
}

// StartFailback begins a failback execution. Failback never starts
// automatically and is only accepted while the posture is FAILED_OVER.
func (o *Orchestrator) StartFailback(ctx context.Context, reason string) (*types.DrExecution, error) {
	posture, err := o.store.GetPosture(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading posture: %w", err)
	}
	if posture != types.PostureFailedOver {
		return nil, ErrWrongPosture
	}
	return o.startExecution(ctx, types.DirectionFailback, reason, false)
}

func (o *Orchestrator) startExecution(ctx context.Context, direction types.Direction, reason string, requireApproval bool) (*types.DrExecution, error) {
	now := time.Now().UTC()
	exec := types.DrExecution{
		ExecutionID:   o.newExecutionID(),
		Direction:     direction,
		Phase:         types.PhaseDetecting,
		Version:       1,
		TriggerReason: reason,
		StartedAt:     now,
		UpdatedAt:     now,
	}

	if err := o.store.CreateActive(ctx, exec); err != nil {
		if errors.Is(err, store.ErrExecutionActive) {
			metrics.DuplicateTriggers.Add(1)
			o.emit(ctx, types.Event{
				Kind:      types.EventDuplicateTrigger,
				Level:     types.EventLevelWarning,
				Direction: direction,
				Message:   fmt.Sprintf("trigger ignored, an execution is already active: %s", reason),
			})
		}
		return nil, err
	}
	metrics.ExecutionsStarted.Add(1)
	o.emit(ctx, types.Event{
		Kind:        types.EventExecutionStarted,
		ExecutionID: exec.ExecutionID,
		Direction:   direction,
		Phase:       exec.Phase,
		Message:     reason,
	})

	if err := o.advance(ctx, &exec, types.PhaseValidatingTrigger); err != nil {
		return nil, err
	}

	if requireApproval {
		o.emit(ctx, types.Event{
			Kind:        types.EventAwaitingApproval,
			Level:       types.EventLevelWarning,
			ExecutionID: exec.ExecutionID,
			Direction:   direction,
			Phase:       exec.Phase,
			Message:     "manual trigger mode: operator confirmation required",
		})
		cp := exec
		return &cp, nil
	}

	o.spawnRunner(exec)
	cp := exec
	return &cp, nil
}

// Confirm releases an execution parked at trigger validation.
func (o *Orchestrator) Confirm(ctx context.Context, executionID string) error {
	exec, err := o.store.GetActive(ctx)
	if err != nil {
		return err
	}
	if executionID != "" && exec.ExecutionID != executionID {
		return store.ErrExecutionNotFound
	}
	if exec.Phase != types.PhaseValidatingTrigger {
		return ErrNotAwaitingApproval
	}
	o.emit(ctx, types.Event{
		Kind:        types.EventPhaseChanged,
		ExecutionID: exec.ExecutionID,
		Direction:   exec.Direction,
		Phase:       exec.Phase,
		Message:     "operator confirmed trigger",
	})
	o.spawnRunner(*exec)
	return nil
}

// Abort cancels an execution that has not yet performed a side effect.
// After the first action starts, the machine must run to a terminal phase.
func (o *Orchestrator) Abort(ctx context.Context, reason string) error {
	exec, err := o.store.GetActive(ctx)
	if err != nil {
		return err
	}
	if !lifecycle.IsAbortable(exec.Phase) {
		return fmt.Errorf("%w: phase %s", ErrNotAbortable, exec.Phase)
	}
	if err := o.advance(ctx, exec, types.PhaseAborted); err != nil {
		return err
	}

	posture, err := o.store.GetPosture(ctx)
	if err != nil {
		posture = types.PostureActivePrimary
	}
	if err := o.store.Archive(ctx, *exec, posture); err != nil {
		return fmt.Errorf("archiving aborted execution: %w", err)
	}
	metrics.ExecutionsAborted.Add(1)
	o.emit(ctx, types.Event{
		Kind:        types.EventExecutionAborted,
		Level:       types.EventLevelWarning,
		ExecutionID: exec.ExecutionID,
		Direction:   exec.Direction,
		Phase:       types.PhaseAborted,
		Message:     reason,
	})
	return nil
}

// Recover is the operator's only way out of a failed phase.
//
//	resume  — continue from the first incomplete step
//	retry   — like resume, but the failed step's attempts start over
//	abandon — archive the execution as failed, freeing the slot
func (o *Orchestrator) Recover(ctx context.Context, executionID, mode string) error {
	exec, err := o.store.GetActive(ctx)
	if err != nil {
		return err
	}
	if executionID != "" && exec.ExecutionID != executionID {
		return store.ErrExecutionNotFound
	}
	if !lifecycle.IsFailed(exec.Phase) {
		return fmt.Errorf("%w: phase %s", ErrNotFailed, exec.Phase)
	}

	o.emit(ctx, types.Event{
		Kind:        types.EventRecoverRequested,
		ExecutionID: exec.ExecutionID,
		Direction:   exec.Direction,
		Phase:       exec.Phase,
		Message:     fmt.Sprintf("operator recover: %s", mode),
	})

	switch mode {
	case "abandon":
		posture, perr := o.store.GetPosture(ctx)
		if perr != nil {
			posture = types.PostureActivePrimary
		}
		if err := o.store.Archive(ctx, *exec, posture); err != nil {
			return fmt.Errorf("archiving abandoned execution: %w", err)
		}
		o.emit(ctx, types.Event{
			Kind:        types.EventExecutionAborted,
			Level:       types.EventLevelWarning,
			ExecutionID: exec.ExecutionID,
			Direction:   exec.Direction,
			Phase:       exec.Phase,
			Message:     "abandoned by operator",
		})
		return nil

	case "retry":
		// Forget the failed attempts so the step's retry budget starts over.
		kept := exec.StepResults[:0]
		for _, r := range exec.StepResults {
			if r.Status == types.ActionSucceeded {
				kept = append(kept, r)
			}
		}
		exec.StepResults = kept
		fallthrough

	case "resume":
		reentry := o.reentryPhase(exec)
		if err := o.advance(ctx, exec, reentry); err != nil {
			return err
		}
		metrics.ExecutionsResumed.Add(1)
		o.spawnRunner(*exec)
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownRecoverMode, mode)
	}
}

// reentryPhase returns the phase of the first incomplete step, or the
// validation phase when every step already succeeded.
func (o *Orchestrator) reentryPhase(exec *types.DrExecution) types.Phase {
	for _, step := range lifecycle.Steps(exec.Direction) {
		if r := exec.Result(step.Action); r == nil || r.Status != types.ActionSucceeded {
			return step.Phase
		}
	}
	return lifecycle.ValidationPhase(exec.Direction)
}

// SubmitSignal feeds an externally observed health signal (API push or
// alarm lambda) into the debounced trigger path.
func (o *Orchestrator) SubmitSignal(sig types.HealthSignal) {
	if o.running.Load() {
		select {
		case o.signals <- sig:
		default:
			o.logger.Warn("signal queue full, dropping signal", "source", sig.Source)
		}
		return
	}
	o.handleSignal(context.Background(), sig)
}

// spawnRunner drives an execution in the background, tied to the
// orchestrator lifetime.
func (o *Orchestrator) spawnRunner(exec types.DrExecution) {
	ctx := o.runCtx()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runSteps(ctx, &exec)
	}()
}
