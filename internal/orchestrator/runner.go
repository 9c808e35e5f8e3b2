package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/standby-systems/standby/internal/executor"
	"github.com/standby-systems/standby/internal/lifecycle"
	"github.com/standby-systems/standby/internal/metrics"
	"github.com/standby-systems/standby/internal/telemetry"
	"github.com/standby-systems/standby/pkg/types"
)

// advance moves the execution to the next phase and persists it before
// anything else happens in that phase. A version conflict means another
// instance (or an operator abort) won the slot; the runner stops dead.
func (o *Orchestrator) advance(ctx context.Context, exec *types.DrExecution, to types.Phase) error {
	if exec.Phase == to {
		return nil
	}
	if err := lifecycle.Transition(exec.Phase, to); err != nil {
		return err
	}
	from := exec.Phase
	exec.Phase = to
	if err := o.persist(ctx, exec); err != nil {
		exec.Phase = from
		return err
	}
	o.emit(ctx, types.Event{
		Kind:        types.EventPhaseChanged,
		ExecutionID: exec.ExecutionID,
		Direction:   exec.Direction,
		Phase:       to,
		Message:     fmt.Sprintf("phase %s -> %s", from, to),
	})
	return nil
}

// persist CASes the execution into the store, bumping its version.
func (o *Orchestrator) persist(ctx context.Context, exec *types.DrExecution) error {
	expected := exec.Version
	exec.Version++
	exec.UpdatedAt = time.Now().UTC()
	if err := o.store.UpdateActive(ctx, expected, *exec); err != nil {
		exec.Version = expected
		return fmt.Errorf("persisting execution %s: %w", exec.ExecutionID, err)
	}
	return nil
}

// runSteps drives the execution from its current phase to a terminal one.
// It is called on a fresh execution at VALIDATING_TRIGGER, on a resumed one
// at whatever action phase was persisted, and on operator recovery.
func (o *Orchestrator) runSteps(ctx context.Context, exec *types.DrExecution) {
	tctx, span := telemetry.Tracer().Start(ctx, "dr.execution")
	defer span.End()
	ctx = tctx

	for _, step := range lifecycle.Steps(exec.Direction) {
		if prior := exec.Result(step.Action); prior != nil && prior.Status == types.ActionSucceeded {
			o.emit(ctx, types.Event{
				Kind:        types.EventActionSkipped,
				ExecutionID: exec.ExecutionID,
				Direction:   exec.Direction,
				Phase:       exec.Phase,
				Action:      step.Action,
				Message:     "already succeeded, skipping",
			})
			continue
		}
		if exec.Phase != step.Phase {
			if err := o.advance(ctx, exec, step.Phase); err != nil {
				o.abandonRunner(ctx, exec, err)
				return
			}
		}
		if !o.runStep(ctx, exec, step) {
			return
		}
	}

	o.finishValidate(ctx, exec)
}

// runStep executes one action to completion, retrying per policy. Returns
// false when the execution has been parked in a failed phase (or lost the
// slot) and the runner must stop.
func (o *Orchestrator) runStep(ctx context.Context, exec *types.DrExecution, step lifecycle.Step) bool {
	ex, ok := o.executors[step.Action]
	if !ok {
		o.failExecution(ctx, exec, step.Action, fmt.Sprintf("no executor registered for %s", step.Action))
		return false
	}

	attempt := 0
	if prior := exec.Result(step.Action); prior != nil {
		attempt = prior.AttemptCount
		// An interrupted attempt may have finished its side effect before
		// the crash. Ask the resource before re-invoking.
		if prior.Status == types.ActionPending {
			if done, detail, err := ex.Check(ctx); err == nil && done {
				completed := time.Now().UTC()
				exec.SetResult(types.ActionResult{
					ActionName:   step.Action,
					AttemptCount: attempt,
					Status:       types.ActionSucceeded,
					FailureKind:  types.FailureConflict,
					ErrorDetail:  detail,
					StartedAt:    prior.StartedAt,
					CompletedAt:  &completed,
				})
				if err := o.persist(ctx, exec); err != nil {
					o.abandonRunner(ctx, exec, err)
					return false
				}
				o.emit(ctx, types.Event{
					Kind:        types.EventActionCompleted,
					ExecutionID: exec.ExecutionID,
					Direction:   exec.Direction,
					Phase:       exec.Phase,
					Action:      step.Action,
					Status:      string(types.ActionSucceeded),
					Message:     detail,
				})
				return true
			}
		}
	}

	for {
		attempt++

		// Write-ahead: the pending marker with this attempt count is durable
		// before the side effect is dispatched.
		exec.SetResult(types.ActionResult{
			ActionName:   step.Action,
			AttemptCount: attempt,
			Status:       types.ActionPending,
			StartedAt:    time.Now().UTC(),
		})
		if err := o.persist(ctx, exec); err != nil {
			o.abandonRunner(ctx, exec, err)
			return false
		}
		o.emit(ctx, types.Event{
			Kind:        types.EventActionStarted,
			ExecutionID: exec.ExecutionID,
			Direction:   exec.Direction,
			Phase:       exec.Phase,
			Action:      step.Action,
			Details:     map[string]interface{}{"attempt": attempt},
		})
		metrics.ActionsDispatched.Add(1)

		result := executor.Run(ctx, ex, exec.ExecutionID, o.timeout(step.Action))
		result.AttemptCount = attempt
		exec.SetResult(result)
		if err := o.persist(ctx, exec); err != nil {
			o.abandonRunner(ctx, exec, err)
			return false
		}

		level := types.EventLevelInfo
		if result.Status != types.ActionSucceeded {
			level = types.EventLevelWarning
		}
		o.emit(ctx, types.Event{
			Kind:        types.EventActionCompleted,
			Level:       level,
			ExecutionID: exec.ExecutionID,
			Direction:   exec.Direction,
			Phase:       exec.Phase,
			Action:      step.Action,
			Status:      string(result.Status),
			Message:     result.ErrorDetail,
			Details:     map[string]interface{}{"attempt": attempt, "failureKind": string(result.FailureKind)},
		})

		if result.Status == types.ActionSucceeded {
			return true
		}
		metrics.ActionsFailed.Add(1)

		if !isRetryable(step, result) || attempt >= o.retry.MaxAttempts {
			o.failExecution(ctx, exec, step.Action,
				fmt.Sprintf("%s %s after %d attempts: %s", step.Action, result.Status, attempt, result.ErrorDetail))
			return false
		}

		backoff := CalculateBackoff(o.retry, attempt)
		metrics.RetriesScheduled.Add(1)
		o.emit(ctx, types.Event{
			Kind:        types.EventRetryScheduled,
			Level:       types.EventLevelWarning,
			ExecutionID: exec.ExecutionID,
			Direction:   exec.Direction,
			Phase:       exec.Phase,
			Action:      step.Action,
			Message:     fmt.Sprintf("retrying in %s", backoff),
			Details:     map[string]interface{}{"attempt": attempt, "backoff": backoff.String()},
		})
		if err := o.sleep(ctx, backoff); err != nil {
			o.failExecution(ctx, exec, step.Action, fmt.Sprintf("retry wait interrupted: %v", err))
			return false
		}
	}
}

// finishValidate runs the validation gate and settles the execution.
func (o *Orchestrator) finishValidate(ctx context.Context, exec *types.DrExecution) {
	if err := o.advance(ctx, exec, lifecycle.ValidationPhase(exec.Direction)); err != nil {
		o.abandonRunner(ctx, exec, err)
		return
	}

	if gate := o.gate(exec.Direction); gate != nil {
		if err := gate.Validate(ctx); err != nil {
			metrics.ValidationsFailed.Add(1)
			o.emit(ctx, types.Event{
				Kind:        types.EventValidationFailed,
				Level:       types.EventLevelError,
				ExecutionID: exec.ExecutionID,
				Direction:   exec.Direction,
				Phase:       exec.Phase,
				Message:     err.Error(),
			})
			o.failExecution(ctx, exec, "", fmt.Sprintf("validation gate: %v", err))
			return
		}
	}
	o.emit(ctx, types.Event{
		Kind:        types.EventValidationPassed,
		ExecutionID: exec.ExecutionID,
		Direction:   exec.Direction,
		Phase:       exec.Phase,
	})

	success := lifecycle.SuccessPhase(exec.Direction)
	if err := o.advance(ctx, exec, success); err != nil {
		o.abandonRunner(ctx, exec, err)
		return
	}

	posture := types.PostureFailedOver
	if exec.Direction == types.DirectionFailback {
		posture = types.PostureActivePrimary
	}
	if err := o.store.Archive(ctx, *exec, posture); err != nil {
		o.logger.Error("archive failed", "executionId", exec.ExecutionID, "error", err)
		return
	}
	metrics.ExecutionsCompleted.Add(1)
	o.debouncer.Reset()
	o.emit(ctx, types.Event{
		Kind:        types.EventExecutionCompleted,
		ExecutionID: exec.ExecutionID,
		Direction:   exec.Direction,
		Phase:       success,
		Message:     fmt.Sprintf("%s complete, posture %s", exec.Direction, posture),
	})
}

// failExecution parks the execution in its direction's failed phase. The
// active slot stays occupied: only an operator recover moves it from here.
func (o *Orchestrator) failExecution(ctx context.Context, exec *types.DrExecution, action, detail string) {
	metrics.ExecutionsFailed.Add(1)
	failed := lifecycle.FailedPhase(exec.Direction)
	if err := o.advance(ctx, exec, failed); err != nil {
		o.abandonRunner(ctx, exec, err)
		return
	}
	o.emit(ctx, types.Event{
		Kind:        types.EventExecutionFailed,
		Level:       types.EventLevelError,
		ExecutionID: exec.ExecutionID,
		Direction:   exec.Direction,
		Phase:       failed,
		Action:      action,
		Message:     detail,
	})
}

// abandonRunner handles a store-level persistence failure. On a version
// conflict another actor owns the execution now and silence is correct;
// anything else is logged loudly because the machine cannot make progress.
func (o *Orchestrator) abandonRunner(ctx context.Context, exec *types.DrExecution, err error) {
	if ctx.Err() != nil {
		o.logger.Info("runner stopping", "executionId", exec.ExecutionID, "reason", ctx.Err())
		return
	}
	o.logger.Error("runner lost the execution", "executionId", exec.ExecutionID, "error", err)
}

// sleep waits with cancellation.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if o.sleepFn != nil {
		return o.sleepFn(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
