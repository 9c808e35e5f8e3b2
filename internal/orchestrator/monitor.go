package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/standby-systems/standby/internal/lifecycle"
	"github.com/standby-systems/standby/internal/metrics"
	"github.com/standby-systems/standby/internal/store"
	"github.com/standby-systems/standby/pkg/types"
)

// Start resumes any interrupted execution and begins the monitor loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, o.cancel = context.WithCancel(ctx)
	o.mu.Lock()
	o.baseCtx = ctx
	o.mu.Unlock()
	o.running.Store(true)

	if err := o.Resume(ctx); err != nil {
		return err
	}

	interval := 30 * time.Second
	if d, err := time.ParseDuration(o.detection.Interval); err == nil && d > 0 {
		interval = d
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.logger.Info("monitor started",
			"interval", interval,
			"enabled", o.detection.Enabled,
			"mode", o.triggerMode())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if o.detection.Enabled {
			o.poll(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				o.logger.Info("monitor stopping")
				return
			case sig := <-o.signals:
				o.handleSignal(ctx, sig)
			case <-ticker.C:
				if o.detection.Enabled {
					o.poll(ctx)
				}
			}
		}
	}()
	return nil
}

// Stop cancels the monitor and waits for in-flight runners.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.running.Store(false)
	if o.cancel != nil {
		o.cancel()
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		o.logger.Info("orchestrator stopped")
	case <-ctx.Done():
		o.logger.Warn("orchestrator stop timed out")
	}
}

// Resume picks up an execution left in the active slot by a previous
// process. Succeeded steps will be skipped; an interrupted step is
// re-checked against the live resource before being re-invoked.
func (o *Orchestrator) Resume(ctx context.Context) error {
	exec, err := o.store.GetActive(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoActiveExecution) {
			return nil
		}
		return err
	}

	if lifecycle.IsFailed(exec.Phase) {
		o.logger.Info("found failed execution awaiting operator recovery",
			"executionId", exec.ExecutionID, "phase", exec.Phase)
		return nil
	}

	metrics.ExecutionsResumed.Add(1)
	o.emit(ctx, types.Event{
		Kind:        types.EventExecutionResumed,
		ExecutionID: exec.ExecutionID,
		Direction:   exec.Direction,
		Phase:       exec.Phase,
		Message:     "resuming after restart",
	})

	if exec.Phase == types.PhaseDetecting {
		if err := o.advance(ctx, exec, types.PhaseValidatingTrigger); err != nil {
			return err
		}
	}
	if exec.Phase == types.PhaseValidatingTrigger && o.triggerMode() == types.TriggerManual {
		o.emit(ctx, types.Event{
			Kind:        types.EventAwaitingApproval,
			Level:       types.EventLevelWarning,
			ExecutionID: exec.ExecutionID,
			Direction:   exec.Direction,
			Phase:       exec.Phase,
			Message:     "manual trigger mode: operator confirmation required",
		})
		return nil
	}

	o.spawnRunner(*exec)
	return nil
}

// poll runs every configured checker once and feeds the results through
// the debounce.
func (o *Orchestrator) poll(ctx context.Context) {
	for _, checker := range o.checkers {
		if ctx.Err() != nil {
			return
		}
		o.handleSignal(ctx, checker.Check(ctx))
	}
}

// handleSignal records one observation and starts a failover when the
// debounce threshold is crossed.
func (o *Orchestrator) handleSignal(ctx context.Context, sig types.HealthSignal) {
	metrics.SignalsObserved.Add(1)
	if sig.Status != types.Unhealthy {
		o.debouncer.Observe(sig)
		return
	}
	metrics.SignalsUnhealthy.Add(1)
	o.emit(ctx, types.Event{
		Kind:    types.EventHealthSignal,
		Level:   types.EventLevelWarning,
		Message: "primary region unhealthy",
		Details: map[string]interface{}{
			"region": sig.Region,
			"source": sig.Source,
		},
	})

	if !o.debouncer.Observe(sig) {
		return
	}

	posture, err := o.store.GetPosture(ctx)
	if err != nil {
		o.logger.Error("posture read failed, not triggering", "error", err)
		return
	}
	if posture != types.PostureActivePrimary {
		// Already failed over; an unhealthy old primary is expected.
		o.debouncer.Reset()
		return
	}

	o.emit(ctx, types.Event{
		Kind:    types.EventDebounceTripped,
		Level:   types.EventLevelError,
		Message: "unhealthy threshold reached, starting failover",
		Details: map[string]interface{}{
			"streak": o.debouncer.Streak(),
			"source": sig.Source,
		},
	})

	reason := "health debounce tripped via " + sig.Source
	_, err = o.StartFailover(ctx, reason, o.triggerMode() == types.TriggerManual)
	if err != nil && !errors.Is(err, store.ErrExecutionActive) {
		o.logger.Error("auto failover start failed", "error", err)
		return
	}
	o.debouncer.Reset()
}

func (o *Orchestrator) triggerMode() types.TriggerMode {
	if o.detection.Mode == types.TriggerManual {
		return types.TriggerManual
	}
	return types.TriggerAuto
}

// runCtx returns the lifetime context runners attach to.
func (o *Orchestrator) runCtx() context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.baseCtx != nil {
		return o.baseCtx
	}
	return context.Background()
}
