// Package watchdog detects executions that have stopped making progress.
// A runner can die between persisting a step and scheduling the next one;
// nothing inside the state machine notices, because the state machine only
// moves when something drives it. The watchdog independently monitors the
// active execution's UpdatedAt and raises an alert when it goes stale.
// It never mutates the execution: moving a stuck execution is an operator
// decision, made through recover or abort.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/standby-systems/standby/internal/lifecycle"
	"github.com/standby-systems/standby/internal/metrics"
	"github.com/standby-systems/standby/internal/notify"
	"github.com/standby-systems/standby/internal/store"
	"github.com/standby-systems/standby/pkg/types"
)

const (
	defaultInterval       = 1 * time.Minute
	defaultStuckThreshold = 10 * time.Minute
)

// StuckExecution records a single stale-execution detection.
type StuckExecution struct {
	ExecutionID string
	Phase       types.Phase
	Age         time.Duration
}

// CheckOptions configures a single watchdog scan pass.
type CheckOptions struct {
	Store          store.Store
	Dispatcher     *notify.Dispatcher
	Logger         *slog.Logger
	Now            time.Time     // injectable for testing
	StuckThreshold time.Duration // defaults to 10m if zero
}

// CheckStuckExecution inspects the active execution, if any, and reports it
// when its last persisted update is older than the threshold. Failed phases
// are exempt: those are parked deliberately, waiting for an operator.
func CheckStuckExecution(ctx context.Context, opts CheckOptions) *StuckExecution {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	threshold := opts.StuckThreshold
	if threshold <= 0 {
		threshold = defaultStuckThreshold
	}

	exec, err := opts.Store.GetActive(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoActiveExecution) {
			opts.Logger.Error("watchdog: failed to read active execution", "error", err)
		}
		return nil
	}

	if lifecycle.IsFailed(exec.Phase) || exec.Phase == types.PhaseValidatingTrigger {
		// Parked on purpose: failed phases and pending approvals wait for
		// a human, not for the watchdog.
		return nil
	}

	age := opts.Now.Sub(exec.UpdatedAt)
	if age < threshold {
		return nil
	}

	ev := types.Event{
		Kind:        types.EventExecutionStuck,
		Level:       types.EventLevelError,
		ExecutionID: exec.ExecutionID,
		Direction:   exec.Direction,
		Phase:       exec.Phase,
		Message: fmt.Sprintf("no progress for %s in phase %s",
			age.Truncate(time.Second), exec.Phase),
		Details: map[string]interface{}{
			"age":       age.String(),
			"threshold": threshold.String(),
			"version":   exec.Version,
		},
		Timestamp: opts.Now,
	}
	if err := opts.Store.AppendEvent(ctx, ev); err != nil {
		opts.Logger.Error("watchdog: failed to append stuck event",
			"executionId", exec.ExecutionID, "error", err)
	}
	if opts.Dispatcher != nil {
		opts.Dispatcher.Dispatch(ctx, ev)
	}

	metrics.ExecutionsStuck.Add(1)
	opts.Logger.Warn("watchdog: stuck execution detected",
		"executionId", exec.ExecutionID, "phase", exec.Phase, "age", age.String())

	return &StuckExecution{
		ExecutionID: exec.ExecutionID,
		Phase:       exec.Phase,
		Age:         age,
	}
}

// Watchdog runs CheckStuckExecution on a regular interval, alerting at most
// once per (execution, version) so a wedged runner does not page every scan.
type Watchdog struct {
	store      store.Store
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
	interval   time.Duration
	threshold  time.Duration
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu          sync.Mutex
	lastAlerted string
}

// New creates a new Watchdog from its config section.
func New(st store.Store, dispatcher *notify.Dispatcher, logger *slog.Logger, cfg types.WatchdogConfig) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	interval := defaultInterval
	if d, err := time.ParseDuration(cfg.Interval); err == nil && d > 0 {
		interval = d
	}
	threshold := defaultStuckThreshold
	if d, err := time.ParseDuration(cfg.StuckThreshold); err == nil && d > 0 {
		threshold = d
	}
	return &Watchdog{
		store:      st,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   interval,
		threshold:  threshold,
	}
}

// Start begins the watchdog polling loop.
func (w *Watchdog) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	w.logger.Info("watchdog started", "interval", w.interval, "threshold", w.threshold)
}

// Stop signals the watchdog to stop and waits for it to finish.
func (w *Watchdog) Stop(_ context.Context) {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("watchdog stopped")
}

func (w *Watchdog) loop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *Watchdog) scan(ctx context.Context) {
	// Dedup before the check so a still-stuck execution at the same version
	// does not alert twice; a version bump means it moved and stalled again.
	exec, err := w.store.GetActive(ctx)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%s@%d", exec.ExecutionID, exec.Version)
	w.mu.Lock()
	seen := w.lastAlerted == key
	w.mu.Unlock()
	if seen {
		return
	}

	stuck := CheckStuckExecution(ctx, CheckOptions{
		Store:          w.store,
		Dispatcher:     w.dispatcher,
		Logger:         w.logger,
		StuckThreshold: w.threshold,
	})
	if stuck != nil {
		w.mu.Lock()
		w.lastAlerted = key
		w.mu.Unlock()
	}
}
