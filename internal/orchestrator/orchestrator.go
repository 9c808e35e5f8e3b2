// Package orchestrator drives DR executions through the lifecycle state
// machine: health monitoring and debounce, trigger validation, sequential
// action dispatch with write-ahead persistence, validation gating, and
// operator recovery.
package orchestrator

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/standby-systems/standby/internal/executor"
	"github.com/standby-systems/standby/internal/health"
	"github.com/standby-systems/standby/internal/notify"
	"github.com/standby-systems/standby/internal/store"
	"github.com/standby-systems/standby/internal/validate"
	"github.com/standby-systems/standby/pkg/types"
)

// Orchestrator owns the DR state machine. All state lives in the store;
// the orchestrator itself can crash and resume at any point.
type Orchestrator struct {
	store      store.Store
	executors  map[string]executor.Executor
	timeouts   map[string]time.Duration
	gates      map[types.Direction]*validate.Gate
	dispatcher *notify.Dispatcher
	checkers   []health.Checker
	debouncer  *health.Debouncer
	detection  types.DetectionConfig
	retry      types.RetryPolicy
	logger     *slog.Logger

	signals chan types.HealthSignal
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	mu      sync.Mutex
	baseCtx context.Context

	// sleepFn overrides retry backoff waits in tests.
	sleepFn func(context.Context, time.Duration) error

	idMu sync.Mutex
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Store      store.Store
	Executors  map[string]executor.Executor
	Timeouts   map[string]time.Duration
	Gates      map[types.Direction]*validate.Gate
	Dispatcher *notify.Dispatcher
	Checkers   []health.Checker
	Detection  types.DetectionConfig
	Retry      *types.RetryPolicy
	Logger     *slog.Logger
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := DefaultRetryPolicy()
	if deps.Retry != nil {
		retry = *deps.Retry
	}
	queueDepth := deps.Detection.QueueDepth
	if queueDepth <= 0 {
		queueDepth = 16
	}
	return &Orchestrator{
		store:      deps.Store,
		executors:  deps.Executors,
		timeouts:   deps.Timeouts,
		gates:      deps.Gates,
		dispatcher: deps.Dispatcher,
		checkers:   deps.Checkers,
		debouncer:  health.NewDebouncer(deps.Detection),
		detection:  deps.Detection,
		retry:      retry,
		logger:     logger,
		signals:    make(chan types.HealthSignal, queueDepth),
	}
}

// newExecutionID returns a monotonic-within-process ULID.
func (o *Orchestrator) newExecutionID() string {
	o.idMu.Lock()
	defer o.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// emit appends an audit event and fans it out to notification sinks.
// Best effort on both paths: a broken sink or event write never stops an
// execution.
func (o *Orchestrator) emit(ctx context.Context, ev types.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Level == "" {
		ev.Level = types.EventLevelInfo
	}
	if err := o.store.AppendEvent(ctx, ev); err != nil {
		o.logger.Warn("event append failed", "kind", ev.Kind, "error", err)
	}
	if o.dispatcher != nil {
		o.dispatcher.Dispatch(ctx, ev)
	}
}

// gate returns the validation gate for a direction, or nil.
func (o *Orchestrator) gate(direction types.Direction) *validate.Gate {
	if o.gates == nil {
		return nil
	}
	return o.gates[direction]
}

// timeout returns the per-action timeout, zero meaning none.
func (o *Orchestrator) timeout(action string) time.Duration {
	if o.timeouts == nil {
		return 0
	}
	return o.timeouts[action]
}
