// Package executor implements the Action Executors: each wraps one idempotent
// external side effect behind a common execute/check contract. Executors
// never raise action failures as Go errors past their boundary; they return
// an Outcome and the orchestrator decides control flow centrally.
package executor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/standby-systems/standby/pkg/types"
)

// Outcome is the classified result of a single executor attempt.
type Outcome struct {
	Status types.ActionStatus
	Kind   types.FailureKind
	Detail string
}

// OK returns a success outcome.
func OK(detail string) Outcome {
	return Outcome{Status: types.ActionSucceeded, Detail: detail}
}

// Conflict reports the resource is already in the target state. Treated as
// success: the action's effect is present, only not ours.
func Conflict(detail string) Outcome {
	return Outcome{Status: types.ActionSucceeded, Kind: types.FailureConflict, Detail: detail}
}

// Fail returns a failure outcome with the given classification.
func Fail(kind types.FailureKind, detail string) Outcome {
	return Outcome{Status: types.ActionFailed, Kind: kind, Detail: detail}
}

// Executor is the common contract for one DR action.
type Executor interface {
	// Name identifies the action in step results and events.
	Name() string

	// Execute performs the side effect. It must be idempotent under retry
	// with the same execution ID, honor ctx cancellation, and classify all
	// failures into the Outcome rather than returning them.
	Execute(ctx context.Context, executionID string) Outcome

	// Check reports whether the external resource already reflects the
	// desired end state, used on resume before deciding to re-invoke.
	Check(ctx context.Context) (done bool, detail string, err error)
}

// Run performs one attempt with the per-action timeout applied, converting a
// deadline expiry into TIMED_OUT rather than blocking the state machine.
func Run(ctx context.Context, ex Executor, executionID string, timeout time.Duration) types.ActionResult {
	started := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	outcome := ex.Execute(ctx, executionID)
	if outcome.Status != types.ActionSucceeded && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		outcome.Status = types.ActionTimedOut
		if outcome.Detail == "" {
			outcome.Detail = "deadline exceeded"
		}
	}

	completed := time.Now()
	return types.ActionResult{
		ActionName:  ex.Name(),
		Status:      outcome.Status,
		FailureKind: outcome.Kind,
		ErrorDetail: outcome.Detail,
		StartedAt:   started,
		CompletedAt: &completed,
	}
}

// classifyAWSError maps a provider error to the failure taxonomy. Throttling
// and connectivity problems are transient; everything unrecognized is
// UNKNOWN, which the orchestrator treats as fatal.
func classifyAWSError(err error) types.FailureKind {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return types.FailureTransient
	case strings.Contains(msg, "Throttling"),
		strings.Contains(msg, "TooManyRequests"),
		strings.Contains(msg, "RequestLimitExceeded"),
		strings.Contains(msg, "ServiceUnavailable"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"):
		return types.FailureTransient
	}
	return types.FailureUnknown
}

// parseDuration is a config helper: empty or invalid falls back to def.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
