package orchestrator

import (
	"math"
	"time"

	"github.com/standby-systems/standby/internal/lifecycle"
	"github.com/standby-systems/standby/pkg/types"
)

const maxBackoffSeconds = 600

// DefaultRetryPolicy returns the default retry configuration for bounded
// retry actions.
func DefaultRetryPolicy() types.RetryPolicy {
	return types.RetryPolicy{
		MaxAttempts:       3,
		BackoffSeconds:    15,
		BackoffMultiplier: 2.0,
	}
}

// CalculateBackoff returns the wait duration before the given attempt
// number. Uses exponential backoff: base * multiplier^(attempt-1).
func CalculateBackoff(policy types.RetryPolicy, attempt int) time.Duration {
	if attempt <= 1 {
		return time.Duration(policy.BackoffSeconds) * time.Second
	}
	multiplier := policy.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	backoff := float64(policy.BackoffSeconds) * math.Pow(multiplier, float64(attempt-1))
	if backoff > maxBackoffSeconds {
		backoff = maxBackoffSeconds
	}
	return time.Duration(backoff) * time.Second
}

// isRetryable decides whether a failed attempt may be retried
// automatically. Only bounded-retry steps retry, and only on transient
// failures or timeouts; preconditions and unknown failures park the
// execution for the operator.
func isRetryable(step lifecycle.Step, result types.ActionResult) bool {
	if step.Retry != lifecycle.RetryBounded {
		return false
	}
	if result.Status == types.ActionTimedOut {
		return true
	}
	return result.Status == types.ActionFailed && result.FailureKind == types.FailureTransient
}
