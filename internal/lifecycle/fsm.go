// Package lifecycle implements the DR execution state machine.
package lifecycle

import (
	"fmt"

	"github.com/standby-systems/standby/pkg/types"
)

// Executor names, shared between the step table and the executor registry.
const (
	ActionPromoteDatabase  = "promote-database"
	ActionScaleCompute     = "scale-compute"
	ActionCutoverDNS       = "cutover-dns"
	ActionRevertDNS        = "revert-dns"
	ActionScaleDownCompute = "scale-down-compute"
	ActionDemoteDatabase   = "demote-database"
)

// RetryClass says how a step's failures are handled.
type RetryClass int

const (
	// RetryNone: any FAILED or TIMED_OUT result is fatal for the execution.
	// Database promotion is in this class — a second promotion attempt on a
	// partially promoted replica risks data corruption.
	RetryNone RetryClass = iota
	// RetryBounded: TRANSIENT and TIMED_OUT results are retried with
	// exponential backoff up to the configured bound.
	RetryBounded
)

// Step is one action step of an execution: the phase the machine enters
// before dispatching the action, the executor to invoke, and its retry class.
type Step struct {
	Phase  types.Phase
	Action string
	Retry  RetryClass
}

// failoverSteps is the forward sequence: database first, DNS last, so traffic
// only moves once the standby can serve it.
var failoverSteps = []Step{
	{Phase: types.PhasePromotingDatabase, Action: ActionPromoteDatabase, Retry: RetryNone},
	{Phase: types.PhaseScalingCompute, Action: ActionScaleCompute, Retry: RetryBounded},
	{Phase: types.PhaseCuttingOverDNS, Action: ActionCutoverDNS, Retry: RetryBounded},
}

// failbackSteps reverses the action order: traffic off first, then scale down,
// then return the database to reader.
var failbackSteps = []Step{
	{Phase: types.PhaseRevertingDNS, Action: ActionRevertDNS, Retry: RetryBounded},
	{Phase: types.PhaseScalingDownCompute, Action: ActionScaleDownCompute, Retry: RetryBounded},
	{Phase: types.PhaseDemotingDatabase, Action: ActionDemoteDatabase, Retry: RetryNone},
}

// Steps returns the ordered action steps for a direction.
func Steps(direction types.Direction) []Step {
	if direction == types.DirectionFailback {
		return failbackSteps
	}
	return failoverSteps
}

// ValidationPhase returns the post-action validation phase for a direction.
func ValidationPhase(direction types.Direction) types.Phase {
	if direction == types.DirectionFailback {
		return types.PhaseValidatingFailback
	}
	return types.PhaseValidatingFailover
}

// SuccessPhase returns the terminal phase of a successful execution.
func SuccessPhase(direction types.Direction) types.Phase {
	if direction == types.DirectionFailback {
		return types.PhaseNormal
	}
	return types.PhaseFailedOver
}

// FailedPhase returns the absorbing error phase for a direction.
func FailedPhase(direction types.Direction) types.Phase {
	if direction == types.DirectionFailback {
		return types.PhaseFailbackFailed
	}
	return types.PhaseFailoverFailed
}

// Transition table: from -> allowed tos.
var validTransitions = map[types.Phase][]types.Phase{
	types.PhaseDetecting:         {types.PhaseValidatingTrigger, types.PhaseAborted},
	types.PhaseValidatingTrigger: {types.PhasePromotingDatabase, types.PhaseRevertingDNS, types.PhaseAborted},

	types.PhasePromotingDatabase:  {types.PhaseScalingCompute, types.PhaseFailoverFailed},
	types.PhaseScalingCompute:     {types.PhaseCuttingOverDNS, types.PhaseFailoverFailed},
	types.PhaseCuttingOverDNS:     {types.PhaseValidatingFailover, types.PhaseFailoverFailed},
	types.PhaseValidatingFailover: {types.PhaseFailedOver, types.PhaseFailoverFailed},

	types.PhaseRevertingDNS:       {types.PhaseScalingDownCompute, types.PhaseFailbackFailed},
	types.PhaseScalingDownCompute: {types.PhaseDemotingDatabase, types.PhaseFailbackFailed},
	types.PhaseDemotingDatabase:   {types.PhaseValidatingFailback, types.PhaseFailbackFailed},
	types.PhaseValidatingFailback: {types.PhaseNormal, types.PhaseFailbackFailed},

	// Operator recovery re-enters the machine at the failed step's phase.
	types.PhaseFailoverFailed: {types.PhasePromotingDatabase, types.PhaseScalingCompute, types.PhaseCuttingOverDNS, types.PhaseValidatingFailover},
	types.PhaseFailbackFailed: {types.PhaseRevertingDNS, types.PhaseScalingDownCompute, types.PhaseDemotingDatabase, types.PhaseValidatingFailback},

	types.PhaseFailedOver: {},
	types.PhaseNormal:     {},
	types.PhaseAborted:    {},
}

// CanTransition checks if moving from one phase to another is valid.
func CanTransition(from, to types.Phase) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, p := range allowed {
		if p == to {
			return true
		}
	}
	return false
}

// Transition validates a phase change, returning an error if it is invalid.
func Transition(from, to types.Phase) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal returns true if the phase ends an execution.
func IsTerminal(phase types.Phase) bool {
	switch phase {
	case types.PhaseFailedOver, types.PhaseNormal, types.PhaseFailoverFailed, types.PhaseFailbackFailed, types.PhaseAborted:
		return true
	}
	return false
}

// IsFailed returns true for the absorbing error phases an operator must
// recover from explicitly.
func IsFailed(phase types.Phase) bool {
	return phase == types.PhaseFailoverFailed || phase == types.PhaseFailbackFailed
}

// IsAbortable returns true while cancellation is still safe. Once the first
// action step has started, the execution must run to a terminal phase.
func IsAbortable(phase types.Phase) bool {
	return phase == types.PhaseDetecting || phase == types.PhaseValidatingTrigger
}
