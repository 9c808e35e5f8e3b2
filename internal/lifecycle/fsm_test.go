package lifecycle

import (
	"testing"

	"github.com/standby-systems/standby/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from  types.Phase
		to    types.Phase
		valid bool
	}{
		{types.PhaseDetecting, types.PhaseValidatingTrigger, true},
		{types.PhaseDetecting, types.PhaseAborted, true},
		{types.PhaseDetecting, types.PhasePromotingDatabase, false},
		{types.PhaseValidatingTrigger, types.PhasePromotingDatabase, true},
		{types.PhaseValidatingTrigger, types.PhaseRevertingDNS, true},
		{types.PhaseValidatingTrigger, types.PhaseAborted, true},
		{types.PhasePromotingDatabase, types.PhaseScalingCompute, true},
		{types.PhasePromotingDatabase, types.PhaseFailoverFailed, true},
		{types.PhasePromotingDatabase, types.PhaseAborted, false},
		{types.PhaseScalingCompute, types.PhaseCuttingOverDNS, true},
		{types.PhaseCuttingOverDNS, types.PhaseValidatingFailover, true},
		{types.PhaseValidatingFailover, types.PhaseFailedOver, true},
		{types.PhaseValidatingFailover, types.PhaseFailoverFailed, true},
		{types.PhaseFailedOver, types.PhaseNormal, false},
		{types.PhaseRevertingDNS, types.PhaseScalingDownCompute, true},
		{types.PhaseScalingDownCompute, types.PhaseDemotingDatabase, true},
		{types.PhaseDemotingDatabase, types.PhaseValidatingFailback, true},
		{types.PhaseValidatingFailback, types.PhaseNormal, true},
		{types.PhaseValidatingFailback, types.PhaseFailbackFailed, true},
		{types.PhaseFailoverFailed, types.PhaseScalingCompute, true},
		{types.PhaseFailbackFailed, types.PhaseRevertingDNS, true},
		{types.PhaseAborted, types.PhaseDetecting, false},
		{types.PhaseNormal, types.PhaseDetecting, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.valid, CanTransition(tt.from, tt.to))
			err := Transition(tt.from, tt.to)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(types.PhaseFailedOver))
	assert.True(t, IsTerminal(types.PhaseNormal))
	assert.True(t, IsTerminal(types.PhaseFailoverFailed))
	assert.True(t, IsTerminal(types.PhaseFailbackFailed))
	assert.True(t, IsTerminal(types.PhaseAborted))
	assert.False(t, IsTerminal(types.PhaseDetecting))
	assert.False(t, IsTerminal(types.PhasePromotingDatabase))
	assert.False(t, IsTerminal(types.PhaseValidatingFailover))
}

func TestIsAbortable(t *testing.T) {
	assert.True(t, IsAbortable(types.PhaseDetecting))
	assert.True(t, IsAbortable(types.PhaseValidatingTrigger))
	assert.False(t, IsAbortable(types.PhasePromotingDatabase))
	assert.False(t, IsAbortable(types.PhaseScalingCompute))
	assert.False(t, IsAbortable(types.PhaseCuttingOverDNS))
	assert.False(t, IsAbortable(types.PhaseFailedOver))
}

func TestSteps(t *testing.T) {
	fo := Steps(types.DirectionFailover)
	assert.Len(t, fo, 3)
	assert.Equal(t, ActionPromoteDatabase, fo[0].Action)
	assert.Equal(t, RetryNone, fo[0].Retry)
	assert.Equal(t, ActionScaleCompute, fo[1].Action)
	assert.Equal(t, RetryBounded, fo[1].Retry)
	assert.Equal(t, ActionCutoverDNS, fo[2].Action)

	fb := Steps(types.DirectionFailback)
	assert.Len(t, fb, 3)
	assert.Equal(t, ActionRevertDNS, fb[0].Action)
	assert.Equal(t, ActionScaleDownCompute, fb[1].Action)
	assert.Equal(t, ActionDemoteDatabase, fb[2].Action)
	assert.Equal(t, RetryNone, fb[2].Retry)
}

func TestDirectionPhases(t *testing.T) {
	assert.Equal(t, types.PhaseValidatingFailover, ValidationPhase(types.DirectionFailover))
	assert.Equal(t, types.PhaseFailedOver, SuccessPhase(types.DirectionFailover))
	assert.Equal(t, types.PhaseFailoverFailed, FailedPhase(types.DirectionFailover))
	assert.Equal(t, types.PhaseValidatingFailback, ValidationPhase(types.DirectionFailback))
	assert.Equal(t, types.PhaseNormal, SuccessPhase(types.DirectionFailback))
	assert.Equal(t, types.PhaseFailbackFailed, FailedPhase(types.DirectionFailback))
}
