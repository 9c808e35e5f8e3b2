package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standby-systems/standby/internal/store/memory"
	"github.com/standby-systems/standby/pkg/types"
)

func activeExecution(t *testing.T, st *memory.Store, phase types.Phase, updatedAt time.Time) types.DrExecution {
	t.Helper()
	exec := types.DrExecution{
		ExecutionID: "01WATCHDOG0000000000000000",
		Direction:   types.DirectionFailover,
		Phase:       phase,
		Version:     3,
		StartedAt:   updatedAt.Add(-5 * time.Minute),
		UpdatedAt:   updatedAt,
	}
	require.NoError(t, st.CreateActive(context.Background(), exec))
	return exec
}

func TestCheckStuckExecution(t *testing.T) {
	st := memory.New()
	now := time.Now().UTC()
	activeExecution(t, st, types.PhaseScalingCompute, now.Add(-30*time.Minute))

	stuck := CheckStuckExecution(context.Background(), CheckOptions{
		Store:          st,
		Now:            now,
		StuckThreshold: 10 * time.Minute,
	})
	require.NotNil(t, stuck)
	assert.Equal(t, types.PhaseScalingCompute, stuck.Phase)
	assert.GreaterOrEqual(t, stuck.Age, 30*time.Minute)

	events, err := st.ListEvents(context.Background(), stuck.ExecutionID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventExecutionStuck, events[0].Kind)
	assert.Equal(t, types.EventLevelError, events[0].Level)

	// The execution itself was not touched.
	active, err := st.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.PhaseScalingCompute, active.Phase)
	assert.Equal(t, 3, active.Version)
}

func TestCheckStuckExecution_FreshExecution(t *testing.T) {
	st := memory.New()
	now := time.Now().UTC()
	activeExecution(t, st, types.PhaseScalingCompute, now.Add(-time.Minute))

	stuck := CheckStuckExecution(context.Background(), CheckOptions{
		Store:          st,
		Now:            now,
		StuckThreshold: 10 * time.Minute,
	})
	assert.Nil(t, stuck)
}

func TestCheckStuckExecution_NoActive(t *testing.T) {
	st := memory.New()
	stuck := CheckStuckExecution(context.Background(), CheckOptions{Store: st})
	assert.Nil(t, stuck)
}

func TestCheckStuckExecution_ParkedPhasesExempt(t *testing.T) {
	now := time.Now().UTC()
	for _, phase := range []types.Phase{
		types.PhaseFailoverFailed,
		types.PhaseFailbackFailed,
		types.PhaseValidatingTrigger,
	} {
		st := memory.New()
		activeExecution(t, st, phase, now.Add(-2*time.Hour))

		stuck := CheckStuckExecution(context.Background(), CheckOptions{
			Store:          st,
			Now:            now,
			StuckThreshold: 10 * time.Minute,
		})
		assert.Nil(t, stuck, "phase %s should not alert", phase)
	}
}

func TestWatchdog_DedupsByVersion(t *testing.T) {
	st := memory.New()
	now := time.Now().UTC()
	exec := activeExecution(t, st, types.PhasePromotingDatabase, now.Add(-time.Hour))

	w := New(st, nil, nil, types.WatchdogConfig{StuckThreshold: "10m"})
	w.scan(context.Background())
	w.scan(context.Background())

	events, err := st.ListEvents(context.Background(), exec.ExecutionID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1, "second scan at the same version stays quiet")

	// A version bump re-arms the alert.
	exec.Version++
	exec.UpdatedAt = now.Add(-30 * time.Minute)
	require.NoError(t, st.UpdateActive(context.Background(), 3, exec))
	w.scan(context.Background())

	events, err = st.ListEvents(context.Background(), exec.ExecutionID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestWatchdog_StartStop(t *testing.T) {
	st := memory.New()
	w := New(st, nil, nil, types.WatchdogConfig{Interval: "10ms", StuckThreshold: "1h"})
	w.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	w.Stop(context.Background())
}
