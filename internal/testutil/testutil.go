// Package testutil provides shared test utilities for Standby.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/standby-systems/standby/internal/executor"
	"github.com/standby-systems/standby/pkg/types"
)

// Compile-time interface satisfaction check.
var _ executor.Executor = (*FakeExecutor)(nil)

// FakeExecutor returns scripted outcomes in order, repeating the last one
// when the script runs out. With no script it always succeeds.
type FakeExecutor struct {
	ActionName string
	Script     []executor.Outcome
	CheckDone  bool
	CheckErr   error

	mu    sync.Mutex
	calls int
	ids   []string
}

// NewFakeExecutor creates an always-succeeding executor for the action.
func NewFakeExecutor(action string) *FakeExecutor {
	return &FakeExecutor{ActionName: action}
}

// Name returns the action identifier.
func (f *FakeExecutor) Name() string { return f.ActionName }

// Execute returns the next scripted outcome.
func (f *FakeExecutor) Execute(_ context.Context, executionID string) executor.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, executionID)
	i := f.calls
	f.calls++
	if len(f.Script) == 0 {
		return executor.OK("done")
	}
	if i >= len(f.Script) {
		i = len(f.Script) - 1
	}
	return f.Script[i]
}

// Check returns the configured already-done verdict.
func (f *FakeExecutor) Check(_ context.Context) (bool, string, error) {
	return f.CheckDone, "checked", f.CheckErr
}

// Calls returns how many times Execute ran.
func (f *FakeExecutor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ExecutionIDs returns the execution IDs passed to Execute.
func (f *FakeExecutor) ExecutionIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

// WaitFor polls check every 10ms until it returns true or timeout is reached.
func WaitFor(t *testing.T, timeout time.Duration, check func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition: %s", msg)
}

// StaticChecker always reports the same health status.
type StaticChecker struct {
	CheckerName string
	Status      types.HealthStatus
	Region      string
}

// Name returns the checker identifier.
func (c *StaticChecker) Name() string { return c.CheckerName }

// Check returns the configured status stamped with the current time.
func (c *StaticChecker) Check(_ context.Context) types.HealthSignal {
	return types.HealthSignal{
		Region:     c.Region,
		Status:     c.Status,
		Source:     c.CheckerName,
		ObservedAt: time.Now().UTC(),
	}
}
