// Package memory implements the Store interface in process memory, for tests
// and for local single-node operation.
package memory

import (
	"context"
	"sync"

	"github.com/standby-systems/standby/internal/store"
	"github.com/standby-systems/standby/pkg/types"
)

// Compile-time interface satisfaction check.
var _ store.Store = (*Store)(nil)

// Store is an in-memory state store guarded by a single mutex, so its
// CreateActive/UpdateActive have the same atomicity as the DynamoDB
// conditional writes they stand in for.
type Store struct {
	mu      sync.Mutex
	active  *types.DrExecution
	history []types.DrExecution
	events  map[string][]types.Event
	posture types.Posture
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		events:  make(map[string][]types.Event),
		posture: types.PostureActivePrimary,
	}
}

func (s *Store) CreateActive(_ context.Context, exec types.DrExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return store.ErrExecutionActive
	}
	cp := exec
	cp.StepResults = append([]types.ActionResult(nil), exec.StepResults...)
	s.active = &cp
	return nil
}

func (s *Store) GetActive(_ context.Context) (*types.DrExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, store.ErrNoActiveExecution
	}
	cp := *s.active
	cp.StepResults = append([]types.ActionResult(nil), s.active.StepResults...)
	return &cp, nil
}

func (s *Store) UpdateActive(_ context.Context, expectedVersion int, exec types.DrExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return store.ErrNoActiveExecution
	}
	if s.active.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	cp := exec
	cp.StepResults = append([]types.ActionResult(nil), exec.StepResults...)
	s.active = &cp
	return nil
}

func (s *Store) Archive(_ context.Context, exec types.DrExecution, posture types.Posture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := exec
	cp.StepResults = append([]types.ActionResult(nil), exec.StepResults...)
	s.history = append(s.history, cp)
	if s.active != nil && s.active.ExecutionID == exec.ExecutionID {
		s.active = nil
	}
	s.posture = posture
	return nil
}

func (s *Store) GetPosture(_ context.Context) (types.Posture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posture, nil
}

func (s *Store) ListHistory(_ context.Context, limit int) ([]types.DrExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	var result []types.DrExecution
	for i := len(s.history) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.history[i])
	}
	return result, nil
}

func (s *Store) GetExecution(_ context.Context, executionID string) (*types.DrExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.ExecutionID == executionID {
		cp := *s.active
		return &cp, nil
	}
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ExecutionID == executionID {
			cp := s.history[i]
			return &cp, nil
		}
	}
	return nil, store.ErrExecutionNotFound
}

func (s *Store) AppendEvent(_ context.Context, event types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ExecutionID] = append(s.events[event.ExecutionID], event)
	return nil
}

func (s *Store) ListEvents(_ context.Context, executionID string, limit int) ([]types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.events[executionID]
	if limit > 0 && len(evs) > limit {
		evs = evs[len(evs)-limit:]
	}
	return append([]types.Event(nil), evs...), nil
}

// Start is a no-op for the in-memory store.
func (s *Store) Start(_ context.Context) error { return nil }

// Stop is a no-op for the in-memory store.
func (s *Store) Stop(_ context.Context) error { return nil }

// Ping is a no-op for the in-memory store.
func (s *Store) Ping(_ context.Context) error { return nil }
