// Package store defines the DR state store interface: the durable record of
// the current execution, the append-only history of completed executions,
// and the event log.
package store

import (
	"context"
	"errors"

	"github.com/standby-systems/standby/pkg/types"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrExecutionActive means the active-execution slot is already occupied.
	// This is the mutual-exclusion primitive: at most one non-terminal
	// execution exists across any number of orchestrator instances.
	ErrExecutionActive = errors.New("an execution is already active")

	// ErrNoActiveExecution means the slot is empty.
	ErrNoActiveExecution = errors.New("no active execution")

	// ErrVersionConflict means a compare-and-set lost the race.
	ErrVersionConflict = errors.New("execution version conflict")

	// ErrExecutionNotFound means no execution with that ID exists.
	ErrExecutionNotFound = errors.New("execution not found")
)

// Store is the single source of truth for orchestration state. All mutation
// of the active slot is atomic read-modify-write; the orchestrator persists
// every phase transition here before dispatching the next action.
type Store interface {
	// CreateActive claims the active-execution slot. Returns
	// ErrExecutionActive if a non-terminal execution already holds it.
	CreateActive(ctx context.Context, exec types.DrExecution) error

	// GetActive returns the current execution, or ErrNoActiveExecution.
	// Reads are strongly consistent.
	GetActive(ctx context.Context) (*types.DrExecution, error)

	// UpdateActive replaces the active execution if the stored version
	// matches expectedVersion, else ErrVersionConflict.
	UpdateActive(ctx context.Context, expectedVersion int, exec types.DrExecution) error

	// Archive moves a terminal execution out of the active slot into the
	// append-only history and records the resulting posture.
	Archive(ctx context.Context, exec types.DrExecution, posture types.Posture) error

	// GetPosture returns the durable steady state. Defaults to
	// ACTIVE_PRIMARY when nothing has been recorded yet.
	GetPosture(ctx context.Context) (types.Posture, error)

	// ListHistory returns completed executions, newest first.
	ListHistory(ctx context.Context, limit int) ([]types.DrExecution, error)

	// GetExecution looks up an execution by ID in the active slot or history.
	GetExecution(ctx context.Context, executionID string) (*types.DrExecution, error)

	// AppendEvent appends an audit event.
	AppendEvent(ctx context.Context, event types.Event) error

	// ListEvents returns events for an execution in append order.
	ListEvents(ctx context.Context, executionID string, limit int) ([]types.Event, error)

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Ping(ctx context.Context) error
}
