// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	SignalsObserved     = expvar.NewInt("health_signals_observed")
	SignalsUnhealthy    = expvar.NewInt("health_signals_unhealthy")
	ExecutionsStarted   = expvar.NewInt("executions_started")
	ExecutionsCompleted = expvar.NewInt("executions_completed")
	ExecutionsFailed    = expvar.NewInt("executions_failed")
	ExecutionsAborted   = expvar.NewInt("executions_aborted")
	ExecutionsResumed   = expvar.NewInt("executions_resumed")
	DuplicateTriggers   = expvar.NewInt("duplicate_triggers")
	ActionsDispatched   = expvar.NewInt("actions_dispatched")
	ActionsFailed       = expvar.NewInt("actions_failed")
	RetriesScheduled    = expvar.NewInt("retries_scheduled")
	ValidationsFailed   = expvar.NewInt("validations_failed")
	NotificationsFailed = expvar.NewInt("notifications_failed")
	ExecutionsStuck     = expvar.NewInt("executions_stuck")
)
