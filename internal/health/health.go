// Package health observes the primary region and produces health signals.
//
// Signals come from three sources: an HTTP probe against the primary
// endpoint, the state of a CloudWatch alarm, and operator submissions via
// the API. The debouncer turns a stream of signals into a single failover
// trigger decision.
package health

import (
	"context"
	"time"

	"github.com/standby-systems/standby/pkg/types"
)

// Checker produces one health observation of the primary region.
type Checker interface {
	Name() string
	Check(ctx context.Context) types.HealthSignal
}

// signalNow stamps a signal with its source and observation time.
func signalNow(region, source string, status types.HealthStatus) types.HealthSignal {
	return types.HealthSignal{
		Region:     region,
		Status:     status,
		Source:     source,
		ObservedAt: time.Now().UTC(),
	}
}
