package health

import (
	"sync"
	"time"

	"github.com/standby-systems/standby/pkg/types"
)

// Debouncer decides when a stream of health signals justifies a failover.
// It fires only after a configured number of consecutive UNHEALTHY signals
// arrive within a sliding window. Any HEALTHY signal resets the count, as
// does a gap wider than the window: stale evidence expires.
type Debouncer struct {
	threshold int
	window    time.Duration

	mu        sync.Mutex
	streak    []time.Time
	lastState types.HealthStatus
}

// NewDebouncer creates a debouncer. Threshold and window fall back to
// 3 signals in 5 minutes when unset.
func NewDebouncer(cfg types.DetectionConfig) *Debouncer {
	threshold := cfg.UnhealthyThreshold
	if threshold <= 0 {
		threshold = 3
	}
	window := 5 * time.Minute
	if d, err := time.ParseDuration(cfg.Window); err == nil && d > 0 {
		window = d
	}
	return &Debouncer{
		threshold: threshold,
		window:    window,
		lastState: types.Healthy,
	}
}

// Observe records a signal and reports whether the failover condition is
// now met. It keeps firing while the condition holds; the caller guards
// against duplicate executions.
func (d *Debouncer) Observe(sig types.HealthSignal) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastState = sig.Status
	if sig.Status != types.Unhealthy {
		d.streak = nil
		return false
	}

	at := sig.ObservedAt
	if at.IsZero() {
		at = time.Now()
	}

	// A gap wider than the window breaks the streak.
	if n := len(d.streak); n > 0 && at.Sub(d.streak[n-1]) > d.window {
		d.streak = nil
	}
	d.streak = append(d.streak, at)

	// Drop observations that have slid out of the window.
	cutoff := at.Add(-d.window)
	for len(d.streak) > 0 && d.streak[0].Before(cutoff) {
		d.streak = d.streak[1:]
	}

	return len(d.streak) >= d.threshold
}

// Reset clears the streak, used after an execution starts.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streak = nil
}

// Streak returns the current consecutive UNHEALTHY count.
func (d *Debouncer) Streak() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streak)
}

// LastState returns the most recently observed status.
func (d *Debouncer) LastState() types.HealthStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastState
}
