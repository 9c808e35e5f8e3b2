// Package validate implements the post-cutover validation gate. An
// execution only reaches its terminal success phase after every configured
// check passes against the newly active region.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Check is one named validation of the active region.
type Check interface {
	Name() string
	Run(ctx context.Context) error
}

// Gate runs all checks concurrently and retries the full set a bounded
// number of times. The gate never triggers rollback; a failed gate parks
// the execution for the operator.
type Gate struct {
	checks      []Check
	maxAttempts int
	interval    time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// NewGate creates a gate over the given checks.
func NewGate(checks []Check, maxAttempts int, interval, timeout time.Duration, logger *slog.Logger) *Gate {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		checks:      checks,
		maxAttempts: maxAttempts,
		interval:    interval,
		timeout:     timeout,
		logger:      logger,
	}
}

// Validate runs the checks until every one passes in the same attempt, or
// attempts are exhausted. The returned error names the checks that failed
// last.
func (g *Gate) Validate(ctx context.Context) error {
	if len(g.checks) == 0 {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		lastErr = g.runOnce(ctx)
		if lastErr == nil {
			return nil
		}
		g.logger.Warn("validation attempt failed",
			"attempt", attempt, "maxAttempts", g.maxAttempts, "error", lastErr)

		if attempt == g.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("validation interrupted: %w", ctx.Err())
		case <-time.After(g.interval):
		}
	}
	return fmt.Errorf("validation failed after %d attempts: %w", g.maxAttempts, lastErr)
}

func (g *Gate) runOnce(ctx context.Context) error {
	grp, gctx := errgroup.WithContext(ctx)
	for _, check := range g.checks {
		check := check
		grp.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, g.timeout)
			defer cancel()
			if err := check.Run(cctx); err != nil {
				return fmt.Errorf("%s: %w", check.Name(), err)
			}
			g.logger.Debug("validation check passed", "check", check.Name())
			return nil
		})
	}
	return grp.Wait()
}
