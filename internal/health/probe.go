package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/standby-systems/standby/pkg/types"
)

// HTTPProbe checks the primary endpoint with a GET request. A circuit
// breaker keeps a flapping or black-holing endpoint from tying up probe
// goroutines: once open, probes fail fast until the timeout elapses.
type HTTPProbe struct {
	url     string
	region  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewHTTPProbe creates a probe for the configured primary endpoint.
func NewHTTPProbe(cfg types.DetectionConfig, logger *slog.Logger) *HTTPProbe {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := 5 * time.Second
	if d, err := time.ParseDuration(cfg.ProbeTimeout); err == nil && d > 0 {
		timeout = d
	}

	p := &HTTPProbe{
		url:    cfg.ProbeURL,
		region: cfg.PrimaryRegion,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "primary-probe",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("probe breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

// Name returns the checker identifier.
func (p *HTTPProbe) Name() string { return "probe" }

// Check probes the endpoint once. Any transport error, non-2xx status, or
// open breaker is an UNHEALTHY observation; probe failure and endpoint
// failure are indistinguishable on purpose, the debouncer sorts out noise.
func (p *HTTPProbe) Check(ctx context.Context) types.HealthSignal {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("probe returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		p.logger.Debug("probe failed", "url", p.url, "error", err)
		return signalNow(p.region, "probe", types.Unhealthy)
	}
	return signalNow(p.region, "probe", types.Healthy)
}
