// Package lambdainit builds shared dependencies for the Lambda entrypoints
// from environment variables.
package lambdainit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/standby-systems/standby/pkg/types"
)

// Deps holds shared dependencies for Lambda handlers. Lambdas never run the
// orchestrator themselves; they push signals to the serve process, which
// owns the execution lifecycle.
type Deps struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
	Logger   *slog.Logger
}

// Init creates shared dependencies from environment variables.
// Reads: STANDBY_ENDPOINT, STANDBY_API_KEY, SIGNAL_TIMEOUT.
func Init(_ context.Context) (*Deps, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	endpoint := os.Getenv("STANDBY_ENDPOINT")
	if endpoint == "" {
		return nil, fmt.Errorf("STANDBY_ENDPOINT environment variable required")
	}

	timeout := 10 * time.Second
	if v := os.Getenv("SIGNAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	return &Deps{
		Endpoint: endpoint,
		APIKey:   os.Getenv("STANDBY_API_KEY"),
		Client:   &http.Client{Timeout: timeout},
		Logger:   logger,
	}, nil
}

// SubmitSignal posts one health observation to the orchestrator's signals
// endpoint.
func (d *Deps) SubmitSignal(ctx context.Context, sig types.HealthSignal) error {
	body, err := json.Marshal(map[string]string{
		"region": sig.Region,
		"status": string(sig.Status),
		"source": sig.Source,
	})
	if err != nil {
		return fmt.Errorf("encoding signal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.Endpoint+"/api/signals", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building signal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.APIKey != "" {
		req.Header.Set("X-API-Key", d.APIKey)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting signal: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("signal rejected with status %d: %s", resp.StatusCode, msg)
	}
	return nil
}
