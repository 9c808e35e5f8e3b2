// alarm Lambda forwards CloudWatch alarm state changes to the orchestrator
// as health signals. Invoked by an EventBridge rule matching "CloudWatch
// Alarm State Change" events in the primary region, it gives the monitor a
// push path that works even when the orchestrator's own pull probes can
// still reach a half-dead primary.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	"github.com/standby-systems/standby/internal/lambdainit"
	"github.com/standby-systems/standby/pkg/types"
)

var (
	deps     *lambdainit.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*lambdainit.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = lambdainit.Init(context.Background())
	})
	return deps, depsErr
}

// alarmDetail is the detail payload of a CloudWatch Alarm State Change
// event.
type alarmDetail struct {
	AlarmName string `json:"alarmName"`
	State     struct {
		Value  string `json:"value"`
		Reason string `json:"reason"`
	} `json:"state"`
	PreviousState struct {
		Value string `json:"value"`
	} `json:"previousState"`
}

func handler(ctx context.Context, event events.CloudWatchEvent) error {
	d, err := getDeps()
	if err != nil {
		return err
	}

	var detail alarmDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return fmt.Errorf("parsing alarm detail: %w", err)
	}

	var status types.HealthStatus
	switch detail.State.Value {
	case "ALARM":
		status = types.Unhealthy
	case "OK":
		// A recovery observation; it resets the orchestrator's streak.
		status = types.Healthy
	default:
		// INSUFFICIENT_DATA says nothing either way.
		d.Logger.Info("ignoring alarm state",
			"alarm", detail.AlarmName, "state", detail.State.Value)
		return nil
	}

	sig := types.HealthSignal{
		Region:     event.Region,
		Status:     status,
		Source:     "alarm:" + detail.AlarmName,
		ObservedAt: time.Now().UTC(),
	}
	if err := d.SubmitSignal(ctx, sig); err != nil {
		d.Logger.Error("signal delivery failed",
			"alarm", detail.AlarmName, "state", detail.State.Value, "error", err)
		return err
	}

	d.Logger.Info("alarm signal forwarded",
		"alarm", detail.AlarmName,
		"state", detail.State.Value,
		"previous", detail.PreviousState.Value,
		"reason", detail.State.Reason)
	return nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
