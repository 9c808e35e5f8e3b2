// Package notify implements execution event dispatching to multiple sinks.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/standby-systems/standby/pkg/types"
)

// Sink is an event destination.
type Sink interface {
	Send(ctx context.Context, ev types.Event) error
	Name() string
}

// Dispatcher routes events to configured sinks. Delivery is best effort:
// a failing sink is logged and never blocks an execution.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher from notification configs.
func NewDispatcher(configs []types.NotificationConfig, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger}
	for _, cfg := range configs {
		sink, err := newSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s sink: %w", cfg.Type, err)
		}
		d.sinks = append(d.sinks, sink)
	}
	return d, nil
}

// AddSink appends a sink directly, bypassing config. Used in tests.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Dispatch sends an event to all configured sinks.
func (d *Dispatcher) Dispatch(ctx context.Context, ev types.Event) {
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, ev); err != nil {
			d.logger.Warn("notification delivery failed",
				"sink", sink.Name(), "kind", ev.Kind, "error", err)
		}
	}
}

func newSink(cfg types.NotificationConfig) (Sink, error) {
	switch cfg.Type {
	case types.NotifyConsole:
		return NewConsoleSink(), nil
	case types.NotifyFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file path required")
		}
		return NewFileSink(cfg.Path)
	case types.NotifyWebhook:
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook URL required")
		}
		return NewWebhookSink(cfg.URL), nil
	case types.NotifySNS:
		return NewSNSSink(cfg.TopicARN)
	case types.NotifySQS:
		return NewSQSSink(cfg.QueueURL)
	case types.NotifyEventBridge:
		return NewEventBridgeSink(cfg.EventBus)
	case types.NotifyCloudWatchLogs:
		return NewCloudWatchLogsSink(cfg.LogGroup, cfg.LogStream)
	default:
		return nil, fmt.Errorf("unknown notification type %q", cfg.Type)
	}
}
