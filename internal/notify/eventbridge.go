package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/standby-systems/standby/pkg/types"
)

const eventSource = "standby.orchestrator"

// EventBridgeAPI is the subset of the EventBridge client used by
// EventBridgeSink.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, input *eventbridge.PutEventsInput, opts ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgeSink publishes events to an EventBridge bus so other systems
// can react to failover activity.
type EventBridgeSink struct {
	client EventBridgeAPI
	bus    string
}

// EventBridgeSinkOption configures an EventBridgeSink.
type EventBridgeSinkOption func(*EventBridgeSink)

// WithEventBridgeClient sets a custom EventBridge client (useful for testing).
func WithEventBridgeClient(c EventBridgeAPI) EventBridgeSinkOption {
	return func(s *EventBridgeSink) { s.client = c }
}

// NewEventBridgeSink creates a new EventBridge event sink. An empty bus name
// targets the account default bus.
func NewEventBridgeSink(bus string, opts ...EventBridgeSinkOption) (*EventBridgeSink, error) {
	s := &EventBridgeSink{bus: bus}
	for _, o := range opts {
		o(s)
	}
	if s.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		s.client = eventbridge.NewFromConfig(cfg)
	}
	return s, nil
}

// Name returns the sink identifier.
func (s *EventBridgeSink) Name() string { return "eventbridge" }

// Send publishes the event to the configured bus.
func (s *EventBridgeSink) Send(ctx context.Context, ev types.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	entry := ebtypes.PutEventsRequestEntry{
		Source:     aws.String(eventSource),
		DetailType: aws.String(string(ev.Kind)),
		Detail:     aws.String(string(data)),
	}
	if s.bus != "" {
		entry.EventBusName = aws.String(s.bus)
	}

	out, err := s.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebtypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		return fmt.Errorf("publishing to EventBridge: %w", err)
	}
	if out.FailedEntryCount > 0 {
		return fmt.Errorf("EventBridge rejected %d entries", out.FailedEntryCount)
	}

	return nil
}
