package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/standby-systems/standby/pkg/types"
)

// CloudWatchLogsAPI is the subset of the CloudWatch Logs client used by
// CloudWatchLogsSink.
type CloudWatchLogsAPI interface {
	PutLogEvents(ctx context.Context, input *cloudwatchlogs.PutLogEventsInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogStream(ctx context.Context, input *cloudwatchlogs.CreateLogStreamInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// CloudWatchLogsSink appends events to a CloudWatch Logs stream as an
// off-box audit trail.
type CloudWatchLogsSink struct {
	client  CloudWatchLogsAPI
	group   string
	stream  string
	mu      sync.Mutex
	created bool
}

// CloudWatchLogsSinkOption configures a CloudWatchLogsSink.
type CloudWatchLogsSinkOption func(*CloudWatchLogsSink)

// WithCloudWatchLogsClient sets a custom client (useful for testing).
func WithCloudWatchLogsClient(c CloudWatchLogsAPI) CloudWatchLogsSinkOption {
	return func(s *CloudWatchLogsSink) { s.client = c }
}

// NewCloudWatchLogsSink creates a new CloudWatch Logs event sink.
func NewCloudWatchLogsSink(group, stream string, opts ...CloudWatchLogsSinkOption) (*CloudWatchLogsSink, error) {
	if group == "" {
		return nil, fmt.Errorf("log group required")
	}
	if stream == "" {
		stream = "dr-events"
	}
	s := &CloudWatchLogsSink{group: group, stream: stream}
	for _, o := range opts {
		o(s)
	}
	if s.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		s.client = cloudwatchlogs.NewFromConfig(cfg)
	}
	return s, nil
}

// Name returns the sink identifier.
func (s *CloudWatchLogsSink) Name() string { return "cloudwatchlogs" }

// Send writes the event as a JSON log line to the configured stream. The
// log stream is created lazily on first use.
func (s *CloudWatchLogsSink) Send(ctx context.Context, ev types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.created {
		_, err := s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
			LogGroupName:  aws.String(s.group),
			LogStreamName: aws.String(s.stream),
		})
		var exists *cwltypes.ResourceAlreadyExistsException
		if err != nil && !errors.As(err, &exists) {
			return fmt.Errorf("creating log stream: %w", err)
		}
		s.created = true
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.stream),
		LogEvents: []cwltypes.InputLogEvent{{
			Message:   aws.String(string(data)),
			Timestamp: aws.Int64(ts.UnixMilli()),
		}},
	})
	if err != nil {
		return fmt.Errorf("writing log events: %w", err)
	}

	return nil
}
