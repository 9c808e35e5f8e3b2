package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standby-systems/standby/pkg/types"
)

type mockSNS struct {
	published []*sns.PublishInput
}

func (m *mockSNS) Publish(_ context.Context, input *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.published = append(m.published, input)
	return &sns.PublishOutput{}, nil
}

func TestSNSSink_Send(t *testing.T) {
	mock := &mockSNS{}
	sink, err := NewSNSSink("arn:aws:sns:us-east-1:123456789:dr-events", WithSNSClient(mock))
	require.NoError(t, err)
	assert.Equal(t, "sns", sink.Name())

	ev := testEvent()
	ev.Timestamp = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	err = sink.Send(context.Background(), ev)
	require.NoError(t, err)

	require.Len(t, mock.published, 1)
	pub := mock.published[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789:dr-events", *pub.TopicArn)
	assert.Contains(t, *pub.Subject, string(ev.Kind))

	var decoded types.Event
	require.NoError(t, json.Unmarshal([]byte(*pub.Message), &decoded))
	assert.Equal(t, ev.ExecutionID, decoded.ExecutionID)
	assert.Equal(t, ev.Message, decoded.Message)
}

func TestSNSSink_EmptyTopicARN(t *testing.T) {
	_, err := NewSNSSink("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "topic ARN required")
}

func TestSNSSink_SubjectTruncation(t *testing.T) {
	mock := &mockSNS{}
	sink, err := NewSNSSink("arn:aws:sns:us-east-1:123456789:dr-events", WithSNSClient(mock))
	require.NoError(t, err)

	ev := testEvent()
	ev.ExecutionID = "this-is-a-very-long-execution-identifier-that-exceeds-the-subject-length-limit-for-sns-messages-in-practice"

	require.NoError(t, sink.Send(context.Background(), ev))
	assert.LessOrEqual(t, len(*mock.published[0].Subject), 100)
}

type mockSQS struct {
	sent []*sqs.SendMessageInput
}

func (m *mockSQS) SendMessage(_ context.Context, input *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.sent = append(m.sent, input)
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSSink_Send(t *testing.T) {
	mock := &mockSQS{}
	sink, err := NewSQSSink("https://sqs.us-east-1.amazonaws.com/123456789/dr-events", WithSQSClient(mock))
	require.NoError(t, err)
	assert.Equal(t, "sqs", sink.Name())

	ev := testEvent()
	require.NoError(t, sink.Send(context.Background(), ev))

	require.Len(t, mock.sent, 1)
	msg := mock.sent[0]
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123456789/dr-events", *msg.QueueUrl)
	assert.Equal(t, string(ev.Kind), *msg.MessageAttributes["kind"].StringValue)

	var decoded types.Event
	require.NoError(t, json.Unmarshal([]byte(*msg.MessageBody), &decoded))
	assert.Equal(t, ev.ExecutionID, decoded.ExecutionID)
}

func TestSQSSink_EmptyQueueURL(t *testing.T) {
	_, err := NewSQSSink("")
	assert.Error(t, err)
}

type mockEventBridge struct {
	puts []*eventbridge.PutEventsInput
}

func (m *mockEventBridge) PutEvents(_ context.Context, input *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	m.puts = append(m.puts, input)
	return &eventbridge.PutEventsOutput{FailedEntryCount: 0}, nil
}

func TestEventBridgeSink_Send(t *testing.T) {
	mock := &mockEventBridge{}
	sink, err := NewEventBridgeSink("dr-bus", WithEventBridgeClient(mock))
	require.NoError(t, err)
	assert.Equal(t, "eventbridge", sink.Name())

	ev := testEvent()
	require.NoError(t, sink.Send(context.Background(), ev))

	require.Len(t, mock.puts, 1)
	require.Len(t, mock.puts[0].Entries, 1)
	entry := mock.puts[0].Entries[0]
	assert.Equal(t, "standby.orchestrator", *entry.Source)
	assert.Equal(t, string(ev.Kind), *entry.DetailType)
	assert.Equal(t, "dr-bus", *entry.EventBusName)
}

func TestEventBridgeSink_DefaultBus(t *testing.T) {
	mock := &mockEventBridge{}
	sink, err := NewEventBridgeSink("", WithEventBridgeClient(mock))
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), testEvent()))
	assert.Nil(t, mock.puts[0].Entries[0].EventBusName)
}

type mockCWL struct {
	streams []*cloudwatchlogs.CreateLogStreamInput
	puts    []*cloudwatchlogs.PutLogEventsInput
}

func (m *mockCWL) CreateLogStream(_ context.Context, input *cloudwatchlogs.CreateLogStreamInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	m.streams = append(m.streams, input)
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (m *mockCWL) PutLogEvents(_ context.Context, input *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	m.puts = append(m.puts, input)
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

func TestCloudWatchLogsSink_Send(t *testing.T) {
	mock := &mockCWL{}
	sink, err := NewCloudWatchLogsSink("/standby/dr", "events", WithCloudWatchLogsClient(mock))
	require.NoError(t, err)
	assert.Equal(t, "cloudwatchlogs", sink.Name())

	require.NoError(t, sink.Send(context.Background(), testEvent()))
	require.NoError(t, sink.Send(context.Background(), testEvent()))

	// Stream created once, events written twice
	assert.Len(t, mock.streams, 1)
	require.Len(t, mock.puts, 2)
	assert.Equal(t, "/standby/dr", *mock.puts[0].LogGroupName)
	assert.Equal(t, "events", *mock.puts[0].LogStreamName)
	require.Len(t, mock.puts[0].LogEvents, 1)

	var decoded types.Event
	require.NoError(t, json.Unmarshal([]byte(*mock.puts[0].LogEvents[0].Message), &decoded))
	assert.Equal(t, types.EventPhaseChanged, decoded.Kind)
}

func TestCloudWatchLogsSink_EmptyGroup(t *testing.T) {
	_, err := NewCloudWatchLogsSink("", "events")
	assert.Error(t, err)
}
