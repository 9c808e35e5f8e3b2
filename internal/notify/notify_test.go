package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standby-systems/standby/pkg/types"
)

func testEvent() types.Event {
	return types.Event{
		Kind:        types.EventPhaseChanged,
		Level:       types.EventLevelInfo,
		ExecutionID: "01JEXEC0000000000000000000",
		Direction:   types.DirectionFailover,
		Phase:       types.PhasePromotingDatabase,
		Message:     "promoting standby replica",
		Timestamp:   time.Now(),
	}
}

func TestConsoleSink_Send(t *testing.T) {
	sink := NewConsoleSink()
	assert.Equal(t, "console", sink.Name())

	ctx := context.Background()
	for _, level := range []types.EventLevel{types.EventLevelError, types.EventLevelWarning, types.EventLevelInfo} {
		ev := testEvent()
		ev.Level = level
		err := sink.Send(ctx, ev)
		assert.NoError(t, err)
	}
}

func TestWebhookSink_Send_Success(t *testing.T) {
	var received []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		received = buf[:n]
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sink := NewWebhookSink(ts.URL)
	ev := testEvent()

	err := sink.Send(context.Background(), ev)
	require.NoError(t, err)

	var got types.Event
	require.NoError(t, json.Unmarshal(received, &got))
	assert.Equal(t, ev.Message, got.Message)
	assert.Equal(t, ev.ExecutionID, got.ExecutionID)
}

func TestWebhookSink_Send_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	sink := NewWebhookSink(ts.URL)

	err := sink.Send(context.Background(), testEvent())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestFileSink_Send(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "events-*.jsonl")
	require.NoError(t, err)
	_ = f.Close()

	sink, err := NewFileSink(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "file", sink.Name())

	ev := testEvent()
	require.NoError(t, sink.Send(context.Background(), ev))

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)

	lines := strings.TrimSpace(string(data))
	var got types.Event
	require.NoError(t, json.Unmarshal([]byte(lines), &got))
	assert.Equal(t, ev.Message, got.Message)
}

// errSink is a test sink that always returns an error.
type errSink struct{}

func (s *errSink) Send(_ context.Context, _ types.Event) error { return fmt.Errorf("sink error") }
func (s *errSink) Name() string                                { return "error-sink" }

// recordSink records all events sent to it.
type recordSink struct {
	events []types.Event
}

func (s *recordSink) Send(_ context.Context, ev types.Event) error {
	s.events = append(s.events, ev)
	return nil
}
func (s *recordSink) Name() string { return "record-sink" }

func TestDispatcher_MultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	d := &Dispatcher{sinks: []Sink{s1, s2}, logger: slog.Default()}

	ev := testEvent()
	d.Dispatch(context.Background(), ev)

	assert.Len(t, s1.events, 1)
	assert.Len(t, s2.events, 1)
	assert.Equal(t, ev.Message, s1.events[0].Message)
}

func TestDispatcher_SinkError_ContinuesOthers(t *testing.T) {
	failing := &errSink{}
	recording := &recordSink{}
	d := &Dispatcher{
		sinks:  []Sink{failing, recording},
		logger: slog.Default(),
	}

	d.Dispatch(context.Background(), testEvent())

	// Even though first sink failed, second should have received the event
	assert.Len(t, recording.events, 1)
}

func TestNewDispatcher_UnknownType(t *testing.T) {
	_, err := NewDispatcher([]types.NotificationConfig{{Type: "pager"}}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown notification type")
}

func TestNewDispatcher_MissingWebhookURL(t *testing.T) {
	_, err := NewDispatcher([]types.NotificationConfig{{Type: types.NotifyWebhook}}, nil)
	assert.Error(t, err)
}
