package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetDeps() {
	depsOnce = sync.Once{}
	deps, depsErr = nil, nil
}

func alarmEvent(t *testing.T, state string) events.CloudWatchEvent {
	t.Helper()
	detail, err := json.Marshal(map[string]interface{}{
		"alarmName": "primary-region-health",
		"state":     map[string]string{"value": state, "reason": "threshold crossed"},
		"previousState": map[string]string{
			"value": "OK",
		},
	})
	require.NoError(t, err)
	return events.CloudWatchEvent{
		DetailType: "CloudWatch Alarm State Change",
		Source:     "aws.cloudwatch",
		Region:     "us-east-1",
		Detail:     detail,
	}
}

func TestHandler(t *testing.T) {
	var mu sync.Mutex
	var received []map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/signals", r.URL.Path)
		assert.Equal(t, "tok3n", r.Header.Get("X-API-Key"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		received = append(received, body)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	t.Setenv("STANDBY_ENDPOINT", ts.URL)
	t.Setenv("STANDBY_API_KEY", "tok3n")
	resetDeps()

	require.NoError(t, handler(context.Background(), alarmEvent(t, "ALARM")))
	require.NoError(t, handler(context.Background(), alarmEvent(t, "OK")))
	// INSUFFICIENT_DATA is dropped without a signal.
	require.NoError(t, handler(context.Background(), alarmEvent(t, "INSUFFICIENT_DATA")))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, "UNHEALTHY", received[0]["status"])
	assert.Equal(t, "us-east-1", received[0]["region"])
	assert.Equal(t, "alarm:primary-region-health", received[0]["source"])
	assert.Equal(t, "HEALTHY", received[1]["status"])
}

func TestHandler_BadDetail(t *testing.T) {
	t.Setenv("STANDBY_ENDPOINT", "http://localhost:0")
	resetDeps()

	err := handler(context.Background(), events.CloudWatchEvent{Detail: []byte("{nope")})
	assert.Error(t, err)
}
