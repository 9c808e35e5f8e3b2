package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standby-systems/standby/pkg/types"
)

func probeConfig(url string) types.DetectionConfig {
	return types.DetectionConfig{
		ProbeURL:      url,
		ProbeTimeout:  "2s",
		PrimaryRegion: "us-east-1",
	}
}

func TestHTTPProbe_Healthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p := NewHTTPProbe(probeConfig(ts.URL), nil)
	sig := p.Check(context.Background())
	assert.Equal(t, types.Healthy, sig.Status)
	assert.Equal(t, "probe", sig.Source)
	assert.Equal(t, "us-east-1", sig.Region)
	assert.False(t, sig.ObservedAt.IsZero())
}

func TestHTTPProbe_ServerError_Unhealthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	p := NewHTTPProbe(probeConfig(ts.URL), nil)
	sig := p.Check(context.Background())
	assert.Equal(t, types.Unhealthy, sig.Status)
}

func TestHTTPProbe_ConnectionRefused_Unhealthy(t *testing.T) {
	p := NewHTTPProbe(probeConfig("http://127.0.0.1:1"), nil)
	sig := p.Check(context.Background())
	assert.Equal(t, types.Unhealthy, sig.Status)
}

func TestHTTPProbe_BreakerOpens_FailsFast(t *testing.T) {
	var hits int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	p := NewHTTPProbe(probeConfig(ts.URL), nil)
	for i := 0; i < 10; i++ {
		sig := p.Check(context.Background())
		assert.Equal(t, types.Unhealthy, sig.Status)
	}
	// Breaker opens after 5 consecutive failures; later checks skip the wire.
	assert.EqualValues(t, 5, atomic.LoadInt64(&hits))
}

type mockAlarms struct {
	state cwtypes.StateValue
	err   error
	empty bool
}

func (m *mockAlarms) DescribeAlarms(_ context.Context, _ *cloudwatch.DescribeAlarmsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.empty {
		return &cloudwatch.DescribeAlarmsOutput{}, nil
	}
	return &cloudwatch.DescribeAlarmsOutput{
		MetricAlarms: []cwtypes.MetricAlarm{{StateValue: m.state}},
	}, nil
}

func TestAlarmChecker_States(t *testing.T) {
	cfg := types.DetectionConfig{AlarmName: "primary-unhealthy", PrimaryRegion: "us-east-1"}

	tests := []struct {
		name string
		mock *mockAlarms
		want types.HealthStatus
	}{
		{"alarm state", &mockAlarms{state: cwtypes.StateValueAlarm}, types.Unhealthy},
		{"ok state", &mockAlarms{state: cwtypes.StateValueOk}, types.Healthy},
		{"insufficient data", &mockAlarms{state: cwtypes.StateValueInsufficientData}, types.Healthy},
		{"read error fails open", &mockAlarms{err: context.DeadlineExceeded}, types.Healthy},
		{"missing alarm fails open", &mockAlarms{empty: true}, types.Healthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAlarmChecker(tt.mock, cfg, nil)
			sig := c.Check(context.Background())
			assert.Equal(t, tt.want, sig.Status)
			assert.Equal(t, "alarm", sig.Source)
		})
	}
}

func unhealthyAt(at time.Time) types.HealthSignal {
	return types.HealthSignal{Region: "us-east-1", Status: types.Unhealthy, Source: "probe", ObservedAt: at}
}

func healthyAt(at time.Time) types.HealthSignal {
	return types.HealthSignal{Region: "us-east-1", Status: types.Healthy, Source: "probe", ObservedAt: at}
}

func TestDebouncer_FiresAfterThreshold(t *testing.T) {
	d := NewDebouncer(types.DetectionConfig{UnhealthyThreshold: 3, Window: "5m"})
	base := time.Now()

	assert.False(t, d.Observe(unhealthyAt(base)))
	assert.False(t, d.Observe(unhealthyAt(base.Add(30*time.Second))))
	assert.True(t, d.Observe(unhealthyAt(base.Add(60*time.Second))))
}

func TestDebouncer_HealthyResetsStreak(t *testing.T) {
	d := NewDebouncer(types.DetectionConfig{UnhealthyThreshold: 3, Window: "5m"})
	base := time.Now()

	assert.False(t, d.Observe(unhealthyAt(base)))
	assert.False(t, d.Observe(unhealthyAt(base.Add(time.Minute))))
	assert.False(t, d.Observe(healthyAt(base.Add(2*time.Minute))))
	assert.Equal(t, 0, d.Streak())

	// Two more unhealthy signals are not enough after the reset.
	assert.False(t, d.Observe(unhealthyAt(base.Add(3*time.Minute))))
	assert.False(t, d.Observe(unhealthyAt(base.Add(4*time.Minute))))
}

func TestDebouncer_WindowExpiresStaleSignals(t *testing.T) {
	d := NewDebouncer(types.DetectionConfig{UnhealthyThreshold: 3, Window: "5m"})
	base := time.Now()

	assert.False(t, d.Observe(unhealthyAt(base)))
	assert.False(t, d.Observe(unhealthyAt(base.Add(time.Minute))))
	// Third signal arrives after a gap wider than the window.
	assert.False(t, d.Observe(unhealthyAt(base.Add(10*time.Minute))))
	assert.Equal(t, 1, d.Streak())
}

func TestDebouncer_Defaults(t *testing.T) {
	d := NewDebouncer(types.DetectionConfig{})
	require.Equal(t, 3, d.threshold)
	require.Equal(t, 5*time.Minute, d.window)
}

func TestDebouncer_Reset(t *testing.T) {
	d := NewDebouncer(types.DetectionConfig{UnhealthyThreshold: 2, Window: "5m"})
	base := time.Now()

	assert.False(t, d.Observe(unhealthyAt(base)))
	assert.True(t, d.Observe(unhealthyAt(base.Add(time.Second))))
	d.Reset()
	assert.Equal(t, 0, d.Streak())
	assert.Equal(t, types.Unhealthy, d.LastState())
}
