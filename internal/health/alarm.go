package health

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/standby-systems/standby/pkg/types"
)

// AlarmAPI is the subset of the CloudWatch client used by the alarm checker.
type AlarmAPI interface {
	DescribeAlarms(ctx context.Context, input *cloudwatch.DescribeAlarmsInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error)
}

// AlarmChecker reads a composite CloudWatch alarm covering the primary
// region. ALARM maps to UNHEALTHY; OK and INSUFFICIENT_DATA map to HEALTHY,
// so missing metrics alone never trigger a failover.
type AlarmChecker struct {
	cw        AlarmAPI
	alarmName string
	region    string
	logger    *slog.Logger
}

// NewAlarmChecker creates a checker for the named alarm.
func NewAlarmChecker(client AlarmAPI, cfg types.DetectionConfig, logger *slog.Logger) *AlarmChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlarmChecker{
		cw:        client,
		alarmName: cfg.AlarmName,
		region:    cfg.PrimaryRegion,
		logger:    logger,
	}
}

// Name returns the checker identifier.
func (a *AlarmChecker) Name() string { return "alarm" }

// Check reads the alarm state. Read failures are reported HEALTHY: the
// probe is the primary detector and a broken alarm query must not start a
// failover on its own.
func (a *AlarmChecker) Check(ctx context.Context) types.HealthSignal {
	out, err := a.cw.DescribeAlarms(ctx, &cloudwatch.DescribeAlarmsInput{
		AlarmNames: []string{a.alarmName},
	})
	if err != nil {
		a.logger.Warn("alarm state read failed", "alarm", a.alarmName, "error", err)
		return signalNow(a.region, "alarm", types.Healthy)
	}
	if len(out.MetricAlarms) == 0 {
		a.logger.Warn("alarm not found", "alarm", a.alarmName)
		return signalNow(a.region, "alarm", types.Healthy)
	}

	if out.MetricAlarms[0].StateValue == cwtypes.StateValueAlarm {
		return signalNow(a.region, "alarm", types.Unhealthy)
	}
	return signalNow(a.region, "alarm", types.Healthy)
}
