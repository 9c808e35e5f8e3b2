package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/standby-systems/standby/pkg/types"
)

// RDSAPI is the subset of the RDS client used by the database promoter.
type RDSAPI interface {
	PromoteReadReplica(ctx context.Context, input *rds.PromoteReadReplicaInput, opts ...func(*rds.Options)) (*rds.PromoteReadReplicaOutput, error)
	DescribeDBInstances(ctx context.Context, input *rds.DescribeDBInstancesInput, opts ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// CloudWatchAPI is the subset of the CloudWatch client used for replica lag.
type CloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, input *cloudwatch.GetMetricStatisticsInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// DatabasePromoter promotes a continuously-synchronized read replica to a
// writable primary. The side effect is irreversible within one execution, so
// the orchestrator never retries it automatically.
type DatabasePromoter struct {
	rds       RDSAPI
	cw        CloudWatchAPI
	name      string
	replicaID string
	maxLag    time.Duration
	poll      time.Duration
}

// NewDatabasePromoter creates the failover promoter for the standby replica.
func NewDatabasePromoter(rdsClient RDSAPI, cwClient CloudWatchAPI, cfg types.DatabaseConfig) *DatabasePromoter {
	return newPromoter(rdsClient, cwClient, cfg, "promote-database", cfg.ReplicaID)
}

// NewDatabaseDemoter creates the failback counterpart: it promotes the
// replica rebuilt in the recovered primary region, returning the write role
// there and leaving the standby as reader again.
func NewDatabaseDemoter(rdsClient RDSAPI, cwClient CloudWatchAPI, cfg types.DatabaseConfig) *DatabasePromoter {
	return newPromoter(rdsClient, cwClient, cfg, "demote-database", cfg.FailbackReplicaID)
}

func newPromoter(rdsClient RDSAPI, cwClient CloudWatchAPI, cfg types.DatabaseConfig, name, replicaID string) *DatabasePromoter {
	maxLag := 30 * time.Second
	if cfg.MaxReplicaLagSeconds > 0 {
		maxLag = time.Duration(cfg.MaxReplicaLagSeconds) * time.Second
	}
	return &DatabasePromoter{
		rds:       rdsClient,
		cw:        cwClient,
		name:      name,
		replicaID: replicaID,
		maxLag:    maxLag,
		poll:      parseDuration(cfg.PollInterval, 15*time.Second),
	}
}

// Name returns the action identifier.
func (p *DatabasePromoter) Name() string { return p.name }

// Check reports whether the replica has already been promoted to writer.
func (p *DatabasePromoter) Check(ctx context.Context) (bool, string, error) {
	promoted, status, err := p.describe(ctx)
	if err != nil {
		return false, "", err
	}
	if promoted && status == "available" {
		return true, fmt.Sprintf("%s already promoted", p.replicaID), nil
	}
	return false, fmt.Sprintf("%s status %s", p.replicaID, status), nil
}

// Execute refuses promotion while replication lag exceeds the configured
// bound (fail closed: losing the lagging writes would violate the recovery
// point objective), then promotes and waits for the instance to settle.
func (p *DatabasePromoter) Execute(ctx context.Context, _ string) Outcome {
	promoted, status, err := p.describe(ctx)
	if err != nil {
		return Fail(classifyAWSError(err), fmt.Sprintf("describing %s: %v", p.replicaID, err))
	}
	if promoted {
		return Conflict(fmt.Sprintf("%s already promoted", p.replicaID))
	}
	if status != "available" {
		return Fail(types.FailurePrecondition, fmt.Sprintf("replica %s not available (status %s)", p.replicaID, status))
	}

	lag, ok, err := p.replicaLag(ctx)
	if err != nil {
		return Fail(classifyAWSError(err), fmt.Sprintf("reading replica lag: %v", err))
	}
	if !ok {
		// Missing replication metrics are themselves suspicious; refuse
		// rather than assume zero lag.
		return Fail(types.FailurePrecondition,
			fmt.Sprintf("no ReplicaLag datapoints for %s, refusing promotion", p.replicaID))
	}
	if lag > p.maxLag {
		return Fail(types.FailurePrecondition,
			fmt.Sprintf("replication lag %s exceeds limit %s, refusing promotion", lag, p.maxLag))
	}

	_, err = p.rds.PromoteReadReplica(ctx, &rds.PromoteReadReplicaInput{
		DBInstanceIdentifier: aws.String(p.replicaID),
	})
	if err != nil {
		if strings.Contains(err.Error(), "InvalidDBInstanceState") {
			// Promotion already in flight from a prior attempt.
			return p.waitPromoted(ctx)
		}
		return Fail(classifyAWSError(err), fmt.Sprintf("promoting %s: %v", p.replicaID, err))
	}

	return p.waitPromoted(ctx)
}

func (p *DatabasePromoter) waitPromoted(ctx context.Context) Outcome {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Fail(types.FailureTransient, fmt.Sprintf("waiting for %s promotion: %v", p.replicaID, ctx.Err()))
		case <-ticker.C:
			promoted, status, err := p.describe(ctx)
			if err != nil {
				continue // transient describe failures don't abort the wait
			}
			if promoted && status == "available" {
				return OK(fmt.Sprintf("%s promoted to writer", p.replicaID))
			}
		}
	}
}

// describe returns (promoted, status). An instance with no replication
// source is (or has become) a writer.
func (p *DatabasePromoter) describe(ctx context.Context) (bool, string, error) {
	out, err := p.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(p.replicaID),
	})
	if err != nil {
		return false, "", err
	}
	if len(out.DBInstances) == 0 {
		return false, "", fmt.Errorf("db instance %q not found", p.replicaID)
	}
	inst := out.DBInstances[0]
	status := aws.ToString(inst.DBInstanceStatus)
	promoted := inst.ReadReplicaSourceDBInstanceIdentifier == nil
	return promoted, status, nil
}

// replicaLag reads the most recent ReplicaLag datapoint for the instance.
// ok is false when no datapoints exist.
func (p *DatabasePromoter) replicaLag(ctx context.Context) (time.Duration, bool, error) {
	now := time.Now()
	out, err := p.cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/RDS"),
		MetricName: aws.String("ReplicaLag"),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("DBInstanceIdentifier"), Value: aws.String(p.replicaID)},
		},
		StartTime:  aws.Time(now.Add(-5 * time.Minute)),
		EndTime:    aws.Time(now),
		Period:     aws.Int32(60),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticMaximum},
	})
	if err != nil {
		return 0, false, err
	}

	var latest *cwtypes.Datapoint
	for i := range out.Datapoints {
		dp := &out.Datapoints[i]
		if latest == nil || dp.Timestamp.After(*latest.Timestamp) {
			latest = dp
		}
	}
	if latest == nil || latest.Maximum == nil {
		return 0, false, nil
	}
	return time.Duration(*latest.Maximum * float64(time.Second)), true, nil
}
