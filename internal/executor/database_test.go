package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standby-systems/standby/pkg/types"
)

type mockRDS struct {
	describeFn func(*rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error)
	promoteFn  func(*rds.PromoteReadReplicaInput) (*rds.PromoteReadReplicaOutput, error)
	promotions int
}

func (m *mockRDS) DescribeDBInstances(_ context.Context, input *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	return m.describeFn(input)
}

func (m *mockRDS) PromoteReadReplica(_ context.Context, input *rds.PromoteReadReplicaInput, _ ...func(*rds.Options)) (*rds.PromoteReadReplicaOutput, error) {
	m.promotions++
	if m.promoteFn != nil {
		return m.promoteFn(input)
	}
	return &rds.PromoteReadReplicaOutput{}, nil
}

type mockCW struct {
	lagSeconds   *float64
	noDatapoints bool
	err          error
}

func (m *mockCW) GetMetricStatistics(_ context.Context, _ *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.noDatapoints {
		return &cloudwatch.GetMetricStatisticsOutput{}, nil
	}
	return &cloudwatch.GetMetricStatisticsOutput{
		Datapoints: []cwtypes.Datapoint{
			{Timestamp: aws.Time(time.Now()), Maximum: m.lagSeconds},
		},
	}, nil
}

func replicaInstance(status string, source string) *rds.DescribeDBInstancesOutput {
	inst := rdstypes.DBInstance{
		DBInstanceStatus: aws.String(status),
	}
	if source != "" {
		inst.ReadReplicaSourceDBInstanceIdentifier = aws.String(source)
	}
	return &rds.DescribeDBInstancesOutput{DBInstances: []rdstypes.DBInstance{inst}}
}

func testDBConfig() types.DatabaseConfig {
	return types.DatabaseConfig{
		ReplicaID:            "orders-standby",
		MaxReplicaLagSeconds: 30,
		PollInterval:         "10ms",
	}
}

func TestDatabasePromoter_AlreadyPromoted_Conflict(t *testing.T) {
	rdsMock := &mockRDS{
		describeFn: func(_ *rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error) {
			return replicaInstance("available", ""), nil
		},
	}
	p := NewDatabasePromoter(rdsMock, &mockCW{}, testDBConfig())

	outcome := p.Execute(context.Background(), "exec-1")
	assert.Equal(t, types.ActionSucceeded, outcome.Status)
	assert.Equal(t, types.FailureConflict, outcome.Kind)
	assert.Zero(t, rdsMock.promotions, "no promotion call for an already promoted instance")
}

func TestDatabasePromoter_ReplicaNotAvailable_Precondition(t *testing.T) {
	rdsMock := &mockRDS{
		describeFn: func(_ *rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error) {
			return replicaInstance("backing-up", "orders-primary"), nil
		},
	}
	p := NewDatabasePromoter(rdsMock, &mockCW{}, testDBConfig())

	outcome := p.Execute(context.Background(), "exec-1")
	assert.Equal(t, types.ActionFailed, outcome.Status)
	assert.Equal(t, types.FailurePrecondition, outcome.Kind)
}

func TestDatabasePromoter_LagTooHigh_Precondition(t *testing.T) {
	rdsMock := &mockRDS{
		describeFn: func(_ *rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error) {
			return replicaInstance("available", "orders-primary"), nil
		},
	}
	cw := &mockCW{lagSeconds: aws.Float64(120)}
	p := NewDatabasePromoter(rdsMock, cw, testDBConfig())

	outcome := p.Execute(context.Background(), "exec-1")
	assert.Equal(t, types.ActionFailed, outcome.Status)
	assert.Equal(t, types.FailurePrecondition, outcome.Kind)
	assert.Contains(t, outcome.Detail, "lag")
	assert.Zero(t, rdsMock.promotions)
}

func TestDatabasePromoter_NoLagDatapoints_Precondition(t *testing.T) {
	rdsMock := &mockRDS{
		describeFn: func(_ *rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error) {
			return replicaInstance("available", "orders-primary"), nil
		},
	}
	p := NewDatabasePromoter(rdsMock, &mockCW{noDatapoints: true}, testDBConfig())

	outcome := p.Execute(context.Background(), "exec-1")
	assert.Equal(t, types.ActionFailed, outcome.Status)
	assert.Equal(t, types.FailurePrecondition, outcome.Kind)
	assert.Zero(t, rdsMock.promotions)
}

func TestDatabasePromoter_PromotesAndWaits(t *testing.T) {
	var calls int
	rdsMock := &mockRDS{}
	rdsMock.describeFn = func(_ *rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error) {
		calls++
		// Replica until promotion is requested, then writer after two polls.
		if rdsMock.promotions == 0 || calls < 4 {
			return replicaInstance("available", "orders-primary"), nil
		}
		return replicaInstance("available", ""), nil
	}
	p := NewDatabasePromoter(rdsMock, &mockCW{lagSeconds: aws.Float64(2)}, testDBConfig())

	outcome := p.Execute(context.Background(), "exec-1")
	require.Equal(t, types.ActionSucceeded, outcome.Status)
	assert.Equal(t, 1, rdsMock.promotions)
	assert.Contains(t, outcome.Detail, "promoted to writer")
}

func TestDatabasePromoter_PromotionInFlight_Waits(t *testing.T) {
	var describes int
	rdsMock := &mockRDS{
		promoteFn: func(_ *rds.PromoteReadReplicaInput) (*rds.PromoteReadReplicaOutput, error) {
			return nil, fmt.Errorf("InvalidDBInstanceState: instance is already being promoted")
		},
	}
	rdsMock.describeFn = func(_ *rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error) {
		describes++
		if describes < 3 {
			return replicaInstance("available", "orders-primary"), nil
		}
		return replicaInstance("available", ""), nil
	}
	p := NewDatabasePromoter(rdsMock, &mockCW{lagSeconds: aws.Float64(1)}, testDBConfig())

	outcome := p.Execute(context.Background(), "exec-1")
	assert.Equal(t, types.ActionSucceeded, outcome.Status)
}

func TestDatabasePromoter_Check(t *testing.T) {
	rdsMock := &mockRDS{
		describeFn: func(_ *rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error) {
			return replicaInstance("available", ""), nil
		},
	}
	p := NewDatabasePromoter(rdsMock, &mockCW{}, testDBConfig())

	done, detail, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Contains(t, detail, "already promoted")
}

func TestDatabaseDemoter_TargetsFailbackReplica(t *testing.T) {
	var described []string
	rdsMock := &mockRDS{
		describeFn: func(input *rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error) {
			described = append(described, aws.ToString(input.DBInstanceIdentifier))
			return replicaInstance("available", ""), nil
		},
	}
	cfg := testDBConfig()
	cfg.FailbackReplicaID = "orders-primary-rebuilt"
	d := NewDatabaseDemoter(rdsMock, &mockCW{}, cfg)

	assert.Equal(t, "demote-database", d.Name())
	d.Execute(context.Background(), "exec-2")
	require.NotEmpty(t, described)
	assert.Equal(t, "orders-primary-rebuilt", described[0])
}
