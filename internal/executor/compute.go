package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"

	"github.com/standby-systems/standby/pkg/types"
)

// AutoScalingAPI is the subset of the Auto Scaling client used by the scaler.
type AutoScalingAPI interface {
	UpdateAutoScalingGroup(ctx context.Context, input *autoscaling.UpdateAutoScalingGroupInput, opts ...func(*autoscaling.Options)) (*autoscaling.UpdateAutoScalingGroupOutput, error)
	DescribeAutoScalingGroups(ctx context.Context, input *autoscaling.DescribeAutoScalingGroupsInput, opts ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
}

// ComputeScaler sets the standby worker pool to a target capacity and waits
// for a configured fraction to report healthy. Setting desired capacity is
// naturally idempotent, so the orchestrator retries this action freely.
type ComputeScaler struct {
	asg         AutoScalingAPI
	name        string
	groupName   string
	target      int32
	minHealthy  float64
	poll        time.Duration
}

// NewComputeScaler creates the failover scale-up executor.
func NewComputeScaler(client AutoScalingAPI, cfg types.ComputeConfig) *ComputeScaler {
	return newScaler(client, cfg, "scale-compute", int32(cfg.TargetCapacity))
}

// NewComputeScaleDown creates the failback executor returning the pool to
// pilot-light capacity.
func NewComputeScaleDown(client AutoScalingAPI, cfg types.ComputeConfig) *ComputeScaler {
	return newScaler(client, cfg, "scale-down-compute", int32(cfg.PilotCapacity))
}

func newScaler(client AutoScalingAPI, cfg types.ComputeConfig, name string, target int32) *ComputeScaler {
	minHealthy := cfg.MinHealthyFraction
	if minHealthy <= 0 || minHealthy > 1 {
		minHealthy = 0.9
	}
	return &ComputeScaler{
		asg:        client,
		name:       name,
		groupName:  cfg.ASGName,
		target:     target,
		minHealthy: minHealthy,
		poll:       parseDuration(cfg.PollInterval, 15*time.Second),
	}
}

// Name returns the action identifier.
func (s *ComputeScaler) Name() string { return s.name }

// Check reports whether the group already runs at target with enough
// healthy instances.
func (s *ComputeScaler) Check(ctx context.Context) (bool, string, error) {
	desired, healthy, err := s.describe(ctx)
	if err != nil {
		return false, "", err
	}
	if desired == s.target && s.healthyEnough(healthy) {
		return true, fmt.Sprintf("%s at capacity %d (%d healthy)", s.groupName, desired, healthy), nil
	}
	return false, fmt.Sprintf("%s desired %d healthy %d, want %d", s.groupName, desired, healthy, s.target), nil
}

// Execute sets desired and min capacity, then polls until the healthy
// fraction is reached or the deadline expires.
func (s *ComputeScaler) Execute(ctx context.Context, _ string) Outcome {
	desired, healthy, err := s.describe(ctx)
	if err != nil {
		return Fail(classifyAWSError(err), fmt.Sprintf("describing %s: %v", s.groupName, err))
	}
	if desired == s.target && s.healthyEnough(healthy) {
		return Conflict(fmt.Sprintf("%s already at capacity %d", s.groupName, s.target))
	}

	if desired != s.target {
		_, err = s.asg.UpdateAutoScalingGroup(ctx, &autoscaling.UpdateAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(s.groupName),
			DesiredCapacity:      aws.Int32(s.target),
			MinSize:              aws.Int32(s.target),
		})
		if err != nil {
			return Fail(classifyAWSError(err), fmt.Sprintf("updating %s: %v", s.groupName, err))
		}
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Fail(types.FailureTransient,
				fmt.Sprintf("waiting for %s to reach %d healthy: %v", s.groupName, s.target, ctx.Err()))
		case <-ticker.C:
			_, healthy, err := s.describe(ctx)
			if err != nil {
				continue
			}
			if s.healthyEnough(healthy) {
				return OK(fmt.Sprintf("%s scaled to %d (%d healthy)", s.groupName, s.target, healthy))
			}
		}
	}
}

func (s *ComputeScaler) healthyEnough(healthy int32) bool {
	if s.target == 0 {
		return true // scale to zero has nothing to wait for
	}
	return float64(healthy) >= s.minHealthy*float64(s.target)
}

// describe returns (desiredCapacity, healthyInService).
func (s *ComputeScaler) describe(ctx context.Context) (int32, int32, error) {
	out, err := s.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{s.groupName},
	})
	if err != nil {
		return 0, 0, err
	}
	if len(out.AutoScalingGroups) == 0 {
		return 0, 0, fmt.Errorf("auto scaling group %q not found", s.groupName)
	}
	group := out.AutoScalingGroups[0]

	var healthy int32
	for _, inst := range group.Instances {
		if aws.ToString(inst.HealthStatus) == "Healthy" && inst.LifecycleState == "InService" {
			healthy++
		}
	}
	return aws.ToInt32(group.DesiredCapacity), healthy, nil
}
