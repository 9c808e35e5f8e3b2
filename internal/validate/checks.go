package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/standby-systems/standby/pkg/types"
)

// EndpointCheck verifies the serving endpoint answers with a 2xx.
type EndpointCheck struct {
	url    string
	client *http.Client
}

// NewEndpointCheck creates an endpoint check.
func NewEndpointCheck(url string) *EndpointCheck {
	return &EndpointCheck{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the check identifier.
func (c *EndpointCheck) Name() string { return "endpoint" }

// Run performs one GET against the endpoint.
func (c *EndpointCheck) Run(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// CapacityAPI is the subset of the Auto Scaling client used by the
// capacity check.
type CapacityAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, input *autoscaling.DescribeAutoScalingGroupsInput, opts ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
}

// CapacityCheck verifies the worker pool holds enough healthy instances.
type CapacityCheck struct {
	asg        CapacityAPI
	groupName  string
	target     int32
	minHealthy float64
}

// NewCapacityCheck creates a capacity check from the compute config.
func NewCapacityCheck(client CapacityAPI, cfg types.ComputeConfig) *CapacityCheck {
	minHealthy := cfg.MinHealthyFraction
	if minHealthy <= 0 || minHealthy > 1 {
		minHealthy = 0.9
	}
	return &CapacityCheck{
		asg:        client,
		groupName:  cfg.ASGName,
		target:     int32(cfg.TargetCapacity),
		minHealthy: minHealthy,
	}
}

// Name returns the check identifier.
func (c *CapacityCheck) Name() string { return "capacity" }

// Run counts healthy in-service instances against the target.
func (c *CapacityCheck) Run(ctx context.Context) error {
	out, err := c.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{c.groupName},
	})
	if err != nil {
		return err
	}
	if len(out.AutoScalingGroups) == 0 {
		return fmt.Errorf("auto scaling group %q not found", c.groupName)
	}

	var healthy int32
	for _, inst := range out.AutoScalingGroups[0].Instances {
		if aws.ToString(inst.HealthStatus) == "Healthy" && inst.LifecycleState == "InService" {
			healthy++
		}
	}
	want := int32(c.minHealthy * float64(c.target))
	if healthy < want {
		return fmt.Errorf("%d healthy instances, want at least %d of %d", healthy, want, c.target)
	}
	return nil
}

// WriterAPI is the subset of the RDS client used by the database check.
type WriterAPI interface {
	DescribeDBInstances(ctx context.Context, input *rds.DescribeDBInstancesInput, opts ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// DatabaseCheck verifies the promoted instance is an available writer.
type DatabaseCheck struct {
	rds        WriterAPI
	instanceID string
}

// NewDatabaseCheck creates a database check for the given instance.
func NewDatabaseCheck(client WriterAPI, instanceID string) *DatabaseCheck {
	return &DatabaseCheck{rds: client, instanceID: instanceID}
}

// Name returns the check identifier.
func (c *DatabaseCheck) Name() string { return "database" }

// Run confirms the instance is available and no longer a replica.
func (c *DatabaseCheck) Run(ctx context.Context) error {
	out, err := c.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(c.instanceID),
	})
	if err != nil {
		return err
	}
	if len(out.DBInstances) == 0 {
		return fmt.Errorf("db instance %q not found", c.instanceID)
	}
	inst := out.DBInstances[0]
	if status := aws.ToString(inst.DBInstanceStatus); status != "available" {
		return fmt.Errorf("db instance %s status %s", c.instanceID, status)
	}
	if inst.ReadReplicaSourceDBInstanceIdentifier != nil {
		return fmt.Errorf("db instance %s is still a read replica", c.instanceID)
	}
	return nil
}

// InvokeAPI is the subset of the Lambda client used by the function check.
type InvokeAPI interface {
	Invoke(ctx context.Context, input *lambda.InvokeInput, opts ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// FunctionCheck invokes a deployed health-check function in the active
// region and inspects its response.
type FunctionCheck struct {
	lambda       InvokeAPI
	functionName string
}

// NewFunctionCheck creates a lambda function check.
func NewFunctionCheck(client InvokeAPI, functionName string) *FunctionCheck {
	return &FunctionCheck{lambda: client, functionName: functionName}
}

// Name returns the check identifier.
func (c *FunctionCheck) Name() string { return "lambda" }

// Run invokes the function synchronously. A function error or a non-200
// statusCode in the payload fails the check.
func (c *FunctionCheck) Run(ctx context.Context) error {
	out, err := c.lambda.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(c.functionName),
		InvocationType: lambdatypes.InvocationTypeRequestResponse,
	})
	if err != nil {
		return err
	}
	if out.FunctionError != nil {
		return fmt.Errorf("function error: %s", aws.ToString(out.FunctionError))
	}

	var payload struct {
		StatusCode int `json:"statusCode"`
	}
	if len(out.Payload) > 0 && json.Unmarshal(out.Payload, &payload) == nil && payload.StatusCode != 0 {
		if payload.StatusCode < 200 || payload.StatusCode > 299 {
			return fmt.Errorf("health function returned statusCode %d", payload.StatusCode)
		}
	}
	return nil
}
