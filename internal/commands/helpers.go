// Package commands implements the CLI subcommands for the standby binary.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/standby-systems/standby/internal/executor"
	"github.com/standby-systems/standby/internal/health"
	"github.com/standby-systems/standby/internal/lifecycle"
	"github.com/standby-systems/standby/internal/notify"
	"github.com/standby-systems/standby/internal/orchestrator"
	"github.com/standby-systems/standby/internal/store"
	ddbstore "github.com/standby-systems/standby/internal/store/dynamodb"
	"github.com/standby-systems/standby/internal/store/memory"
	"github.com/standby-systems/standby/internal/validate"
	"github.com/standby-systems/standby/pkg/types"
)

// newStore creates the configured state store.
func newStore(cfg *types.ProjectConfig) (store.Store, error) {
	switch cfg.Provider {
	case "memory":
		return memory.New(), nil
	case "dynamodb":
		if cfg.DynamoDB == nil {
			return nil, fmt.Errorf("dynamodb config is required when provider is dynamodb")
		}
		return ddbstore.New(cfg.DynamoDB)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// awsClients holds the per-region SDK clients the executors need. The
// standby region hosts the replica and the ASG; Route 53 is global; the
// primary region is only read, for its health alarm.
type awsClients struct {
	rds         *rds.Client
	standbyCW   *cloudwatch.Client
	primaryCW   *cloudwatch.Client
	autoscaling *autoscaling.Client
	route53     *route53.Client
	lambda      *lambda.Client
}

func newAWSClients(ctx context.Context, cfg *types.ProjectConfig) (*awsClients, error) {
	standby, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Database.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for %s: %w", cfg.Database.Region, err)
	}
	compute := standby
	if cfg.Compute.Region != "" && cfg.Compute.Region != cfg.Database.Region {
		compute, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Compute.Region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config for %s: %w", cfg.Compute.Region, err)
		}
	}

	c := &awsClients{
		rds:         rds.NewFromConfig(standby),
		standbyCW:   cloudwatch.NewFromConfig(standby),
		autoscaling: autoscaling.NewFromConfig(compute),
		route53:     route53.NewFromConfig(standby),
		lambda:      lambda.NewFromConfig(compute),
	}

	if region := cfg.Detection.PrimaryRegion; region != "" {
		primary, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config for %s: %w", region, err)
		}
		c.primaryCW = cloudwatch.NewFromConfig(primary)
	}
	return c, nil
}

// buildExecutors wires one executor per DR action.
func buildExecutors(c *awsClients, cfg *types.ProjectConfig) map[string]executor.Executor {
	return map[string]executor.Executor{
		lifecycle.ActionPromoteDatabase:  executor.NewDatabasePromoter(c.rds, c.standbyCW, cfg.Database),
		lifecycle.ActionDemoteDatabase:   executor.NewDatabaseDemoter(c.rds, c.standbyCW, cfg.Database),
		lifecycle.ActionScaleCompute:     executor.NewComputeScaler(c.autoscaling, cfg.Compute),
		lifecycle.ActionScaleDownCompute: executor.NewComputeScaleDown(c.autoscaling, cfg.Compute),
		lifecycle.ActionCutoverDNS:       executor.NewDNSCutover(c.route53, cfg.DNS),
		lifecycle.ActionRevertDNS:        executor.NewDNSRevert(c.route53, cfg.DNS),
	}
}

// buildGates assembles the post-action validation gates, one per direction.
// The failover gate verifies the promoted replica; the failback gate verifies
// the rebuilt primary after the failback promotion.
func buildGates(c *awsClients, cfg *types.ProjectConfig, logger *slog.Logger) map[types.Direction]*validate.Gate {
	v := cfg.Validation
	interval := parseDuration(v.Interval, 15*time.Second)
	timeout := parseDuration(v.CheckTimeout, 30*time.Second)

	build := func(dbInstance string) *validate.Gate {
		var checks []validate.Check
		for _, name := range v.Checks {
			switch name {
			case "endpoint":
				if v.EndpointURL != "" {
					checks = append(checks, validate.NewEndpointCheck(v.EndpointURL))
				}
			case "capacity":
				checks = append(checks, validate.NewCapacityCheck(c.autoscaling, cfg.Compute))
			case "database":
				checks = append(checks, validate.NewDatabaseCheck(c.rds, dbInstance))
			case "lambda":
				if v.LambdaFunction != "" {
					checks = append(checks, validate.NewFunctionCheck(c.lambda, v.LambdaFunction))
				}
			}
		}
		if len(checks) == 0 {
			return nil
		}
		return validate.NewGate(checks, v.MaxAttempts, interval, timeout, logger)
	}

	failbackInstance := cfg.Database.FailbackReplicaID
	if failbackInstance == "" {
		failbackInstance = cfg.Database.ReplicaID
	}
	return map[types.Direction]*validate.Gate{
		types.DirectionFailover: build(cfg.Database.ReplicaID),
		types.DirectionFailback: build(failbackInstance),
	}
}

// buildCheckers assembles the health checkers the monitor polls.
func buildCheckers(c *awsClients, cfg *types.ProjectConfig, logger *slog.Logger) []health.Checker {
	var checkers []health.Checker
	if cfg.Detection.ProbeURL != "" {
		checkers = append(checkers, health.NewHTTPProbe(cfg.Detection, logger))
	}
	if cfg.Detection.AlarmName != "" && c.primaryCW != nil {
		checkers = append(checkers, health.NewAlarmChecker(c.primaryCW, cfg.Detection, logger))
	}
	return checkers
}

// buildOrchestrator assembles the full orchestrator from config. The store
// must already be started.
func buildOrchestrator(ctx context.Context, cfg *types.ProjectConfig, st store.Store, logger *slog.Logger) (*orchestrator.Orchestrator, *notify.Dispatcher, error) {
	clients, err := newAWSClients(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	dispatcher, err := notify.NewDispatcher(cfg.Notifications, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating notification dispatcher: %w", err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Store:      st,
		Executors:  buildExecutors(clients, cfg),
		Timeouts:   actionTimeouts(cfg),
		Gates:      buildGates(clients, cfg, logger),
		Dispatcher: dispatcher,
		Checkers:   buildCheckers(clients, cfg, logger),
		Detection:  cfg.Detection,
		Retry:      cfg.Retry,
		Logger:     logger,
	})
	return orch, dispatcher, nil
}

// actionTimeouts maps per-component timeouts onto their actions.
func actionTimeouts(cfg *types.ProjectConfig) map[string]time.Duration {
	timeouts := map[string]time.Duration{}
	if d := parseDuration(cfg.Database.PromotionTimeout, 0); d > 0 {
		timeouts[lifecycle.ActionPromoteDatabase] = d
		timeouts[lifecycle.ActionDemoteDatabase] = d
	}
	if d := parseDuration(cfg.Compute.ScaleTimeout, 0); d > 0 {
		timeouts[lifecycle.ActionScaleCompute] = d
		timeouts[lifecycle.ActionScaleDownCompute] = d
	}
	if d := parseDuration(cfg.DNS.ChangeTimeout, 0); d > 0 {
		timeouts[lifecycle.ActionCutoverDNS] = d
		timeouts[lifecycle.ActionRevertDNS] = d
	}
	return timeouts
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
