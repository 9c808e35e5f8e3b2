// Package config handles loading and validation of standby.yaml project
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/standby-systems/standby/pkg/types"
)

// Load reads and parses standby.yaml from the given directory.
func Load(dir string) (*types.ProjectConfig, error) {
	path := filepath.Join(dir, "standby.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *types.ProjectConfig) error {
	switch cfg.Provider {
	case "":
		return fmt.Errorf("provider is required")
	case "memory":
	case "dynamodb":
		if cfg.DynamoDB == nil {
			return fmt.Errorf("dynamodb config is required when provider is dynamodb")
		}
		if cfg.DynamoDB.TableName == "" {
			return fmt.Errorf("dynamodb.tableName is required")
		}
	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if cfg.Database.ReplicaID == "" {
		return fmt.Errorf("database.replicaId is required")
	}
	if cfg.Database.Region == "" {
		return fmt.Errorf("database.region is required")
	}
	if cfg.Compute.ASGName == "" {
		return fmt.Errorf("compute.asgName is required")
	}
	if cfg.Compute.TargetCapacity <= 0 {
		return fmt.Errorf("compute.targetCapacity must be positive")
	}
	if cfg.DNS.HostedZoneID == "" {
		return fmt.Errorf("dns.hostedZoneId is required")
	}
	if cfg.DNS.RecordName == "" {
		return fmt.Errorf("dns.recordName is required")
	}
	if cfg.DNS.PrimaryTarget == "" || cfg.DNS.StandbyTarget == "" {
		return fmt.Errorf("dns.primaryTarget and dns.standbyTarget are required")
	}
	if cfg.Detection.Enabled {
		if cfg.Detection.PrimaryRegion == "" {
			return fmt.Errorf("detection.primaryRegion is required when detection is enabled")
		}
		if cfg.Detection.ProbeURL == "" && cfg.Detection.AlarmName == "" {
			return fmt.Errorf("detection needs a probeUrl or an alarmName")
		}
	}
	if m := cfg.Detection.Mode; m != "" && m != types.TriggerAuto && m != types.TriggerManual {
		return fmt.Errorf("detection.mode must be auto or manual, got %q", m)
	}
	for i, n := range cfg.Notifications {
		if err := validateNotification(n); err != nil {
			return fmt.Errorf("notifications[%d]: %w", i, err)
		}
	}
	return nil
}

func validateNotification(n types.NotificationConfig) error {
	switch n.Type {
	case types.NotifyConsole:
	case types.NotifyFile:
		if n.Path == "" {
			return fmt.Errorf("file sink requires path")
		}
	case types.NotifyWebhook:
		if n.URL == "" {
			return fmt.Errorf("webhook sink requires url")
		}
	case types.NotifySNS:
		if n.TopicARN == "" {
			return fmt.Errorf("sns sink requires topicArn")
		}
	case types.NotifySQS:
		if n.QueueURL == "" {
			return fmt.Errorf("sqs sink requires queueUrl")
		}
	case types.NotifyEventBridge:
	case types.NotifyCloudWatchLogs:
		if n.LogGroup == "" {
			return fmt.Errorf("cloudwatchlogs sink requires logGroup")
		}
	default:
		return fmt.Errorf("unknown sink type %q", n.Type)
	}
	return nil
}
