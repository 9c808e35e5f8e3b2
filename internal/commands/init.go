package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [project-name]",
		Short: "Initialize a new Standby project",
		Long:  "Creates project scaffolding with an annotated standby.yaml.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0])
		},
	}
}

func runInit(projectName string) error {
	bold := color.New(color.Bold)
	_, _ = bold.Printf("Initializing Standby project: %s\n", projectName)

	if err := os.MkdirAll(projectName, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", projectName, err)
	}

	configPath := filepath.Join(projectName, "standby.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	configContent := `# Standby DR orchestrator configuration.
# State store: dynamodb for production, memory for local experiments.
provider: dynamodb
dynamodb:
  tableName: standby-state
  region: us-west-2

server:
  addr: ":8080"
  # apiKey: "..."            # or apiKeySecretArn to pull from Secrets Manager

# Primary-region health monitoring and the failover debounce.
detection:
  enabled: true
  mode: auto                  # auto fails over unattended; manual parks for approval
  interval: 30s
  probeUrl: https://shop.example.com/healthz
  # alarmName: primary-region-health
  primaryRegion: us-east-1
  unhealthyThreshold: 3
  window: 5m

# The cross-region read replica promoted during failover.
database:
  replicaId: shop-db-replica
  failbackReplicaId: shop-db-primary-replica
  region: us-west-2
  maxReplicaLagSeconds: 30
  promotionTimeout: 15m

# The pilot-light ASG scaled up during failover.
compute:
  asgName: shop-web-standby
  region: us-west-2
  targetCapacity: 6
  pilotCapacity: 1
  scaleTimeout: 10m

# The public record flipped between regions.
dns:
  hostedZoneId: Z0EXAMPLE
  recordName: shop.example.com
  recordType: CNAME
  primaryTarget: primary-lb.us-east-1.example.com
  standbyTarget: standby-lb.us-west-2.example.com
  ttl: 60

# End-to-end checks run after the action steps, before declaring success.
validation:
  checks: [endpoint, capacity, database]
  endpointUrl: https://shop.example.com/healthz
  maxAttempts: 3
  interval: 15s

retry:
  maxAttempts: 3
  backoffSeconds: 15
  backoffMultiplier: 2.0

notifications:
  - type: console
  # - type: sns
  #   topicArn: arn:aws:sns:us-west-2:123456789012:standby-alerts

watchdog:
  enabled: true
  interval: 1m
  stuckThreshold: 10m
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	color.Green("  ✓ Project scaffolded")
	fmt.Println()
	_, _ = bold.Println("Next steps:")
	fmt.Printf("  cd %s\n", projectName)
	fmt.Println("  edit standby.yaml with your replica, ASG, and hosted zone")
	fmt.Println("  standby serve")
	return nil
}
