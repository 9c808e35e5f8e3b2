package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/standby-systems/standby/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "standby",
		Short: "Pilot-light disaster recovery orchestrator for two-region deployments",
		Long: `Standby keeps a warm secondary region ready and drives the failover when
the primary goes dark: promote the cross-region database replica, scale the
pilot-light compute up to serving capacity, cut DNS over, and validate the
result. Every step is persisted before it runs, so a crashed orchestrator
resumes instead of starting over, and failback is always an explicit,
operator-driven act.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewServeCmd(),
		commands.NewStatusCmd(),
		commands.NewFailoverCmd(),
		commands.NewFailbackCmd(),
		commands.NewAbortCmd(),
		commands.NewRecoverCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
