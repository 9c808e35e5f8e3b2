package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/standby-systems/standby/internal/config"
	"github.com/standby-systems/standby/internal/server"
	"github.com/standby-systems/standby/internal/telemetry"
	"github.com/standby-systems/standby/internal/watchdog"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Standby orchestrator and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.Default()
	ctx := context.Background()

	// Telemetry
	var tel *telemetry.Telemetry
	if cfg.Telemetry != nil {
		tel, err = telemetry.Setup(ctx, *cfg.Telemetry, logger)
		if err != nil {
			return fmt.Errorf("setting up telemetry: %w", err)
		}
	}

	// State store
	st, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}

	// Orchestrator
	orch, dispatcher, err := buildOrchestrator(ctx, cfg, st, logger)
	if err != nil {
		return err
	}
	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("starting orchestrator: %w", err)
	}

	// Watchdog
	var wd *watchdog.Watchdog
	if cfg.Watchdog != nil && cfg.Watchdog.Enabled {
		wd = watchdog.New(st, dispatcher, logger, *cfg.Watchdog)
		wd.Start(ctx)
	}

	// Server
	var opts server.Options
	opts.Logger = logger
	if cfg.Server != nil {
		opts.Addr = cfg.Server.Addr
		opts.MaxBody = cfg.Server.MaxRequestBody
		opts.APIKey, err = resolveAPIKey(ctx, cfg.Server.APIKey, cfg.Server.APIKeySecretARN)
		if err != nil {
			return err
		}
	}
	srv := server.New(orch, st, opts)

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		color.Yellow("\nReceived %s, shutting down...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
		if wd != nil {
			wd.Stop(shutdownCtx)
		}
		orch.Stop(shutdownCtx)
		_ = st.Stop(shutdownCtx)
		if tel != nil {
			tel.Shutdown(shutdownCtx)
		}
		color.Green("Standby stopped gracefully")
		return nil
	}
}

func resolveAPIKey(ctx context.Context, apiKey, secretARN string) (string, error) {
	if secretARN == "" {
		return apiKey, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config for secrets: %w", err)
	}
	return config.ResolveAPIKey(ctx, secretsmanager.NewFromConfig(awsCfg), apiKey, secretARN)
}
