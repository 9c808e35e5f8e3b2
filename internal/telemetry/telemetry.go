// Package telemetry wires OpenTelemetry tracing and metrics with OTLP gRPC
// export. When disabled, the no-op global providers stay in place and the
// instrumentation callsites cost nothing.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/standby-systems/standby/pkg/types"
)

const defaultServiceName = "standby"

// Telemetry owns the configured providers and their shutdown.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	logger         *slog.Logger
}

// Setup configures the global tracer and meter providers. A nil return with
// nil error means telemetry is disabled.
func Setup(ctx context.Context, cfg types.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
	if cfg.OTLPEndpoint != "" {
		traceOpts = append(traceOpts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
		metricOpts = append(metricOpts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	logger.Info("telemetry enabled", "service", serviceName, "endpoint", cfg.OTLPEndpoint)

	return &Telemetry{tracerProvider: tp, meterProvider: mp, logger: logger}, nil
}

// Shutdown flushes and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) {
	if t == nil {
		return
	}
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		t.logger.Warn("tracer provider shutdown", "error", err)
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil {
		t.logger.Warn("meter provider shutdown", "error", err)
	}
}

// Tracer returns the orchestrator tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer("standby/orchestrator")
}

// Meter returns the orchestrator meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter("standby/orchestrator")
}
