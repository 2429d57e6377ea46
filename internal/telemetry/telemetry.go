package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const metricExportInterval = 10 * time.Second

// ShutdownFunc flushes and stops a telemetry provider.
type ShutdownFunc func(context.Context) error

// InitTelemetry installs global OTLP gRPC trace and meter providers for the
// provisioning and key verification instruments. Exporter endpoints and headers
// come from the standard OTEL_EXPORTER_OTLP_* environment variables.
//
// A provider that fails to start is skipped with a warning, the service keeps
// running without it. sampleRatio applies to root spans only.
func InitTelemetry(ctx context.Context, serviceName, version string, sampleRatio float64) (ShutdownFunc, error) {
	res, err := newResource(ctx, serviceName, version)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var providers []namedShutdown

	if tp, err := newTracerProvider(ctx, res, sampleRatio); err != nil {
		log.Warn().Err(err).Msg("Tracing disabled, trace exporter unavailable")
	} else {
		otel.SetTracerProvider(tp)
		providers = append(providers, namedShutdown{name: "trace", fn: tp.Shutdown})
	}

	if mp, err := newMeterProvider(ctx, res); err != nil {
		log.Warn().Err(err).Msg("Metrics disabled, metric exporter unavailable")
	} else {
		otel.SetMeterProvider(mp)
		providers = append(providers, namedShutdown{name: "metric", fn: mp.Shutdown})
	}

	// the server's otelhttp handler and the client transport share trace context through these
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("service", serviceName).
		Str("version", version).
		Float64("sample_ratio", sampleRatio).
		Int("providers", len(providers)).
		Msg("Telemetry initialized")

	return shutdownAll(providers...), nil
}

func newResource(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithContainer(),
	)
}

func newTracerProvider(ctx context.Context, res *resource.Resource, sampleRatio float64) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval))),
		sdkmetric.WithResource(res),
	), nil
}

type namedShutdown struct {
	name string
	fn   ShutdownFunc
}

// shutdownAll stops every provider even when an earlier one fails.
func shutdownAll(providers ...namedShutdown) ShutdownFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, p := range providers {
			if err := p.fn(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s shutdown: %w", p.name, err))
			}
		}
		return errors.Join(errs...)
	}
}
