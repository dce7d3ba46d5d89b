// Package observability wires the OpenTelemetry MeterProvider (SPEC_FULL.md
// A.5): a counter for event-buffer overflow drops, a histogram for
// graph-store operation latency, and a counter for retried/transient
// errors. Grounded on the teacher's domain/tracing/module.go TracerProvider
// wiring (no-op-by-default, OTLP-by-config, lifecycle-managed shutdown) but
// rebuilt around otel/sdk/metric instead of sdk/trace.
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/config"
)

var Module = fx.Module("observability",
	fx.Provide(NewMeterProvider, NewTracerProvider),
	fx.Invoke(RegisterLifecycle, RegisterTracingLifecycle),
)

// NewMeterProvider installs a MeterProvider: stdout exporter by default, or
// an OTLP HTTP exporter when Observability.ExporterEndpoint is set.
func NewMeterProvider(cfg *config.Config, log *slog.Logger) (*sdkmetric.MeterProvider, error) {
	oc := cfg.Observability

	res, err := resource.New(context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceName(oc.ServiceName)),
		resource.WithFromEnv(),
		resource.WithProcess(),
	)
	if err != nil {
		log.Warn("otel resource detection failed", slog.String("error", err.Error()))
		res = resource.Empty()
	}

	var reader sdkmetric.Reader
	if oc.Enabled() {
		exp, err := otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpointURL(oc.ExporterEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exp)
		log.Info("otel metrics exporting via OTLP", slog.String("endpoint", oc.ExporterEndpoint))
	} else {
		exp, err := stdoutmetric.New(stdoutmetric.WithoutTimestamps())
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exp)
		log.Info("otel metrics exporting to stdout")
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// RegisterLifecycle shuts the MeterProvider down gracefully on app stop.
func RegisterLifecycle(lc fx.Lifecycle, mp *sdkmetric.MeterProvider, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down OTel MeterProvider")
			return mp.Shutdown(ctx)
		},
	})
}

// tracerProviderResult carries the SDK provider out as an optional named
// value, nil when tracing is disabled, so RegisterTracingLifecycle only
// shuts down a provider it actually installed.
type tracerProviderResult struct {
	fx.Out

	SDKProvider *sdktrace.TracerProvider `name:"otelSDKTracerProvider" optional:"true"`
}

// NewTracerProvider installs a TracerProvider: a no-op provider by default
// (pkg/tracing.Start calls are then inert), or an OTLP HTTP exporter when
// Observability.ExporterEndpoint is set — the same spans the Merge Engine
// and Diff Engine emit via pkg/tracing become visible once this is enabled.
func NewTracerProvider(cfg *config.Config, log *slog.Logger) (tracerProviderResult, error) {
	oc := cfg.Observability

	if !oc.Enabled() {
		log.Info("otel tracing disabled (OTEL_EXPORTER_OTLP_ENDPOINT not set)")
		otel.SetTracerProvider(noop.NewTracerProvider())
		return tracerProviderResult{}, nil
	}

	exp, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpointURL(oc.ExporterEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return tracerProviderResult{}, err
	}

	res, err := resource.New(context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceName(oc.ServiceName)),
		resource.WithFromEnv(),
		resource.WithProcess(),
	)
	if err != nil {
		log.Warn("otel resource detection failed", slog.String("error", err.Error()))
		res = resource.Empty()
	}

	var sampler sdktrace.Sampler
	if oc.SamplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(oc.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	log.Info("otel tracing enabled", slog.String("endpoint", oc.ExporterEndpoint))
	return tracerProviderResult{SDKProvider: tp}, nil
}

type tracerProviderParam struct {
	fx.In
	SDKProvider *sdktrace.TracerProvider `name:"otelSDKTracerProvider" optional:"true"`
}

// RegisterTracingLifecycle shuts the SDK TracerProvider down on app stop; a
// no-op install leaves SDKProvider nil and this is a no-op too.
func RegisterTracingLifecycle(lc fx.Lifecycle, p tracerProviderParam, log *slog.Logger) {
	if p.SDKProvider == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down OTel TracerProvider")
			return p.SDKProvider.Shutdown(ctx)
		},
	})
}

