package infra

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/config"
)

// TelemetryClient owns the trace and metric providers. Runtime metrics
// (goroutines, GC, memory) are collected automatically once started.
type TelemetryClient struct {
	traceProvider  *sdktrace.TracerProvider
	metricProvider *sdkmetric.MeterProvider
}

func InitTelemetryClient(cfg *config.EnvConfig) *TelemetryClient {
	if cfg.Environment.Mode == "development" {
		return &TelemetryClient{}
	}

	ctx := context.Background()

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.Grafana.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment.Mode),
	))
	if err != nil {
		log.Fatalf("Telemetry resource failed: %v", err)
	}

	traceExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(cfg.Grafana.OTLPEndpoint),
		otlptracehttp.WithURLPath("/otlp/v1/traces"),
	))
	if err != nil {
		log.Fatalf("OTLP trace exporter failed: %v", err)
	}
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(traceProvider)

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.Grafana.OTLPEndpoint),
		otlpmetrichttp.WithURLPath("/otlp/v1/metrics"),
	)
	if err != nil {
		log.Fatalf("OTLP metric exporter failed: %v", err)
	}
	metricProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(metricProvider)

	if err := runtime.Start(runtime.WithMeterProvider(metricProvider)); err != nil {
		log.Printf("Warning: runtime metrics failed to start: %v", err)
	}

	return &TelemetryClient{
		traceProvider:  traceProvider,
		metricProvider: metricProvider,
	}
}

func (t *TelemetryClient) Shutdown(ctx context.Context) {
	if t.traceProvider != nil {
		_ = t.traceProvider.Shutdown(ctx)
	}
	if t.metricProvider != nil {
		_ = t.metricProvider.Shutdown(ctx)
	}
}
