// Package tracing wires the OpenTelemetry pipeline for the backend. Tracing
// is opt-in: with OTEL_EXPORTER_OTLP_ENDPOINT unset the global provider
// stays a noop and every span call is free, so the default deployment pays
// nothing for it.
package tracing

import (
	"context"
	"log"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// defaultServiceName identifies this backend in trace backends when
// OTEL_SERVICE_NAME is not set.
const defaultServiceName = "scrum-backend"

// InitTracer sets up span export over OTLP/gRPC and installs the provider
// globally. The returned function flushes pending spans; call it on exit.
// Without OTEL_EXPORTER_OTLP_ENDPOINT it returns a no-op shutdown and nil.
func InitTracer(ctx context.Context) (shutdown func(context.Context) error, err error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		log.Println("[tracing] OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	// 端点等连接参数由 SDK 自行从标准环境变量读取
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := buildResource(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampleRatio())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Printf("[tracing] tracing enabled, exporting to %s", endpoint)

	return tp.Shutdown, nil
}

// buildResource merges the service identity attributes into the SDK's
// default resource.
func buildResource(ctx context.Context) (*resource.Resource, error) {
	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	opts := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	}
	if v := os.Getenv("OTEL_SERVICE_VERSION"); v != "" {
		opts = append(opts, resource.WithAttributes(semconv.ServiceVersion(v)))
	}

	svcRes, err := resource.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), svcRes)
}

// sampleRatio reads OTEL_TRACES_SAMPLER_ARG, falling back to sampling
// everything when the variable is unset or unparseable.
func sampleRatio() float64 {
	arg := os.Getenv("OTEL_TRACES_SAMPLER_ARG")
	if arg == "" {
		return 1.0
	}
	ratio, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		log.Printf("[tracing] invalid OTEL_TRACES_SAMPLER_ARG %q, sampling everything", arg)
		return 1.0
	}
	return ratio
}
