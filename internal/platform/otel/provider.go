package otel

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in: when HRDESK_OTEL_ENDPOINT is empty or HRDESK_OTEL_ENABLED
// is "false", Setup returns a no-op shutdown function and no global provider is
// registered. Spans started through otel.Tracer are then discarded.
//
// HRDESK_OTEL_SAMPLE_RATIO (0..1) lowers the sampling rate for chatty
// desktop installs; anything unparsable keeps AlwaysSample.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if strings.EqualFold(os.Getenv("HRDESK_OTEL_ENABLED"), "false") {
		return noop, nil
	}

	endpoint := os.Getenv("HRDESK_OTEL_ENDPOINT")
	if endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFromEnv()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

func samplerFromEnv() sdktrace.Sampler {
	raw := strings.TrimSpace(os.Getenv("HRDESK_OTEL_SAMPLE_RATIO"))
	if raw == "" {
		return sdktrace.AlwaysSample()
	}
	ratio, err := parseRatio(raw)
	if err != nil {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func parseRatio(raw string) (float64, error) {
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if ratio < 0 || ratio > 1 {
		return 0, fmt.Errorf("sample ratio %v out of range", ratio)
	}
	return ratio, nil
}
