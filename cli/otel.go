package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/adonese/folio/cms_fields"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	otelShutdownTimeout = 5 * time.Second
	defaultSampleRate   = 0.1
)

// tracingSettings is the resolved otel configuration after env fallbacks.
type tracingSettings struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	SampleRate     float64
}

// resolveTracing reports whether tracing should run. Setting an endpoint, in config or in
// OTEL_EXPORTER_OTLP_ENDPOINT, turns it on without otel_enabled.
func resolveTracing(cfg cms_fields.FolioConfig) (tracingSettings, bool) {
	s := tracingSettings{
		Endpoint:       firstNonEmpty(cfg.OtelEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Insecure:       cfg.OtelInsecure,
		ServiceName:    firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), cfg.OtelServiceName, "folio"),
		ServiceVersion: firstNonEmpty(cfg.OtelServiceVersion, version),
		SampleRate:     sampleRate(cfg.OtelSampleRate),
	}
	return s, cfg.OtelEnabled || s.Endpoint != ""
}

// initOTel installs a batching OTLP/gRPC tracer provider and the W3C propagators. A failing
// exporter leaves tracing off; the server still starts.
func initOTel(ctx context.Context, cfg cms_fields.FolioConfig, logger *logrus.Logger) {
	settings, enabled := resolveTracing(cfg)
	if !enabled {
		return
	}

	opts := []otlptracegrpc.Option{}
	if settings.Endpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(settings.Endpoint))
	}
	if settings.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		logger.WithError(err).Warn("otel trace exporter init failed")
		return
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(settings.ServiceName),
		semconv.ServiceVersion(settings.ServiceVersion),
	))
	if err != nil {
		// schema url conflicts still return a usable resource
		logger.WithError(err).Warn("otel resource merge")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otelEnabled = true
	otelShutdown = tp.Shutdown

	logger.WithFields(logrus.Fields{
		"endpoint":    settings.Endpoint,
		"sample_rate": settings.SampleRate,
		"service":     settings.ServiceName,
		"insecure":    settings.Insecure,
	}).Info("otel tracing enabled")
}

// shutdownOTel flushes buffered spans.
func shutdownOTel() {
	if otelShutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
	defer cancel()
	if err := otelShutdown(ctx); err != nil {
		logrusLogger.WithError(err).Warn("otel shutdown failed")
	}
	otelShutdown = nil
}

func sampleRate(v float64) float64 {
	switch {
	case v <= 0:
		return defaultSampleRate
	case v > 1:
		return 1
	default:
		return v
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return ""
}
