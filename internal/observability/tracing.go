package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

const defaultServiceName = "control-plane-gateway"

// TracingOptions configures the tracer provider
type TracingOptions struct {
	ServiceName string
	Enabled     bool
	Endpoint    string // host:port of an OTLP/HTTP collector
	Insecure    bool
	SampleRate  float64
	Timeout     time.Duration
}

// ShutdownFunc flushes and stops the tracer provider
type ShutdownFunc func(context.Context) error

// InitTracing installs the global tracer provider and propagator.
// Without an endpoint, or when disabled, spans are sampled but not exported.
// An exporter that cannot be built is logged and tracing continues locally.
func InitTracing(ctx context.Context, opts TracingOptions, logger *zap.Logger) (ShutdownFunc, error) {
	name := strings.TrimSpace(opts.ServiceName)
	if name == "" {
		name = defaultServiceName
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
	))
	if err != nil {
		res = resource.NewSchemaless(attribute.String("service.name", name))
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(opts.SampleRate)),
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if opts.Enabled && endpoint != "" {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		exporterOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithTimeout(timeout),
		}
		if opts.Insecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			logger.Warn("otlp exporter disabled", zap.Error(err))
		} else {
			providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
			logger.Info("tracing enabled",
				zap.String("endpoint", endpoint),
				zap.String("service", name))
		}
	}

	tp := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// sampler keeps parent decisions and samples new roots at rate, clamped to [0, 1]
func sampler(rate float64) sdktrace.Sampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// HTTPMiddleware instruments inbound HTTP handlers
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	return otelhttp.NewMiddleware(serviceName)
}
