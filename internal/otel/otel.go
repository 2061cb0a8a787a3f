// Package otel sets up OpenTelemetry for the native host.
//
// A host process lives as long as one browser connection, often only a few
// frames, so export is tuned for a short life: no export retries, small
// batches flushed on exit, and a hard bound on how long exit may take.
// Without an endpoint everything is a no-op and nothing leaves the machine.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "pigeon-host"

// exportTimeout bounds a single OTLP request.
const exportTimeout = 2 * time.Second

// ShutdownTimeout bounds the final flush once stdin has closed. The browser
// may already be waiting to start the next host.
var ShutdownTimeout = 2 * time.Second

// Version is set from cmd.Version before Init.
var Version = "dev"

// OTELConfig holds the configuration needed by Init.
type OTELConfig struct {
	Endpoint string // OTLP base URL, e.g. "http://localhost:4318"
	Headers  string // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"
}

// Telemetry holds the OTEL providers and metric instruments.
// A nil *Telemetry is valid; Shutdown is then a no-op.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	Tracer  trace.Tracer
	Metrics *Metrics
}

// endpoint is a parsed OTLP base URL.
type endpoint struct {
	host     string
	basePath string
	insecure bool
	headers  map[string]string
}

func parseEndpoint(raw, headers string) (endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return endpoint{}, fmt.Errorf("invalid endpoint URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return endpoint{}, fmt.Errorf("invalid endpoint URL %q: missing host", raw)
	}
	return endpoint{
		host:     u.Host,
		basePath: strings.TrimRight(u.Path, "/"),
		insecure: u.Scheme == "http",
		headers:  parseHeaders(headers),
	}, nil
}

func (e endpoint) traceOptions() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(e.host),
		otlptracehttp.WithURLPath(e.basePath + "/v1/traces"),
		otlptracehttp.WithTimeout(exportTimeout),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	}
	if e.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(e.headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(e.headers))
	}
	return opts
}

func (e endpoint) metricOptions() []otlpmetrichttp.Option {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(e.host),
		otlpmetrichttp.WithURLPath(e.basePath + "/v1/metrics"),
		otlpmetrichttp.WithTimeout(exportTimeout),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{Enabled: false}),
	}
	if e.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(e.headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(e.headers))
	}
	return opts
}

// parseHeaders parses the OTEL_EXPORTER_OTLP_HEADERS format,
// "key=value,key2=value2".
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	if raw == "" {
		return headers
	}
	for _, pair := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		key = strings.TrimSpace(key)
		if ok && key != "" {
			headers[key] = strings.TrimSpace(val)
		}
	}
	return headers
}

// Init wires OTLP/HTTP exporters when cfg.Endpoint is set. Without one the
// returned Telemetry still hands out a tracer and instruments; they just
// record nothing.
func Init(ctx context.Context, cfg OTELConfig) (*Telemetry, error) {
	t := &Telemetry{}

	if cfg.Endpoint != "" {
		ep, err := parseEndpoint(cfg.Endpoint, cfg.Headers)
		if err != nil {
			return nil, fmt.Errorf("otel: %w", err)
		}
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.ServiceVersion(Version),
			),
			resource.WithHost(),
		)
		if err != nil {
			return nil, fmt.Errorf("otel resource: %w", err)
		}

		traceExp, err := otlptracehttp.New(ctx, ep.traceOptions()...)
		if err != nil {
			return nil, fmt.Errorf("otel trace exporter: %w", err)
		}
		t.tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp,
				sdktrace.WithBatchTimeout(time.Second),
				sdktrace.WithExportTimeout(exportTimeout)),
			sdktrace.WithResource(res),
		)

		metricExp, err := otlpmetrichttp.New(ctx, ep.metricOptions()...)
		if err != nil {
			return nil, fmt.Errorf("otel metric exporter: %w", err)
		}
		// The periodic export rarely fires in a short-lived host; Shutdown
		// collects whatever is left.
		t.mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
				sdkmetric.WithInterval(15*time.Second),
				sdkmetric.WithTimeout(exportTimeout))),
			sdkmetric.WithResource(res),
		)

		otel.SetTracerProvider(t.tp)
		otel.SetMeterProvider(t.mp)
	}

	t.Tracer = otel.Tracer(serviceName)

	metrics, err := NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}
	t.Metrics = metrics

	return t, nil
}

// Shutdown flushes pending telemetry, giving up after ShutdownTimeout so an
// unreachable collector cannot hold the process open.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || (t.tp == nil && t.mp == nil) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
