package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pigeon-host"

// Metrics holds all OTEL metric instruments for the native host.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Requests handled, partitioned by action and outcome (ok, error).
	Requests metric.Int64Counter

	// Frames rejected before decoding (oversized).
	FramesRejected metric.Int64Counter

	// Wall time of each tmux subprocess, partitioned by tmux subcommand.
	TmuxDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Requests, err = meter.Int64Counter("host.requests",
		metric.WithDescription("Native messaging requests handled, by action and outcome"))
	if err != nil {
		return nil, err
	}

	m.FramesRejected, err = meter.Int64Counter("host.frames.rejected",
		metric.WithDescription("Inbound frames rejected before decoding"))
	if err != nil {
		return nil, err
	}

	m.TmuxDuration, err = meter.Float64Histogram("tmux.command.duration",
		metric.WithDescription("Duration of tmux subprocess invocations"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRequest counts one handled request.
func (m *Metrics) RecordRequest(ctx context.Context, action string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.Requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("request.action", action),
		attribute.String("request.outcome", outcome),
	))
}

// RecordFrameRejected counts one frame dropped by the codec.
func (m *Metrics) RecordFrameRejected(ctx context.Context) {
	if m == nil {
		return
	}
	m.FramesRejected.Add(ctx, 1)
}

// RecordTmux records the duration of one tmux invocation.
func (m *Metrics) RecordTmux(ctx context.Context, subcommand string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.TmuxDuration.Record(ctx, float64(d.Microseconds())/1000.0, metric.WithAttributes(
		attribute.String("tmux.subcommand", subcommand),
		attribute.Bool("tmux.failed", failed),
	))
}
