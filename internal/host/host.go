// Package host runs the native messaging request/response loop.
//
// One frame is read, decoded, dispatched and answered before the next
// frame is read. Protocol, target and execution failures are answered
// with {ok:false} and the loop continues. Only transport failures (a
// broken stdout, a truncated frame) end the loop with an error; a clean
// end of stdin ends it with nil.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/pigeon/internal/frame"
	"github.com/timvw/pigeon/internal/model"
	telem "github.com/timvw/pigeon/internal/otel"
)

const tracerName = "pigeon-host"

// Loop owns the stdio channel for the lifetime of the process.
type Loop struct {
	In      *frame.Reader
	Out     *frame.Writer
	Handler Handler

	Logger  *slog.Logger
	Metrics *telem.Metrics
	Tracer  trace.Tracer
}

// New wires a loop over r and w.
func New(r io.Reader, w io.Writer, h Handler, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loop{
		In:      frame.NewReader(r),
		Out:     frame.NewWriter(w),
		Handler: h,
		Logger:  logger,
		Tracer:  otel.Tracer(tracerName),
	}
}

// Run serves frames until end of input (nil) or a transport error.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		body, err := l.In.Read()
		switch {
		case err == nil:
			// fall through to dispatch
		case errors.Is(err, io.EOF):
			l.Logger.Info("input closed, shutting down")
			return nil
		case errors.Is(err, frame.ErrTooLarge):
			l.Logger.Warn("rejected frame", "error", err)
			l.Metrics.RecordFrameRejected(ctx)
			if werr := l.write(model.Failure(fmt.Sprintf("message exceeds %d bytes", frame.MaxSize))); werr != nil {
				return werr
			}
			continue
		default:
			return fmt.Errorf("read frame: %w", err)
		}

		resp := l.serve(ctx, body)
		if err := l.write(resp); err != nil {
			return err
		}
	}
}

// serve turns one frame body into exactly one response.
func (l *Loop) serve(ctx context.Context, body []byte) model.Response {
	requestID := uuid.NewString()
	logger := l.Logger.With("request_id", requestID)

	ctx, span := l.tracer().Start(ctx, "host.request",
		trace.WithAttributes(attribute.String("request.id", requestID)))
	defer span.End()

	req, err := model.DecodeRequest(body)
	if err != nil {
		logger.Warn("rejected request", "error", err, "bytes", len(body))
		span.SetStatus(codes.Error, err.Error())
		l.Metrics.RecordRequest(ctx, "invalid", false)
		return model.Failure(err.Error())
	}

	action := string(req.Action())
	span.SetAttributes(attribute.String("request.action", action))
	logger.Debug("request", "action", action)

	resp := l.Handler.Handle(withRequestID(ctx, requestID), req)

	if !resp.OK {
		span.SetStatus(codes.Error, resp.Error)
		logger.Info("request failed", "action", action, "error", resp.Error)
	}
	l.Metrics.RecordRequest(ctx, action, resp.OK)
	return resp
}

// write encodes and sends one response. A response too large for a frame
// is replaced by an error response so the caller still gets an answer.
func (l *Loop) write(resp model.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(model.Failure(fmt.Sprintf("encode response: %v", err)))
	}
	if len(data) > frame.MaxSize {
		l.Logger.Warn("response too large", "bytes", len(data))
		data, _ = json.Marshal(model.Failure(fmt.Sprintf("response exceeds %d bytes", frame.MaxSize)))
	}
	if err := l.Out.Write(data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (l *Loop) tracer() trace.Tracer {
	if l.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return l.Tracer
}
