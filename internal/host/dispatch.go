package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/timvw/pigeon/internal/model"
	"github.com/timvw/pigeon/internal/mux"
	"github.com/timvw/pigeon/internal/prompt"
	"github.com/timvw/pigeon/internal/target"
)

// Handler serves one decoded request.
type Handler interface {
	Handle(context.Context, model.Request) model.Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, model.Request) model.Response

func (f HandlerFunc) Handle(ctx context.Context, req model.Request) model.Response {
	return f(ctx, req)
}

// Dispatcher routes requests to the session lister or the deliverer.
// Every path ends in exactly one Response; errors never escape.
type Dispatcher struct {
	Sessions  mux.SessionLister
	Deliverer mux.Deliverer
	Resolver  target.Resolver
	Debug     DebugSink
	Logger    *slog.Logger
}

func (d *Dispatcher) Handle(ctx context.Context, req model.Request) model.Response {
	switch r := req.(type) {
	case *model.ListSessionsRequest:
		return d.listSessions(ctx)
	case *model.SendRequest:
		return d.send(ctx, r)
	default:
		return model.Failure(model.ErrUnknownAction.Error())
	}
}

func (d *Dispatcher) listSessions(ctx context.Context) model.Response {
	names, err := d.Sessions.ListSessions(ctx)
	if err != nil {
		d.logger(ctx).Warn("list sessions failed", "error", err)
		return model.Failure(describe(err, ""))
	}
	d.logger(ctx).Debug("listed sessions", "count", len(names))
	return model.SessionList(names)
}

func (d *Dispatcher) send(ctx context.Context, req *model.SendRequest) model.Response {
	if req.DebugHTML != "" {
		d.logger(ctx).Debug("debug_html attached", "bytes", len(req.DebugHTML))
		if d.Debug != nil {
			if err := d.Debug.Dump(req.DebugHTML); err != nil {
				d.logger(ctx).Warn("debug dump failed", "error", err)
			}
		}
	}

	session, err := d.Resolver.Resolve(req)
	if err != nil {
		return model.Failure(describe(err, ""))
	}

	text := prompt.Build(req)
	if err := d.Deliverer.SendText(ctx, session, text); err != nil {
		d.logger(ctx).Warn("delivery failed", "session", session, "error", err)
		return model.Failure(describe(err, session))
	}

	d.logger(ctx).Info("delivered",
		"session", session,
		"location", prompt.Location(req),
		"bytes", len(text),
	)
	return model.Success()
}

func (d *Dispatcher) logger(ctx context.Context) *slog.Logger {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		logger = logger.With("request_id", id)
	}
	return logger
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// describe renders an error as the caller-facing message.
func describe(err error, session string) string {
	switch {
	case errors.Is(err, target.ErrEmptyTarget):
		return target.ErrEmptyTarget.Error()
	case errors.Is(err, mux.ErrSessionNotFound):
		return fmt.Sprintf("tmux session %q not found", session)
	case errors.Is(err, mux.ErrNoServer):
		return mux.ErrNoServer.Error()
	case mux.IsConnection(err):
		return fmt.Sprintf("tmux connection failed: %v", err)
	default:
		return err.Error()
	}
}
