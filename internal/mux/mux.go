// Package mux wraps the terminal multiplexer behind a narrow interface.
//
// The host only needs two effects: enumerate session names and type text
// into one session. Both are pure transport; nothing here interprets the
// text being delivered.
package mux

import (
	"context"
	"errors"
)

// SessionLister enumerates session names in the order tmux reports them.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]string, error)
}

// Deliverer types text into a session as literal keystrokes and submits it.
type Deliverer interface {
	SendText(ctx context.Context, session, text string) error
}

// Multiplexer is the full surface the host needs.
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux").
	Name() string
	SessionLister
	Deliverer
}

var (
	// ErrNoServer means no tmux server is running for this user.
	ErrNoServer = errors.New("no tmux server running")
	// ErrSessionNotFound means the named session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnavailable means the tmux binary could not be started.
	ErrUnavailable = errors.New("tmux unavailable")
	// ErrTimeout means a tmux command exceeded the configured bound.
	ErrTimeout = errors.New("tmux command timed out")
	// ErrEmptySession rejects delivery without a target name.
	ErrEmptySession = errors.New("empty session name")
)

// IsConnection reports whether err means tmux itself could not be reached,
// as opposed to a problem with one request.
func IsConnection(err error) bool {
	return errors.Is(err, ErrNoServer) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}
