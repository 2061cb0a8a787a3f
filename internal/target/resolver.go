// Package target decides which tmux session a send request is delivered to.
//
// The caller's explicit tmux_target is authoritative. There is no config
// override, no default session and no inference from the repository: a
// machine-level override silently redirected deliveries to the wrong
// session, so the caller lists sessions first and names one that exists.
package target

import (
	"errors"
	"strings"

	"github.com/timvw/pigeon/internal/model"
)

// ErrEmptyTarget rejects a request that names no session.
var ErrEmptyTarget = errors.New("tmux_target is required")

// Resolver maps a send request to a session name.
type Resolver interface {
	Resolve(req *model.SendRequest) (string, error)
}

// Explicit returns the request's tmux_target verbatim.
type Explicit struct{}

// Resolve returns req.TmuxTarget unchanged, or ErrEmptyTarget when it is
// empty or whitespace. The name is not trimmed; tmux session names may
// legitimately carry surrounding spaces.
func (Explicit) Resolve(req *model.SendRequest) (string, error) {
	if strings.TrimSpace(req.TmuxTarget) == "" {
		return "", ErrEmptyTarget
	}
	return req.TmuxTarget, nil
}
