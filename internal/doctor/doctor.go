// Package doctor inspects a host installation and renders a report for
// humans. It never runs as part of the native messaging loop.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/timvw/pigeon/internal/config"
	"github.com/timvw/pigeon/internal/mux"
)

// Status is the outcome of one check.
type Status int

const (
	StatusOK Status = iota
	StatusWarn
	StatusFail
)

// Check is one line of the report.
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Tmux is the part of the tmux client the checks need.
type Tmux interface {
	mux.SessionLister
	Version(ctx context.Context) (string, error)
}

// Env carries everything the checks look at.
type Env struct {
	Config  *config.Config
	LogPath string
	Binary  string
	Tmux    Tmux
	// Legacy reports an old tmux_target override; nil skips the check.
	Legacy func() (path, value string, found bool)
}

// Run performs all checks in display order.
func Run(ctx context.Context, env Env) []Check {
	var checks []Check

	if env.Config.ConfigFile != "" {
		checks = append(checks, Check{"config", StatusOK, env.Config.ConfigFile})
	} else {
		checks = append(checks, Check{"config", StatusOK, "defaults (no config file)"})
	}

	checks = append(checks, logCheck(env.LogPath))

	checks = append(checks, binaryCheck(env.Binary))

	version, err := env.Tmux.Version(ctx)
	if err != nil {
		checks = append(checks, Check{"tmux version", StatusFail, err.Error()})
	} else {
		checks = append(checks, Check{"tmux version", StatusOK, version})
	}

	checks = append(checks, sessionsCheck(ctx, env.Tmux))

	if env.Config.DebugDump {
		checks = append(checks, Check{"debug dump", StatusWarn, "enabled: page markup is written to the state dir"})
	}

	if env.Legacy != nil {
		if path, value, found := env.Legacy(); found {
			checks = append(checks, Check{"legacy target", StatusWarn,
				fmt.Sprintf("tmux_target=%s in %s is ignored; the extension chooses the session", value, path)})
		}
	}
	return checks
}

// logCheck looks at the host log without creating it.
func logCheck(path string) Check {
	if path == "" {
		return Check{"log file", StatusWarn, "logging disabled"}
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		return Check{"log file", StatusOK, path}
	case err == nil:
		return Check{"log file", StatusFail, path + " is not a regular file"}
	case !errors.Is(err, fs.ErrNotExist):
		return Check{"log file", StatusFail, err.Error()}
	}

	// Not written yet; the host creates it and any missing parents.
	dir := filepath.Dir(path)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return Check{"log file", StatusFail, dir + " is not a directory"}
			}
			return Check{"log file", StatusWarn, path + " (not created yet: the host has not run)"}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Check{"log file", StatusFail, err.Error()}
		}
		dir = parent
	}
}

func binaryCheck(binary string) Check {
	if !strings.Contains(binary, "/") {
		return Check{"tmux binary", StatusWarn, fmt.Sprintf("%q not found in well-known locations or PATH", binary)}
	}
	if _, err := os.Stat(binary); err != nil {
		return Check{"tmux binary", StatusFail, err.Error()}
	}
	return Check{"tmux binary", StatusOK, binary}
}

func sessionsCheck(ctx context.Context, tm Tmux) Check {
	names, err := tm.ListSessions(ctx)
	switch {
	case errors.Is(err, mux.ErrNoServer):
		return Check{"sessions", StatusWarn, "no tmux server running"}
	case err != nil:
		return Check{"sessions", StatusFail, err.Error()}
	case len(names) == 0:
		return Check{"sessions", StatusWarn, "server running, no sessions"}
	default:
		return Check{"sessions", StatusOK, strings.Join(names, ", ")}
	}
}

// Failed reports whether any check failed outright.
func Failed(checks []Check) bool {
	for _, c := range checks {
		if c.Status == StatusFail {
			return true
		}
	}
	return false
}
