package mux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	telem "github.com/timvw/pigeon/internal/otel"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// DefaultTimeout bounds each tmux invocation.
	DefaultTimeout = 5 * time.Second

	// DefaultSubmitDelay lets the pane finish ingesting typed text before
	// Enter arrives; agent TUIs otherwise fold the Enter into the paste.
	DefaultSubmitDelay = 300 * time.Millisecond

	// maxLoggedArg caps each argument in the debug argv log.
	maxLoggedArg = 256
)

// Tmux implements Multiplexer by shelling out to the tmux binary.
type Tmux struct {
	Binary      string
	Timeout     time.Duration
	SubmitDelay time.Duration

	Runner  Runner
	Sleep   func(time.Duration)
	Logger  *slog.Logger
	Metrics *telem.Metrics

	// BufferName overrides the generated paste buffer name.
	BufferName func() string
}

// NewTmux creates a tmux multiplexer using binary.
func NewTmux(binary string) *Tmux {
	return &Tmux{
		Binary:      binary,
		Timeout:     DefaultTimeout,
		SubmitDelay: DefaultSubmitDelay,
		Runner:      ExecRunner{},
		Sleep:       time.Sleep,
		Logger:      slog.New(slog.DiscardHandler),
	}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// ListSessions returns session names in tmux's order. Zero sessions is an
// empty, non-nil slice. A missing server is ErrNoServer.
func (t *Tmux) ListSessions(ctx context.Context) ([]string, error) {
	out, err := t.run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		return nil, fmt.Errorf("tmux list-sessions: %w", err)
	}
	return parseSessionNames(out), nil
}

// Version returns the tmux version string, e.g. "tmux 3.4".
func (t *Tmux) Version(ctx context.Context) (string, error) {
	out, err := t.run(ctx, "-V")
	if err != nil {
		return "", fmt.Errorf("tmux -V: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// SendText pastes text into session, then presses Enter.
//
// The session is checked first so a missing target has no side effects.
// The text reaches tmux on stdin through load-buffer, never on the command
// line, so tmux's own argument parsing (a trailing ";" ends a command)
// cannot touch it. paste-buffer -p wraps it in bracketed paste when the
// pane asks for that, so embedded newlines do not submit early.
func (t *Tmux) SendText(ctx context.Context, session, text string) error {
	if session == "" {
		return ErrEmptySession
	}
	if _, err := t.run(ctx, "has-session", "-t", exactSession(session)); err != nil {
		return fmt.Errorf("tmux has-session %s: %w", session, err)
	}

	pane := exactPane(session)
	if text != "" {
		buffer := t.bufferName()
		if _, err := t.runInput(ctx, text, "load-buffer", "-b", buffer, "-"); err != nil {
			return fmt.Errorf("tmux load-buffer %s: %w", session, err)
		}
		if _, err := t.run(ctx, "paste-buffer", "-p", "-d", "-b", buffer, "-t", pane); err != nil {
			// -d only deletes on success.
			_, _ = t.run(ctx, "delete-buffer", "-b", buffer)
			return fmt.Errorf("tmux paste-buffer %s: %w", session, err)
		}
	}

	if t.SubmitDelay > 0 && t.Sleep != nil {
		t.Sleep(t.SubmitDelay)
	}
	if _, err := t.run(ctx, "send-keys", "-t", pane, "Enter"); err != nil {
		return fmt.Errorf("tmux send-keys %s Enter: %w", session, err)
	}
	return nil
}

// bufferName returns a private paste buffer name so the user's own
// buffers are never overwritten.
func (t *Tmux) bufferName() string {
	if t.BufferName != nil {
		return t.BufferName()
	}
	return "pigeon-" + uuid.NewString()
}

func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	return t.runInput(ctx, "", args...)
}

// runInput executes one tmux command under the configured timeout, feeding
// stdin to it, and maps failures onto the package's sentinel errors.
func (t *Tmux) runInput(ctx context.Context, stdin string, args ...string) (string, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t.logger().Debug("tmux exec", "argv", renderArgv(t.Binary, args), "stdin_bytes", len(stdin))

	start := time.Now()
	stdout, stderr, err := t.Runner.Run(runCtx, stdin, t.Binary, args...)
	elapsed := time.Since(start)

	if err != nil && runCtx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("%w after %s", ErrTimeout, timeout)
	} else if err != nil {
		err = classify(err, stderr)
	}

	t.Metrics.RecordTmux(ctx, args[0], elapsed, err != nil)
	if err != nil {
		t.logger().Debug("tmux failed", "subcommand", args[0], "error", err, "duration", elapsed)
		return "", err
	}
	return stdout, nil
}

func (t *Tmux) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.Logger
}

// classify maps a failed tmux invocation onto a sentinel error, keeping
// tmux's own message for context.
func classify(err error, stderr string) error {
	msg := strings.TrimSpace(stderr)

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// The process never started: missing binary, bad permissions.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case strings.Contains(msg, "no server running"),
		strings.Contains(msg, "error connecting to"),
		strings.Contains(msg, "server exited unexpectedly"):
		return fmt.Errorf("%w: %s", ErrNoServer, msg)
	case strings.Contains(msg, "can't find session"),
		strings.Contains(msg, "session not found"),
		strings.Contains(msg, "can't find pane"),
		strings.Contains(msg, "can't find window"):
		return fmt.Errorf("%w: %s", ErrSessionNotFound, msg)
	case msg != "":
		return fmt.Errorf("%w: %s", err, msg)
	default:
		return err
	}
}

// exactSession builds a session target that tmux matches literally,
// never by prefix or pattern.
func exactSession(name string) string {
	return "=" + name
}

// exactPane targets the active pane of the exactly-named session.
func exactPane(name string) string {
	return "=" + name + ":"
}

// parseSessionNames splits list-sessions output, one name per line.
func parseSessionNames(out string) []string {
	names := []string{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names
}

// renderArgv renders a command line that can be pasted into a shell.
func renderArgv(bin string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{bin}, args...) {
		if len(a) > maxLoggedArg {
			parts = append(parts, fmt.Sprintf("<%d bytes>", len(a)))
			continue
		}
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			// Quote refuses strings bash cannot represent (NUL bytes).
			q = fmt.Sprintf("%q", a)
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}
