package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/timvw/pigeon/internal/config"
	"github.com/timvw/pigeon/internal/host"
	"github.com/timvw/pigeon/internal/logging"
	"github.com/timvw/pigeon/internal/mux"
	telem "github.com/timvw/pigeon/internal/otel"
	"github.com/timvw/pigeon/internal/target"
)

var rootCmd = &cobra.Command{
	Use:   "pigeon-host",
	Short: "Native messaging host that forwards code review selections to tmux",
	Long: `pigeon-host is the native messaging host for the pigeon browser extension.

Started without a subcommand it speaks the browser's native messaging
protocol on stdin/stdout: each request arrives as a length-prefixed JSON
frame and gets exactly one response frame. A "send" request types the
selected code and question into the named tmux session; "list-sessions"
reports the sessions that can be targeted.

Browsers pass their own arguments (the caller origin, a manifest path or
a parent window handle). These are logged and otherwise ignored.

The remaining subcommands are for humans debugging an installation.`,
	Args: cobra.ArbitraryArgs,
	FParseErrWhitelist: cobra.FParseErrWhitelist{
		UnknownFlags: true,
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHost(cmd.Context(), args)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// app is the wiring shared by the host loop and the debug commands.
type app struct {
	cfg  *config.Config
	log  logging.Runtime
	tel  *telem.Telemetry
	tmux *mux.Tmux
}

func (r *app) Close(ctx context.Context) {
	if err := r.tel.Shutdown(ctx); err != nil {
		r.log.Logger.Warn("otel shutdown", "error", err)
	}
	_ = r.log.Close()
}

func (r *app) metrics() *telem.Metrics {
	if r.tel == nil {
		return nil
	}
	return r.tel.Metrics
}

// setup loads configuration: defaults -> config file -> env vars, then
// opens the log file, telemetry and the tmux client. The host loop and
// send use it since both deliver.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logs, err := logging.New(cfg)
	if err != nil {
		// Stdout is the protocol channel; without a log file we run silent.
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
		logs = logging.Discard()
	}

	// Wire build version into OTEL service metadata
	telem.Version = Version

	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		logs.Logger.Warn("otel init failed", "error", err)
	}

	r := &app{cfg: cfg, log: logs, tel: tel}
	r.tmux = newTmux(cfg, logs, r.metrics())
	return r, nil
}

// inspect loads configuration and the tmux client only. Read-only commands
// use it so they neither write to the host log nor export telemetry.
func inspect() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logs := logging.Discard()
	return &app{cfg: cfg, log: logs, tmux: newTmux(cfg, logs, nil)}, nil
}

func newTmux(cfg *config.Config, logs logging.Runtime, metrics *telem.Metrics) *mux.Tmux {
	tm := mux.NewTmux(mux.FindTmux(cfg.TmuxPath))
	tm.Timeout = cfg.CommandTimeoutDuration
	tm.SubmitDelay = cfg.SubmitDelayDuration
	tm.Logger = logs.Logger
	tm.Metrics = metrics
	return tm
}

func (r *app) dispatcher() (*host.Dispatcher, error) {
	d := &host.Dispatcher{
		Sessions:  r.tmux,
		Deliverer: r.tmux,
		Resolver:  target.Explicit{},
		Logger:    r.log.Logger,
	}
	if r.cfg.DebugDump {
		dir, err := config.StateDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		d.Debug = host.FileDump{Path: filepath.Join(dir, "debug.html")}
	}
	return d, nil
}

func runHost(ctx context.Context, args []string) error {
	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	logger := rt.log.Logger
	logger.Info("host started",
		"version", Version,
		"pid", os.Getpid(),
		"args", args,
		"tmux", rt.tmux.Binary,
		"config", rt.cfg.ConfigFile,
	)
	if path, value, found := config.LegacyOverride(); found {
		logger.Warn("ignoring legacy tmux_target override", "path", path, "value", value)
	}

	d, err := rt.dispatcher()
	if err != nil {
		return err
	}

	loop := host.New(os.Stdin, os.Stdout, d, logger)
	loop.Metrics = rt.metrics()
	if rt.tel != nil {
		loop.Tracer = rt.tel.Tracer
	}

	if err := loop.Run(ctx); err != nil {
		logger.Error("host stopped", "error", err)
		return err
	}
	return nil
}
