package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/rileyhilliard/nodebeat/internal/config"
	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/rileyhilliard/nodebeat/internal/logger"
	"github.com/rileyhilliard/nodebeat/internal/poller"
	"github.com/rileyhilliard/nodebeat/internal/status"
	"github.com/rileyhilliard/nodebeat/internal/target"
	"github.com/rileyhilliard/nodebeat/internal/ui"
	"github.com/rileyhilliard/nodebeat/pkg/sshutil"
)

// LogFileEnv names a file that receives log output while the dashboard
// owns the terminal. Without it, logs are discarded in dashboard mode.
const LogFileEnv = "NODEBEAT_LOG"

// WatchOptions holds everything one polling run needs.
type WatchOptions struct {
	Command   string
	Selection string // --nodes value
	Config    *config.Config

	// Fs reads the ssh config and identity files.
	Fs afero.Fs
	// Out receives plain output or hosts the dashboard.
	Out io.Writer
	// Interactive selects the dashboard over plain lines.
	Interactive bool
	// Runner overrides the SSH executor. Nil means a real one.
	Runner sshutil.Runner
	Log    logger.Logger
}

// watchCommand is the implementation called by the root command.
func watchCommand(ctx context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	command := strings.TrimSpace(strings.Join(args, " "))
	if command == "" {
		command = cfg.Command
	}
	if command == "" {
		return errors.New(errors.ErrConfig,
			"No command to run",
			"Pass one, e.g. 'nodebeat uptime', or set 'command' in .nodebeat.yaml")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := !cfg.Plain && term.IsTerminal(int(os.Stdout.Fd()))

	log := logger.NewEnvLogger(runPrefix())
	if interactive {
		closeLog, err := redirectLog()
		if err != nil {
			return err
		}
		defer closeLog()
	}

	return Watch(ctx, WatchOptions{
		Command:     command,
		Selection:   nodesFlag,
		Config:      cfg,
		Fs:          afero.NewOsFs(),
		Out:         os.Stdout,
		Interactive: interactive,
		Log:         log,
	})
}

// Watch polls the selected targets until ctx is cancelled or, in dashboard
// mode, the user quits. Selection and ssh config errors are returned before
// any polling starts.
func Watch(ctx context.Context, opts WatchOptions) error {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = logger.Noop()
	}

	set, err := target.NewSet(cfg.Targets)
	if err != nil {
		return err
	}
	selected, err := set.ParseList(opts.Selection)
	if err != nil {
		return err
	}
	names := target.Names(selected)

	resolver, err := sshutil.LoadConfig(opts.Fs, cfg.SSHConfig)
	if err != nil {
		return err
	}

	runner := opts.Runner
	if runner == nil {
		runner, err = newExecutor(cfg, log)
		if err != nil {
			return err
		}
	}

	board := status.NewBoard(names)
	orch := &poller.Orchestrator{
		Command:  opts.Command,
		Targets:  names,
		Resolver: resolver,
		Runner:   runner,
		Sink:     board,
		Interval: cfg.IntervalDuration(),
		Timeout:  cfg.TimeoutDuration(),
		UTC:      cfg.UTC,
		Log:      log,
	}

	log.Info("polling %d target(s) every %s: %s", len(names), cfg.IntervalDuration(), opts.Command)

	if opts.Interactive {
		return runDashboard(ctx, orch, board, opts)
	}
	return runPlain(ctx, orch, board, opts.Out)
}

func newExecutor(cfg *config.Config, log logger.Logger) (*sshutil.Executor, error) {
	policy, err := sshutil.ParseHostKeyPolicy(cfg.HostKeyPolicy)
	if err != nil {
		return nil, err
	}
	if policy == sshutil.HostKeyOff {
		log.Warn("host key verification is off; connections can be intercepted")
	}

	callback, err := policy.HostKeyCallback(cfg.KnownHosts)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't load known_hosts: "+cfg.KnownHosts,
			"Check the file, or pass another with --known-hosts")
	}
	return sshutil.NewExecutor(callback), nil
}

func runPlain(ctx context.Context, orch *poller.Orchestrator, board *status.Board, out io.Writer) error {
	plain := ui.NewPlain(out, board)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(gctx) })
	g.Go(func() error { return plain.Run(gctx) })
	return g.Wait()
}

func runDashboard(ctx context.Context, orch *poller.Orchestrator, board *status.Board, opts WatchOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dash := ui.NewDashboard(board, ui.DashboardOptions{
		Command:  opts.Command,
		Interval: opts.Config.IntervalDuration(),
	})
	defer dash.Close()

	program := tea.NewProgram(dash, tea.WithOutput(opts.Out), tea.WithAltScreen())

	pollErr := make(chan error, 1)
	go func() {
		err := orch.Run(ctx)
		if err != nil {
			program.Quit()
		}
		pollErr <- err
	}()
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-pollErr
		return errors.WrapWithCode(err, errors.ErrExec,
			"Dashboard stopped unexpectedly",
			"Try --plain, or set "+LogFileEnv+" to capture logs")
	}

	cancel()
	return <-pollErr
}

// runPrefix tags log lines with a short per-run ID.
func runPrefix() string {
	return fmt.Sprintf("[nodebeat %s]", uuid.NewString()[:8])
}

// redirectLog keeps log output off the dashboard's screen.
func redirectLog() (func(), error) {
	path := os.Getenv(LogFileEnv)
	if path == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }, nil
	}

	f, err := tea.LogToFile(path, "")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't open log file: "+path,
			"Check "+LogFileEnv+" points at a writable path")
	}
	return func() {
		f.Close()
		log.SetOutput(os.Stderr)
	}, nil
}
