package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/angeloszaimis/docprobe/internal/backend"
	"github.com/angeloszaimis/docprobe/internal/probe"
)

// Prober is the part of probe.Prober the launcher needs.
type Prober interface {
	Probe(ctx context.Context, endpointURL string, timeout time.Duration) probe.Result
}

type Options struct {
	Endpoints    backend.Endpoints
	CheckTimeout time.Duration
	StartupWait  time.Duration

	FrontendDir     string
	EnvFile         string
	InstallCommand  string
	FrontendCommand string
	BackendCommand  string
	BackendDir      string
}

// CheckResult is the outcome of a liveness check.
type CheckResult struct {
	Running bool         `json:"running" yaml:"running"`
	URL     string       `json:"url" yaml:"url"`
	Result  probe.Result `json:"result" yaml:"result"`
}

type Launcher struct {
	opts   Options
	prober Prober
	runner CommandRunner
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

type Option func(*Launcher)

// WithSleep replaces the wait after starting the backend.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Launcher) {
		l.sleep = sleep
	}
}

func New(opts Options, prober Prober, runner CommandRunner, logger *slog.Logger, options ...Option) *Launcher {
	l := &Launcher{
		opts:   opts,
		prober: prober,
		runner: runner,
		logger: logger,
		sleep:  sleepContext,
	}
	for _, o := range options {
		o(l)
	}
	return l
}

// Check probes the list endpoint once. Any status from 200 up to but not
// including 500 counts as running, so a 404 still means a live server.
func (l *Launcher) Check(ctx context.Context) CheckResult {
	url := l.opts.Endpoints.List()
	l.logger.Info("Checking backend", slog.String("url", url))

	result := l.prober.Probe(ctx, url, l.opts.CheckTimeout)
	running := result.Status >= 200 && result.Status < 500

	if running {
		l.logger.Info("Backend is running", slog.Int("status", result.Status))
	} else {
		l.logger.Warn("Backend is not running", slog.String("reason", result.Text()))
	}

	return CheckResult{Running: running, URL: url, Result: result}
}

// EnsureEnvFile writes the frontend dotenv file with the backend URL when it
// does not exist yet. It reports whether the file was created.
func (l *Launcher) EnsureEnvFile() (bool, error) {
	path := l.envFilePath()

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	content := fmt.Sprintf("NEXT_PUBLIC_BACKEND_URL=%s\n", l.opts.Endpoints.Base())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}

	l.logger.Info("Created env file with backend URL", slog.String("file", path))
	return true, nil
}

// EnsureDependencies runs the install command when the frontend has no
// node_modules directory. It reports whether the install ran.
func (l *Launcher) EnsureDependencies(ctx context.Context) (bool, error) {
	modules := filepath.Join(l.opts.FrontendDir, "node_modules")
	if _, err := os.Stat(modules); err == nil {
		return false, nil
	}

	if l.opts.InstallCommand == "" {
		return false, nil
	}

	l.logger.Info("Installing frontend dependencies", slog.String("command", l.opts.InstallCommand))
	if err := l.runner.Run(ctx, Command{Line: l.opts.InstallCommand, Dir: l.opts.FrontendDir}); err != nil {
		return false, fmt.Errorf("install dependencies: %w", err)
	}

	return true, nil
}

// EnsureBackend starts the backend when the check fails, waits for it to
// come up and checks again. A backend that is still down is logged, not
// returned as an error.
func (l *Launcher) EnsureBackend(ctx context.Context) (CheckResult, error) {
	check := l.Check(ctx)
	if check.Running {
		l.logger.Info("Backend is already running")
		return check, nil
	}

	cmd := Command{Line: l.opts.BackendCommand, Dir: l.opts.BackendDir}
	l.logger.Info("Starting backend", slog.String("command", cmd.String()))
	if err := l.runner.Start(ctx, cmd); err != nil {
		return check, fmt.Errorf("start backend: %w", err)
	}

	l.logger.Info("Waiting for backend to start", slog.Duration("wait", l.opts.StartupWait))
	if err := l.sleep(ctx, l.opts.StartupWait); err != nil {
		return check, err
	}

	check = l.Check(ctx)
	if !check.Running {
		l.logger.Warn("Backend did not come up, starting frontend anyway",
			slog.String("url", check.URL))
	}

	return check, nil
}

// Run prepares the frontend, makes sure a backend is up and then runs the
// frontend until it exits.
func (l *Launcher) Run(ctx context.Context) error {
	if _, err := l.EnsureDependencies(ctx); err != nil {
		return err
	}

	if _, err := l.EnsureEnvFile(); err != nil {
		return err
	}

	if _, err := l.EnsureBackend(ctx); err != nil {
		return err
	}

	l.logger.Info("Starting frontend", slog.String("command", l.opts.FrontendCommand))
	return l.runner.Run(ctx, Command{Line: l.opts.FrontendCommand, Dir: l.opts.FrontendDir})
}

func (l *Launcher) envFilePath() string {
	return filepath.Join(l.opts.FrontendDir, l.opts.EnvFile)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
