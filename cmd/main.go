package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/angeloszaimis/docprobe/config"
	"github.com/angeloszaimis/docprobe/internal/apiclient"
	"github.com/angeloszaimis/docprobe/internal/backend"
	"github.com/angeloszaimis/docprobe/internal/circuitbreaker"
	"github.com/angeloszaimis/docprobe/internal/handler"
	"github.com/angeloszaimis/docprobe/internal/healthcheck"
	"github.com/angeloszaimis/docprobe/internal/httpserver"
	"github.com/angeloszaimis/docprobe/internal/launcher"
	"github.com/angeloszaimis/docprobe/internal/metrics"
	"github.com/angeloszaimis/docprobe/internal/netdiag"
	"github.com/angeloszaimis/docprobe/internal/probe"
	"github.com/angeloszaimis/docprobe/internal/stream"
	"github.com/angeloszaimis/docprobe/internal/transport"
	"github.com/angeloszaimis/docprobe/pkg/logger"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usage = `Usage: docprobe <command> [flags]

Commands:
  check     exit 0 when the backend answers below 500, 1 otherwise
  status    probe the backend and print the result
  info      print client configuration and a connection test
  network   run the network diagnostics grid
  list      list uploaded documents
  upload    upload a document: upload <path>
  delete    delete a document: delete <id>
  serve     run the debug server with the health watcher
  launch    start the backend if needed, then the frontend
`

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

type commandFunc func(ctx context.Context, a *app, args []string) int

var commands = map[string]commandFunc{
	"check":   runCheck,
	"status":  runStatus,
	"info":    runInfo,
	"network": runNetwork,
	"list":    runList,
	"upload":  runUpload,
	"delete":  runDelete,
	"serve":   runServe,
	"launch":  runLaunch,
}

func execute(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", name, usage)
		return exitUsage
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	output := fs.StringP("output", "o", "json", "output format (json, yaml)")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	format := strings.ToLower(*output)
	if format != "json" && format != "yaml" {
		fmt.Fprintf(stderr, "unsupported output format %q\n", *output)
		return exitUsage
	}

	cfg, err := config.Load(fs)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		return exitFailure
	}

	log := logger.NewWithWriter(stderr, cfg.Logging.Level, false, cfg.Server.Environment)

	a, err := newApp(cfg, log, stdout, format)
	if err != nil {
		log.Error("Failed to initialize", slog.Any("err", err))
		return exitFailure
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return cmd(ctx, a, fs.Args())
}

// app holds what every command shares.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	out       io.Writer
	format    string
	endpoints backend.Endpoints
	requester *transport.Requester
}

func newApp(cfg *config.Config, log *slog.Logger, out io.Writer, format string) (*app, error) {
	endpoints, err := backend.NewEndpoints(cfg.Backend.URL)
	if err != nil {
		return nil, fmt.Errorf("backend endpoints: %w", err)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		out:       out,
		format:    format,
		endpoints: endpoints,
		requester: transport.New(nil),
	}, nil
}

func (a *app) prober(opts ...probe.Option) *probe.Prober {
	return probe.New(a.requester, a.log, opts...)
}

func (a *app) client(prober *probe.Prober) *apiclient.Client {
	return apiclient.New(a.endpoints, a.requester, prober,
		apiclient.WithLogger(a.log),
		apiclient.WithBreaker(circuitbreaker.New(a.cfg.Backend.Breaker.Threshold, a.cfg.BreakerResetTimeout())),
		apiclient.WithTimeouts(apiclient.Timeouts{
			Request: a.cfg.RequestTimeout(),
			Status:  a.cfg.StatusTimeout(),
			Info:    a.cfg.InfoTimeout(),
		}),
		apiclient.WithEnvironment(a.cfg.Server.Environment, a.cfg.ReportedBackendURL()),
	)
}

func (a *app) launcher() *launcher.Launcher {
	l := a.cfg.Launcher
	return launcher.New(launcher.Options{
		Endpoints:       a.endpoints,
		CheckTimeout:    a.cfg.CheckTimeout(),
		StartupWait:     a.cfg.StartupWait(),
		FrontendDir:     l.FrontendDir,
		EnvFile:         l.EnvFile,
		InstallCommand:  l.InstallCommand,
		FrontendCommand: l.FrontendCommand,
		BackendCommand:  l.BackendCommand,
		BackendDir:      l.BackendDir,
	}, a.prober(), launcher.NewExecRunner(), a.log)
}

func (a *app) print(v any) error {
	switch a.format {
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// report prints v and maps success onto an exit code.
func (a *app) report(v any, success bool) int {
	if err := a.print(v); err != nil {
		a.log.Error("Failed to write output", slog.Any("err", err))
		return exitFailure
	}
	if !success {
		return exitFailure
	}
	return exitOK
}

func runCheck(ctx context.Context, a *app, args []string) int {
	check := a.launcher().Check(ctx)
	return a.report(check, check.Running)
}

func runStatus(ctx context.Context, a *app, args []string) int {
	result := a.client(a.prober()).CheckStatus(ctx)
	return a.report(result, result.Success)
}

func runInfo(ctx context.Context, a *app, args []string) int {
	result := a.client(a.prober()).BackendInfo(ctx)
	return a.report(result, result.Success)
}

func runNetwork(ctx context.Context, a *app, args []string) int {
	runner := netdiag.NewRunner(a.requester, a.cfg.InfoTimeout(), a.cfg.Network.Origin, a.log)
	results := runner.Run(ctx, a.endpoints)

	ok := true
	for _, r := range results {
		ok = ok && r.OK()
	}
	return a.report(results, ok)
}

func runList(ctx context.Context, a *app, args []string) int {
	result := a.client(a.prober()).ListFiles(ctx)
	return a.report(result, result.Success)
}

func runUpload(ctx context.Context, a *app, args []string) int {
	if len(args) != 1 {
		a.log.Error("upload takes exactly one file path")
		return exitUsage
	}

	result := a.client(a.prober()).UploadPath(ctx, args[0])
	return a.report(result, result.Success)
}

func runDelete(ctx context.Context, a *app, args []string) int {
	if len(args) != 1 {
		a.log.Error("delete takes exactly one document id")
		return exitUsage
	}

	result := a.client(a.prober()).DeleteFile(ctx, args[0])
	return a.report(result, result.Success)
}

func runLaunch(ctx context.Context, a *app, args []string) int {
	if err := a.launcher().Run(ctx); err != nil {
		a.log.Error("Launch failed", slog.Any("err", err))
		return exitFailure
	}
	return exitOK
}

func runServe(ctx context.Context, a *app, args []string) int {
	if err := serve(ctx, a); err != nil {
		a.log.Error("Debug server stopped with error", slog.Any("err", err))
		return exitFailure
	}
	return exitOK
}

// serve runs the debug server, the health watcher and the metrics collector
// until ctx is cancelled or one of them fails.
func serve(ctx context.Context, a *app) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector := metrics.NewCollector(a.cfg.Metrics.BufferSize, a.log, registry)
	prober := a.prober(probe.WithEvents(collector.EventChannel()))
	client := a.client(prober)
	target := backend.New(a.endpoints)
	hub := stream.NewHub(a.log)
	runner := netdiag.NewRunner(a.requester, a.cfg.InfoTimeout(), a.cfg.Network.Origin, a.log)

	debug := handler.NewDebugHandler(a.log, client, target, runner, 0)
	router := setupRouter(a.log, debug, hub, collector, registry)

	srv, err := httpserver.New(a.cfg.Server.Address, router, a.log)
	if err != nil {
		return err
	}
	srv.RegisterOnShutdown(hub.Close)
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group
	{
		g.Add(func() error {
			collector.Run(ctx)
			return nil
		}, func(error) {
			cancel()
		})
	}
	{
		g.Add(func() error {
			healthcheck.HealthCheck(ctx, target, prober, healthcheck.Options{
				Interval: a.cfg.HealthCheckInterval(),
				Timeout:  a.cfg.StatusTimeout(),
				Events:   collector.EventChannel(),
				Publish: func(s backend.Status) {
					if err := hub.Broadcast(s); err != nil {
						a.log.Warn("Failed to publish status", slog.Any("err", err))
					}
				},
			}, a.log)
			return nil
		}, func(error) {
			cancel()
		})
	}
	{
		g.Add(srv.Start, func(error) {
			cancel()
			if err := srv.Shutdown(context.Background()); err != nil {
				a.log.Error("Error during shutdown", slog.Any("err", err))
			}
		})
	}
	{
		g.Add(func() error {
			<-ctx.Done()
			a.log.Info("Shutting down gracefully...")
			return nil
		}, func(error) {
			cancel()
		})
	}

	return g.Run()
}
