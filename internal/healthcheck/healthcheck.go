package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/docprobe/internal/backend"
	"github.com/angeloszaimis/docprobe/internal/metrics"
	"github.com/angeloszaimis/docprobe/internal/probe"
)

// Prober is the part of probe.Prober the watcher needs.
type Prober interface {
	Probe(ctx context.Context, endpointURL string, timeout time.Duration) probe.Result
}

type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	// Events receives a health-changed event on every transition.
	Events chan<- metrics.Event
	// Publish is called with the backend status after every probe.
	Publish func(backend.Status)
}

// HealthCheck probes the backend list endpoint immediately and then every
// opts.Interval until ctx is done.
func HealthCheck(
	ctx context.Context,
	target *backend.Backend,
	prober Prober,
	opts Options,
	logger *slog.Logger,
) {
	endpoint := target.Endpoints().List()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	check(ctx, target, prober, opts, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("server", endpoint))
			return

		case <-ticker.C:
			check(ctx, target, prober, opts, logger)
		}
	}
}

func check(ctx context.Context, target *backend.Backend, prober Prober, opts Options, logger *slog.Logger) {
	endpoint := target.Endpoints().List()

	start := time.Now()
	result := prober.Probe(ctx, endpoint, opts.Timeout)
	if ctx.Err() != nil {
		return
	}

	changed := target.Record(result, time.Since(start))

	if changed {
		if result.Success {
			logger.Info("Backend is back up",
				slog.String("server", endpoint),
				slog.Int("status", result.Status))
		} else {
			logger.Warn("Backend is down",
				slog.String("server", endpoint),
				slog.String("reason", result.Text()))
		}

		metrics.Emit(opts.Events, metrics.Event{
			Type:     metrics.EventHealthChanged,
			Endpoint: endpoint,
			Healthy:  result.Success,
		})
	}

	if opts.Publish != nil {
		opts.Publish(target.Status())
	}
}
