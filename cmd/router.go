package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angeloszaimis/docprobe/internal/handler"
	"github.com/angeloszaimis/docprobe/internal/metrics"
	"github.com/angeloszaimis/docprobe/internal/stream"
)

func setupRouter(log *slog.Logger, debug *handler.DebugHandler, hub *stream.Hub, collector *metrics.Collector, registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()

	debug.Register(mux)
	mux.Handle("GET /debug/stream", hub)
	mux.HandleFunc("GET /debug/metrics", collector.Handler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return handler.LogRequests(log, mux)
}
