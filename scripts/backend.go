//go:build ignore

// Backend serves the in-memory document backend for local testing of the
// probe, the API client and the launcher.
//
// Usage:
//
//	go run scripts/backend.go -port 8000
//	go run scripts/backend.go -port 8000 -fail 503
//	go run scripts/backend.go -port 8000 -delay 4s
//
// -fail makes every document route answer with the given status and -delay
// stalls every request, which is enough to exercise each probe outcome.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/angeloszaimis/docprobe/internal/mockbackend"
	"github.com/angeloszaimis/docprobe/pkg/logger"
)

func main() {
	var (
		port    = flag.Int("port", 8000, "listen port")
		fail    = flag.Int("fail", 0, "status code returned by every document route (0 = off)")
		delay   = flag.Duration("delay", 0, "delay before answering each request")
		maxSize = flag.Int64("max-size", mockbackend.DefaultMaxUploadSize, "maximum upload size in bytes")
		level   = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	log := logger.New(*level, false, "dev")

	srv := mockbackend.New(mockbackend.Options{
		FailStatus:    *fail,
		Delay:         *delay,
		MaxUploadSize: *maxSize,
		Logger:        log,
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Info("Mock backend listening",
		slog.String("addr", addr),
		slog.Int("fail", *fail),
		slog.Duration("delay", *delay))

	server := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Error("Mock backend stopped", slog.Any("err", err))
		os.Exit(1)
	}
}
