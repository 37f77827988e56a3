//go:build ignore

// Probeload fires concurrent availability probes at a backend and prints the
// collected probe metrics, to see how outcome classes and latency behave
// under load.
//
// Usage:
//
//	go run scripts/probeload.go -url http://localhost:8000 -concurrency 10 -probes 500
//	go run scripts/probeload.go -url http://localhost:8000 -timeout 1s -out summary.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/angeloszaimis/docprobe/internal/backend"
	"github.com/angeloszaimis/docprobe/internal/metrics"
	"github.com/angeloszaimis/docprobe/internal/probe"
	"github.com/angeloszaimis/docprobe/internal/transport"
	"github.com/angeloszaimis/docprobe/pkg/logger"
)

type summary struct {
	Target      string           `json:"target"`
	Probes      int              `json:"probes"`
	Concurrency int              `json:"concurrency"`
	Elapsed     string           `json:"elapsed"`
	PerSecond   float64          `json:"per_second"`
	Metrics     metrics.Snapshot `json:"metrics"`
}

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8000", "backend base URL")
		concurrency = flag.Int("concurrency", 10, "number of concurrent workers")
		probes      = flag.Int("probes", 100, "total number of probes")
		timeout     = flag.Duration("timeout", 3*time.Second, "per-probe timeout")
		outJSON     = flag.String("out", "", "write the JSON summary to this file as well")
		level       = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	log := logger.New(*level, false, "dev")

	endpoints, err := backend.NewEndpoints(*baseURL)
	if err != nil {
		log.Error("Invalid backend URL", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	collector := metrics.NewCollector(*probes, log, nil)
	done := make(chan struct{})
	go func() {
		collector.Run(ctx)
		close(done)
	}()

	prober := probe.New(transport.New(nil), log, probe.WithEvents(collector.EventChannel()))

	jobs := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				prober.Probe(ctx, endpoints.List(), *timeout)
			}
		}()
	}

	for i := 0; i < *probes; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	cancel()
	<-done

	s := summary{
		Target:      endpoints.List(),
		Probes:      *probes,
		Concurrency: *concurrency,
		Elapsed:     elapsed.Round(time.Millisecond).String(),
		PerSecond:   float64(*probes) / elapsed.Seconds(),
		Metrics:     collector.Snapshot(),
	}

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Error("Failed to encode summary", slog.Any("err", err))
		os.Exit(1)
	}
	fmt.Println(string(out))

	if *outJSON != "" {
		if err := os.WriteFile(*outJSON, out, 0o644); err != nil {
			log.Error("Failed to write summary", slog.String("file", *outJSON), slog.Any("err", err))
			os.Exit(1)
		}
	}
}
