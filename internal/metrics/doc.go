// Package metrics collects probe statistics for the backend being watched.
//
// Probes and the health watcher push events into a buffered channel; a
// single goroutine folds them into per-endpoint counters:
//   - probe counts by outcome class (available, running, server_error, ...)
//   - latency average and percentiles (P50, P95, P99)
//   - HTTP status code distribution
//   - last known health state
//
// Sends are non-blocking, so a slow collector never delays a probe. The same
// events also feed Prometheus collectors registered on the registry passed to
// NewCollector.
//
// Example usage:
//
//	collector := metrics.NewCollector(256, logger, prometheus.NewRegistry())
//	collector.Start(ctx)
//
//	metrics.Emit(collector.EventChannel(), metrics.Event{
//		Type:       metrics.EventProbeCompleted,
//		Endpoint:   "http://localhost:8000/api/v1/documents/list",
//		Outcome:    "available",
//		Success:    true,
//		StatusCode: 200,
//		Duration:   12 * time.Millisecond,
//	})
//
//	snapshot := collector.Snapshot()
package metrics
