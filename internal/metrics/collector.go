package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type EventType string

const (
	EventProbeCompleted EventType = "probe_completed"
	EventHealthChanged  EventType = "health_changed"
)

type Event struct {
	Type       EventType
	Timestamp  time.Time
	Endpoint   string
	Outcome    string
	Success    bool
	StatusCode int
	Duration   time.Duration
	Healthy    bool
}

type Collector struct {
	eventCh chan Event
	metrics *Metrics
	prom    *promMetrics
	logger  *slog.Logger
}

// NewCollector creates a collector with a buffer of bufferSize events. When
// reg is non-nil the Prometheus series are registered on it.
func NewCollector(bufferSize int, logger *slog.Logger, reg prometheus.Registerer) *Collector {
	if bufferSize < 1 {
		bufferSize = 1
	}

	c := &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}

	if reg != nil {
		c.prom = newPromMetrics(reg)
	}

	return c
}

func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

// Emit sends event without blocking. Events are dropped when ch is nil or full.
func Emit(ch chan<- Event, event Event) {
	if ch == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case ch <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.Run(ctx)
}

// Run processes events until ctx is done, then drains what is buffered.
func (c *Collector) Run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Endpoint, event.Outcome, event.Success, event.StatusCode, event.Duration)
		if c.prom != nil {
			c.prom.observeProbe(event)
		}

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Endpoint, event.Healthy)
		if c.prom != nil {
			c.prom.setUp(event.Endpoint, event.Healthy)
		}

	default:
		c.logger.Debug("Ignoring unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
