package probe

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/docprobe/internal/metrics"
	"github.com/angeloszaimis/docprobe/internal/transport"
)

const (
	// DefaultTimeout bounds a probe called with a non-positive timeout.
	DefaultTimeout = 5 * time.Second

	// MaxBody caps the bytes kept from a probed response.
	MaxBody = 1 << 20
)

type Prober struct {
	requester *transport.Requester
	logger    *slog.Logger
	events    chan<- metrics.Event
}

type Option func(*Prober)

// WithEvents makes the prober emit a metrics event after every Probe.
func WithEvents(ch chan<- metrics.Event) Option {
	return func(p *Prober) {
		p.events = ch
	}
}

func New(requester *transport.Requester, logger *slog.Logger, opts ...Option) *Prober {
	if requester == nil {
		requester = transport.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Prober{
		requester: requester,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Probe issues a single GET to endpointURL bounded by timeout and classifies
// the outcome. It makes no retries and always returns a Result. A
// non-positive timeout falls back to DefaultTimeout.
func (p *Prober) Probe(ctx context.Context, endpointURL string, timeout time.Duration) Result {
	out := p.requester.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     endpointURL,
		Header:  http.Header{"Accept": []string{"application/json"}},
		Timeout: bounded(timeout),
		MaxBody: MaxBody,
	})

	result := Classify(out)

	if result.Success {
		p.logger.Debug("Backend probe succeeded",
			slog.String("endpoint", endpointURL),
			slog.Int("status", result.Status),
			slog.Duration("duration", out.Duration))
	} else {
		p.logger.Warn("Backend probe failed",
			slog.String("endpoint", endpointURL),
			slog.String("class", string(result.Class)),
			slog.String("error", result.Error),
			slog.Duration("duration", out.Duration))
	}

	metrics.Emit(p.events, metrics.Event{
		Type:       metrics.EventProbeCompleted,
		Endpoint:   endpointURL,
		Outcome:    string(result.Class),
		Success:    result.Success,
		StatusCode: out.StatusCode(),
		Duration:   out.Duration,
	})

	return result
}

// Diagnose performs the same single GET but accepts every status and keeps
// the raw response or failure fields for display.
func (p *Prober) Diagnose(ctx context.Context, endpointURL string, timeout time.Duration) Diagnostic {
	out := p.requester.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     endpointURL,
		Timeout: bounded(timeout),
		MaxBody: MaxBody,
	})

	diag := DiagnosticFrom(out)
	p.logger.Debug("Backend connection test finished",
		slog.String("endpoint", endpointURL),
		slog.String("status", string(diag.Status)),
		slog.Duration("duration", out.Duration))

	return diag
}

func bounded(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}
