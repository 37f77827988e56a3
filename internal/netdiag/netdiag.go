// Package netdiag runs a fixed grid of requests against the backend to tell
// apart DNS, routing, keep-alive and CORS problems.
package netdiag

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/docprobe/internal/backend"
	"github.com/angeloszaimis/docprobe/internal/probe"
	"github.com/angeloszaimis/docprobe/internal/transport"
)

type Mode string

const (
	ModePlain         Mode = "plain"
	ModeAcceptJSON    Mode = "accept-json"
	ModeNoKeepAlive   Mode = "no-keepalive"
	ModeCORSPreflight Mode = "cors-preflight"
)

const unparsableBody = "Could not parse response body"

// TestResult is one row of the grid. Status and StatusText are empty when
// no response arrived, in which case Error is set.
type TestResult struct {
	Method     string            `json:"method" yaml:"method"`
	Mode       Mode              `json:"mode" yaml:"mode"`
	URL        string            `json:"url" yaml:"url"`
	Status     int               `json:"status,omitempty" yaml:"status,omitempty"`
	StatusText string            `json:"statusText,omitempty" yaml:"statusText,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
	Data       any               `json:"data,omitempty" yaml:"data,omitempty"`
	DurationMs int64             `json:"durationMs" yaml:"durationMs"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// OK reports whether the test got any response.
func (r TestResult) OK() bool {
	return r.Error == ""
}

type Runner struct {
	pooled   *transport.Requester
	isolated *transport.Requester
	timeout  time.Duration
	origin   string
	logger   *slog.Logger
}

// NewRunner builds a runner. pooled serves every mode except no-keepalive,
// which always gets a fresh non-pooled transport. origin is sent on the
// CORS preflight.
func NewRunner(pooled *transport.Requester, timeout time.Duration, origin string, logger *slog.Logger) *Runner {
	if pooled == nil {
		pooled = transport.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		pooled:   pooled,
		isolated: transport.NewIsolated(),
		timeout:  timeout,
		origin:   origin,
		logger:   logger,
	}
}

type testCase struct {
	method string
	mode   Mode
	url    string
}

// Run executes the grid in order. A failing test never stops the run.
func (r *Runner) Run(ctx context.Context, endpoints backend.Endpoints) []TestResult {
	cases := []testCase{
		{http.MethodGet, ModePlain, endpoints.Base() + "/"},
		{http.MethodGet, ModePlain, endpoints.List()},
		{http.MethodGet, ModeAcceptJSON, endpoints.List()},
		{http.MethodGet, ModeNoKeepAlive, endpoints.List()},
		{http.MethodOptions, ModeCORSPreflight, endpoints.List()},
	}

	results := make([]TestResult, 0, len(cases))
	for _, tc := range cases {
		if ctx.Err() != nil {
			break
		}
		results = append(results, r.runOne(ctx, tc))
	}

	return results
}

func (r *Runner) runOne(ctx context.Context, tc testCase) TestResult {
	req := transport.Request{
		Method:  tc.method,
		URL:     tc.url,
		Header:  http.Header{},
		Timeout: r.timeout,
		MaxBody: probe.MaxBody,
	}
	requester := r.pooled

	switch tc.mode {
	case ModeAcceptJSON:
		req.Header.Set("Accept", "application/json")
	case ModeNoKeepAlive:
		req.Header.Set("Accept", "application/json")
		requester = r.isolated
	case ModeCORSPreflight:
		req.Header.Set("Origin", r.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	}

	out := requester.Do(ctx, req)

	result := TestResult{
		Method:     tc.method,
		Mode:       tc.mode,
		URL:        tc.url,
		DurationMs: out.Duration.Milliseconds(),
	}

	if !out.Responded() {
		result.Error = "no response"
		if out.Failure != nil {
			result.Error = out.Failure.Message
		}
		r.logger.Warn("Network test failed",
			slog.String("mode", string(tc.mode)),
			slog.String("url", tc.url),
			slog.String("error", result.Error))
		return result
	}

	res := out.Response
	result.Status = res.StatusCode
	result.StatusText = res.StatusText
	result.Headers = transport.FlattenHeader(res.Header)

	data, err := res.Decoded()
	if err != nil {
		data = unparsableBody
	}
	result.Data = data

	r.logger.Debug("Network test finished",
		slog.String("mode", string(tc.mode)),
		slog.String("url", tc.url),
		slog.Int("status", res.StatusCode))

	return result
}
