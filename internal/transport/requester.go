package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Request describes one exchange. A zero Timeout means the caller's context
// is the only bound. A positive MaxBody truncates the captured body to that
// many bytes; zero reads it whole.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    io.Reader
	Timeout time.Duration
	MaxBody int64
}

// Requester turns Requests into Outcomes. It never follows a throw-on-status
// policy: every status code the remote sends is captured in the Outcome.
type Requester struct {
	client *http.Client
}

// New creates a Requester on top of client. A nil client gets a fresh
// http.Client with default transport.
func New(client *http.Client) *Requester {
	if client == nil {
		client = &http.Client{}
	}

	return &Requester{client: client}
}

// NewIsolated creates a Requester whose transport keeps no idle connections,
// so every exchange dials a new connection.
func NewIsolated() *Requester {
	return New(&http.Client{
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		},
	})
}

// Do performs req and classifies the result. The deadline derived from
// req.Timeout covers dialing, headers and reading the body.
func (r *Requester) Do(ctx context.Context, req Request) (out Outcome) {
	start := time.Now()
	defer func() {
		out.Duration = time.Since(start)
	}()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if err := ValidateURL(req.URL); err != nil {
		return setupFailed(req, method, err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, req.Body)
	if err != nil {
		return setupFailed(req, method, err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	res, err := r.client.Do(httpReq)
	if err != nil {
		return noResponse(ctx, req, method, err)
	}
	defer res.Body.Close()

	var reader io.Reader = res.Body
	if req.MaxBody > 0 {
		reader = io.LimitReader(res.Body, req.MaxBody)
	}

	// The deadline covers the body, so a stalled body is a failed exchange.
	body, err := io.ReadAll(reader)
	if err != nil {
		return noResponse(ctx, req, method, err)
	}

	return Outcome{
		Kind: KindResponded,
		Response: &Response{
			StatusCode:  res.StatusCode,
			StatusText:  statusText(res),
			Header:      res.Header.Clone(),
			ContentType: res.Header.Get("Content-Type"),
			Body:        body,
		},
	}
}

// ValidateURL rejects URLs that cannot be sent: unparsable, non-http(s)
// or host-less.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("empty URL")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported protocol scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("missing host in URL %q", raw)
	}

	return nil
}

// FailureCode maps a transport error onto one of the Code constants, or ""
// when the cause is not recognised.
func FailureCode(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return CodeConnRefused
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return CodeTimedOut
		}
		return CodeNotFound
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimedOut
	}

	if errors.Is(err, context.Canceled) {
		return CodeAborted
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimedOut
	}

	if errors.Is(err, syscall.ECONNRESET) {
		return CodeConnReset
	}

	return ""
}

func noResponse(ctx context.Context, req Request, method string, err error) Outcome {
	code := FailureCode(err)
	if code == "" && ctx.Err() != nil {
		code = FailureCode(ctx.Err())
	}

	return Outcome{
		Kind: KindNoResponse,
		Failure: &Failure{
			Code:    code,
			Message: err.Error(),
			URL:     req.URL,
			Method:  method,
			Timeout: req.Timeout,
		},
	}
}

func setupFailed(req Request, method string, err error) Outcome {
	return Outcome{
		Kind: KindSetupFailed,
		Failure: &Failure{
			Code:    CodeBadRequest,
			Message: err.Error(),
			URL:     req.URL,
			Method:  method,
			Timeout: req.Timeout,
		},
	}
}

func statusText(res *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode)))
	if text == "" {
		text = http.StatusText(res.StatusCode)
	}
	return text
}
