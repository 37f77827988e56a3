package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/docprobe/internal/backend"
	"github.com/angeloszaimis/docprobe/internal/circuitbreaker"
	"github.com/angeloszaimis/docprobe/internal/probe"
	"github.com/angeloszaimis/docprobe/internal/transport"
)

const defaultDeleteMessage = "File deleted successfully"

// Timeouts bounds each kind of call.
type Timeouts struct {
	Request time.Duration
	Status  time.Duration
	Info    time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Request: 30 * time.Second,
		Status:  10 * time.Second,
		Info:    5 * time.Second,
	}
}

type Client struct {
	endpoints   backend.Endpoints
	requester   *transport.Requester
	prober      *probe.Prober
	breaker     *circuitbreaker.Breaker
	logger      *slog.Logger
	timeouts    Timeouts
	environment string
	urlSource   string
}

type Option func(*Client)

// WithBreaker guards upload, list and delete with cb. Status and info
// probes are never guarded.
func WithBreaker(cb *circuitbreaker.Breaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

func WithTimeouts(t Timeouts) Option {
	return func(c *Client) {
		c.timeouts = t
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithEnvironment sets what BackendInfo reports about the deployment and
// where the base URL came from.
func WithEnvironment(environment, urlSource string) Option {
	return func(c *Client) {
		c.environment = environment
		c.urlSource = urlSource
	}
}

func New(endpoints backend.Endpoints, requester *transport.Requester, prober *probe.Prober, opts ...Option) *Client {
	c := &Client{
		endpoints:   endpoints,
		requester:   requester,
		prober:      prober,
		logger:      slog.Default(),
		timeouts:    DefaultTimeouts(),
		environment: "unknown",
		urlSource:   "not set (using default)",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.requester == nil {
		c.requester = transport.New(nil)
	}
	if c.prober == nil {
		c.prober = probe.New(c.requester, c.logger)
	}

	return c
}

func (c *Client) Endpoints() backend.Endpoints {
	return c.endpoints
}

// UploadFile sends the content of r as multipart field "file".
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) UploadResult {
	if err := validation.Validate(name, validation.Required); err != nil {
		return UploadResult{Error: fmt.Sprintf("Request setup error: file name %v", err)}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err == nil {
		_, err = io.Copy(part, r)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return UploadResult{Error: fmt.Sprintf("Request setup error: %v", err)}
	}

	c.logger.Info("Uploading file",
		slog.String("url", c.endpoints.Upload()),
		slog.String("file", name),
		slog.Int("bytes", body.Len()))

	out, errMsg := c.send(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.endpoints.Upload(),
		Header: http.Header{
			"Content-Type": []string{mw.FormDataContentType()},
			"Accept":       []string{"application/json"},
		},
		Body: &body,
	}, msgUploadNoResponse)
	if errMsg != "" {
		return UploadResult{Error: errMsg}
	}

	var result UploadResult
	if err := json.Unmarshal(out.Response.Body, &result); err != nil {
		return UploadResult{Error: fmt.Sprintf("Failed to upload file: %v", err)}
	}
	result.Success = true
	result.Error = ""

	return result
}

// UploadPath uploads the file at path under its base name.
func (c *Client) UploadPath(ctx context.Context, path string) UploadResult {
	f, err := os.Open(path)
	if err != nil {
		return UploadResult{Error: fmt.Sprintf("Request setup error: %v", err)}
	}
	defer f.Close()

	return c.UploadFile(ctx, filepath.Base(path), f)
}

func (c *Client) ListFiles(ctx context.Context) ListResult {
	out, errMsg := c.send(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    c.endpoints.List(),
		Header: http.Header{"Accept": []string{"application/json"}},
	}, msgNoResponse)
	if errMsg != "" {
		return ListResult{Error: errMsg}
	}

	files := []Document{}
	if err := json.Unmarshal(out.Response.Body, &files); err != nil {
		return ListResult{Error: fmt.Sprintf("Failed to list files: %v", err)}
	}

	return ListResult{Success: true, Files: files}
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) DeleteResult {
	if err := validation.Validate(fileID, validation.Required); err != nil {
		return DeleteResult{Error: fmt.Sprintf("Request setup error: file id %v", err)}
	}

	out, errMsg := c.send(ctx, transport.Request{
		Method: http.MethodDelete,
		URL:    c.endpoints.Document(fileID),
		Header: http.Header{"Accept": []string{"application/json"}},
	}, msgNoResponse)
	if errMsg != "" {
		return DeleteResult{Error: errMsg}
	}

	var body struct {
		Message string `json:"message"`
	}
	// An empty or non-JSON body still means the delete went through.
	_ = json.Unmarshal(out.Response.Body, &body)
	if body.Message == "" {
		body.Message = defaultDeleteMessage
	}

	return DeleteResult{Success: true, Message: body.Message}
}

// CheckStatus probes the list endpoint. Any status below 500 means the
// backend is running.
func (c *Client) CheckStatus(ctx context.Context) probe.Result {
	c.logger.Debug("Checking backend status", slog.String("url", c.endpoints.List()))
	return c.prober.Probe(ctx, c.endpoints.List(), c.timeouts.Status)
}

// BackendInfo reports the client configuration together with a connection
// test that accepts any status code.
func (c *Client) BackendInfo(ctx context.Context) InfoResult {
	info := Info{
		BaseURL:        c.endpoints.Base(),
		APIURL:         c.endpoints.API(),
		DocumentsURL:   c.endpoints.Documents(),
		Environment:    c.environment,
		BackendURL:     c.urlSource,
		Runtime:        fmt.Sprintf("server (%s/%s, %s)", runtime.GOOS, runtime.GOARCH, runtime.Version()),
		ConnectionTest: probe.Pending(),
	}

	info.ConnectionTest = c.prober.Diagnose(ctx, c.endpoints.List(), c.timeouts.Info)

	return InfoResult{
		Success: info.ConnectionTest.Status == probe.StatusCompleted,
		Info:    info,
	}
}

// send performs one guarded document call. It returns the outcome and, when
// the call did not succeed, the message to show.
func (c *Client) send(ctx context.Context, req transport.Request, noResponse string) (transport.Outcome, string) {
	if err := transport.ValidateURL(req.URL); err != nil {
		return transport.Outcome{}, fmt.Sprintf("Request setup error: %v", err)
	}

	if !c.breaker.Allow() {
		c.logger.Warn("Backend marked unreachable, skipping request",
			slog.String("method", req.Method),
			slog.String("url", req.URL))
		return transport.Outcome{}, msgBreakerOpen
	}

	req.Timeout = c.timeouts.Request
	out := c.requester.Do(ctx, req)

	switch out.Kind {
	case transport.KindNoResponse:
		c.breaker.Failure()
	case transport.KindResponded:
		c.breaker.Success()
	}

	if !succeeded(out) {
		msg := failureMessage(out, noResponse)
		c.logger.Error("API request failed",
			slog.String("method", req.Method),
			slog.String("url", req.URL),
			slog.Int("status", out.StatusCode()),
			slog.String("error", msg))
		return out, msg
	}

	c.logger.Debug("API response",
		slog.String("method", req.Method),
		slog.String("url", req.URL),
		slog.Int("status", out.StatusCode()),
		slog.Duration("duration", out.Duration))

	return out, ""
}
