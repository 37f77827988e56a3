package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/docprobe/internal/apiclient"
	"github.com/angeloszaimis/docprobe/internal/backend"
	"github.com/angeloszaimis/docprobe/internal/netdiag"
	"github.com/angeloszaimis/docprobe/internal/probe"
)

const defaultMaxUpload = 50 << 20

// Client is the part of apiclient.Client the handlers call.
type Client interface {
	UploadFile(ctx context.Context, name string, r io.Reader) apiclient.UploadResult
	ListFiles(ctx context.Context) apiclient.ListResult
	DeleteFile(ctx context.Context, fileID string) apiclient.DeleteResult
	CheckStatus(ctx context.Context) probe.Result
	BackendInfo(ctx context.Context) apiclient.InfoResult
	Endpoints() backend.Endpoints
}

type DebugHandler struct {
	logger    *slog.Logger
	client    Client
	target    *backend.Backend
	runner    *netdiag.Runner
	maxUpload int64
	started   time.Time
}

// NewDebugHandler wires the debug routes. target may be nil when no watcher
// runs; maxUpload <= 0 selects a 50MB limit.
func NewDebugHandler(logger *slog.Logger, client Client, target *backend.Backend, runner *netdiag.Runner, maxUpload int64) *DebugHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	return &DebugHandler{
		logger:    logger,
		client:    client,
		target:    target,
		runner:    runner,
		maxUpload: maxUpload,
		started:   time.Now(),
	}
}

// Register mounts the debug and document routes on mux.
func (h *DebugHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /debug/status", h.Status)
	mux.HandleFunc("GET /debug/info", h.Info)
	mux.HandleFunc("GET /debug/network", h.Network)
	mux.HandleFunc("GET /api/documents", h.ListDocuments)
	mux.HandleFunc("POST /api/documents/upload", h.UploadDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", h.DeleteDocument)
}

type healthResponse struct {
	Status  string          `json:"status"`
	Uptime  string          `json:"uptime"`
	Backend *backend.Status `json:"backend,omitempty"`
}

// Healthz reports that the debug server is alive, with the last watcher
// observation when there is one. It never fails because the backend is down.
func (h *DebugHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	}
	if h.target != nil {
		status := h.target.Status()
		resp.Backend = &status
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *DebugHandler) Status(w http.ResponseWriter, r *http.Request) {
	result := h.client.CheckStatus(r.Context())
	writeJSON(w, statusFor(result.Success), result)
}

func (h *DebugHandler) Info(w http.ResponseWriter, r *http.Request) {
	result := h.client.BackendInfo(r.Context())
	writeJSON(w, statusFor(result.Success), result)
}

type networkResponse struct {
	Endpoint string               `json:"endpoint"`
	Tests    []netdiag.TestResult `json:"tests"`
}

func (h *DebugHandler) Network(w http.ResponseWriter, r *http.Request) {
	tests := h.runner.Run(r.Context(), h.client.Endpoints())
	writeJSON(w, http.StatusOK, networkResponse{
		Endpoint: h.client.Endpoints().Base(),
		Tests:    tests,
	})
}

func (h *DebugHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	result := h.client.ListFiles(r.Context())
	writeJSON(w, statusFor(result.Success), result)
}

func (h *DebugHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, apiclient.UploadResult{
				Error: fmt.Sprintf("File too large. Maximum size is %dMB", h.maxUpload>>20),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, apiclient.UploadResult{
			Error: fmt.Sprintf("Request setup error: multipart field %q: %v", "file", err),
		})
		return
	}
	defer file.Close()

	if err := validation.Validate(strings.TrimSpace(header.Filename), validation.Required); err != nil {
		writeJSON(w, http.StatusBadRequest, apiclient.UploadResult{
			Error: fmt.Sprintf("Request setup error: file name %v", err),
		})
		return
	}

	result := h.client.UploadFile(r.Context(), header.Filename, file)
	writeJSON(w, statusFor(result.Success), result)
}

func (h *DebugHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.Validate(id, validation.Required, validation.Length(1, 256)); err != nil {
		writeJSON(w, http.StatusBadRequest, apiclient.DeleteResult{
			Error: fmt.Sprintf("Request setup error: file id %v", err),
		})
		return
	}

	result := h.client.DeleteFile(r.Context(), id)
	writeJSON(w, statusFor(result.Success), result)
}

func statusFor(success bool) int {
	if success {
		return http.StatusOK
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
