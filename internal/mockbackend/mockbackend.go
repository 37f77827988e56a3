// Package mockbackend is an in-memory stand-in for the document backend. It
// serves the list, upload and delete routes with the same JSON shapes and
// can be told to fail or stall.
package mockbackend

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const DefaultMaxUploadSize = 10 << 20

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".txt":  true,
}

type Options struct {
	// FailStatus, when non-zero, is returned by every document route.
	FailStatus int
	// Delay stalls every request, honouring client cancellation.
	Delay         time.Duration
	MaxUploadSize int64
	Logger        *slog.Logger
}

// Document is one entry of the list route.
type Document struct {
	ID        *string `json:"id"`
	Name      string  `json:"name"`
	Size      int64   `json:"size"`
	Extension string  `json:"extension"`
}

type storedFile struct {
	id       string
	name     string
	data     []byte
	uploaded time.Time
}

type Server struct {
	opts  Options
	mux   *http.ServeMux
	mutex sync.Mutex
	files map[string]storedFile
}

func New(opts Options) *Server {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		opts:  opts,
		files: make(map[string]storedFile),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/v1/documents/list", s.handleList)
	mux.HandleFunc("POST /api/v1/documents/upload", s.handleUpload)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", s.handleDelete)
	s.mux = mux

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.opts.Logger.Info("request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("from", r.RemoteAddr))

	if s.opts.Delay > 0 {
		select {
		case <-time.After(s.opts.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if s.opts.FailStatus != 0 && strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, s.opts.FailStatus, map[string]any{"detail": http.StatusText(s.opts.FailStatus)})
		return
	}

	s.mux.ServeHTTP(w, r)
}

// Add stores a file directly, bypassing the upload route.
func (s *Server) Add(name string, data []byte) string {
	id := newUUID()

	s.mutex.Lock()
	s.files[id] = storedFile{id: id, name: name, data: data, uploaded: time.Now()}
	s.mutex.Unlock()

	return id
}

func (s *Server) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.files)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "Document processing backend"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	files := make([]storedFile, 0, len(s.files))
	for _, f := range s.files {
		files = append(files, f)
	}
	s.mutex.Unlock()

	sort.Slice(files, func(i, j int) bool {
		if !files[i].uploaded.Equal(files[j].uploaded) {
			return files[i].uploaded.Before(files[j].uploaded)
		}
		return files[i].name < files[j].name
	})

	docs := make([]Document, 0, len(files))
	for _, f := range files {
		id := f.id
		docs = append(docs, Document{
			ID:        &id,
			Name:      f.id + "_" + f.name,
			Size:      int64(len(f.data)),
			Extension: strings.ToLower(filepath.Ext(f.name)),
		})
	}

	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.tooLarge(w)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
		return
	}

	if int64(len(data)) > s.opts.MaxUploadSize {
		s.tooLarge(w)
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"detail": fmt.Sprintf("Unsupported file type: %s", ext),
		})
		return
	}

	id := s.Add(header.Filename, data)

	extracted := ""
	if ext == ".txt" {
		extracted = string(data)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"file_id":        id,
		"file_name":      header.Filename,
		"file_type":      strings.TrimPrefix(ext, "."),
		"file_size":      len(data),
		"message":        "File uploaded successfully",
		"extracted_text": extracted,
		"json_result": map[string]any{
			"file_name":  header.Filename,
			"characters": len(extracted),
		},
		"processing_time": time.Since(start).Seconds(),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mutex.Lock()
	_, ok := s.files[id]
	delete(s.files, id)
	s.mutex.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"detail": fmt.Sprintf("File with ID %s not found", id),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"file_id": id,
		"message": "File deleted successfully",
	})
}

func (s *Server) tooLarge(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"detail": fmt.Sprintf("File too large. Maximum size is %dMB", s.opts.MaxUploadSize>>20),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// newUUID generates a random v4 UUID per RFC 4122.
func newUUID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hex.EncodeToString(b[0:4]),
		hex.EncodeToString(b[4:6]),
		hex.EncodeToString(b[6:8]),
		hex.EncodeToString(b[8:10]),
		hex.EncodeToString(b[10:16]),
	)
}
