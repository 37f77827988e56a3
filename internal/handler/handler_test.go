package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/docprobe/internal/apiclient"
	"github.com/angeloszaimis/docprobe/internal/backend"
	"github.com/angeloszaimis/docprobe/internal/handler"
	"github.com/angeloszaimis/docprobe/internal/mockbackend"
	"github.com/angeloszaimis/docprobe/internal/netdiag"
	"github.com/angeloszaimis/docprobe/internal/probe"
	"github.com/angeloszaimis/docprobe/internal/transport"
	"github.com/angeloszaimis/docprobe/pkg/logger"
)

var _ = Describe("DebugHandler", func() {
	var (
		mock     *mockbackend.Server
		upstream *httptest.Server
		router   *http.ServeMux
		target   *backend.Backend
	)

	build := func(baseURL string, maxUpload int64) {
		endpoints, err := backend.NewEndpoints(baseURL)
		Expect(err).NotTo(HaveOccurred())

		log := logger.Discard()
		requester := transport.New(nil)
		prober := probe.New(requester, log)
		client := apiclient.New(endpoints, requester, prober, apiclient.WithLogger(log))
		runner := netdiag.NewRunner(requester, time.Second, "http://localhost:3000", log)
		target = backend.New(endpoints)

		router = http.NewServeMux()
		handler.NewDebugHandler(log, client, target, runner, maxUpload).Register(router)
	}

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	multipartRequest := func(field, name string, content []byte) *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile(field, name)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	BeforeEach(func() {
		mock = mockbackend.New(mockbackend.Options{})
		upstream = httptest.NewServer(mock)
		build(upstream.URL, 0)
	})

	AfterEach(func() {
		upstream.Close()
	})

	Describe("Healthz", func() {
		It("should report ok with the watcher state", func() {
			target.Record(probe.Result{Success: true, Status: 200, Message: probe.MessageAvailable}, time.Millisecond)

			rec := serve(httptest.NewRequest(http.MethodGet, "/healthz", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body map[string]any
			decode(rec, &body)
			Expect(body).To(HaveKeyWithValue("status", "ok"))
			Expect(body["backend"]).To(HaveKeyWithValue("healthy", true))
		})
	})

	Describe("Status", func() {
		It("should return 200 when the backend answers", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/debug/status", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result probe.Result
			decode(rec, &result)
			Expect(result.Success).To(BeTrue())
			Expect(result.Message).To(Equal(probe.MessageAvailable))
		})

		It("should return 502 when the backend is unreachable", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			addr := ln.Addr().String()
			ln.Close()
			build("http://"+addr, 0)

			rec := serve(httptest.NewRequest(http.MethodGet, "/debug/status", nil))
			Expect(rec.Code).To(Equal(http.StatusBadGateway))

			var result probe.Result
			decode(rec, &result)
			Expect(result.Error).To(Equal(probe.MessageRefused))
		})
	})

	Describe("Info", func() {
		It("should report the derived URLs and the connection test", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/debug/info", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result apiclient.InfoResult
			decode(rec, &result)
			Expect(result.Info.BaseURL).To(Equal(upstream.URL))
			Expect(result.Info.DocumentsURL).To(Equal(upstream.URL + "/api/v1/documents"))
			Expect(result.Info.ConnectionTest.Status).To(Equal(probe.StatusCompleted))
		})
	})

	Describe("Network", func() {
		It("should run the full grid", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/debug/network", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				Endpoint string               `json:"endpoint"`
				Tests    []netdiag.TestResult `json:"tests"`
			}
			decode(rec, &body)
			Expect(body.Endpoint).To(Equal(upstream.URL))
			Expect(body.Tests).To(HaveLen(5))
		})
	})

	Describe("Documents", func() {
		It("should list stored documents", func() {
			mock.Add("report.pdf", []byte("pdf"))

			rec := serve(httptest.NewRequest(http.MethodGet, "/api/documents", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result apiclient.ListResult
			decode(rec, &result)
			Expect(result.Success).To(BeTrue())
			Expect(result.Files).To(HaveLen(1))
			Expect(result.Files[0].Extension).To(Equal(".pdf"))
		})

		It("should upload a document", func() {
			rec := serve(multipartRequest("file", "notes.txt", []byte("hello")))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result apiclient.UploadResult
			decode(rec, &result)
			Expect(result.Success).To(BeTrue())
			Expect(result.FileName).To(Equal("notes.txt"))
			Expect(result.ExtractedText).To(Equal("hello"))
			Expect(mock.Len()).To(Equal(1))
		})

		It("should reject an upload without the file field", func() {
			rec := serve(multipartRequest("attachment", "notes.txt", []byte("hello")))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(mock.Len()).To(BeZero())
		})

		It("should reject an upload with a blank file name", func() {
			rec := serve(multipartRequest("file", " ", []byte("hello")))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var result apiclient.UploadResult
			decode(rec, &result)
			Expect(result.Success).To(BeFalse())
			Expect(result.Error).To(HavePrefix("Request setup error: file name"))
			Expect(mock.Len()).To(BeZero())
		})

		It("should reject an upload over the limit", func() {
			build(upstream.URL, 1024)

			rec := serve(multipartRequest("file", "big.txt", bytes.Repeat([]byte("x"), 4096)))
			Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(mock.Len()).To(BeZero())
		})

		It("should pass backend rejections through as 502", func() {
			rec := serve(multipartRequest("file", "tool.exe", []byte("MZ")))
			Expect(rec.Code).To(Equal(http.StatusBadGateway))

			var result apiclient.UploadResult
			decode(rec, &result)
			Expect(result.Error).To(Equal("Server error: 400 - Unsupported file type: .exe"))
		})

		It("should delete a document", func() {
			id := mock.Add("report.pdf", []byte("pdf"))

			rec := serve(httptest.NewRequest(http.MethodDelete, "/api/documents/"+id, nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result apiclient.DeleteResult
			decode(rec, &result)
			Expect(result.Success).To(BeTrue())
			Expect(result.Message).To(Equal("File deleted successfully"))
			Expect(mock.Len()).To(BeZero())
		})

		It("should report a missing document as 502", func() {
			rec := serve(httptest.NewRequest(http.MethodDelete, "/api/documents/nope", nil))
			Expect(rec.Code).To(Equal(http.StatusBadGateway))

			var result apiclient.DeleteResult
			decode(rec, &result)
			Expect(result.Error).To(Equal("Server error: 404 - File with ID nope not found"))
		})
	})

	Describe("LogRequests", func() {
		It("should pass the status code through", func() {
			wrapped := handler.LogRequests(logger.Discard(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))

			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(rec.Code).To(Equal(http.StatusTeapot))
		})
	})
})
