package transport_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/docprobe/internal/transport"
)

var _ = Describe("Requester", func() {
	var requester *transport.Requester

	BeforeEach(func() {
		requester = transport.New(nil)
	})

	Context("when the remote responds", func() {
		var server *httptest.Server

		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/ok":
					w.Header().Set("Content-Type", "application/json")
					w.Write([]byte(`[]`))
				case "/boom":
					w.WriteHeader(http.StatusInternalServerError)
				case "/large":
					w.Write(bytes.Repeat([]byte("a"), 3<<20))
				case "/stall":
					w.WriteHeader(http.StatusOK)
					w.Write([]byte("["))
					w.(http.Flusher).Flush()
					<-r.Context().Done()
				default:
					http.NotFound(w, r)
				}
			}))
		})

		AfterEach(func() {
			server.Close()
		})

		It("captures a 200 with body and headers", func() {
			out := requester.Do(context.Background(), transport.Request{URL: server.URL + "/ok"})

			Expect(out.Kind).To(Equal(transport.KindResponded))
			Expect(out.Responded()).To(BeTrue())
			Expect(out.StatusCode()).To(Equal(http.StatusOK))
			Expect(out.Response.StatusText).To(Equal("OK"))
			Expect(out.Response.ContentType).To(Equal("application/json"))
			Expect(string(out.Response.Body)).To(Equal("[]"))
			Expect(out.Failure).To(BeNil())
		})

		It("reads the whole body when no cap is set", func() {
			out := requester.Do(context.Background(), transport.Request{URL: server.URL + "/large"})

			Expect(out.Kind).To(Equal(transport.KindResponded))
			Expect(out.Response.Body).To(HaveLen(3 << 20))
		})

		It("truncates the body to MaxBody", func() {
			out := requester.Do(context.Background(), transport.Request{URL: server.URL + "/large", MaxBody: 1024})

			Expect(out.Kind).To(Equal(transport.KindResponded))
			Expect(out.Response.Body).To(HaveLen(1024))
		})

		It("fails with a timeout when the body stalls past the deadline", func() {
			out := requester.Do(context.Background(), transport.Request{
				URL:     server.URL + "/stall",
				Timeout: 150 * time.Millisecond,
			})

			Expect(out.Kind).To(Equal(transport.KindNoResponse))
			Expect(out.Response).To(BeNil())
			Expect(out.Failure.Code).To(Equal(transport.CodeTimedOut))
		})

		It("captures 4xx without treating it as a failure", func() {
			out := requester.Do(context.Background(), transport.Request{URL: server.URL + "/missing"})

			Expect(out.Kind).To(Equal(transport.KindResponded))
			Expect(out.StatusCode()).To(Equal(http.StatusNotFound))
		})

		It("captures 5xx without treating it as a failure", func() {
			out := requester.Do(context.Background(), transport.Request{URL: server.URL + "/boom"})

			Expect(out.Kind).To(Equal(transport.KindResponded))
			Expect(out.StatusCode()).To(Equal(http.StatusInternalServerError))
			Expect(out.Response.StatusText).To(Equal("Internal Server Error"))
		})

		It("forwards request headers and method", func() {
			seen := make(chan *http.Request, 1)
			echo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen <- r
			}))
			defer echo.Close()

			out := requester.Do(context.Background(), transport.Request{
				Method: http.MethodOptions,
				URL:    echo.URL,
				Header: http.Header{"Accept": []string{"application/json"}},
			})

			Expect(out.Responded()).To(BeTrue())
			r := <-seen
			Expect(r.Method).To(Equal(http.MethodOptions))
			Expect(r.Header.Get("Accept")).To(Equal("application/json"))
		})
	})

	Context("when no response arrives", func() {
		It("reports connection refused", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			addr := ln.Addr().String()
			ln.Close()

			out := requester.Do(context.Background(), transport.Request{URL: "http://" + addr + "/"})

			Expect(out.Kind).To(Equal(transport.KindNoResponse))
			Expect(out.Failure.Code).To(Equal(transport.CodeConnRefused))
			Expect(out.Failure.Method).To(Equal(http.MethodGet))
			Expect(out.Response).To(BeNil())
		})

		It("reports a timeout within the configured bound", func() {
			release := make(chan struct{})
			slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer slow.Close()
			defer close(release)

			start := time.Now()
			out := requester.Do(context.Background(), transport.Request{
				URL:     slow.URL,
				Timeout: 100 * time.Millisecond,
			})

			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Expect(out.Kind).To(Equal(transport.KindNoResponse))
			Expect(out.Failure.Code).To(Equal(transport.CodeTimedOut))
			Expect(out.Failure.Timeout).To(Equal(100 * time.Millisecond))
		})

		It("reports an aborted request when the caller cancels", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			out := requester.Do(ctx, transport.Request{URL: "http://127.0.0.1:1/"})

			Expect(out.Kind).To(Equal(transport.KindNoResponse))
			Expect(out.Failure.Code).To(Equal(transport.CodeAborted))
		})
	})

	Context("when the request cannot be built", func() {
		DescribeTable("reports a setup failure",
			func(raw string) {
				out := requester.Do(context.Background(), transport.Request{URL: raw})

				Expect(out.Kind).To(Equal(transport.KindSetupFailed))
				Expect(out.Failure.Code).To(Equal(transport.CodeBadRequest))
				Expect(out.Failure.Message).NotTo(BeEmpty())
				Expect(out.Failure.URL).To(Equal(raw))
			},
			Entry("empty", ""),
			Entry("unparsable", "http://[::1"),
			Entry("wrong scheme", "ftp://example.com/file"),
			Entry("no host", "http:///api/v1"),
		)

		It("rejects an invalid method", func() {
			out := requester.Do(context.Background(), transport.Request{Method: "BAD METHOD", URL: "http://localhost/"})
			Expect(out.Kind).To(Equal(transport.KindSetupFailed))
		})
	})
})

var _ = Describe("FailureCode", func() {
	It("returns empty for nil and unknown errors", func() {
		Expect(transport.FailureCode(nil)).To(BeEmpty())
		Expect(transport.FailureCode(errors.New("weird"))).To(BeEmpty())
	})

	It("maps DNS errors", func() {
		Expect(transport.FailureCode(&net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true})).
			To(Equal(transport.CodeNotFound))
		Expect(transport.FailureCode(&net.DNSError{Err: "timeout", Name: "slow", IsTimeout: true})).
			To(Equal(transport.CodeTimedOut))
	})

	It("maps context errors", func() {
		Expect(transport.FailureCode(context.DeadlineExceeded)).To(Equal(transport.CodeTimedOut))
		Expect(transport.FailureCode(context.Canceled)).To(Equal(transport.CodeAborted))
	})
})

var _ = Describe("Kind", func() {
	It("has readable names", func() {
		Expect(transport.KindResponded.String()).To(Equal("responded"))
		Expect(transport.KindNoResponse.String()).To(Equal("no_response"))
		Expect(transport.KindSetupFailed.String()).To(Equal("setup_failed"))
	})
})
