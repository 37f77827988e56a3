package httpserver_test

import (
	"context"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/docprobe/internal/httpserver"
	"github.com/angeloszaimis/docprobe/pkg/logger"
)

var _ = Describe("HTTP Server", func() {
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	Context("server creation", func() {
		DescribeTable("accepted addresses",
			func(addr string) {
				srv, err := httpserver.New(addr, noop, logger.Discard())
				Expect(err).NotTo(HaveOccurred())
				Expect(srv).NotTo(BeNil())
				Expect(srv.Addr()).To(Equal(addr))
			},
			Entry("host name", "localhost:9999"),
			Entry("IP address", "127.0.0.1:9999"),
			Entry("port only", ":9999"),
		)

		DescribeTable("rejected addresses",
			func(addr string) {
				srv, err := httpserver.New(addr, noop, logger.Discard())
				Expect(err).To(HaveOccurred())
				Expect(srv).To(BeNil())
			},
			Entry("empty", ""),
			Entry("too many colons", "invalid:host:port"),
			Entry("missing port", "localhost"),
			Entry("non-numeric port", "localhost:http"),
		)
	})

	Context("server lifecycle", func() {
		var testServer *httpserver.Server

		AfterEach(func() {
			if testServer != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
				defer cancel()
				_ = testServer.Shutdown(ctx)
			}
		})

		It("starts and handles requests", func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("test"))
			})
			var err error
			testServer, err = httpserver.New("127.0.0.1:0", handler, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			Expect(testServer.Listen()).To(Succeed())

			go testServer.Start()

			resp, err := http.Get("http://" + testServer.Addr())
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("test"))
		})

		It("shuts down gracefully", func() {
			var err error
			testServer, err = httpserver.New("127.0.0.1:0", noop, logger.Discard())
			Expect(err).NotTo(HaveOccurred())

			hookCalled := make(chan struct{})
			testServer.RegisterOnShutdown(func() { close(hookCalled) })

			done := make(chan error, 1)
			go func() { done <- testServer.Start() }()
			Eventually(testServer.Addr).ShouldNot(HaveSuffix(":0"))

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			Expect(testServer.Shutdown(ctx)).To(Succeed())

			Eventually(done).Should(Receive(BeNil()))
			Eventually(hookCalled).Should(BeClosed())
		})

		It("reports a port already in use", func() {
			first, err := httpserver.New("127.0.0.1:0", noop, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Listen()).To(Succeed())
			testServer = first

			second, err := httpserver.New(first.Addr(), noop, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Listen()).NotTo(Succeed())
		})
	})
})
