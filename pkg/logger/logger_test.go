package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/docprobe/pkg/logger"
)

var _ = Describe("Logger", func() {
	ctx := context.Background()

	Describe("New", func() {
		It("should create logger with info level", func() {
			log := logger.New("info", false, "dev")
			Expect(log).NotTo(BeNil())
			Expect(log.Enabled(ctx, slog.LevelInfo)).To(BeTrue())
			Expect(log.Enabled(ctx, slog.LevelDebug)).To(BeFalse())
		})

		It("should default to info for invalid level", func() {
			log := logger.New("invalid", false, "dev")
			Expect(log.Enabled(ctx, slog.LevelInfo)).To(BeTrue())
			Expect(log.Enabled(ctx, slog.LevelDebug)).To(BeFalse())
		})
	})

	Describe("NewWithWriter", func() {
		It("should write JSON in prod", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", false, "prod")

			log.Info("Backend is back up", slog.String("server", "http://localhost:8000"))

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record).To(HaveKeyWithValue("msg", "Backend is back up"))
			Expect(record).To(HaveKeyWithValue("environment", "prod"))
			Expect(record).To(HaveKeyWithValue("server", "http://localhost:8000"))
		})

		It("should write text outside prod", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "debug", false, "dev")

			log.Debug("probe finished")

			Expect(buf.String()).To(ContainSubstring("level=DEBUG"))
			Expect(buf.String()).To(ContainSubstring("environment=dev"))
		})

		It("should include the source when asked", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", true, "dev")

			log.Info("hello")

			Expect(buf.String()).To(ContainSubstring("source="))
		})

		It("should drop records below the level", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "warn", false, "dev")

			log.Info("quiet")
			Expect(buf.Len()).To(BeZero())

			log.Warn("loud")
			Expect(buf.String()).To(ContainSubstring("loud"))
		})
	})

	Describe("ParseLevel", func() {
		DescribeTable("level names",
			func(name string, want slog.Level) {
				Expect(logger.ParseLevel(name)).To(Equal(want))
			},
			Entry("debug", "debug", slog.LevelDebug),
			Entry("upper case", "WARN", slog.LevelWarn),
			Entry("error", "error", slog.LevelError),
			Entry("unknown", "verbose", slog.LevelInfo),
		)
	})

	Describe("Discard", func() {
		It("should be disabled at every level", func() {
			log := logger.Discard()
			Expect(log.Enabled(ctx, slog.LevelError)).To(BeFalse())
		})
	})
})
