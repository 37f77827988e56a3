package backend_test

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/docprobe/internal/backend"
	"github.com/angeloszaimis/docprobe/internal/probe"
)

var _ = Describe("Backend", func() {
	var b *backend.Backend

	BeforeEach(func() {
		e, err := backend.NewEndpoints("http://localhost:8000")
		Expect(err).NotTo(HaveOccurred())
		b = backend.New(e)
	})

	It("starts unhealthy and unchecked", func() {
		Expect(b.IsHealthy()).To(BeFalse())
		Expect(b.Status().Checked).To(BeFalse())
		Expect(b.EWMATime()).To(BeZero())
	})

	Describe("SetHealthy", func() {
		It("counts the first observation as a change", func() {
			Expect(b.SetHealthy(false)).To(BeTrue())
			Expect(b.SetHealthy(false)).To(BeFalse())
		})

		It("reports transitions", func() {
			b.SetHealthy(true)
			Expect(b.SetHealthy(false)).To(BeTrue())
			Expect(b.IsHealthy()).To(BeFalse())
			Expect(b.SetHealthy(true)).To(BeTrue())
		})
	})

	Describe("Record", func() {
		It("keeps the last result and smooths latency", func() {
			b.Record(probe.Result{Success: true, Status: 200, Message: probe.MessageAvailable}, 100*time.Millisecond)
			Expect(b.EWMATime()).To(Equal(100 * time.Millisecond))

			changed := b.Record(probe.Result{Success: true, Status: 200}, 200*time.Millisecond)
			Expect(changed).To(BeFalse())
			Expect(b.EWMATime()).To(BeNumerically("~", 120*time.Millisecond, time.Microsecond))

			status := b.Status()
			Expect(status.Healthy).To(BeTrue())
			Expect(status.Endpoint).To(Equal("http://localhost:8000/api/v1/documents/list"))
			Expect(status.CheckedAt).NotTo(BeZero())
		})

		It("flips health on failure", func() {
			b.Record(probe.Result{Success: true}, time.Millisecond)
			Expect(b.Record(probe.Result{Error: probe.MessageRefused}, time.Millisecond)).To(BeTrue())
			Expect(b.Status().Result.Error).To(Equal(probe.MessageRefused))
		})

		It("never pairs a result with a stale health flag", func() {
			done := make(chan struct{})
			var mismatches atomic.Int64
			go func() {
				defer close(done)
				for i := 0; i < 2000; i++ {
					status := b.Status()
					if status.Checked && status.Healthy != status.Result.Success {
						mismatches.Add(1)
					}
				}
			}()

			for i := 0; i < 2000; i++ {
				b.Record(probe.Result{Success: i%2 == 0}, time.Millisecond)
			}
			<-done

			Expect(mismatches.Load()).To(BeZero())
		})

		It("is safe for concurrent use", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					b.Record(probe.Result{Success: i%2 == 0}, time.Millisecond)
					_ = b.Status()
				}(i)
			}
			wg.Wait()
			Expect(b.Status().Checked).To(BeTrue())
		})
	})
})
