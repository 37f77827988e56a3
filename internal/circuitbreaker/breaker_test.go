package circuitbreaker_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/docprobe/internal/circuitbreaker"
)

var _ = Describe("Breaker", func() {
	var (
		cb  *circuitbreaker.Breaker
		now time.Time
	)

	clock := func() time.Time { return now }

	trip := func() {
		for i := 0; i < 3; i++ {
			cb.Failure()
		}
		Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
	}

	BeforeEach(func() {
		now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		cb = circuitbreaker.New(3, 30*time.Second, circuitbreaker.WithClock(clock))
	})

	Context("when CLOSED", func() {
		It("allows requests", func() {
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Allow()).To(BeTrue())
		})

		It("stays closed below the threshold", func() {
			cb.Failure()
			cb.Failure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("resets the failure streak on success", func() {
			cb.Failure()
			cb.Failure()
			cb.Success()
			cb.Failure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Context("when OPEN", func() {
		BeforeEach(trip)

		It("refuses requests before the reset timeout", func() {
			now = now.Add(29 * time.Second)
			Expect(cb.Allow()).To(BeFalse())
		})

		It("lets a single trial through after the reset timeout", func() {
			now = now.Add(30 * time.Second)
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			Expect(cb.Allow()).To(BeFalse())
		})
	})

	Context("when HALF-OPEN", func() {
		BeforeEach(func() {
			trip()
			now = now.Add(time.Minute)
			Expect(cb.Allow()).To(BeTrue())
		})

		It("closes on success", func() {
			cb.Success()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Allow()).To(BeTrue())
		})

		It("reopens on failure and restarts the timer", func() {
			cb.Failure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			now = now.Add(10 * time.Second)
			Expect(cb.Allow()).To(BeFalse())
		})
	})

	Describe("disabled breaker", func() {
		It("is nil and always allows", func() {
			disabled := circuitbreaker.New(0, time.Second)
			Expect(disabled).To(BeNil())

			for i := 0; i < 10; i++ {
				disabled.Failure()
			}
			Expect(disabled.Allow()).To(BeTrue())
			Expect(disabled.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(func() { disabled.Success() }).NotTo(Panic())
		})
	})

	Describe("State.String", func() {
		It("names every state", func() {
			Expect(circuitbreaker.StateClosed.String()).To(Equal("CLOSED"))
			Expect(circuitbreaker.StateOpen.String()).To(Equal("OPEN"))
			Expect(circuitbreaker.StateHalfOpen.String()).To(Equal("HALF-OPEN"))
			Expect(circuitbreaker.State(9).String()).To(Equal("UNKNOWN"))
		})
	})
})
