package backend

import (
	"sync"
	"time"

	"github.com/angeloszaimis/docprobe/internal/probe"
)

const ewmaAlpha = 0.2

// Backend is the observed state of the document backend, updated by the
// health watcher and read by debug surfaces.
type Backend struct {
	endpoints Endpoints

	mutex     sync.Mutex
	isHealthy bool
	checked   bool
	last      probe.Result
	lastAt    time.Time
	ewma      time.Duration
	hasEWMA   bool
}

// Status is a point-in-time copy of the backend state.
type Status struct {
	Endpoint  string        `json:"endpoint" yaml:"endpoint"`
	Healthy   bool          `json:"healthy" yaml:"healthy"`
	Checked   bool          `json:"checked" yaml:"checked"`
	Result    probe.Result  `json:"result" yaml:"result"`
	CheckedAt time.Time     `json:"checked_at" yaml:"checked_at"`
	Latency   time.Duration `json:"latency" yaml:"latency"`
}

// New creates a Backend for endpoints. It starts unhealthy until the first
// probe says otherwise.
func New(endpoints Endpoints) *Backend {
	return &Backend{endpoints: endpoints}
}

func (b *Backend) Endpoints() Endpoints {
	return b.endpoints
}

func (b *Backend) IsHealthy() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.isHealthy
}

// SetHealthy updates the health flag and reports whether it changed. The
// first call always counts as a change.
func (b *Backend) SetHealthy(healthy bool) (changed bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.setHealthyLocked(healthy)
}

func (b *Backend) setHealthyLocked(healthy bool) (changed bool) {
	changed = !b.checked || b.isHealthy != healthy
	b.isHealthy = healthy
	b.checked = true
	return changed
}

// Record stores a probe result and its latency, and returns whether the
// health flag changed.
func (b *Backend) Record(result probe.Result, latency time.Duration) (changed bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.last = result
	b.lastAt = time.Now()

	if !b.hasEWMA {
		b.ewma = latency
		b.hasEWMA = true
	} else {
		//ewma = (1 - α) * ewma + α * latest
		b.ewma = time.Duration((1-ewmaAlpha)*float64(b.ewma) + ewmaAlpha*float64(latency))
	}

	return b.setHealthyLocked(result.Success)
}

// EWMATime returns the smoothed probe latency, or 0 before any probe.
func (b *Backend) EWMATime() time.Duration {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.hasEWMA {
		return 0
	}
	return b.ewma
}

func (b *Backend) Status() Status {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return Status{
		Endpoint:  b.endpoints.List(),
		Healthy:   b.isHealthy,
		Checked:   b.checked,
		Result:    b.last,
		CheckedAt: b.lastAt,
		Latency:   b.ewma,
	}
}
