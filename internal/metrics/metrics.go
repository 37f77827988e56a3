package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex        sync.RWMutex
	probes       map[string]int64
	successes    map[string]int64
	outcomes     map[string]map[string]int64
	durations    map[string][]time.Duration
	statusCodes  map[string]map[int]int64
	healthStatus map[string]bool
	startTime    time.Time
}

type Snapshot struct {
	TotalProbes int64                      `json:"total_probes"`
	Uptime      time.Duration              `json:"uptime"`
	Endpoints   map[string]EndpointMetrics `json:"endpoints"`
}

type EndpointMetrics struct {
	Probes      int64            `json:"probes"`
	Successes   int64            `json:"successes"`
	Failures    int64            `json:"failures"`
	Healthy     bool             `json:"healthy"`
	Outcomes    map[string]int64 `json:"outcomes"`
	AvgDuration time.Duration    `json:"avg_duration"`
	P50Duration time.Duration    `json:"p50_duration"`
	P95Duration time.Duration    `json:"p95_duration"`
	P99Duration time.Duration    `json:"p99_duration"`
	StatusCodes map[int]int64    `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		probes:       make(map[string]int64),
		successes:    make(map[string]int64),
		outcomes:     make(map[string]map[string]int64),
		durations:    make(map[string][]time.Duration),
		statusCodes:  make(map[string]map[int]int64),
		healthStatus: make(map[string]bool),
		startTime:    time.Now(),
	}
}

func (m *Metrics) RecordProbe(endpoint, outcome string, success bool, statusCode int, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.probes[endpoint]++
	if success {
		m.successes[endpoint]++
	}

	if m.outcomes[endpoint] == nil {
		m.outcomes[endpoint] = make(map[string]int64)
	}
	m.outcomes[endpoint][outcome]++

	m.durations[endpoint] = append(m.durations[endpoint], duration)
	if len(m.durations[endpoint]) > maxSamples {
		m.durations[endpoint] = m.durations[endpoint][1:]
	}

	// 0 means no response was received.
	if statusCode > 0 {
		if m.statusCodes[endpoint] == nil {
			m.statusCodes[endpoint] = make(map[int]int64)
		}
		m.statusCodes[endpoint][statusCode]++
	}
}

func (m *Metrics) UpdateHealthStatus(endpoint string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[endpoint] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:    time.Since(m.startTime),
		Endpoints: make(map[string]EndpointMetrics),
	}

	all := make(map[string]bool)
	for endpoint := range m.probes {
		all[endpoint] = true
	}
	for endpoint := range m.healthStatus {
		all[endpoint] = true
	}

	for endpoint := range all {
		snap.TotalProbes += m.probes[endpoint]

		em := EndpointMetrics{
			Probes:      m.probes[endpoint],
			Successes:   m.successes[endpoint],
			Failures:    m.probes[endpoint] - m.successes[endpoint],
			Healthy:     m.healthStatus[endpoint],
			Outcomes:    copyCounts(m.outcomes[endpoint]),
			StatusCodes: copyCodes(m.statusCodes[endpoint]),
		}

		if durations := m.durations[endpoint]; len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			em.AvgDuration = average(sorted)
			em.P50Duration = percentile(sorted, 0.50)
			em.P95Duration = percentile(sorted, 0.95)
			em.P99Duration = percentile(sorted, 0.99)
		}

		snap.Endpoints[endpoint] = em
	}

	return snap
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyCodes(src map[int]int64) map[int]int64 {
	dst := make(map[int]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
