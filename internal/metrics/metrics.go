package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Well-known metric names
const (
	CounterTransitions      = "line_transitions_total"
	CounterGroupsCreated    = "groups_created_total"
	CounterGroupsDissolved  = "groups_dissolved_total"
	CounterPartialApplies   = "group_partial_applies_total"
	CounterIntakeMessages   = "intake_messages_total"
	CounterIntakeFailures   = "intake_failures_total"
	CounterReconcileRepairs = "reconcile_repairs_total"
)

// TimerStats summarizes timing measurements for one operation
type TimerStats struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// Metrics is a lightweight in-process metrics collector
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]*int64
	timers   map[string]*timer
	health   map[string]*int64
	started  time.Time
}

type timer struct {
	count   int64
	totalMs int64
	maxMs   int64
}

// New creates an empty collector
func New() *Metrics {
	return &Metrics{
		counters: make(map[string]*int64),
		timers:   make(map[string]*timer),
		health:   make(map[string]*int64),
		started:  time.Now(),
	}
}

// Inc increments a counter by 1
func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

// Add increments a counter by value
func (m *Metrics) Add(name string, value int64) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if c, ok = m.counters[name]; !ok {
			var v int64
			c = &v
			m.counters[name] = c
		}
		m.mu.Unlock()
	}

	atomic.AddInt64(c, value)
}

// Observe records the duration of one operation
func (m *Metrics) Observe(name string, d time.Duration) {
	ms := d.Milliseconds()

	m.mu.RLock()
	t, ok := m.timers[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if t, ok = m.timers[name]; !ok {
			t = &timer{}
			m.timers[name] = t
		}
		m.mu.Unlock()
	}

	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalMs, ms)
	for {
		max := atomic.LoadInt64(&t.maxMs)
		if ms <= max || atomic.CompareAndSwapInt64(&t.maxMs, max, ms) {
			break
		}
	}
}

// SetHealth records the health status of a dependency
func (m *Metrics) SetHealth(component string, healthy bool) {
	var v int64
	if healthy {
		v = 1
	}

	m.mu.RLock()
	h, ok := m.health[component]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if h, ok = m.health[component]; !ok {
			var x int64
			h = &x
			m.health[component] = h
		}
		m.mu.Unlock()
	}

	atomic.StoreInt64(h, v)
}

// Counters returns a snapshot of all counters
func (m *Metrics) Counters() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(m.counters))
	for name, c := range m.counters {
		out[name] = atomic.LoadInt64(c)
	}
	return out
}

// Timers returns a snapshot of all timers
func (m *Metrics) Timers() map[string]TimerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]TimerStats, len(m.timers))
	for name, t := range m.timers {
		count := atomic.LoadInt64(&t.count)
		total := atomic.LoadInt64(&t.totalMs)
		var avg float64
		if count > 0 {
			avg = float64(total) / float64(count)
		}
		out[name] = TimerStats{
			Count:         count,
			TotalTimeMs:   total,
			AverageTimeMs: avg,
			MaxTimeMs:     atomic.LoadInt64(&t.maxMs),
		}
	}
	return out
}

// Health returns a snapshot of all health checks
func (m *Metrics) Health() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]bool, len(m.health))
	for name, h := range m.health {
		out[name] = atomic.LoadInt64(h) > 0
	}
	return out
}

// Snapshot returns all metrics in a structured form
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.started).Seconds()),
		"counters":       m.Counters(),
		"timers":         m.Timers(),
		"health":         m.Health(),
	}
}
