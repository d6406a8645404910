package ingestion

import (
	"sync"
	"time"
)

// IngestMetrics tracks ingestion counters
type IngestMetrics struct {
	ReadingsReceived      int64         `json:"readingsReceived"`
	ReadingsAccepted      int64         `json:"readingsAccepted"`
	ReadingsRejected      int64         `json:"readingsRejected"`
	ReadingsFailed        int64         `json:"readingsFailed"`
	DevicesRegistered     int64         `json:"devicesRegistered"`
	DevicesAutoRegistered int64         `json:"devicesAutoRegistered"`
	AlertsGenerated       int64         `json:"alertsGenerated"`
	AlertsSuppressed      int64         `json:"alertsSuppressed"`
	AlertsFailed          int64         `json:"alertsFailed"`
	LastProcessedAt       time.Time     `json:"lastProcessedAt"`
	AverageProcessingTime time.Duration `json:"averageProcessingTimeNs"`
}

// MetricsTracker provides a goroutine-safe wrapper around IngestMetrics.
type MetricsTracker struct {
	mu      sync.RWMutex
	metrics IngestMetrics
}

// NewMetricsTracker builds a new tracker with zeroed metrics.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{}
}

// Update applies a mutation in a thread-safe way.
func (t *MetricsTracker) Update(fn func(*IngestMetrics)) {
	if fn == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fn(&t.metrics)
}

// observe records a processed reading and folds its latency into the running average.
func (t *MetricsTracker) observe(started time.Time) {
	t.Update(func(m *IngestMetrics) {
		elapsed := time.Since(started)
		m.LastProcessedAt = time.Now()
		if m.AverageProcessingTime == 0 {
			m.AverageProcessingTime = elapsed
		} else {
			m.AverageProcessingTime = (m.AverageProcessingTime + elapsed) / 2
		}
	})
}

// Snapshot returns a copy of the current metrics.
func (t *MetricsTracker) Snapshot() IngestMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics
}
