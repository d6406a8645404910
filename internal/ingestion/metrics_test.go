package ingestion

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsTracker(t *testing.T) {
	tracker := NewMetricsTracker()
	tracker.Update(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(func(m *IngestMetrics) { m.ReadingsReceived++ })
		}()
	}
	wg.Wait()

	tracker.observe(time.Now().Add(-10 * time.Millisecond))
	snap := tracker.Snapshot()
	if snap.ReadingsReceived != 20 {
		t.Errorf("ReadingsReceived = %d, want 20", snap.ReadingsReceived)
	}
	if snap.AverageProcessingTime < 10*time.Millisecond || snap.LastProcessedAt.IsZero() {
		t.Errorf("latency not observed: %+v", snap)
	}

	snap.ReadingsReceived = 0
	if tracker.Snapshot().ReadingsReceived != 20 {
		t.Error("snapshot aliases tracker state")
	}
}
