package obs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyStatsSnapshot(t *testing.T) {
	var stats LatencyStats
	assert.Equal(t, LatencySnapshot{}, stats.Snapshot())

	stats.Observe(4 * time.Millisecond)
	stats.Observe(2 * time.Millisecond)
	stats.Observe(6 * time.Millisecond)
	stats.Observe(-time.Millisecond)

	snap := stats.Snapshot()
	assert.Equal(t, uint64(3), snap.Count)
	assert.Equal(t, 2*time.Millisecond, snap.Min)
	assert.Equal(t, 6*time.Millisecond, snap.Max)
	assert.Equal(t, 4*time.Millisecond, snap.Avg)
}

func TestLatencyStatsConcurrentObserve(t *testing.T) {
	var stats LatencyStats
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			stats.Observe(time.Duration(n) * time.Microsecond)
		}(i)
	}
	wg.Wait()

	snap := stats.Snapshot()
	if snap.Count != 100 {
		t.Fatalf("expected 100 samples, got %d", snap.Count)
	}
	if snap.Min != time.Microsecond || snap.Max != 100*time.Microsecond {
		t.Fatalf("unexpected bounds: min=%s max=%s", snap.Min, snap.Max)
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.IncFrame()
	m.IncFrame()
	m.IncPublished()
	m.IncDecodeFailure()
	m.IncPing()
	m.IncConnect()
	m.IncReconnect()
	m.IncSubscribe()
	m.IncSubscriberDrop()
	m.IncOrderRejection()
	m.IncOrderFailure()
	m.ObserveSend(3 * time.Millisecond)
	m.ObserveModify(5 * time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.Frames)
	assert.Equal(t, uint64(1), snap.Published)
	assert.Equal(t, uint64(1), snap.DecodeFailures)
	assert.Equal(t, uint64(1), snap.Pings)
	assert.Equal(t, uint64(1), snap.Connects)
	assert.Equal(t, uint64(1), snap.Reconnects)
	assert.Equal(t, uint64(1), snap.Subscribes)
	assert.Equal(t, uint64(1), snap.SubscriberDrops)
	assert.Equal(t, uint64(1), snap.OrderRejections)
	assert.Equal(t, uint64(1), snap.OrderFailures)
	assert.Equal(t, 3*time.Millisecond, snap.SendLatency.Avg)
	assert.Equal(t, 5*time.Millisecond, snap.ModifyLatency.Avg)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncFrame()
		m.IncPing()
		m.IncOrderFailure()
		m.ObserveSend(time.Millisecond)
		m.ObserveModify(time.Millisecond)
	})
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
