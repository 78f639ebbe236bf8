package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for the price stream and order entry.
type Metrics struct {
	frames          uint64
	published       uint64
	decodeFailures  uint64
	pings           uint64
	connects        uint64
	reconnects      uint64
	subscribes      uint64
	subscriberDrops uint64
	orderRejections uint64
	orderFailures   uint64

	sendLatency   LatencyStats
	modifyLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Frames          uint64
	Published       uint64
	DecodeFailures  uint64
	Pings           uint64
	Connects        uint64
	Reconnects      uint64
	Subscribes      uint64
	SubscriberDrops uint64
	OrderRejections uint64
	OrderFailures   uint64
	SendLatency     LatencySnapshot
	ModifyLatency   LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncFrame records an inbound data frame.
func (m *Metrics) IncFrame() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.frames, 1)
}

// IncPublished records a decoded update handed to the distributor.
func (m *Metrics) IncPublished() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.published, 1)
}

// IncDecodeFailure records a dropped undecodable frame.
func (m *Metrics) IncDecodeFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.decodeFailures, 1)
}

// IncPing records an answered heartbeat.
func (m *Metrics) IncPing() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.pings, 1)
}

// IncConnect records an established connection.
func (m *Metrics) IncConnect() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.connects, 1)
}

// IncReconnect records a reconnect attempt.
func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.reconnects, 1)
}

// IncSubscribe records a subscribe request sent to the feed.
func (m *Metrics) IncSubscribe() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.subscribes, 1)
}

// IncSubscriberDrop records an update evicted from a full subscriber buffer.
func (m *Metrics) IncSubscriberDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.subscriberDrops, 1)
}

// IncOrderRejection records an order rejected by business rules.
func (m *Metrics) IncOrderRejection() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.orderRejections, 1)
}

// IncOrderFailure records an order entry transport failure.
func (m *Metrics) IncOrderFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.orderFailures, 1)
}

// ObserveSend measures a send round trip.
func (m *Metrics) ObserveSend(d time.Duration) {
	if m == nil {
		return
	}
	m.sendLatency.Observe(d)
}

// ObserveModify measures a modify round trip.
func (m *Metrics) ObserveModify(d time.Duration) {
	if m == nil {
		return
	}
	m.modifyLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Frames:          atomic.LoadUint64(&m.frames),
		Published:       atomic.LoadUint64(&m.published),
		DecodeFailures:  atomic.LoadUint64(&m.decodeFailures),
		Pings:           atomic.LoadUint64(&m.pings),
		Connects:        atomic.LoadUint64(&m.connects),
		Reconnects:      atomic.LoadUint64(&m.reconnects),
		Subscribes:      atomic.LoadUint64(&m.subscribes),
		SubscriberDrops: atomic.LoadUint64(&m.subscriberDrops),
		OrderRejections: atomic.LoadUint64(&m.orderRejections),
		OrderFailures:   atomic.LoadUint64(&m.orderFailures),
		SendLatency:     m.sendLatency.Snapshot(),
		ModifyLatency:   m.modifyLatency.Snapshot(),
	}
}

// Observe records a duration sample. Negative durations are ignored.
func (l *LatencyStats) Observe(d time.Duration) {
	if l == nil || d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		cur := atomic.LoadUint64(&l.min)
		if cur != 0 && nanos >= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, cur, nanos) {
			break
		}
	}

	for {
		cur := atomic.LoadUint64(&l.max)
		if nanos <= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, cur, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	if l == nil {
		return LatencySnapshot{}
	}
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
