package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the per-subscriber buffer size used when none is given.
const DefaultCapacity = 1024

var ErrSubscriberClosed = errors.New("bus: subscriber closed")

// Distributor fans every published value out to all current subscribers.
//
// Each subscriber owns a bounded buffer. When it is full the oldest pending value is
// dropped, so Publish never blocks on a slow consumer.
type Distributor[T any] struct {
	mu       sync.RWMutex
	subs     map[uint64]*Subscriber[T]
	nextID   uint64
	capacity int
	closed   bool
	onDrop   atomic.Pointer[func()]
}

// NewDistributor allocates a distributor with the given per-subscriber capacity.
func NewDistributor[T any](capacity int) *Distributor[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Distributor[T]{
		subs:     make(map[uint64]*Subscriber[T]),
		capacity: capacity,
	}
}

// SetDropHook registers fn to be called whenever a buffered value is dropped.
func (d *Distributor[T]) SetDropHook(fn func()) {
	if fn == nil {
		d.onDrop.Store(nil)
		return
	}
	d.onDrop.Store(&fn)
}

// Subscribe registers a new subscriber that observes values published after it returns.
func (d *Distributor[T]) Subscribe() *Subscriber[T] {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	sub := &Subscriber[T]{
		id:   d.nextID,
		dist: d,
		ch:   make(chan T, d.capacity),
	}
	if d.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	d.subs[sub.id] = sub
	return sub
}

// Publish delivers v to every subscriber and returns how many received it.
func (d *Distributor[T]) Publish(v T) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	delivered := 0
	for _, sub := range d.subs {
		dropped, ok := sub.push(v)
		if dropped {
			if fn := d.onDrop.Load(); fn != nil {
				(*fn)()
			}
		}
		if ok {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of active subscribers.
func (d *Distributor[T]) Len() int {
	d.mu.RLock()
	n := len(d.subs)
	d.mu.RUnlock()
	return n
}

// Close closes every subscriber. Later subscribers are returned already closed.
func (d *Distributor[T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	subs := d.subs
	d.subs = make(map[uint64]*Subscriber[T])
	d.mu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
}

func (d *Distributor[T]) remove(id uint64) {
	d.mu.Lock()
	delete(d.subs, id)
	d.mu.Unlock()
}

// Subscriber is an independent receiver of published values.
type Subscriber[T any] struct {
	id      uint64
	dist    *Distributor[T]
	mu      sync.Mutex
	ch      chan T
	closed  bool
	dropped atomic.Uint64
}

// C returns the delivery channel. It is closed when the subscriber is closed.
func (s *Subscriber[T]) C() <-chan T {
	return s.ch
}

// Next blocks until a value is available, the subscriber is closed, or ctx is done.
func (s *Subscriber[T]) Next(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-s.ch:
		if !ok {
			return zero, ErrSubscriberClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Dropped returns how many values were discarded to make room for newer ones.
func (s *Subscriber[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Len returns the number of buffered values.
func (s *Subscriber[T]) Len() int {
	return len(s.ch)
}

// Close unregisters the subscriber and closes its channel. Pending values stay readable.
func (s *Subscriber[T]) Close() {
	if s.dist != nil {
		s.dist.remove(s.id)
	}
	s.shutdown()
}

func (s *Subscriber[T]) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// push enqueues v, evicting the oldest pending value when the buffer is full.
func (s *Subscriber[T]) push(v T) (dropped bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, false
	}
	for {
		select {
		case s.ch <- v:
			return dropped, true
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
			dropped = true
		default:
		}
	}
}
