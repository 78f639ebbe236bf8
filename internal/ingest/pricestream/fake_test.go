package pricestream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JFForsythe/kalshitest/pkg/websocket"
)

var errFakeClosed = errors.New("fake: connection closed")

type frame struct {
	msgType websocket.MessageType
	payload []byte
	err     error
}

func textFrame(payload string) frame {
	return frame{msgType: websocket.MessageText, payload: []byte(payload)}
}

// eventLog records reads and writes across connections in the order they happen.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// fakeConn replays scripted frames, then blocks until closed.
type fakeConn struct {
	id        int
	log       *eventLog
	frames    chan frame
	closed    chan struct{}
	closeOnce sync.Once
	writeErr  error

	mu     sync.Mutex
	writes []frame
}

func newFakeConn(id int, log *eventLog, frames ...frame) *fakeConn {
	ch := make(chan frame, len(frames))
	for _, f := range frames {
		ch <- f
	}
	return &fakeConn{id: id, log: log, frames: ch, closed: make(chan struct{})}
}

func (c *fakeConn) Read(_ context.Context) (websocket.MessageType, []byte, error) {
	select {
	case <-c.closed:
		return 0, nil, errFakeClosed
	default:
	}
	select {
	case f := <-c.frames:
		if f.err != nil {
			c.log.add("conn%d read error", c.id)
			return 0, nil, f.err
		}
		c.log.add("conn%d read %s %s", c.id, f.msgType, f.payload)
		return f.msgType, f.payload, nil
	case <-c.closed:
		return 0, nil, errFakeClosed
	}
}

func (c *fakeConn) Write(_ context.Context, msgType websocket.MessageType, payload []byte) error {
	if c.isClosed() {
		return errFakeClosed
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.mu.Lock()
	c.writes = append(c.writes, frame{msgType: msgType, payload: append([]byte(nil), payload...)})
	c.mu.Unlock()
	c.log.add("conn%d write %s %s", c.id, msgType, payload)
	return nil
}

func (c *fakeConn) Close(websocket.CloseCode, string) error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) written() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.writes...)
}

type dialStep struct {
	conn *fakeConn
	err  error
}

// fakeDialer hands out scripted connections. Once the script is exhausted it returns idle connections.
type fakeDialer struct {
	log *eventLog

	mu    sync.Mutex
	steps []dialStep
	dials []time.Time
	extra []*fakeConn
}

func (d *fakeDialer) Dial(context.Context) (websocket.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, time.Now())
	d.log.add("dial %d", len(d.dials))

	if len(d.steps) == 0 {
		conn := newFakeConn(100+len(d.extra), d.log)
		d.extra = append(d.extra, conn)
		return conn, nil
	}
	step := d.steps[0]
	d.steps = d.steps[1:]
	if step.err != nil {
		return nil, step.err
	}
	return step.conn, nil
}

func (d *fakeDialer) dialTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.dials...)
}

// stallingDialer blocks until ctx is done and then fails like a socket closed under the handshake.
type stallingDialer struct {
	entered chan struct{}
}

func (d *stallingDialer) Dial(ctx context.Context) (websocket.Conn, error) {
	close(d.entered)
	<-ctx.Done()
	return nil, errFakeClosed
}
