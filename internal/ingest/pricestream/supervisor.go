package pricestream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/JFForsythe/kalshitest/internal/adapter"
	"github.com/JFForsythe/kalshitest/internal/bus"
	"github.com/JFForsythe/kalshitest/internal/obs"
	"github.com/JFForsythe/kalshitest/pkg/exception"
	"github.com/JFForsythe/kalshitest/pkg/websocket"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// State is the connection state of a Supervisor.
type State uint32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Config wires a Supervisor.
type Config struct {
	Dialer websocket.Dialer
	// Distributor receives every decoded update. A default one is created when nil.
	Distributor *bus.Distributor[adapter.PriceUpdate]
	// Backoff is waited before every reconnect dial. Defaults to a fixed one second.
	Backoff websocket.Backoff
	Metrics *obs.Metrics
}

// Supervisor keeps a single market data connection alive and feeds its updates into a distributor.
type Supervisor struct {
	dialer  websocket.Dialer
	dist    *bus.Distributor[adapter.PriceUpdate]
	backoff websocket.Backoff
	metrics *obs.Metrics

	state   atomic.Uint32
	running atomic.Bool
}

func NewSupervisor(cfg Config) (*Supervisor, error) {
	if cfg.Dialer == nil {
		return nil, exception.ErrPriceStreamNilDialer
	}
	if cfg.Distributor == nil {
		cfg.Distributor = bus.NewDistributor[adapter.PriceUpdate](bus.DefaultCapacity)
	}
	if cfg.Backoff.IsZero() {
		cfg.Backoff = websocket.DefaultBackoff()
	}
	return &Supervisor{
		dialer:  cfg.Dialer,
		dist:    cfg.Distributor,
		backoff: cfg.Backoff,
		metrics: cfg.Metrics,
	}, nil
}

// Subscribe returns a receiver of updates published from now on.
func (s *Supervisor) Subscribe() *bus.Subscriber[adapter.PriceUpdate] {
	return s.dist.Subscribe()
}

// Distributor returns the distributor updates are published to.
func (s *Supervisor) Distributor() *bus.Distributor[adapter.PriceUpdate] {
	return s.dist
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(state State) {
	s.state.Store(uint32(state))
}

// Run connects, subscribes to market and streams until ctx is done.
//
// Only a failure of the first connect or subscribe is returned. Once connected, every lost
// connection is redialed after the backoff, forever. Run returns ctx.Err() when cancelled.
func (s *Supervisor) Run(ctx context.Context, market string) error {
	if market == "" {
		return exception.ErrPriceStreamEmptyMarket
	}
	if s.running.Swap(true) {
		return exception.ErrPriceStreamAlreadyRunning
	}
	defer s.running.Store(false)
	defer s.setState(StateDisconnected)

	subscribe, err := EncodeSubscribe(market)
	if err != nil {
		return err
	}

	conn, err := s.connect(ctx, market, subscribe)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(err, "initial connect, market: %s", market)
	}

	attempt := 0
	for {
		err := s.readLoop(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logs.Warnf("price stream %s lost, err: %+v", market, err)

		for {
			s.setState(StateReconnecting)
			attempt++
			if err := s.sleepBackoff(ctx, attempt); err != nil {
				return err
			}
			s.metrics.IncReconnect()
			conn, err = s.connect(ctx, market, subscribe)
			if err == nil {
				attempt = 0
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logs.Errorf("price stream %s reconnect attempt %d failed, err: %+v", market, attempt, err)
		}
	}
}

// connect dials and sends the subscribe request. The connection is closed when subscribing fails.
func (s *Supervisor) connect(ctx context.Context, market string, subscribe []byte) (websocket.Conn, error) {
	s.setState(StateConnecting)
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	if err := conn.Write(ctx, websocket.MessageText, subscribe); err != nil {
		_ = conn.Close(websocket.CloseGoingAway, "subscribe_failed")
		return nil, errors.Wrap(err, "write subscribe payload").With("payload", string(subscribe))
	}
	s.metrics.IncConnect()
	s.metrics.IncSubscribe()
	s.setState(StateConnected)
	logs.Infof("price stream connected, market: %s", market)
	return conn, nil
}

// readLoop processes frames in arrival order until the connection fails or ctx is done.
// It always closes conn before returning.
func (s *Supervisor) readLoop(ctx context.Context, conn websocket.Conn) error {
	defer conn.Close(websocket.CloseNormal, "session_end")
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close(websocket.CloseNormal, "shutdown")
	})
	defer stop()

	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			return errors.Wrap(err, "read frame")
		}

		switch msgType {
		case websocket.MessageText:
			s.metrics.IncFrame()
			s.handleText(payload)
		case websocket.MessagePing:
			s.metrics.IncPing()
			if err := conn.Write(ctx, websocket.MessagePong, payload); err != nil {
				return errors.Wrap(err, "write pong")
			}
		case websocket.MessageClose:
			return errors.Wrapf(exception.ErrPriceStreamClosedByServer, "reason: %s", payload)
		default:
			// binary and pong frames carry nothing for this feed
		}
	}
}

func (s *Supervisor) handleText(payload []byte) {
	update, err := DecodeUpdate(payload)
	if err != nil {
		s.metrics.IncDecodeFailure()
		logs.Debugf("drop undecodable frame %q, err: %+v", payload, err)
		return
	}
	s.dist.Publish(update)
	s.metrics.IncPublished()
}

func (s *Supervisor) sleepBackoff(ctx context.Context, attempt int) error {
	wait := s.backoff.Next(attempt)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
