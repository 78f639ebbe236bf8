package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/JFForsythe/kalshitest/pkg/exception"

	gws "github.com/gorilla/websocket"
	yerrors "github.com/yanun0323/errors"
)

const (
	DefaultDialerTimeout = 10 * time.Second
	DefaultWriteTimeout  = 5 * time.Second
)

// DialerConfig configures the gorilla-backed dialer.
type DialerConfig struct {
	// URL is the ws:// or wss:// endpoint. It is fixed for the lifetime of the dialer.
	URL string
	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds each write, including pong replies.
	WriteTimeout time.Duration
	// Header is sent with the handshake request.
	Header http.Header
	// OnPing observes the payload of every ping answered by the connection.
	OnPing func(payload []byte)
}

type dialer struct {
	url              string
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	header           http.Header
	onPing           func(payload []byte)
}

// NewDialer validates the endpoint and returns a Dialer producing gorilla connections.
func NewDialer(cfg DialerConfig) (Dialer, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, yerrors.Wrapf(err, "parse websocket url %q", cfg.URL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, yerrors.Wrapf(exception.ErrWebSocketUnsupportedScheme, "scheme %q", u.Scheme)
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultDialerTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &dialer{
		url:              u.String(),
		handshakeTimeout: cfg.HandshakeTimeout,
		writeTimeout:     cfg.WriteTimeout,
		header:           cfg.Header,
		onPing:           cfg.OnPing,
	}, nil
}

// Dial opens the connection. Cancelling ctx aborts a handshake in progress.
func (d *dialer) Dial(ctx context.Context) (Conn, error) {
	// gorilla only honors its own timeout while reading the handshake response,
	// so the raw socket is closed when ctx is done until the upgrade completes.
	stopWatch := func() bool { return true }
	wsDialer := gws.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.handshakeTimeout,
		NetDialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
			netConn, err := (&net.Dialer{}).DialContext(dialCtx, network, addr)
			if err != nil {
				return nil, err
			}
			stopWatch = context.AfterFunc(ctx, func() { _ = netConn.Close() })
			return netConn, nil
		},
	}
	// the handshake response body does not need to be closed by the caller
	conn, _, err := wsDialer.DialContext(ctx, d.url, d.header)
	watching := stopWatch()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, yerrors.Wrap(err, "dial websocket")
	}
	if !watching {
		_ = conn.Close()
		return nil, ctx.Err()
	}

	c := &wsConn{
		conn:         conn,
		writeTimeout: d.writeTimeout,
		onPing:       d.onPing,
	}
	conn.SetPingHandler(c.answerPing)
	return c, nil
}

type wsConn struct {
	conn         *gws.Conn
	writeTimeout time.Duration
	onPing       func(payload []byte)
	writeMu      sync.Mutex
	closeOnce    sync.Once
	closeErr     error
}

// answerPing runs inside ReadMessage, so the pong is written before the next frame is returned.
func (c *wsConn) answerPing(appData string) error {
	payload := []byte(appData)
	if c.onPing != nil {
		c.onPing(payload)
	}
	err := c.conn.WriteControl(gws.PongMessage, payload, time.Now().Add(c.writeTimeout))
	if err == nil || errors.Is(err, gws.ErrCloseSent) {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil
	}
	return err
}

func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	if err := setDeadline(ctx, c.conn.SetReadDeadline); err != nil {
		return 0, nil, err
	}
	msgType, payload, err := c.conn.ReadMessage()
	if err != nil {
		var closeErr *gws.CloseError
		if errors.As(err, &closeErr) {
			return MessageClose, []byte(closeErr.Text), nil
		}
		return 0, nil, err
	}
	switch msgType {
	case gws.TextMessage:
		return MessageText, payload, nil
	case gws.BinaryMessage:
		return MessageBinary, payload, nil
	default:
		return 0, nil, exception.ErrWebSocketProtocol
	}
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	switch msgType {
	case MessagePing, MessagePong, MessageClose:
		return c.conn.WriteControl(int(msgType), payload, c.writeDeadline(ctx))
	case MessageText, MessageBinary:
	default:
		return exception.ErrWebSocketUnsupportedMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(c.writeDeadline(ctx)); err != nil {
		return err
	}
	return c.conn.WriteMessage(int(msgType), payload)
}

// Close sends a close frame on a best effort basis and releases the socket. It is safe to call more than once.
func (c *wsConn) Close(code CloseCode, reason string) error {
	c.closeOnce.Do(func() {
		_ = c.conn.WriteControl(
			gws.CloseMessage,
			gws.FormatCloseMessage(int(code), reason),
			time.Now().Add(c.writeTimeout),
		)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *wsConn) writeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.writeTimeout)
	if ctx == nil {
		return deadline
	}
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

func setDeadline(ctx context.Context, set func(time.Time) error) error {
	if ctx == nil {
		return set(time.Time{})
	}
	if deadline, ok := ctx.Deadline(); ok {
		return set(deadline)
	}
	if ctx.Err() != nil {
		return set(time.Now())
	}
	return set(time.Time{})
}
