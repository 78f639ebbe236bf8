package websocket

import "context"

// Conn is a minimal interface for a WebSocket connection.
//
// Read returns the next frame. Implementations that handle heartbeats internally must
// answer a ping before Read returns the frame that follows it; implementations that
// surface pings return them as MessagePing and leave the reply to the caller.
// A close frame from the peer is returned as MessageClose with a nil error.
type Conn interface {
	Read(ctx context.Context) (msgType MessageType, payload []byte, err error)
	Write(ctx context.Context, msgType MessageType, payload []byte) error
	Close(code CloseCode, reason string) error
}

// Dialer creates new connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
