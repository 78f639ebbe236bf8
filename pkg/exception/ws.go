package exception

import "errors"

// WS errors
var (
	ErrWebSocketProtocol           = errors.New("websocket: protocol error")
	ErrWebSocketUnsupportedScheme  = errors.New("websocket: unsupported url scheme")
	ErrWebSocketUnsupportedMessage = errors.New("websocket: unsupported message type")
)
