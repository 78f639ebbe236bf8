package exception

import "errors"

var (
	ErrMarketDataDecode          = errors.New("market data: decode update")
	ErrPriceStreamNilDialer      = errors.New("price stream: nil dialer")
	ErrPriceStreamEmptyMarket    = errors.New("price stream: empty market")
	ErrPriceStreamClosedByServer = errors.New("price stream: closed by server")
	ErrPriceStreamAlreadyRunning = errors.New("price stream: already running")
)
