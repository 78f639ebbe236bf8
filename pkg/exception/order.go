package exception

import "errors"

var (
	ErrOrderRejected        = errors.New("order: rejected")
	ErrOrderConnection      = errors.New("order: connection failure")
	ErrOrderNilEntry        = errors.New("order: nil order entry")
	ErrOrderLiveUnavailable = errors.New("order: live order entry unavailable")
)
