package order

import (
	"errors"
	"fmt"

	"github.com/JFForsythe/kalshitest/pkg/exception"
)

// FixErrorKind classifies order entry failures.
type FixErrorKind uint8

const (
	_fix_error_kind_beg FixErrorKind = iota
	FixErrorConnection
	FixErrorRejected
	_fix_error_kind_end
)

func (k FixErrorKind) IsAvailable() bool {
	return k > _fix_error_kind_beg && k < _fix_error_kind_end
}

func (k FixErrorKind) String() string {
	switch k {
	case FixErrorConnection:
		return "connection"
	case FixErrorRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// FixError is returned by every OrderEntry implementation.
type FixError struct {
	Kind   FixErrorKind
	Reason string
	Err    error
}

// NewRejected reports a business rule violation.
func NewRejected(reason string) *FixError {
	return &FixError{Kind: FixErrorRejected, Reason: reason}
}

// NewConnection reports a transport failure caused by err.
func NewConnection(reason string, err error) *FixError {
	return &FixError{Kind: FixErrorConnection, Reason: reason, Err: err}
}

func (e *FixError) Error() string {
	var msg string
	switch e.Kind {
	case FixErrorRejected:
		msg = "order rejected: " + e.Reason
	case FixErrorConnection:
		msg = "connection failure: " + e.Reason
	default:
		msg = fmt.Sprintf("order entry failure (%s): %s", e.Kind, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the kind sentinel and the cause.
// It stays the multi-error form: yanun0323/errors unwraps past any cause with a single Unwrap.
func (e *FixError) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Kind {
	case FixErrorRejected:
		errs = append(errs, exception.ErrOrderRejected)
	case FixErrorConnection:
		errs = append(errs, exception.ErrOrderConnection)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsRejected reports whether err is a business rejection.
func IsRejected(err error) bool {
	return errors.Is(err, exception.ErrOrderRejected)
}

// IsConnection reports whether err is an order entry transport failure.
func IsConnection(err error) bool {
	return errors.Is(err, exception.ErrOrderConnection)
}
