package order

import (
	"github.com/JFForsythe/kalshitest/internal/adapter"
	"github.com/JFForsythe/kalshitest/internal/adapter/enum"
)

// ValidateRequest applies the business rules every backend enforces before any transport work.
// Quantity is passed through unchecked; sizing limits belong to the venue.
func ValidateRequest(req adapter.OrderRequest) error {
	if !req.Side.IsAvailable() {
		return NewRejected("unknown order side")
	}
	if !req.Type.IsAvailable() {
		return NewRejected("unknown order type")
	}
	if req.Type == enum.OrderTypeLimit && !(req.Price > 0) {
		return NewRejected("limit price must be positive")
	}
	return nil
}
