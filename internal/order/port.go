package order

import (
	"context"

	"github.com/JFForsythe/kalshitest/internal/adapter"
)

// OrderEntry submits and amends orders on a trading venue.
//
// Implementations return a *FixError so callers can tell business rejections from
// transport failures. No implementation retries on the caller's behalf.
type OrderEntry interface {
	SendOrder(ctx context.Context, req adapter.OrderRequest) (adapter.OrderAck, error)
	// ModifyOrder reprices a previously acknowledged order. orderID is assigned by the backend.
	ModifyOrder(ctx context.Context, orderID string, newPrice float64) (adapter.OrderAck, error)
}
