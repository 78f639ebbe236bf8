package adapter

import (
	"fmt"
	"time"

	"github.com/JFForsythe/kalshitest/internal/adapter/enum"
)

// OrderRequest is an order submitted through an order entry backend.
// Price is only meaningful for limit orders.
type OrderRequest struct {
	Instrument string
	Side       enum.OrderSide
	Quantity   float64
	Type       enum.OrderType
	Price      float64
}

// NewMarketOrder builds a market order request.
func NewMarketOrder(instrument string, side enum.OrderSide, quantity float64) OrderRequest {
	return OrderRequest{
		Instrument: instrument,
		Side:       side,
		Quantity:   quantity,
		Type:       enum.OrderTypeMarket,
	}
}

// NewLimitOrder builds a limit order request.
func NewLimitOrder(instrument string, side enum.OrderSide, quantity, price float64) OrderRequest {
	return OrderRequest{
		Instrument: instrument,
		Side:       side,
		Quantity:   quantity,
		Type:       enum.OrderTypeLimit,
		Price:      price,
	}
}

func (r OrderRequest) String() string {
	if r.Type == enum.OrderTypeLimit {
		return fmt.Sprintf("%s %s %g %s@%g", r.Side, r.Type, r.Quantity, r.Instrument, r.Price)
	}
	return fmt.Sprintf("%s %s %g %s", r.Side, r.Type, r.Quantity, r.Instrument)
}

// OrderAck is the backend acknowledgement of a submitted or modified order.
// AckedAt is never before SentAt.
type OrderAck struct {
	OrderID string
	SentAt  time.Time
	AckedAt time.Time
}

// RoundTrip returns the time between sending and acknowledgement.
func (a OrderAck) RoundTrip() time.Duration {
	return a.AckedAt.Sub(a.SentAt)
}
