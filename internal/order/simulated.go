package order

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/JFForsythe/kalshitest/internal/adapter"

	"github.com/google/uuid"
)

const (
	simulatedOrderPrefix  = "SIM-"
	simulatedModifyPrefix = "MOD-"
)

// SimulatedClient acknowledges orders after a uniformly random delay within [min, max].
type SimulatedClient struct {
	min time.Duration
	max time.Duration
}

// NewSimulatedClient builds a simulated backend. Negative bounds become zero and max is raised to min.
func NewSimulatedClient(min, max time.Duration) *SimulatedClient {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &SimulatedClient{min: min, max: max}
}

// Bounds returns the configured latency range.
func (c *SimulatedClient) Bounds() (time.Duration, time.Duration) {
	return c.min, c.max
}

// SendOrder validates req before simulating the round trip, so rejections never wait.
func (c *SimulatedClient) SendOrder(ctx context.Context, req adapter.OrderRequest) (adapter.OrderAck, error) {
	if err := ValidateRequest(req); err != nil {
		return adapter.OrderAck{}, err
	}
	return c.roundTrip(ctx, simulatedOrderPrefix)
}

// ModifyOrder accepts any price.
func (c *SimulatedClient) ModifyOrder(ctx context.Context, _ string, _ float64) (adapter.OrderAck, error) {
	return c.roundTrip(ctx, simulatedModifyPrefix)
}

func (c *SimulatedClient) roundTrip(ctx context.Context, prefix string) (adapter.OrderAck, error) {
	sentAt := time.Now()
	if err := sleep(ctx, c.delay()); err != nil {
		return adapter.OrderAck{}, NewConnection("simulated round trip interrupted", err)
	}
	return adapter.OrderAck{
		OrderID: prefix + uuid.NewString(),
		SentAt:  sentAt,
		AckedAt: time.Now(),
	}, nil
}

func (c *SimulatedClient) delay() time.Duration {
	span := c.max - c.min
	if span <= 0 {
		return c.min
	}
	return c.min + time.Duration(rand.Int64N(int64(span)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
