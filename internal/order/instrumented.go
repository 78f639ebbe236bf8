package order

import (
	"context"

	"github.com/JFForsythe/kalshitest/internal/adapter"
	"github.com/JFForsythe/kalshitest/internal/obs"

	"github.com/yanun0323/logs"
)

type instrumented struct {
	next    OrderEntry
	metrics *obs.Metrics
}

// Instrument wraps entry so every call records its outcome in metrics.
func Instrument(entry OrderEntry, metrics *obs.Metrics) OrderEntry {
	if entry == nil || metrics == nil {
		return entry
	}
	return &instrumented{next: entry, metrics: metrics}
}

func (i *instrumented) SendOrder(ctx context.Context, req adapter.OrderRequest) (adapter.OrderAck, error) {
	ack, err := i.next.SendOrder(ctx, req)
	if err != nil {
		i.observeFailure(err)
		logs.Warnf("send order %s failed: %+v", req, err)
		return ack, err
	}
	i.metrics.ObserveSend(ack.RoundTrip())
	return ack, nil
}

func (i *instrumented) ModifyOrder(ctx context.Context, orderID string, newPrice float64) (adapter.OrderAck, error) {
	ack, err := i.next.ModifyOrder(ctx, orderID, newPrice)
	if err != nil {
		i.observeFailure(err)
		logs.Warnf("modify order %s to %g failed: %+v", orderID, newPrice, err)
		return ack, err
	}
	i.metrics.ObserveModify(ack.RoundTrip())
	return ack, nil
}

func (i *instrumented) observeFailure(err error) {
	switch {
	case IsRejected(err):
		i.metrics.IncOrderRejection()
	case IsConnection(err):
		i.metrics.IncOrderFailure()
	}
}
