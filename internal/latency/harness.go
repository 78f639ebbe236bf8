package latency

import (
	"context"
	"time"

	"github.com/JFForsythe/kalshitest/internal/adapter"
	"github.com/JFForsythe/kalshitest/internal/adapter/enum"
	"github.com/JFForsythe/kalshitest/internal/obs"
	"github.com/JFForsythe/kalshitest/internal/order"
	"github.com/JFForsythe/kalshitest/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// CrossOffset is how far below the cross price the resting limit order is placed.
const CrossOffset = 10.0

const (
	PathMarketBuy   = "market_buy"
	PathModifyCross = "modify_cross"
)

// LatencySample is one measured order lifecycle step.
type LatencySample struct {
	Path    string
	Elapsed time.Duration
}

// LatencyReport holds the round trips of one benchmark run, in milliseconds.
type LatencyReport struct {
	MarketBuyMs   float64
	ModifyCrossMs float64
}

// Samples returns the report as per-path samples.
func (r LatencyReport) Samples() []LatencySample {
	return []LatencySample{
		{Path: PathMarketBuy, Elapsed: fromMillis(r.MarketBuyMs)},
		{Path: PathModifyCross, Elapsed: fromMillis(r.ModifyCrossMs)},
	}
}

// Benchmark runs the two step order lifecycle against entry:
// a market buy, then a limit buy CrossOffset below crossPrice repriced to crossPrice.
// Steps run strictly in sequence and the first error aborts the run.
func Benchmark(ctx context.Context, entry order.OrderEntry, instrument string, quantity, crossPrice float64) (LatencyReport, error) {
	if entry == nil {
		return LatencyReport{}, exception.ErrOrderNilEntry
	}

	start := time.Now()
	marketAck, err := entry.SendOrder(ctx, adapter.NewMarketOrder(instrument, enum.OrderSideBuy, quantity))
	if err != nil {
		return LatencyReport{}, errors.Wrap(err, "send market buy")
	}
	marketElapsed := marketAck.AckedAt.Sub(start)

	limitAck, err := entry.SendOrder(ctx, adapter.NewLimitOrder(instrument, enum.OrderSideBuy, quantity, crossPrice-CrossOffset))
	if err != nil {
		return LatencyReport{}, errors.Wrap(err, "send limit buy")
	}

	modifyStart := time.Now()
	modifyAck, err := entry.ModifyOrder(ctx, limitAck.OrderID, crossPrice)
	if err != nil {
		return LatencyReport{}, errors.Wrapf(err, "modify order %s", limitAck.OrderID)
	}
	modifyElapsed := modifyAck.AckedAt.Sub(modifyStart)

	report := LatencyReport{
		MarketBuyMs:   millis(marketElapsed),
		ModifyCrossMs: millis(modifyElapsed),
	}
	logs.Infof("latency: market %.2f ms | modify-cross %.2f ms", report.MarketBuyMs, report.ModifyCrossMs)
	return report, nil
}

// RunConfig parameterises repeated benchmark runs.
type RunConfig struct {
	Instrument string
	Quantity   float64
	CrossPrice float64
	Rounds     int
}

// Summary aggregates every round of Run.
type Summary struct {
	Rounds      int
	MarketBuy   obs.LatencySnapshot
	ModifyCross obs.LatencySnapshot
	Last        LatencyReport
}

// Run repeats Benchmark cfg.Rounds times. Any failing round aborts and no summary is returned.
func Run(ctx context.Context, entry order.OrderEntry, cfg RunConfig) (Summary, error) {
	rounds := cfg.Rounds
	if rounds <= 0 {
		rounds = 1
	}

	var marketBuy, modifyCross obs.LatencyStats
	var last LatencyReport
	for i := 0; i < rounds; i++ {
		report, err := Benchmark(ctx, entry, cfg.Instrument, cfg.Quantity, cfg.CrossPrice)
		if err != nil {
			return Summary{}, errors.Wrapf(err, "round %d", i+1)
		}
		for _, sample := range report.Samples() {
			switch sample.Path {
			case PathMarketBuy:
				marketBuy.Observe(sample.Elapsed)
			case PathModifyCross:
				modifyCross.Observe(sample.Elapsed)
			}
		}
		last = report
	}

	return Summary{
		Rounds:      rounds,
		MarketBuy:   marketBuy.Snapshot(),
		ModifyCross: modifyCross.Snapshot(),
		Last:        last,
	}, nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func fromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
