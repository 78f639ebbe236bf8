package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JFForsythe/kalshitest/internal/adapter"
	"github.com/JFForsythe/kalshitest/internal/bus"
	"github.com/JFForsythe/kalshitest/internal/ingest/pricestream"
	"github.com/JFForsythe/kalshitest/internal/latency"
	"github.com/JFForsythe/kalshitest/internal/obs"
	"github.com/JFForsythe/kalshitest/internal/ops"
	"github.com/JFForsythe/kalshitest/internal/order"
	"github.com/JFForsythe/kalshitest/pkg/exception"
	"github.com/JFForsythe/kalshitest/pkg/websocket"

	pyroscope "github.com/grafana/pyroscope-go"
	yerrors "github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

const (
	benchQuantity   = 1.0
	benchCrossPrice = 30000.0
)

func main() {
	if err := run(); err != nil {
		log.Printf("tradingbot: %v", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env-file", "", "Optional .env file loaded before reading the environment")
	keepStreaming := flag.Bool("keep-streaming", false, "Keep streaming prices after the benchmark until interrupted")
	benchRounds := flag.Int("bench-rounds", 0, "Benchmark rounds (overrides BENCH_ROUNDS when > 0)")
	flag.Parse()

	cfg, err := ops.Load(*envFile)
	if err != nil {
		return err
	}
	if *benchRounds > 0 {
		cfg.BenchRounds = *benchRounds
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "tradingbot",
			ServerAddress:   cfg.PyroscopeAddr,
			Tags: map[string]string{
				"market":  cfg.Market,
				"dry_run": boolTag(cfg.DryRun),
			},
			Logger: profilerLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return yerrors.Wrap(err, "start pyroscope")
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	metrics := obs.NewMetrics()

	dialer, err := websocket.NewDialer(websocket.DialerConfig{
		URL:    cfg.WebSocketURL,
		OnPing: func([]byte) { metrics.IncPing() },
	})
	if err != nil {
		return err
	}
	dist := bus.NewDistributor[adapter.PriceUpdate](cfg.PriceBuffer)
	dist.SetDropHook(metrics.IncSubscriberDrop)
	defer dist.Close()

	supervisor, err := pricestream.NewSupervisor(pricestream.Config{
		Dialer:      dialer,
		Distributor: dist,
		Backoff:     cfg.ReconnectPolicy(),
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	entry, err := newOrderEntry(cfg)
	if err != nil {
		return err
	}
	entry = order.Instrument(entry, metrics)

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	prices := supervisor.Subscribe()
	go logPrices(streamCtx, prices)

	streamErr := make(chan error, 1)
	go func() {
		streamErr <- supervisor.Run(streamCtx, cfg.Market)
	}()

	logs.Infof("tradingbot started, market: %s, account: %s, dry run: %v, fix target: %s",
		cfg.Market, cfg.Account, cfg.DryRun, cfg.FixTarget)

	summary, err := latency.Run(ctx, entry, latency.RunConfig{
		Instrument: cfg.Market,
		Quantity:   benchQuantity,
		CrossPrice: benchCrossPrice,
		Rounds:     cfg.BenchRounds,
	})
	if err != nil {
		return yerrors.Wrap(err, "latency benchmark")
	}
	logs.Infof("benchmark done, rounds: %d, market avg: %s (min %s, max %s), modify-cross avg: %s (min %s, max %s)",
		summary.Rounds,
		summary.MarketBuy.Avg, summary.MarketBuy.Min, summary.MarketBuy.Max,
		summary.ModifyCross.Avg, summary.ModifyCross.Min, summary.ModifyCross.Max)

	if *keepStreaming {
		select {
		case err := <-streamErr:
			return streamFailure(err)
		case <-ctx.Done():
		case <-sys.Shutdown():
		}
	}

	cancelStream()
	err = streamFailure(<-streamErr)
	logMetrics(metrics.Snapshot())
	return err
}

// newOrderEntry selects the order entry backend. Only the simulated backend ships.
func newOrderEntry(cfg ops.Config) (order.OrderEntry, error) {
	if !cfg.DryRun {
		return nil, yerrors.Wrapf(exception.ErrOrderLiveUnavailable, "fix target: %s, account: %s", cfg.FixTarget, cfg.Account)
	}
	return order.NewSimulatedClient(cfg.SimMinLatency, cfg.SimMaxLatency), nil
}

// streamFailure filters out the cancellation the process itself requested.
func streamFailure(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return yerrors.Wrap(err, "price stream")
}

func logPrices(ctx context.Context, sub *bus.Subscriber[adapter.PriceUpdate]) {
	defer sub.Close()
	for {
		select {
		case update, ok := <-sub.C():
			if !ok {
				return
			}
			logs.Infof("price %s bid: %g ask: %g spread: %g ts: %d",
				update.Instrument, update.Bid, update.Ask, update.Spread(), update.Timestamp)
		case <-ctx.Done():
			return
		case <-sys.Shutdown():
			return
		}
	}
}

func logMetrics(snap obs.Snapshot) {
	logs.Infof("stream frames: %d, published: %d, decode failures: %d, pings: %d, connects: %d, reconnects: %d, drops: %d",
		snap.Frames, snap.Published, snap.DecodeFailures, snap.Pings, snap.Connects, snap.Reconnects, snap.SubscriberDrops)
	logs.Infof("orders rejected: %d, connection failures: %d", snap.OrderRejections, snap.OrderFailures)
}

func boolTag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{})  { logs.Infof(format, args...) }
func (profilerLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
