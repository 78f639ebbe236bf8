package ops

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JFForsythe/kalshitest/pkg/websocket"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvWebSocketURL     = "WEBSOCKET_URL"
	EnvFixTarget        = "FIX_TARGET"
	EnvMarket           = "MARKET"
	EnvAccount          = "ACCOUNT"
	EnvDryRun           = "DRY_RUN"
	EnvReconnectBackoff = "RECONNECT_BACKOFF"
	EnvReconnectMax     = "RECONNECT_MAX_BACKOFF"
	EnvReconnectJitter  = "RECONNECT_JITTER"
	EnvPriceBuffer      = "PRICE_BUFFER"
	EnvSimMinLatency    = "SIM_MIN_LATENCY"
	EnvSimMaxLatency    = "SIM_MAX_LATENCY"
	EnvBenchRounds      = "BENCH_ROUNDS"
	EnvPyroscopeAddr    = "PYROSCOPE_ADDR"
)

// Defaults applied when a variable is unset or empty.
const (
	DefaultWebSocketURL     = "wss://demo-exchange.kalshi.com/trade-api/v2/market-data"
	DefaultFixTarget        = "demo-fix.kalshi.com:1234"
	DefaultMarket           = "BTC-HOURLY"
	DefaultAccount          = "SIM-ACCOUNT"
	DefaultReconnectBackoff = time.Second
	DefaultPriceBuffer      = 1024
	DefaultSimMinLatency    = 3 * time.Millisecond
	DefaultSimMaxLatency    = 8 * time.Millisecond
	DefaultBenchRounds      = 1
)

// Config is the resolved process configuration.
type Config struct {
	WebSocketURL string
	FixTarget    string
	Market       string
	Account      string
	DryRun       bool

	ReconnectBackoff time.Duration
	ReconnectMax     time.Duration
	ReconnectJitter  float64
	PriceBuffer      int
	SimMinLatency    time.Duration
	SimMaxLatency    time.Duration
	BenchRounds      int
	PyroscopeAddr    string
}

// Load reads the configuration from the process environment.
// When envFile is set it is loaded first; variables already present in the environment win.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := Config{
		WebSocketURL:  stringEnv(EnvWebSocketURL, DefaultWebSocketURL),
		FixTarget:     stringEnv(EnvFixTarget, DefaultFixTarget),
		Market:        stringEnv(EnvMarket, DefaultMarket),
		Account:       stringEnv(EnvAccount, DefaultAccount),
		DryRun:        resolveDryRun(os.Getenv(EnvDryRun)),
		PyroscopeAddr: os.Getenv(EnvPyroscopeAddr),
	}

	var err error
	if cfg.ReconnectBackoff, err = durationEnv(EnvReconnectBackoff, DefaultReconnectBackoff); err != nil {
		return Config{}, err
	}
	if cfg.ReconnectMax, err = durationEnv(EnvReconnectMax, cfg.ReconnectBackoff); err != nil {
		return Config{}, err
	}
	if cfg.ReconnectJitter, err = floatEnv(EnvReconnectJitter, 0); err != nil {
		return Config{}, err
	}
	if cfg.SimMinLatency, err = durationEnv(EnvSimMinLatency, DefaultSimMinLatency); err != nil {
		return Config{}, err
	}
	if cfg.SimMaxLatency, err = durationEnv(EnvSimMaxLatency, DefaultSimMaxLatency); err != nil {
		return Config{}, err
	}
	if cfg.PriceBuffer, err = intEnv(EnvPriceBuffer, DefaultPriceBuffer); err != nil {
		return Config{}, err
	}
	if cfg.BenchRounds, err = intEnv(EnvBenchRounds, DefaultBenchRounds); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	u, err := url.Parse(c.WebSocketURL)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvWebSocketURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%s: scheme must be ws or wss, got %q", EnvWebSocketURL, u.Scheme)
	}
	if strings.TrimSpace(c.Market) == "" {
		return fmt.Errorf("%s must not be blank", EnvMarket)
	}
	if c.ReconnectBackoff <= 0 {
		return fmt.Errorf("%s must be > 0", EnvReconnectBackoff)
	}
	if c.ReconnectMax < c.ReconnectBackoff {
		return fmt.Errorf("%s must be >= %s", EnvReconnectMax, EnvReconnectBackoff)
	}
	if c.ReconnectJitter < 0 || c.ReconnectJitter > 1 {
		return fmt.Errorf("%s must be within [0, 1]", EnvReconnectJitter)
	}
	if c.PriceBuffer <= 0 {
		return fmt.Errorf("%s must be > 0", EnvPriceBuffer)
	}
	if c.SimMinLatency < 0 {
		return fmt.Errorf("%s must be >= 0", EnvSimMinLatency)
	}
	if c.SimMaxLatency < c.SimMinLatency {
		return fmt.Errorf("%s must be >= %s", EnvSimMaxLatency, EnvSimMinLatency)
	}
	if c.BenchRounds <= 0 {
		return fmt.Errorf("%s must be > 0", EnvBenchRounds)
	}
	return nil
}

// ReconnectPolicy waits ReconnectBackoff before every redial. When ReconnectMax is larger the
// wait doubles per failed attempt up to ReconnectMax instead.
func (c Config) ReconnectPolicy() websocket.Backoff {
	policy := websocket.FixedBackoff(c.ReconnectBackoff)
	if c.ReconnectMax > c.ReconnectBackoff {
		policy = websocket.ExponentialBackoff(c.ReconnectBackoff, c.ReconnectMax)
	}
	policy.Jitter = c.ReconnectJitter
	return policy
}

// resolveDryRun treats an unset variable as true; otherwise only "1" and "true" enable it.
func resolveDryRun(raw string) bool {
	if raw == "" {
		return true
	}
	return raw == "1" || strings.EqualFold(raw, "true")
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
