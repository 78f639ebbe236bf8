package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JFForsythe/kalshitest/pkg/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	EnvWebSocketURL, EnvFixTarget, EnvMarket, EnvAccount, EnvDryRun,
	EnvReconnectBackoff, EnvReconnectMax, EnvReconnectJitter, EnvPriceBuffer, EnvSimMinLatency, EnvSimMaxLatency,
	EnvBenchRounds, EnvPyroscopeAddr,
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Config{
		WebSocketURL:     DefaultWebSocketURL,
		FixTarget:        DefaultFixTarget,
		Market:           DefaultMarket,
		Account:          DefaultAccount,
		DryRun:           true,
		ReconnectBackoff: time.Second,
		PriceBuffer:      1024,
		SimMinLatency:    3 * time.Millisecond,
		SimMaxLatency:    8 * time.Millisecond,
		BenchRounds:      1,
	}, cfg)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvWebSocketURL, "ws://localhost:9000/feed")
	t.Setenv(EnvMarket, "ETH-DAILY")
	t.Setenv(EnvAccount, "ACC-1")
	t.Setenv(EnvDryRun, "false")
	t.Setenv(EnvReconnectBackoff, "250ms")
	t.Setenv(EnvPriceBuffer, "16")
	t.Setenv(EnvSimMinLatency, "1ms")
	t.Setenv(EnvSimMaxLatency, "2ms")
	t.Setenv(EnvBenchRounds, "5")
	t.Setenv(EnvPyroscopeAddr, "http://pyroscope:4040")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:9000/feed", cfg.WebSocketURL)
	assert.Equal(t, "ETH-DAILY", cfg.Market)
	assert.Equal(t, "ACC-1", cfg.Account)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectBackoff)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectMax)
	assert.Equal(t, 16, cfg.PriceBuffer)
	assert.Equal(t, time.Millisecond, cfg.SimMinLatency)
	assert.Equal(t, 2*time.Millisecond, cfg.SimMaxLatency)
	assert.Equal(t, 5, cfg.BenchRounds)
	assert.Equal(t, "http://pyroscope:4040", cfg.PyroscopeAddr)
}

func TestReconnectPolicy(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, websocket.FixedBackoff(time.Second), cfg.ReconnectPolicy())

	t.Setenv(EnvReconnectBackoff, "200ms")
	t.Setenv(EnvReconnectMax, "1s")
	t.Setenv(EnvReconnectJitter, "0.25")
	cfg, err = Load("")
	require.NoError(t, err)

	policy := cfg.ReconnectPolicy()
	assert.Equal(t, websocket.Backoff{Min: 200 * time.Millisecond, Max: time.Second, Factor: 2, Jitter: 0.25}, policy)

	policy.Jitter = 0
	got := []time.Duration{policy.Next(1), policy.Next(2), policy.Next(3), policy.Next(4)}
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}, got)
}

func TestResolveDryRun(t *testing.T) {
	cases := map[string]bool{
		"":      true,
		"1":     true,
		"true":  true,
		"TRUE":  true,
		"True":  true,
		"0":     false,
		"false": false,
		"yes":   false,
	}
	for raw, expected := range cases {
		if got := resolveDryRun(raw); got != expected {
			t.Fatalf("resolveDryRun(%q) = %v, want %v", raw, got, expected)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bot.env")
	content := "MARKET=SOL-WEEKLY\nDRY_RUN=1\nSIM_MAX_LATENCY=20ms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// the process environment wins over the file
	t.Setenv(EnvSimMaxLatency, "10ms")
	t.Cleanup(func() {
		_ = os.Unsetenv(EnvMarket)
		_ = os.Unsetenv(EnvDryRun)
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "SOL-WEEKLY", cfg.Market)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 10*time.Millisecond, cfg.SimMaxLatency)
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad scheme", EnvWebSocketURL, "https://example.com"},
		{"blank market", EnvMarket, "   "},
		{"bad duration", EnvReconnectBackoff, "soon"},
		{"zero backoff", EnvReconnectBackoff, "0s"},
		{"max below backoff", EnvReconnectMax, "10ms"},
		{"bad jitter", EnvReconnectJitter, "some"},
		{"jitter above one", EnvReconnectJitter, "1.5"},
		{"bad buffer", EnvPriceBuffer, "many"},
		{"zero buffer", EnvPriceBuffer, "0"},
		{"negative min latency", EnvSimMinLatency, "-1ms"},
		{"max below min", EnvSimMaxLatency, "1ms"},
		{"zero rounds", EnvBenchRounds, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load("")
			if err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}
