package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefaults() RunConfig {
	return RunConfig{
		Timeframe:      "1s",
		RollingWindow:  20,
		HedgeMethod:    "ols",
		EntryThreshold: 2.0,
		ExitThreshold:  0.0,
	}
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	cfg := RunConfig{Symbol1: " BTCUSDT ", Symbol2: "ETHUSDT"}
	require.NoError(t, cfg.normalize(testDefaults()))

	assert.Equal(t, "btcusdt", cfg.Symbol1)
	assert.Equal(t, "ethusdt", cfg.Symbol2)
	assert.Equal(t, "1s", cfg.Timeframe)
	assert.Equal(t, 20, cfg.RollingWindow)
	assert.Equal(t, "ols", cfg.HedgeMethod)
	assert.Equal(t, 20, cfg.HedgeWindow)
	assert.Equal(t, 2.0, cfg.EntryThreshold)
	assert.Zero(t, cfg.ExitThreshold)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := RunConfig{
		Symbol1:        "btcusdt",
		Symbol2:        "ethusdt",
		Timeframe:      "5min",
		RollingWindow:  30,
		HedgeMethod:    "kalman",
		HedgeWindow:    60,
		EntryThreshold: 1.5,
		ExitThreshold:  0.5,
	}
	require.NoError(t, cfg.normalize(testDefaults()))
	assert.Equal(t, "5min", cfg.Timeframe)
	assert.Equal(t, 30, cfg.RollingWindow)
	assert.Equal(t, 60, cfg.HedgeWindow)
	assert.Equal(t, 0.5, cfg.ExitThreshold)
}

func TestNormalizeRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name string
		cfg  RunConfig
	}{
		{"missing symbol", RunConfig{Symbol2: "ethusdt"}},
		{"same symbols", RunConfig{Symbol1: "btcusdt", Symbol2: "BTCUSDT"}},
		{"bad timeframe", RunConfig{Symbol1: "btcusdt", Symbol2: "ethusdt", Timeframe: "7m"}},
		{"bad method", RunConfig{Symbol1: "btcusdt", Symbol2: "ethusdt", HedgeMethod: "magic"}},
		{"window too small", RunConfig{Symbol1: "btcusdt", Symbol2: "ethusdt", RollingWindow: 1}},
		{"negative entry", RunConfig{Symbol1: "btcusdt", Symbol2: "ethusdt", EntryThreshold: -1}},
		{"exit above entry", RunConfig{Symbol1: "btcusdt", Symbol2: "ethusdt", EntryThreshold: 1, ExitThreshold: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			assert.Error(t, cfg.normalize(testDefaults()))
		})
	}
}
