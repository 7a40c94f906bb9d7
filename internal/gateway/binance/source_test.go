package binance

import (
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWireSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", toWireSymbol("btcusdt"))
	assert.Equal(t, "BTCUSDT", toWireSymbol(" BTC/USDT "))
	assert.Equal(t, "ETHUSDT", toWireSymbol("ETHUSDT"))
	assert.Equal(t, "", toWireSymbol("  "))
}

func TestParseWireFloat(t *testing.T) {
	assert.Equal(t, 42000.5, parseWireFloat("42000.50"))
	assert.Equal(t, 0.001, parseWireFloat(" 0.001 "))
	assert.Zero(t, parseWireFloat("not-a-number"))
	assert.Zero(t, parseWireFloat(""))
}

func TestConvertAggTradeEvent(t *testing.T) {
	ev := &futures.WsAggTradeEvent{
		Symbol:    "BTCUSDT",
		Price:     "42000.50",
		Quantity:  "0.125",
		Time:      1700000000000,
		TradeTime: 1700000000123,
	}
	te, ok := convertAggTradeEvent(ev)
	require.True(t, ok)
	assert.Equal(t, "btcusdt", te.Symbol)
	assert.Equal(t, 42000.5, te.Price)
	assert.Equal(t, 0.125, te.Quantity)
	assert.Equal(t, int64(1700000000000), te.EventTime)
	assert.Equal(t, int64(1700000000123), te.TradeTime)

	// zero quantity is a valid aggregate, zero price is not
	_, ok = convertAggTradeEvent(&futures.WsAggTradeEvent{Symbol: "BTCUSDT", Price: "42000", Quantity: "0"})
	assert.True(t, ok)

	bad := []*futures.WsAggTradeEvent{
		nil,
		{Symbol: "BTCUSDT", Price: "0", Quantity: "1"},
		{Symbol: "BTCUSDT", Price: "-1", Quantity: "1"},
		{Symbol: "BTCUSDT", Price: "oops", Quantity: "1"},
		{Symbol: "BTCUSDT", Price: "100", Quantity: "-1"},
		{Symbol: "BTCUSDT", Price: "100", Quantity: "oops"},
		{Symbol: "", Price: "100", Quantity: "1"},
	}
	for _, ev := range bad {
		_, ok := convertAggTradeEvent(ev)
		assert.False(t, ok)
	}
}

func TestNextDelayBacksOff(t *testing.T) {
	assert.Equal(t, time.Second, nextDelay(0))
	assert.Equal(t, 2*time.Second, nextDelay(time.Second))
	assert.Equal(t, 16*time.Second, nextDelay(8*time.Second))
	assert.Equal(t, 30*time.Second, nextDelay(16*time.Second))
	assert.Equal(t, 30*time.Second, nextDelay(30*time.Second))
}

func TestConfigDefaults(t *testing.T) {
	empty := Config{}
	cfg := empty.withDefaults()
	assert.Equal(t, "https://fapi.binance.com", cfg.RESTBaseURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)

	custom := Config{RESTBaseURL: " https://testnet.binancefuture.com ", HTTPTimeout: time.Second}
	cfg = custom.withDefaults()
	assert.Equal(t, "https://testnet.binancefuture.com", cfg.RESTBaseURL)
	assert.Equal(t, time.Second, cfg.HTTPTimeout)
}
