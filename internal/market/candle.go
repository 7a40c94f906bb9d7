package market

// Candle is one OHLCV bucket. OpenTime is the bucket start in epoch
// milliseconds. Synthetic gap-fill candles carry Trades == 0 and
// Open == High == Low == Close.
type Candle struct {
	Symbol   string  `json:"symbol"`
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
	Trades   int64   `json:"trades"`
}

// Synthetic reports whether the candle was produced by gap filling
// rather than observed trades.
func (c Candle) Synthetic() bool {
	return c.Trades == 0 && c.Volume == 0
}
