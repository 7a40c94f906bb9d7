package market

// Tick is a single trade print as handed over by ingestion or storage.
// Timestamp carries whatever the feed delivered: ISO-8601 text or an
// epoch-millisecond integer rendered as text. The resampler normalizes
// both forms; nothing else interprets the field.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Timestamp string  `json:"timestamp"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
}

// TickEvent is a live trade received from a websocket source, already
// parsed into numeric fields.
type TickEvent struct {
	Symbol    string
	Price     float64
	Quantity  float64
	EventTime int64
	TradeTime int64
}
