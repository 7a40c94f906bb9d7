package market

import "context"

type SubscribeOptions struct {
	Buffer       int
	OnConnect    func()
	OnDisconnect func(error)
}

type SourceStats struct {
	Reconnects      int
	SubscribeErrors int
	LastError       string
}

// Source is a live market-data feed. Implementations own the connection
// lifecycle including reconnects; consumers only read the channel.
type Source interface {
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	SubscribeTrades(ctx context.Context, symbols []string, opts SubscribeOptions) (<-chan TickEvent, error)

	Stats() SourceStats

	Close() error
}
