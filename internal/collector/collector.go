// Package collector drains the exchange trade stream into the in-memory
// tick buffer and flushes batches to sqlite on a fixed cadence.
package collector

import (
	"context"
	"strconv"
	"sync"
	"time"

	"pairlab/internal/logger"
	"pairlab/internal/market"
)

// TickSink is the slice of the store the collector needs.
type TickSink interface {
	InsertTicks(ctx context.Context, ticks []market.Tick) (int, error)
}

type Options struct {
	// BatchSize flushes early once this many ticks are pending.
	BatchSize int
	// FlushInterval flushes pending ticks regardless of batch size.
	FlushInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 5 * time.Second
	}
	return o
}

// Stats is a point-in-time snapshot of collector counters.
type Stats struct {
	Received  int64
	Stored    int64
	Rejected  int64
	Flushes   int64
	PerSymbol map[string]int64
}

// Collector consumes trade events from a market.Source channel, mirrors
// them into a TickBuffer for as-of analytics snapshots, and persists
// them in batches.
type Collector struct {
	sink   TickSink
	buffer *market.TickBuffer
	opts   Options

	mu        sync.Mutex
	pending   []market.Tick
	received  int64
	stored    int64
	rejected  int64
	flushes   int64
	perSymbol map[string]int64

	wg sync.WaitGroup
}

func New(sink TickSink, buffer *market.TickBuffer, opts Options) *Collector {
	return &Collector{
		sink:      sink,
		buffer:    buffer,
		opts:      opts.withDefaults(),
		perSymbol: make(map[string]int64),
	}
}

// Run consumes events until ctx is cancelled or the channel closes,
// then performs a final flush. It blocks; callers run it in a
// goroutine or an errgroup.
func (c *Collector) Run(ctx context.Context, events <-chan market.TickEvent) error {
	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()
	defer c.flush(context.Background())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.flush(ctx)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.ingest(ctx, ev)
		}
	}
}

func (c *Collector) ingest(ctx context.Context, ev market.TickEvent) {
	c.mu.Lock()
	c.received++
	if ev.Symbol == "" || ev.Price <= 0 {
		c.rejected++
		c.mu.Unlock()
		return
	}
	ts := ev.TradeTime
	if ts <= 0 {
		ts = ev.EventTime
	}
	tick := market.Tick{
		Symbol:    ev.Symbol,
		Timestamp: strconv.FormatInt(ts, 10),
		Price:     ev.Price,
		Size:      ev.Quantity,
	}
	c.perSymbol[ev.Symbol]++
	c.pending = append(c.pending, tick)
	shouldFlush := len(c.pending) >= c.opts.BatchSize
	c.mu.Unlock()

	if c.buffer != nil {
		c.buffer.Append(tick)
	}
	if shouldFlush {
		c.flush(ctx)
	}
}

func (c *Collector) flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	stored, err := c.sink.InsertTicks(ctx, batch)
	c.mu.Lock()
	c.flushes++
	c.stored += int64(stored)
	c.rejected += int64(len(batch) - stored)
	c.mu.Unlock()
	if err != nil {
		logger.Errorf("[collector] flush %d ticks failed: %v", len(batch), err)
		return
	}
	logger.Debugf("[collector] flushed %d ticks", stored)
}

func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	per := make(map[string]int64, len(c.perSymbol))
	for k, v := range c.perSymbol {
		per[k] = v
	}
	return Stats{
		Received:  c.received,
		Stored:    c.stored,
		Rejected:  c.rejected,
		Flushes:   c.flushes,
		PerSymbol: per,
	}
}
