package market

import (
	"sync"
)

// TickBuffer keeps the most recent ticks per symbol in memory. It is the
// as-of snapshot boundary between the live feed and the analytics core:
// Snapshot returns copies, so a resample or backtest never observes a
// torn read while the collector keeps appending.
type TickBuffer struct {
	shards []tickShard
	max    int
}

type tickShard struct {
	mu   sync.RWMutex
	data map[string][]Tick
}

const defaultTickShards = 16

func NewTickBuffer(maxPerSymbol int) *TickBuffer {
	if maxPerSymbol <= 0 {
		maxPerSymbol = 10000
	}
	b := &TickBuffer{
		shards: make([]tickShard, defaultTickShards),
		max:    maxPerSymbol,
	}
	for i := range b.shards {
		b.shards[i] = tickShard{data: make(map[string][]Tick)}
	}
	return b
}

func (b *TickBuffer) shardFor(symbol string) *tickShard {
	return &b.shards[hashKey(symbol)%uint32(len(b.shards))]
}

func (b *TickBuffer) Append(ticks ...Tick) {
	for _, t := range ticks {
		if t.Symbol == "" {
			continue
		}
		sh := b.shardFor(t.Symbol)
		sh.mu.Lock()
		cur := append(sh.data[t.Symbol], t)
		if len(cur) > b.max {
			cur = cur[len(cur)-b.max:]
		}
		sh.data[t.Symbol] = cur
		sh.mu.Unlock()
	}
}

// Snapshot returns a copy of the buffered ticks for one symbol, newest last.
func (b *TickBuffer) Snapshot(symbol string) []Tick {
	sh := b.shardFor(symbol)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	cur := sh.data[symbol]
	out := make([]Tick, len(cur))
	copy(out, cur)
	return out
}

// SnapshotAll returns a copy of the buffered ticks for every symbol,
// concatenated. Ordering across symbols is not guaranteed; the resampler
// does not require it.
func (b *TickBuffer) SnapshotAll() []Tick {
	var out []Tick
	for i := range b.shards {
		sh := &b.shards[i]
		sh.mu.RLock()
		for _, ticks := range sh.data {
			out = append(out, ticks...)
		}
		sh.mu.RUnlock()
	}
	return out
}

func (b *TickBuffer) Len(symbol string) int {
	sh := b.shardFor(symbol)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.data[symbol])
}

func (b *TickBuffer) Clear() {
	for i := range b.shards {
		sh := &b.shards[i]
		sh.mu.Lock()
		sh.data = make(map[string][]Tick)
		sh.mu.Unlock()
	}
}

func hashKey(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	var h uint32 = offset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
