package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"pairlab/internal/logger"
	"pairlab/internal/market"
)

const maxHistoryLimit = 1500

// Source implements market.Source against Binance USD-M futures: REST
// kline history plus the aggregated-trade websocket stream with
// automatic reconnect.
type Source struct {
	cfg    Config
	client *futures.Client

	mu          sync.Mutex
	tradeCancel context.CancelFunc

	statsMu sync.Mutex
	stats   market.SourceStats
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		if proxyURL, err := url.Parse(final.RESTProxyURL); err == nil {
			httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		} else {
			logger.Warnf("[binance] invalid rest proxy url %q: %v", final.RESTProxyURL, err)
		}
	}
	client.HTTPClient = httpClient
	if final.ProxyEnabled && final.WSProxyURL != "" {
		futures.SetWsProxyUrl(final.WSProxyURL)
	}
	return &Source{cfg: final, client: client}
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	wireSymbol := toWireSymbol(symbol)
	if wireSymbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	kls, err := s.client.NewKlinesService().Symbol(wireSymbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			Symbol:   strings.ToLower(wireSymbol),
			OpenTime: kl.OpenTime,
			Open:     parseWireFloat(kl.Open),
			High:     parseWireFloat(kl.High),
			Low:      parseWireFloat(kl.Low),
			Close:    parseWireFloat(kl.Close),
			Volume:   parseWireFloat(kl.Volume),
			Trades:   kl.TradeNum,
		})
	}
	return out, nil
}

func (s *Source) SubscribeTrades(ctx context.Context, symbols []string, opts market.SubscribeOptions) (<-chan market.TickEvent, error) {
	wireSymbols := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if w := toWireSymbol(sym); w != "" {
			wireSymbols = append(wireSymbols, w)
		}
	}
	if len(wireSymbols) == 0 {
		return nil, fmt.Errorf("symbols are required for trade subscription")
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 1024
	}
	out := make(chan market.TickEvent, buffer)
	subCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.tradeCancel != nil {
		s.tradeCancel()
	}
	s.tradeCancel = cancel
	s.mu.Unlock()

	go func() {
		defer close(out)
		s.runTradeLoop(subCtx, wireSymbols, out, opts)
	}()
	return out, nil
}

func (s *Source) runTradeLoop(ctx context.Context, symbols []string, out chan<- market.TickEvent, opts market.SubscribeOptions) {
	delay := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		var errMu sync.Mutex
		var lastErr error
		handler := func(event *futures.WsAggTradeEvent) {
			te, ok := convertAggTradeEvent(event)
			if !ok {
				return
			}
			select {
			case <-ctx.Done():
				return
			case out <- te:
			default:
				logger.Warnf("[binance] aggTrade channel full, drop %s", te.Symbol)
			}
		}
		errHandler := func(err error) {
			if err == nil {
				return
			}
			errMu.Lock()
			lastErr = err
			errMu.Unlock()
		}
		doneC, stopC, err := futures.WsCombinedAggTradeServe(symbols, handler, errHandler)
		if err != nil {
			s.recordSubscribeError(err)
			if opts.OnDisconnect != nil {
				opts.OnDisconnect(err)
			}
			if !sleepWithContext(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}
		delay = time.Second
		if opts.OnConnect != nil {
			opts.OnConnect()
		}
		select {
		case <-ctx.Done():
			close(stopC)
			<-doneC
			return
		case <-doneC:
		}
		close(stopC)
		errMu.Lock()
		errCopy := lastErr
		errMu.Unlock()
		s.recordReconnect(errCopy)
		if opts.OnDisconnect != nil {
			opts.OnDisconnect(errCopy)
		}
		if !sleepWithContext(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

func (s *Source) Stats() market.SourceStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tradeCancel != nil {
		s.tradeCancel()
		s.tradeCancel = nil
	}
	return nil
}

// toWireSymbol maps a configured symbol ("btcusdt", "BTC/USDT") to the
// uppercase, slash-free form the exchange expects.
func toWireSymbol(sym string) string {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	return strings.ReplaceAll(sym, "/", "")
}

func parseWireFloat(v string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// convertAggTradeEvent validates a raw trade event. Price and quantity
// arrive as strings; both must parse as decimals and the price must be
// positive, or the event is dropped instead of poisoning downstream
// candles.
func convertAggTradeEvent(ev *futures.WsAggTradeEvent) (market.TickEvent, bool) {
	if ev == nil {
		return market.TickEvent{}, false
	}
	price, err := decimal.NewFromString(strings.TrimSpace(ev.Price))
	if err != nil || !price.IsPositive() {
		return market.TickEvent{}, false
	}
	quantity, err := decimal.NewFromString(strings.TrimSpace(ev.Quantity))
	if err != nil || quantity.IsNegative() {
		return market.TickEvent{}, false
	}
	symbol := strings.ToLower(strings.TrimSpace(ev.Symbol))
	if symbol == "" {
		return market.TickEvent{}, false
	}
	return market.TickEvent{
		Symbol:    symbol,
		Price:     price.InexactFloat64(),
		Quantity:  quantity.InexactFloat64(),
		EventTime: ev.Time,
		TradeTime: ev.TradeTime,
	}, true
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextDelay(current time.Duration) time.Duration {
	if current <= 0 {
		return time.Second
	}
	next := current * 2
	if next > 30*time.Second {
		next = 30 * time.Second
	}
	return next
}

func (s *Source) recordSubscribeError(err error) {
	if err == nil {
		return
	}
	s.statsMu.Lock()
	s.stats.SubscribeErrors++
	s.stats.LastError = err.Error()
	s.statsMu.Unlock()
}

func (s *Source) recordReconnect(err error) {
	s.statsMu.Lock()
	s.stats.Reconnects++
	if err != nil && err.Error() != "" {
		s.stats.LastError = err.Error()
	}
	s.statsMu.Unlock()
}
