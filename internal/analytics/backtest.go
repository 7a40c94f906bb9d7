package analytics

// Side is the direction of a spread trade.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Trade is one round trip of the mean-reversion state machine. Exit
// fields are meaningful only when Closed is true; a trade still open
// when the series ends is reported with Closed == false.
type Trade struct {
	EntryTime   int64   `json:"entry_time"`
	EntryPrice  float64 `json:"entry_price"`
	EntryZScore float64 `json:"entry_zscore"`
	Side        Side    `json:"side"`
	Closed      bool    `json:"closed"`
	ExitTime    int64   `json:"exit_time,omitempty"`
	ExitPrice   float64 `json:"exit_price,omitempty"`
	ExitZScore  float64 `json:"exit_zscore,omitempty"`
	PnL         float64 `json:"pnl"`
}

// MeanReversionBacktest replays a spread/z-score pair through the
// flat/long/short state machine. Evaluation starts at the second bar;
// the first bar only initializes state. Entries require the z-score to
// strictly exceed the entry threshold, exits require it to strictly
// cross the exit threshold toward the mean. At most one trade is open
// at a time and a bar that closes a position never opens a new one, so
// a short can never flip to a long on the same bar. Shorts profit when
// the spread falls (entry - exit), longs when it rises (exit - entry).
// The fold is deterministic: same inputs, same output.
func MeanReversionBacktest(spread, zscore Series, entryTh, exitTh float64) ([]Trade, []int) {
	n := zscore.Len()
	if spread.Len() < n {
		n = spread.Len()
	}
	positions := make([]int, n)
	var trades []Trade
	pos := 0
	entryPrice := 0.0

	for i := 1; i < n; i++ {
		z := zscore.Values[i]
		switch {
		case pos == 0 && z > entryTh:
			pos = -1
			entryPrice = spread.Values[i]
			trades = append(trades, Trade{
				EntryTime:   spread.Index[i],
				EntryPrice:  entryPrice,
				EntryZScore: z,
				Side:        SideShort,
			})
		case pos == 0 && z < -entryTh:
			pos = 1
			entryPrice = spread.Values[i]
			trades = append(trades, Trade{
				EntryTime:   spread.Index[i],
				EntryPrice:  entryPrice,
				EntryZScore: z,
				Side:        SideLong,
			})
		case pos != 0 && ((pos == -1 && z < exitTh) || (pos == 1 && z > exitTh)):
			last := &trades[len(trades)-1]
			last.Closed = true
			last.ExitTime = spread.Index[i]
			last.ExitPrice = spread.Values[i]
			last.ExitZScore = z
			if pos == -1 {
				// short profits when the spread falls
				last.PnL = entryPrice - spread.Values[i]
			} else {
				last.PnL = spread.Values[i] - entryPrice
			}
			pos = 0
		}
		positions[i] = pos
	}
	return trades, positions
}

// BacktestSummary aggregates a trade log for reporting.
type BacktestSummary struct {
	Trades   int     `json:"trades"`
	Closed   int     `json:"closed"`
	Open     int     `json:"open"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"win_rate"`
	TotalPnL float64 `json:"total_pnl"`
}

// SummarizeTrades reduces a trade log to headline stats. Only closed
// trades count toward win rate and total PnL.
func SummarizeTrades(trades []Trade) BacktestSummary {
	s := BacktestSummary{Trades: len(trades)}
	for _, t := range trades {
		if !t.Closed {
			s.Open++
			continue
		}
		s.Closed++
		s.TotalPnL += t.PnL
		if t.PnL > 0 {
			s.Wins++
		} else if t.PnL < 0 {
			s.Losses++
		}
	}
	if s.Closed > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Closed)
	}
	return s
}
