package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/freqdash/freqdash/internal/domain"
)

// RecentTradesLimit is how many rows the trades table shows.
const RecentTradesLimit = 10

// Stats are the headline numbers, recomputed from the trade list on every render.
type Stats struct {
	TotalTrades int
	TotalProfit decimal.Decimal
	OpenTrades  int
}

// TotalProfitString formats the profit with two decimals.
func (s Stats) TotalProfitString() string {
	return s.TotalProfit.StringFixed(2)
}

func ComputeStats(trades []domain.Trade) Stats {
	st := Stats{TotalTrades: len(trades), TotalProfit: decimal.Zero}
	for i := range trades {
		st.TotalProfit = st.TotalProfit.Add(decimal.NewFromFloat(trades[i].ProfitAbs))
		if trades[i].IsOpen {
			st.OpenTrades++
		}
	}
	return st
}

// ProfitPoint is one chart sample.
type ProfitPoint struct {
	OpenDate  time.Time
	ProfitAbs float64
}

// ProfitSeries returns (open_date, profit_abs) pairs in chronological order. Trades
// with the same open date keep their backend order.
func ProfitSeries(trades []domain.Trade) []ProfitPoint {
	out := make([]ProfitPoint, len(trades))
	for i := range trades {
		out[i] = ProfitPoint{OpenDate: trades[i].OpenDate.Time, ProfitAbs: trades[i].ProfitAbs}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpenDate.Before(out[j].OpenDate)
	})
	return out
}

// RecentTrades returns at most n trades in backend order.
func RecentTrades(trades []domain.Trade, n int) []domain.Trade {
	if n < 0 {
		n = 0
	}
	if len(trades) <= n {
		return trades
	}
	return trades[:n]
}
