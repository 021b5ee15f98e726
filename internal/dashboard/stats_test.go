package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freqdash/freqdash/internal/domain"
)

func TestComputeStats(t *testing.T) {
	st := ComputeStats(sampleTrades())
	assert.Equal(t, 3, st.TotalTrades)
	assert.Equal(t, 1, st.OpenTrades)
	assert.Equal(t, "2.75", st.TotalProfitString())

	empty := ComputeStats(nil)
	assert.Zero(t, empty.TotalTrades)
	assert.Equal(t, "0.00", empty.TotalProfitString())
}

func TestComputeStats_NoFloatDrift(t *testing.T) {
	trades := make([]domain.Trade, 10)
	for i := range trades {
		trades[i].ProfitAbs = 0.1
	}
	assert.Equal(t, "1", ComputeStats(trades).TotalProfit.String())
}

func TestProfitSeries_Chronological(t *testing.T) {
	series := ProfitSeries(sampleTrades())
	require.Len(t, series, 3)
	assert.Equal(t, -2.0, series[0].ProfitAbs)
	assert.Equal(t, 1.5, series[1].ProfitAbs)
	assert.Equal(t, 3.25, series[2].ProfitAbs)
}

func TestProfitSeries_TiesKeepBackendOrder(t *testing.T) {
	ts := mustTS("2024-03-01 09:00:00")
	series := ProfitSeries([]domain.Trade{
		{ProfitAbs: 1, OpenDate: ts},
		{ProfitAbs: 2, OpenDate: ts},
	})
	assert.Equal(t, 1.0, series[0].ProfitAbs)
	assert.Equal(t, 2.0, series[1].ProfitAbs)
}

func TestRecentTrades(t *testing.T) {
	trades := make([]domain.Trade, 15)
	for i := range trades {
		trades[i].Pair = string(rune('A' + i))
	}
	got := RecentTrades(trades, RecentTradesLimit)
	require.Len(t, got, 10)
	assert.Equal(t, "A", got[0].Pair)
	assert.Equal(t, "J", got[9].Pair)

	assert.Len(t, RecentTrades(trades[:3], 10), 3)
	assert.Empty(t, RecentTrades(trades, -1))
}
