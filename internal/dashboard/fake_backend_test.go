package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/freqdash/freqdash/internal/domain"
)

type fakeBackend struct {
	mu         sync.Mutex
	trades     []domain.Trade
	strategies []domain.Strategy
	status     string

	tradesErr     error
	strategiesErr error
	statusErr     error
	startErr      error
	stopErr       error

	// tradesFn overrides the trades response when set.
	tradesFn func(ctx context.Context, call int64) ([]domain.Trade, error)

	tradesCalls atomic.Int64
	startNames  []string
	startConfig []map[string]any
	stopCalls   atomic.Int64
}

func (f *fakeBackend) Trades(ctx context.Context) ([]domain.Trade, error) {
	call := f.tradesCalls.Add(1)
	f.mu.Lock()
	fn, trades, err := f.tradesFn, f.trades, f.tradesErr
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, call)
	}
	return trades, err
}

func (f *fakeBackend) Strategies(ctx context.Context) ([]domain.Strategy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strategies, f.strategiesErr
}

func (f *fakeBackend) Status(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func (f *fakeBackend) Start(ctx context.Context, name string, config map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startNames = append(f.startNames, name)
	f.startConfig = append(f.startConfig, config)
	return f.startErr
}

func (f *fakeBackend) Stop(ctx context.Context) error {
	f.stopCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopErr
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) PutJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memKV) GetJSON(key string, v any) (bool, error) {
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

func ptr[T any](v T) *T { return &v }

func sampleTrades() []domain.Trade {
	return []domain.Trade{
		{Pair: "BTC/USDT", ProfitAbs: 1.5, OpenDate: mustTS("2024-03-02 09:00:00"), CloseDate: ptr(mustTS("2024-03-02 11:00:00")), CloseRate: ptr(61500.0), OpenRate: 61000},
		{Pair: "ETH/USDT", ProfitAbs: -2.0, OpenDate: mustTS("2024-03-01 09:00:00"), CloseDate: ptr(mustTS("2024-03-01 10:00:00")), CloseRate: ptr(2950.0), OpenRate: 3000},
		{Pair: "SOL/USDT", ProfitAbs: 3.25, OpenDate: mustTS("2024-03-03 09:00:00"), OpenRate: 120, IsOpen: true},
	}
}

func mustTS(raw string) domain.Timestamp {
	ts, err := domain.ParseTimestamp(raw)
	if err != nil {
		panic(err)
	}
	return ts
}
