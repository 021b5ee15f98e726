package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freqdash/freqdash/internal/domain"
	"github.com/freqdash/freqdash/internal/metrics"
)

func newFixture() (*fakeBackend, *Dashboard) {
	fb := &fakeBackend{
		trades:     sampleTrades(),
		strategies: []domain.Strategy{{Name: "SampleStrategy", Path: "user_data/strategies/SampleStrategy.py"}, {Name: "Momentum", Path: "user_data/strategies/Momentum.py"}},
		status:     "running",
	}
	return fb, New(fb)
}

func TestRefresh_ReplacesAllSlices(t *testing.T) {
	fb, d := newFixture()

	res := d.Refresh(context.Background())
	require.NoError(t, res.Err)
	assert.True(t, res.Applied)

	snap := d.Snapshot()
	assert.Len(t, snap.Trades, 3)
	assert.Len(t, snap.Strategies, 2)
	assert.Equal(t, "running", snap.Status)
	assert.True(t, snap.Health.Reachable)
	assert.Empty(t, snap.Health.LastError)
	assert.Equal(t, res.Seq, snap.Seq)

	// wholesale replacement, not merge
	fb.set(func(f *fakeBackend) {
		f.trades = f.trades[:1]
		f.strategies = nil
		f.status = "stopped"
	})
	require.NoError(t, d.Refresh(context.Background()).Err)
	snap = d.Snapshot()
	assert.Len(t, snap.Trades, 1)
	assert.Empty(t, snap.Strategies)
	assert.NotNil(t, snap.Strategies)
	assert.Equal(t, "stopped", snap.Status)
}

func TestRefresh_FailureLeavesStateUnchanged(t *testing.T) {
	fb, d := newFixture()
	require.NoError(t, d.Refresh(context.Background()).Err)
	before := d.Snapshot()

	// trades and strategies would succeed with new data; status fails
	fb.set(func(f *fakeBackend) {
		f.trades = []domain.Trade{{Pair: "XRP/USDT"}}
		f.strategies = []domain.Strategy{{Name: "Other"}}
		f.statusErr = errors.New("connection refused")
	})

	res := d.Refresh(context.Background())
	require.Error(t, res.Err)
	assert.False(t, res.Applied)

	after := d.Snapshot()
	assert.Equal(t, before.Trades, after.Trades)
	assert.Equal(t, before.Strategies, after.Strategies)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Seq, after.Seq)

	assert.False(t, after.Health.Reachable)
	assert.Contains(t, after.Health.LastError, "fetch status")
	assert.Contains(t, after.Health.LastError, "connection refused")

	// recovery clears the indicator
	fb.set(func(f *fakeBackend) { f.statusErr = nil })
	require.NoError(t, d.Refresh(context.Background()).Err)
	assert.True(t, d.Snapshot().Health.Reachable)
	assert.Empty(t, d.Snapshot().Health.LastError)
}

func TestRefresh_StaleCycleDoesNotOverwriteNewer(t *testing.T) {
	fb, d := newFixture()

	release := make(chan struct{})
	entered := make(chan struct{})
	oldTrades := []domain.Trade{{Pair: "OLD/USDT"}}
	newTrades := []domain.Trade{{Pair: "NEW/USDT"}}
	fb.set(func(f *fakeBackend) {
		f.tradesFn = func(ctx context.Context, call int64) ([]domain.Trade, error) {
			if call == 1 {
				close(entered)
				<-release
				return oldTrades, nil
			}
			return newTrades, nil
		}
	})

	oldDone := make(chan RefreshResult, 1)
	go func() { oldDone <- d.Refresh(context.Background()) }()
	<-entered

	newer := d.Refresh(context.Background())
	require.True(t, newer.Applied)

	close(release)
	older := <-oldDone
	require.NoError(t, older.Err)
	assert.False(t, older.Applied)
	assert.Less(t, older.Seq, newer.Seq)

	snap := d.Snapshot()
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, "NEW/USDT", snap.Trades[0].Pair)
	assert.Equal(t, newer.Seq, snap.Seq)
}

func TestRefresh_OlderFailureDoesNotMarkUnreachable(t *testing.T) {
	fb, d := newFixture()

	release := make(chan struct{})
	entered := make(chan struct{})
	fb.set(func(f *fakeBackend) {
		f.tradesFn = func(ctx context.Context, call int64) ([]domain.Trade, error) {
			if call == 1 {
				close(entered)
				<-release
				return nil, errors.New("timeout")
			}
			return sampleTrades(), nil
		}
	})

	oldDone := make(chan RefreshResult, 1)
	go func() { oldDone <- d.Refresh(context.Background()) }()
	<-entered
	require.True(t, d.Refresh(context.Background()).Applied)

	close(release)
	require.Error(t, (<-oldDone).Err)
	assert.True(t, d.Snapshot().Health.Reachable)
}

func TestRefresh_CancelledCycleKeepsHealth(t *testing.T) {
	fb, d := newFixture()
	require.NoError(t, d.Refresh(context.Background()).Err)
	before := d.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	entered := make(chan struct{})
	fb.set(func(f *fakeBackend) {
		f.tradesFn = func(ctx context.Context, call int64) ([]domain.Trade, error) {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		}
	})

	errorsBefore := metrics.RefreshErrors.Value()
	done := make(chan RefreshResult, 1)
	go func() { done <- d.Refresh(ctx) }()
	<-entered
	cancel()

	res := <-done
	require.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, res.Applied)
	assert.Equal(t, errorsBefore, metrics.RefreshErrors.Value())

	after := d.Snapshot()
	assert.True(t, after.Health.Reachable)
	assert.Empty(t, after.Health.LastError)
	assert.Equal(t, before.Seq, after.Seq)
	assert.Equal(t, before.Trades, after.Trades)
}

func TestStartSelected_NoSelectionIsNoop(t *testing.T) {
	fb, d := newFixture()

	err := d.StartSelected(context.Background())
	require.ErrorIs(t, err, ErrNoStrategySelected)

	assert.Empty(t, fb.startNames)
	assert.Zero(t, fb.tradesCalls.Load(), "no refresh either")
	assert.Empty(t, d.Snapshot().Health.LastCommand)
}

func TestStartSelected_SuccessRefreshesOnce(t *testing.T) {
	fb, d := newFixture()
	d.Select("SampleStrategy")

	require.NoError(t, d.StartSelected(context.Background()))

	require.Equal(t, []string{"SampleStrategy"}, fb.startNames)
	assert.Equal(t, map[string]any{}, fb.startConfig[0])
	assert.Equal(t, int64(1), fb.tradesCalls.Load())
	assert.Equal(t, "start SampleStrategy", d.Snapshot().Health.LastCommand)
	assert.Empty(t, d.Snapshot().Health.LastCommandError)
}

func TestStartSelected_FailureDoesNotRefresh(t *testing.T) {
	fb, d := newFixture()
	fb.set(func(f *fakeBackend) { f.startErr = errors.New("http 500") })
	d.Select("SampleStrategy")

	require.Error(t, d.StartSelected(context.Background()))
	assert.Zero(t, fb.tradesCalls.Load())
	assert.Contains(t, d.Snapshot().Health.LastCommandError, "http 500")
}

func TestStop_SuccessRefreshesOnce(t *testing.T) {
	fb, d := newFixture()

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, int64(1), fb.stopCalls.Load())
	assert.Equal(t, int64(1), fb.tradesCalls.Load())
}

func TestStop_FailureDoesNotRefresh(t *testing.T) {
	fb, d := newFixture()
	fb.set(func(f *fakeBackend) { f.stopErr = errors.New("unreachable") })

	require.Error(t, d.Stop(context.Background()))
	assert.Zero(t, fb.tradesCalls.Load())
	assert.Equal(t, "stop", d.Snapshot().Health.LastCommand)
}

func TestSelectNextPrev(t *testing.T) {
	_, d := newFixture()

	d.SelectNext()
	assert.Equal(t, "", d.Selected(), "no strategies loaded yet")

	require.NoError(t, d.Refresh(context.Background()).Err)
	d.SelectNext()
	assert.Equal(t, "SampleStrategy", d.Selected())
	d.SelectNext()
	assert.Equal(t, "Momentum", d.Selected())
	d.SelectNext()
	assert.Equal(t, "SampleStrategy", d.Selected())
	d.SelectPrev()
	assert.Equal(t, "Momentum", d.Selected())

	d.Select("")
	d.SelectPrev()
	assert.Equal(t, "Momentum", d.Selected())
}

func TestUpdates_KeepsLatest(t *testing.T) {
	_, d := newFixture()

	d.Select("A")
	d.Select("B")
	require.NoError(t, d.Refresh(context.Background()).Err)

	select {
	case snap := <-d.Updates():
		assert.Equal(t, "B", snap.Selected)
		assert.Equal(t, "running", snap.Status)
	case <-time.After(time.Second):
		t.Fatal("no update published")
	}

	select {
	case <-d.Updates():
		t.Fatal("only the latest snapshot should be pending")
	default:
	}
}

func TestWarm_ShowsSavedSnapshotUntilRefresh(t *testing.T) {
	kv := newMemKV()
	fb := &fakeBackend{trades: sampleTrades(), status: "running"}
	first := New(fb, WithSnapshotStore(kv))
	require.True(t, first.Refresh(context.Background()).Applied)

	second := New(fb, WithSnapshotStore(kv))
	require.True(t, second.Warm())
	snap := second.Snapshot()
	assert.True(t, snap.Health.Stale)
	assert.Len(t, snap.Trades, 3)
	assert.Equal(t, "running", snap.Status)
	assert.Zero(t, snap.Seq)

	fb.set(func(f *fakeBackend) { f.status = "stopped" })
	require.True(t, second.Refresh(context.Background()).Applied)
	snap = second.Snapshot()
	assert.False(t, snap.Health.Stale)
	assert.Equal(t, "stopped", snap.Status)
}

func TestWarm_NoStore(t *testing.T) {
	_, d := newFixture()
	assert.False(t, d.Warm())
}
