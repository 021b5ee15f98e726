package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *manualTicker) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type countingRefresher struct {
	mu    sync.Mutex
	count int
	done  chan struct{}
}

func newCountingRefresher() *countingRefresher {
	return &countingRefresher{done: make(chan struct{}, 16)}
}

func (c *countingRefresher) Refresh(ctx context.Context) RefreshResult {
	c.mu.Lock()
	c.count++
	n := c.count
	c.mu.Unlock()
	c.done <- struct{}{}
	return RefreshResult{Seq: uint64(n)}
}

func (c *countingRefresher) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func waitRefresh(t *testing.T, c *countingRefresher) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not happen")
	}
}

func TestPoller_RefreshesOnMountAndEveryTick(t *testing.T) {
	target := newCountingRefresher()
	ticker := &manualTicker{ch: make(chan time.Time)}
	var requested time.Duration

	p := NewPoller(target, 30*time.Second).WithTicker(func(d time.Duration) Ticker {
		requested = d
		return ticker
	})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- p.Run(ctx) }()

	waitRefresh(t, target) // on mount

	ticker.ch <- time.Now()
	waitRefresh(t, target)
	ticker.ch <- time.Now()
	waitRefresh(t, target)
	assert.Equal(t, 3, target.calls())
	assert.Equal(t, 30*time.Second, requested)

	cancel()
	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	assert.True(t, ticker.isStopped())

	// after teardown nothing reads the ticker and no refresh happens
	select {
	case ticker.ch <- time.Now():
		t.Fatal("tick consumed after teardown")
	case <-time.After(50 * time.Millisecond):
	}
	p.Kick()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, target.calls())
}

func TestPoller_KickCoalesces(t *testing.T) {
	target := newCountingRefresher()
	ticker := &manualTicker{ch: make(chan time.Time)}
	p := NewPoller(target, time.Hour).WithTicker(func(time.Duration) Ticker { return ticker })

	// several kicks before Run collapse into one pending request
	p.Kick()
	p.Kick()
	p.Kick()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	waitRefresh(t, target) // mount
	waitRefresh(t, target) // the merged kick

	select {
	case <-target.done:
		t.Fatal("kicks should have been merged")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 2, target.calls())
}

func TestPoller_CancelledBeforeRun(t *testing.T) {
	target := newCountingRefresher()
	p := NewPoller(target, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))
	assert.Zero(t, target.calls())
}

func TestPoller_RealTicker(t *testing.T) {
	target := newCountingRefresher()
	p := NewPoller(target, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(runDone)
	}()

	waitRefresh(t, target)
	waitRefresh(t, target)
	cancel()
	<-runDone

	n := target.calls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, target.calls())
}
