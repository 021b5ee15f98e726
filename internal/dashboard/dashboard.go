// Package dashboard holds the dashboard state: what the backend last reported, which
// strategy the operator picked, and whether the backend is reachable. It also runs
// the refresh cycle and the start/stop commands.
package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/freqdash/freqdash/internal/domain"
)

var log = logrus.WithField("module", "dashboard")

// Backend is the trading backend's REST contract.
type Backend interface {
	Trades(ctx context.Context) ([]domain.Trade, error)
	Strategies(ctx context.Context) ([]domain.Strategy, error)
	Status(ctx context.Context) (string, error)
	Start(ctx context.Context, name string, config map[string]any) error
	Stop(ctx context.Context) error
}

// KV persists small JSON documents. pkg/snapshotstore implements it.
type KV interface {
	PutJSON(key string, v any) error
	GetJSON(key string, v any) (bool, error)
}

// Health tells "no trades" apart from "backend unreachable".
type Health struct {
	Reachable     bool
	LastAttemptAt time.Time
	LastRefreshAt time.Time // last applied success
	LastError     string
	// Stale is set while showing a warm-start snapshot from disk.
	Stale bool

	LastCommand      string
	LastCommandAt    time.Time
	LastCommandError string
}

// Snapshot is a read-only view of the dashboard state. Slices are shared and must
// not be modified.
type Snapshot struct {
	Trades     []domain.Trade
	Strategies []domain.Strategy
	Status     string
	Selected   string
	Health     Health
	// Seq is the refresh cycle whose data is on display (0 = none yet).
	Seq uint64
}

// Dashboard is safe for concurrent use.
type Dashboard struct {
	backend Backend
	now     func() time.Time
	store   KV

	mu         sync.RWMutex
	trades     []domain.Trade
	strategies []domain.Strategy
	status     string
	selected   string
	health     Health
	dataSeq    uint64 // newest cycle whose data was applied
	outcomeSeq uint64 // newest cycle whose outcome was written to health

	issued atomic.Uint64

	saveMu   sync.Mutex
	savedSeq uint64
	updates  chan Snapshot
}

type Option func(*Dashboard)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

// WithSnapshotStore enables the warm-start cache.
func WithSnapshotStore(kv KV) Option {
	return func(d *Dashboard) { d.store = kv }
}

func New(backend Backend, opts ...Option) *Dashboard {
	d := &Dashboard{
		backend:    backend,
		now:        time.Now,
		trades:     []domain.Trade{},
		strategies: []domain.Strategy{},
		updates:    make(chan Snapshot, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Snapshot returns the current state.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

func (d *Dashboard) snapshotLocked() Snapshot {
	return Snapshot{
		Trades:     d.trades,
		Strategies: d.strategies,
		Status:     d.status,
		Selected:   d.selected,
		Health:     d.health,
		Seq:        d.dataSeq,
	}
}

// Updates delivers the latest snapshot after every state change. Only the newest
// pending snapshot is kept, so a slow reader never blocks a refresh.
func (d *Dashboard) Updates() <-chan Snapshot {
	return d.updates
}

// publishLocked must be called with d.mu held so snapshots are queued in order.
func (d *Dashboard) publishLocked() {
	snap := d.snapshotLocked()
	for {
		select {
		case d.updates <- snap:
			return
		default:
		}
		select {
		case <-d.updates:
		default:
		}
	}
}

// Selected returns the selected strategy name, or "".
func (d *Dashboard) Selected() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

// Select sets the selected strategy. An empty name clears the selection.
func (d *Dashboard) Select(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = name
	d.publishLocked()
}

// SelectNext moves the selection forward through the current strategy list.
func (d *Dashboard) SelectNext() { d.step(1) }

// SelectPrev moves the selection backward through the current strategy list.
func (d *Dashboard) SelectPrev() { d.step(-1) }

func (d *Dashboard) step(delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.strategies)
	if n == 0 {
		return
	}
	idx := -1
	for i, s := range d.strategies {
		if s.Name == d.selected {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && delta > 0:
		idx = 0
	case idx < 0:
		idx = n - 1
	default:
		idx = ((idx+delta)%n + n) % n
	}
	d.selected = d.strategies[idx].Name
	d.publishLocked()
}
