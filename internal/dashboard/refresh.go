package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/freqdash/freqdash/internal/domain"
	"github.com/freqdash/freqdash/internal/metrics"
)

// RefreshResult is the outcome of one refresh cycle.
type RefreshResult struct {
	Seq uint64
	At  time.Time
	Err error
	// Applied is false when the cycle failed or a newer cycle's data was already shown.
	Applied bool
}

// Refresh fetches trades, strategies and status concurrently. If all three succeed
// they replace the displayed data together. If any fails, the whole cycle is dropped
// and the data on display stays as it was. Results from a cycle older than the one on
// display are discarded.
func (d *Dashboard) Refresh(ctx context.Context) RefreshResult {
	seq := d.issued.Add(1)
	metrics.RefreshRuns.Add(1)

	var (
		trades     []domain.Trade
		strategies []domain.Strategy
		status     string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if trades, err = d.backend.Trades(gctx); err != nil {
			return fmt.Errorf("fetch trades: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if strategies, err = d.backend.Strategies(gctx); err != nil {
			return fmt.Errorf("fetch strategies: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if status, err = d.backend.Status(gctx); err != nil {
			return fmt.Errorf("fetch status: %w", err)
		}
		return nil
	})
	err := g.Wait()

	now := d.now()
	res := RefreshResult{Seq: seq, At: now, Err: err}

	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		// caller went away mid-cycle; this says nothing about the backend
		log.WithField("seq", seq).Debugf("refresh abandoned: %v", err)
		return res
	}
	if err != nil {
		metrics.RefreshErrors.Add(1)
		log.WithField("seq", seq).Warnf("refresh failed: %v", err)

		d.mu.Lock()
		if seq > d.outcomeSeq {
			d.outcomeSeq = seq
			d.health.Reachable = false
			d.health.LastAttemptAt = now
			d.health.LastError = err.Error()
			d.publishLocked()
		}
		d.mu.Unlock()
		return res
	}

	if trades == nil {
		trades = []domain.Trade{}
	}
	if strategies == nil {
		strategies = []domain.Strategy{}
	}

	d.mu.Lock()
	if seq <= d.dataSeq {
		shown := d.dataSeq
		d.mu.Unlock()
		metrics.RefreshStaleDiscards.Add(1)
		log.WithField("seq", seq).Debugf("discarding stale refresh (showing %d)", shown)
		return res
	}
	d.dataSeq = seq
	d.trades = trades
	d.strategies = strategies
	d.status = status
	d.health.LastRefreshAt = now
	d.health.Stale = false
	if seq > d.outcomeSeq {
		d.outcomeSeq = seq
		d.health.Reachable = true
		d.health.LastAttemptAt = now
		d.health.LastError = ""
	}
	d.publishLocked()
	d.mu.Unlock()

	res.Applied = true
	d.persist(seq, trades, strategies, status, now)
	return res
}
