package dashboard

import (
	"time"

	"github.com/freqdash/freqdash/internal/domain"
	"github.com/freqdash/freqdash/internal/metrics"
)

const snapshotKey = "dashboard/last_snapshot"

type persistedSnapshot struct {
	Trades     []domain.Trade    `json:"trades"`
	Strategies []domain.Strategy `json:"strategies"`
	Status     string            `json:"status"`
	SavedAt    time.Time         `json:"saved_at"`
}

// Warm loads the last saved snapshot, if any, and shows it marked as stale. It is
// display-only: data from any later refresh cycle replaces it.
func (d *Dashboard) Warm() bool {
	if d.store == nil {
		return false
	}
	var ps persistedSnapshot
	ok, err := d.store.GetJSON(snapshotKey, &ps)
	if err != nil {
		log.Warnf("load warm-start snapshot: %v", err)
		return false
	}
	if !ok {
		return false
	}
	metrics.SnapshotLoads.Add(1)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dataSeq > 0 {
		// a live cycle already landed
		return false
	}
	if ps.Trades != nil {
		d.trades = ps.Trades
	}
	if ps.Strategies != nil {
		d.strategies = ps.Strategies
	}
	d.status = ps.Status
	d.health.Stale = true
	d.health.LastRefreshAt = ps.SavedAt
	d.publishLocked()
	log.WithField("saved_at", ps.SavedAt.Format(time.RFC3339)).Info("showing warm-start snapshot")
	return true
}

func (d *Dashboard) persist(seq uint64, trades []domain.Trade, strategies []domain.Strategy, status string, at time.Time) {
	if d.store == nil {
		return
	}
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	if seq <= d.savedSeq {
		return
	}
	ps := persistedSnapshot{Trades: trades, Strategies: strategies, Status: status, SavedAt: at}
	if err := d.store.PutJSON(snapshotKey, ps); err != nil {
		log.Warnf("save warm-start snapshot: %v", err)
		return
	}
	d.savedSeq = seq
	metrics.SnapshotSaves.Add(1)
}
