package dashboard

import (
	"context"
	"errors"

	"github.com/freqdash/freqdash/internal/metrics"
)

// ErrNoStrategySelected is returned by StartSelected when nothing is selected.
// No request is made in that case.
var ErrNoStrategySelected = errors.New("no strategy selected")

// StartSelected starts the selected strategy with an empty config and, on success,
// runs one refresh. Failures are logged and recorded in Health.
func (d *Dashboard) StartSelected(ctx context.Context) error {
	name := d.Selected()
	if name == "" {
		return ErrNoStrategySelected
	}

	metrics.CommandRuns.Add(1)
	if err := d.backend.Start(ctx, name, map[string]any{}); err != nil {
		metrics.CommandErrors.Add(1)
		log.WithField("strategy", name).Errorf("start trading failed: %v", err)
		d.recordCommand("start "+name, err)
		return err
	}
	log.WithField("strategy", name).Info("start trading requested")
	d.recordCommand("start "+name, nil)
	d.Refresh(ctx)
	return nil
}

// Stop halts the active run and, on success, runs one refresh.
func (d *Dashboard) Stop(ctx context.Context) error {
	metrics.CommandRuns.Add(1)
	if err := d.backend.Stop(ctx); err != nil {
		metrics.CommandErrors.Add(1)
		log.Errorf("stop trading failed: %v", err)
		d.recordCommand("stop", err)
		return err
	}
	log.Info("stop trading requested")
	d.recordCommand("stop", nil)
	d.Refresh(ctx)
	return nil
}

func (d *Dashboard) recordCommand(name string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health.LastCommand = name
	d.health.LastCommandAt = d.now()
	d.health.LastCommandError = ""
	if err != nil {
		d.health.LastCommandError = err.Error()
	}
	d.publishLocked()
}
