package dashboard

import (
	"context"
	"time"

	"github.com/freqdash/freqdash/pkg/sigchan"
)

// Refresher runs one refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context) RefreshResult
}

// Ticker is the part of *time.Ticker the poller needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Poller refreshes once on start and then every interval until its context ends.
type Poller struct {
	target    Refresher
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	kick      *sigchan.Chan
}

func NewPoller(target Refresher, interval time.Duration) *Poller {
	return &Poller{
		target:    target,
		interval:  interval,
		newTicker: NewTimeTicker,
		kick:      sigchan.New(1),
	}
}

// WithTicker replaces the ticker factory (tests).
func (p *Poller) WithTicker(newTicker func(time.Duration) Ticker) *Poller {
	p.newTicker = newTicker
	return p
}

// Interval returns the fixed refresh period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Kick requests an extra refresh. Kicks made while one is pending are merged.
func (p *Poller) Kick() {
	p.kick.Emit()
}

// Run blocks until ctx is done. Cycles run one at a time and use ctx, so cancelling
// it aborts the in-flight cycle. Once Run returns the poller issues no requests.
func (p *Poller) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	p.target.Refresh(ctx)

	ticker := p.newTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
		case <-p.kick.C():
		}
		// the select picks randomly when both are ready
		if ctx.Err() != nil {
			return nil
		}
		p.target.Refresh(ctx)
	}
}
