// Package tui renders the dashboard in the terminal with bubbletea.
package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/freqdash/freqdash/internal/dashboard"
)

var log = logrus.WithField("module", "dashboard.tui")

// Controller is what the view drives. *dashboard.Dashboard implements it.
type Controller interface {
	Snapshot() dashboard.Snapshot
	Updates() <-chan dashboard.Snapshot
	SelectNext()
	SelectPrev()
	StartSelected(ctx context.Context) error
	Stop(ctx context.Context) error
}

type snapshotMsg struct {
	snap dashboard.Snapshot
}

type commandDoneMsg struct {
	name string
	err  error
}

type clockMsg time.Time

// Board is the dashboard body: status, stats, chart and recent trades.
type Board struct {
	ctx     context.Context
	ctrl    Controller
	refresh func()
	theme   Theme
	now     func() time.Time

	snap    dashboard.Snapshot
	pending string // command in flight, "" when idle
	notice  string

	width  int
	height int
}

// NewBoard builds the dashboard view. refresh requests an immediate refresh cycle
// (normally Poller.Kick). ctx bounds the start/stop commands.
func NewBoard(ctx context.Context, ctrl Controller, refresh func(), theme Theme) *Board {
	return &Board{
		ctx:     ctx,
		ctrl:    ctrl,
		refresh: refresh,
		theme:   theme,
		now:     time.Now,
		snap:    ctrl.Snapshot(),
	}
}

func (v *Board) Init() tea.Cmd {
	return tea.Batch(v.waitForUpdate(), v.clock())
}

func (v *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v, v.handleKey(msg.String())
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil
	case snapshotMsg:
		v.snap = msg.snap
		return v, v.waitForUpdate()
	case commandDoneMsg:
		v.pending = ""
		if msg.err != nil {
			v.notice = msg.name + " failed: " + msg.err.Error()
		} else {
			v.notice = msg.name + " ok"
		}
		return v, nil
	case clockMsg:
		return v, v.clock()
	}
	return v, nil
}

func (v *Board) handleKey(key string) tea.Cmd {
	switch key {
	case "up", "k":
		v.ctrl.SelectPrev()
		v.snap = v.ctrl.Snapshot()
	case "down", "j":
		v.ctrl.SelectNext()
		v.snap = v.ctrl.Snapshot()
	case "r":
		if v.refresh != nil {
			v.refresh()
		}
		v.notice = "refresh requested"
	case "s":
		if v.snap.Selected == "" {
			v.notice = "select a strategy first"
			return nil
		}
		if v.pending != "" {
			return nil
		}
		v.pending = "start " + v.snap.Selected
		return v.runCommand(v.pending, v.ctrl.StartSelected)
	case "x":
		if v.pending != "" {
			return nil
		}
		v.pending = "stop"
		return v.runCommand(v.pending, v.ctrl.Stop)
	}
	return nil
}

func (v *Board) runCommand(name string, fn func(context.Context) error) tea.Cmd {
	ctx := v.ctx
	return func() tea.Msg {
		err := fn(ctx)
		if err != nil && !errors.Is(err, dashboard.ErrNoStrategySelected) {
			log.WithField("command", name).Debugf("command finished with error: %v", err)
		}
		return commandDoneMsg{name: name, err: err}
	}
}

// waitForUpdate blocks on the snapshot channel and keeps only the newest value.
func (v *Board) waitForUpdate() tea.Cmd {
	updates := v.ctrl.Updates()
	return func() tea.Msg {
		snap := <-updates
		for {
			select {
			case latest := <-updates:
				snap = latest
			default:
				return snapshotMsg{snap: snap}
			}
		}
	}
}

func (v *Board) clock() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}
