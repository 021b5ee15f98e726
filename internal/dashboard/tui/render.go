package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/freqdash/freqdash/internal/dashboard"
	"github.com/freqdash/freqdash/internal/domain"
)

const (
	placeholder = "-"
	dateLayout  = "2006-01-02 15:04"
)

func (v *Board) View() string {
	width := v.width - 4
	if width < 100 {
		width = 100
	}
	leftWidth := width/2 - 1
	rightWidth := width - leftWidth - 2

	stats := dashboard.ComputeStats(v.snap.Trades)

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		v.theme.panel(leftWidth).Render(v.renderStatus(leftWidth)),
		"  ",
		v.theme.panel(rightWidth).Render(v.renderStats(stats)),
	)
	chart := v.theme.panel(width).Render(v.renderChart(width - 4))
	table := v.theme.panel(width).Render(v.renderTrades())
	return lipgloss.JoinVertical(lipgloss.Left, top, chart, table)
}

func (v *Board) renderStatus(width int) string {
	snap := v.snap
	var lines []string
	lines = append(lines, v.theme.title().Render("System Status"))
	lines = append(lines, strings.Repeat("─", max(width-4, 1)))

	status := snap.Status
	if status == "" {
		status = placeholder
	}
	lines = append(lines, "Status: "+status)
	lines = append(lines, v.healthLine())

	if h := snap.Health; h.LastCommand != "" {
		line := fmt.Sprintf("Last command: %s at %s", h.LastCommand, h.LastCommandAt.Format("15:04:05"))
		if h.LastCommandError != "" {
			lines = append(lines, v.theme.fg(v.theme.Bad).Render(line+" ("+h.LastCommandError+")"))
		} else {
			lines = append(lines, line)
		}
	}
	if v.pending != "" {
		lines = append(lines, v.theme.fg(v.theme.Warn).Render("Running: "+v.pending))
	} else if v.notice != "" {
		lines = append(lines, v.theme.fg(v.theme.Muted).Render(v.notice))
	}

	lines = append(lines, "")
	lines = append(lines, v.theme.title().Render("Strategies"))
	if len(snap.Strategies) == 0 {
		lines = append(lines, v.theme.fg(v.theme.Muted).Render("(none)"))
	}
	for _, s := range snap.Strategies {
		if s.Name == snap.Selected {
			lines = append(lines, v.theme.fg(v.theme.Accent).Bold(true).Render("> "+s.Name))
		} else {
			lines = append(lines, "  "+s.Name)
		}
	}

	lines = append(lines, "")
	lines = append(lines, v.theme.fg(v.theme.Muted).Render("↑/↓ select  s start  x stop  r refresh  q quit"))
	return strings.Join(lines, "\n")
}

func (v *Board) healthLine() string {
	h := v.snap.Health
	switch {
	case h.LastAttemptAt.IsZero() && h.Stale:
		return v.theme.fg(v.theme.Warn).Render("● cached snapshot from " + h.LastRefreshAt.Format(dateLayout))
	case h.LastAttemptAt.IsZero():
		return v.theme.fg(v.theme.Muted).Render("● connecting...")
	case !h.Reachable:
		return v.theme.fg(v.theme.Bad).Render("● backend unreachable: " + h.LastError)
	default:
		age := v.now().Sub(h.LastRefreshAt).Truncate(time.Second)
		return v.theme.fg(v.theme.Good).Render(fmt.Sprintf("● backend ok, updated %s ago", age))
	}
}

func (v *Board) renderStats(stats dashboard.Stats) string {
	var lines []string
	lines = append(lines, v.theme.title().Render("Overall Stats"))
	lines = append(lines, fmt.Sprintf("Total trades: %d", stats.TotalTrades))
	profit, _ := stats.TotalProfit.Float64()
	lines = append(lines, "Total profit: "+v.theme.profit(profit).Render(stats.TotalProfitString()))
	lines = append(lines, fmt.Sprintf("Open trades:  %d", stats.OpenTrades))
	return strings.Join(lines, "\n")
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline maps values onto block characters, scaled between min and max. Only the
// last width values are drawn.
func sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range values {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	var b strings.Builder
	top := len(sparkBlocks) - 1
	for _, x := range values {
		idx := top / 2
		if hi > lo {
			idx = int(math.Round((x - lo) / (hi - lo) * float64(top)))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

func (v *Board) renderChart(width int) string {
	series := dashboard.ProfitSeries(v.snap.Trades)
	var lines []string
	lines = append(lines, v.theme.title().Render("Profit / Loss"))
	if len(series) == 0 {
		lines = append(lines, v.theme.fg(v.theme.Muted).Render("no trades"))
		return strings.Join(lines, "\n")
	}
	values := make([]float64, len(series))
	lo, hi := series[0].ProfitAbs, series[0].ProfitAbs
	for i, p := range series {
		values[i] = p.ProfitAbs
		lo = math.Min(lo, p.ProfitAbs)
		hi = math.Max(hi, p.ProfitAbs)
	}
	lines = append(lines, v.theme.fg(v.theme.Accent).Render(sparkline(values, width)))
	lines = append(lines, v.theme.fg(v.theme.Muted).Render(fmt.Sprintf("%s → %s  min %.2f  max %.2f",
		series[0].OpenDate.Format("2006-01-02"),
		series[len(series)-1].OpenDate.Format("2006-01-02"),
		lo, hi)))
	return strings.Join(lines, "\n")
}

type column struct {
	title string
	width int
}

var tradeColumns = []column{
	{"Pair", 12},
	{"Open rate", 12},
	{"Close rate", 12},
	{"Profit", 10},
	{"Open date", 18},
	{"Close date", 18},
	{"Status", 7},
}

func (v *Board) renderTrades() string {
	var lines []string
	lines = append(lines, v.theme.title().Render("Recent Trades"))

	cells := make([]string, len(tradeColumns))
	for i, c := range tradeColumns {
		cells[i] = lipgloss.NewStyle().Width(c.width).Bold(true).Render(c.title)
	}
	lines = append(lines, strings.Join(cells, " "))

	recent := dashboard.RecentTrades(v.snap.Trades, dashboard.RecentTradesLimit)
	if len(recent) == 0 {
		lines = append(lines, v.theme.fg(v.theme.Muted).Render("no trades"))
	}
	for i := range recent {
		lines = append(lines, v.renderTradeRow(&recent[i]))
	}
	return strings.Join(lines, "\n")
}

func (v *Board) renderTradeRow(t *domain.Trade) string {
	row := tradeCells(t)
	out := make([]string, len(row))
	for i, text := range row {
		style := lipgloss.NewStyle().Width(tradeColumns[i].width)
		if i == 3 {
			style = v.theme.profit(t.ProfitAbs).Width(tradeColumns[i].width)
		}
		out[i] = style.Render(text)
	}
	return strings.Join(out, " ")
}

// tradeCells formats one table row as plain text. Missing close fields become a
// placeholder.
func tradeCells(t *domain.Trade) []string {
	closeRate := placeholder
	if t.CloseRate != nil {
		closeRate = formatRate(*t.CloseRate)
	}
	closeDate := placeholder
	if t.CloseDate != nil && !t.CloseDate.IsZero() {
		closeDate = t.CloseDate.Format(dateLayout)
	}
	openDate := placeholder
	if !t.OpenDate.IsZero() {
		openDate = t.OpenDate.Format(dateLayout)
	}
	state := "closed"
	if t.IsOpen {
		state = "open"
	}
	return []string{
		t.Pair,
		formatRate(t.OpenRate),
		closeRate,
		strconv.FormatFloat(t.ProfitAbs, 'f', 2, 64),
		openDate,
		closeDate,
		state,
	}
}

func formatRate(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}
