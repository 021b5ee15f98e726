package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the palette shared by the shell and every panel.
type Theme struct {
	Accent lipgloss.Color
	Good   lipgloss.Color
	Bad    lipgloss.Color
	Warn   lipgloss.Color
	Muted  lipgloss.Color
}

func DefaultTheme() Theme {
	return Theme{
		Accent: lipgloss.Color("39"),
		Good:   lipgloss.Color("46"),
		Bad:    lipgloss.Color("196"),
		Warn:   lipgloss.Color("226"),
		Muted:  lipgloss.Color("244"),
	}
}

func (t Theme) title() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
}

func (t Theme) header() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Accent).Padding(0, 1)
}

func (t Theme) panel(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(0, 1)
}

func (t Theme) fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// profit colors non-negative values green and negative values red.
func (t Theme) profit(v float64) lipgloss.Style {
	if v < 0 {
		return t.fg(t.Bad)
	}
	return t.fg(t.Good)
}
