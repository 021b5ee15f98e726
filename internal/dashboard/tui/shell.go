package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Shell is the root program model: a title bar over a single body view.
type Shell struct {
	title  string
	theme  Theme
	body   tea.Model
	onQuit func()
	now    func() time.Time

	width  int
	height int
}

type ShellOption func(*Shell)

// WithOnQuit registers a hook that runs once when the user quits.
func WithOnQuit(fn func()) ShellOption {
	return func(s *Shell) { s.onQuit = fn }
}

func WithTheme(t Theme) ShellOption {
	return func(s *Shell) { s.theme = t }
}

func NewShell(title string, body tea.Model, opts ...ShellOption) *Shell {
	s := &Shell{
		title: title,
		theme: DefaultTheme(),
		body:  body,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Shell) Init() tea.Cmd {
	return s.body.Init()
}

func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if s.onQuit != nil {
				s.onQuit()
				s.onQuit = nil
			}
			return s, tea.Quit
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		// the title bar takes one row
		msg.Height--
		var cmd tea.Cmd
		s.body, cmd = s.body.Update(msg)
		return s, cmd
	}
	var cmd tea.Cmd
	s.body, cmd = s.body.Update(msg)
	return s, cmd
}

func (s *Shell) View() string {
	bar := s.theme.header().Render(s.title + " | " + s.now().Format("15:04:05"))
	return lipgloss.JoinVertical(lipgloss.Left, bar, s.body.View())
}
