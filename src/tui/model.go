// Package tui shows the progress of a fetch run in the terminal: a status
// line fed by fetch events and a list of the job logs handled so far.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"travis-log-fetch/src/fetch"
)

// EventMsg carries a fetch event into the program.
type EventMsg fetch.Event

// LogMsg carries a log line into the program.
type LogMsg struct {
	Level string
	Text  string
}

// finishedMsg is sent when fetch.Run returns.
type finishedMsg struct {
	summary *fetch.Summary
	err     error
}

// Model is the Bubble Tea model of a fetch run.
type Model struct {
	progress ProgressModel
	list     list.Model
	delegate *Delegate
	styles   *StyleConfig

	lastLog  string
	finished bool
	width    int
	height   int

	cancel context.CancelFunc
}

// NewModel creates the model. cancel stops the run when the user quits
// early; it may be nil.
func NewModel(webURL string, cancel context.CancelFunc) Model {
	delegate := NewDelegate(webURL)
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return Model{
		progress: NewProgressModel(),
		list:     l,
		delegate: delegate,
		styles:   DefaultStyles(),
		cancel:   cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return SpinnerTick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-2, max(msg.Height-6, 1))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case EventMsg:
		ev := fetch.Event(msg)
		m.progress = m.progress.Apply(ev)
		if ev.Kind == fetch.EventWritten && ev.Record != nil {
			m.widenSlug(ev.Record.Slug)
			cmd := m.list.InsertItem(len(m.list.Items()), Item{Record: *ev.Record})
			return m, cmd
		}
		return m, nil

	case LogMsg:
		m.lastLog = fmt.Sprintf("%s %s", msg.Level, msg.Text)
		return m, nil

	case finishedMsg:
		m.finished = true
		return m, nil

	case SpinnerTickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) widenSlug(slug string) {
	if w := len([]rune(slug)); w > m.delegate.SlugWidth {
		m.delegate.SlugWidth = min(w, 40)
	}
}

func (m Model) View() string {
	header := m.styles.TitleStyle().Render("travis-log-fetch") + " " + m.progress.View()

	panel := m.styles.PanelStyle().Render(m.list.View())
	if m.width > 0 {
		panel = m.styles.PanelStyle().Width(m.width - 2).Render(m.list.View())
	}

	help := "↑/↓ move • q quit"
	if m.finished {
		help = "run finished • " + help
	}
	if m.lastLog != "" {
		help = m.lastLog + " • " + help
	}
	footer := m.styles.HelpStyle().Render(help)
	if m.width > 0 {
		footer = fitStyled(footer, m.width)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, panel, footer)
}
