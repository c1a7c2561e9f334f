package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"travis-log-fetch/src/fetch"
)

// Spinner frames for the running stage
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// SpinnerTickMsg triggers spinner animation frame advance
type SpinnerTickMsg time.Time

// SpinnerTick returns a command that sends SpinnerTickMsg after a delay
func SpinnerTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return SpinnerTickMsg(t)
	})
}

// ProgressModel tracks the stage and counters of a fetch run.
type ProgressModel struct {
	stage        string
	targets      int
	current      int
	total        int
	written      int
	skipped      int
	done         bool
	err          error
	spinnerFrame int
	bar          progress.Model
}

// NewProgressModel creates a progress model waiting for the first event.
func NewProgressModel() ProgressModel {
	return ProgressModel{
		stage: "Expanding targets",
		bar: progress.New(
			progress.WithWidth(30),
			progress.WithoutPercentage(),
			progress.WithSolidFill("#8AB4F8"),
		),
	}
}

// Apply updates the counters from a fetch event.
func (m ProgressModel) Apply(ev fetch.Event) ProgressModel {
	switch ev.Kind {
	case fetch.EventExpanded:
		m.targets = ev.Count
		m.stage = "Resolving jobs"
	case fetch.EventResolved:
		m.total = ev.Count
		m.stage = "Fetching logs"
	case fetch.EventWritten:
		m.current++
		if ev.Record != nil && ev.Record.Skipped {
			m.skipped++
		} else {
			m.written++
		}
	case fetch.EventDone:
		m.done = true
		m.err = ev.Err
		m.stage = "Complete"
		if ev.Err != nil {
			m.stage = "Failed"
		}
	}
	return m
}

// Update advances the spinner.
func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	if _, ok := msg.(SpinnerTickMsg); ok {
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		if !m.done {
			return m, SpinnerTick()
		}
	}
	return m, nil
}

// Done reports whether the run finished.
func (m ProgressModel) Done() bool {
	return m.done
}

func (m ProgressModel) View() string {
	if m.done {
		if m.err != nil {
			return lipgloss.NewStyle().Foreground(lipgloss.Color("1")).
				Render(fmt.Sprintf("✗ %s: %v", m.stage, m.err))
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2")).
			Render(fmt.Sprintf("✓ %s: %d written, %d already stored, %d targets", m.stage, m.written, m.skipped, m.targets))
	}

	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Render(spinnerFrames[m.spinnerFrame])
	if m.total > 0 {
		pct := float64(m.current) / float64(m.total)
		return fmt.Sprintf("%s %s %s (%d/%d, %.0f%%)",
			spinner, m.stage, m.bar.ViewAs(pct), m.current, m.total, pct*100)
	}
	return fmt.Sprintf("%s %s...", spinner, m.stage)
}
