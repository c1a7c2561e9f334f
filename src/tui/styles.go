package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds the colors of the fetch view.
type StyleConfig struct {
	Primary       lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	BorderColor   lipgloss.Color
	SelectedColor lipgloss.Color

	Passed  lipgloss.Color
	Failed  lipgloss.Color
	Errored lipgloss.Color
	Pending lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		Primary:       lipgloss.Color("#8AB4F8"),
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		BorderColor:   lipgloss.Color("#5F6368"),
		SelectedColor: lipgloss.Color("#303134"),
		Passed:        lipgloss.Color("#34A853"),
		Failed:        lipgloss.Color("#EA4335"),
		Errored:       lipgloss.Color("#FBBC04"),
		Pending:       lipgloss.Color("#FFD700"),
	}
}

// StateColor returns the color of a Travis job state.
func (s *StyleConfig) StateColor(state string) lipgloss.Color {
	switch state {
	case "passed":
		return s.Passed
	case "failed":
		return s.Failed
	case "errored", "canceled":
		return s.Errored
	case "", "created", "queued", "received", "started":
		return s.Pending
	}
	return s.TextSecondary
}

// TitleStyle returns the header style.
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.Primary).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns the footer style.
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 1)
}

// PanelStyle returns the bordered list container style.
func (s *StyleConfig) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}
