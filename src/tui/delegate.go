package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	stateWidth  = 9
	numberWidth = 8
	sizeWidth   = 10

	// listRenderingOverhead is the panel border plus the list's own padding.
	listRenderingOverhead = 4
)

// Delegate renders handled job logs as table rows:
//
//	state │ number │ slug │ size │ path
type Delegate struct {
	SlugWidth int
	// WebURL links job numbers to the Travis web UI when set.
	WebURL string
	styles *StyleConfig
}

// NewDelegate creates a delegate with the default styles.
func NewDelegate(webURL string) *Delegate {
	return &Delegate{
		SlugWidth: 12,
		WebURL:    webURL,
		styles:    DefaultStyles(),
	}
}

// Height returns the height of a list item
func (d *Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d *Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d *Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render renders a list item
func (d *Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}
	r := entry.Record

	state := r.State
	if r.Skipped {
		state = "kept"
	}
	stateCol := lipgloss.NewStyle().
		Foreground(d.styles.StateColor(r.State)).
		Render(padCell(state, stateWidth))

	numberCol := padCell(r.JobNumber, numberWidth)
	if d.WebURL != "" && r.JobID != 0 {
		numberCol = hyperlink(fmt.Sprintf("%s/%s/jobs/%d", d.WebURL, r.Slug, r.JobID), numberCol)
	}

	fixed := stateWidth + numberWidth + d.SlugWidth + sizeWidth + 4*3
	pathWidth := m.Width() - fixed - listRenderingOverhead

	line := fmt.Sprintf("%s │ %s │ %s │ %s │ %s",
		stateCol,
		numberCol,
		padCell(r.Slug, d.SlugWidth),
		padCell(humanBytes(r.Bytes), sizeWidth),
		padCell(r.Path, pathWidth),
	)

	style := lipgloss.NewStyle().Foreground(d.styles.TextSecondary)
	if index == m.Index() {
		style = style.Bold(true).Foreground(d.styles.TextPrimary).Background(d.styles.SelectedColor)
	}

	fmt.Fprint(w, fitStyled(style.Render(line), m.Width()))
}
