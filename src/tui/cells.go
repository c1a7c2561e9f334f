package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// padCell truncates plain text to width display cells, with "…" when cut,
// and pads it with spaces to exactly width.
func padCell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(strings.TrimSpace(s), width, "…")
	return runewidth.FillRight(s, width)
}

// fitStyled truncates a string that may contain escape sequences to width
// display cells without breaking the sequences.
func fitStyled(s string, width int) string {
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// hyperlink wraps text in an OSC 8 hyperlink.
func hyperlink(url, text string) string {
	if url == "" {
		return text
	}
	return ansi.SetHyperlink(url) + text + ansi.ResetHyperlink()
}

// humanBytes formats a byte count as B, KiB or MiB.
func humanBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KiB", float64(n)/1024)
	}
	return fmt.Sprintf("%.1f MiB", float64(n)/(1024*1024))
}
