// Package sanitize cleans stored Travis job logs for MCP tool responses.
// It removes ANSI escape sequences and the travis_fold / travis_time
// markers the build script interleaves with the output.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var (
	// travis_fold:start:install.1, travis_time:end:0a1b2c:start=..,finish=..,duration=..
	travisMarker = regexp.MustCompile(`(?m)travis_(fold|time):(start|end):[^\r\n]*?(\r|$)`)

	// travis_fold:start:<name>, travis_fold:end:<name>
	foldMarker = regexp.MustCompile(`^travis_fold:(start|end):(\S+)`)
)

// StripANSI removes ANSI escape sequences, including the erase-line
// sequences Travis emits around its markers.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// StripMarkers removes travis_fold and travis_time markers.
func StripMarkers(s string) string {
	return travisMarker.ReplaceAllString(s, "")
}

// Clean removes escape sequences and markers, drops lines that held only a
// marker, resolves carriage-return overwrites to the text that remained
// visible, and trims trailing whitespace.
func Clean(s string) string {
	s = strings.ReplaceAll(StripANSI(s), "\r\n", "\n")

	var out []string
	for _, line := range strings.Split(s, "\n") {
		stripped := StripMarkers(line)
		if stripped != line && strings.TrimSpace(stripped) == "" {
			continue
		}
		line = strings.TrimRight(stripped, " \t\r")
		if i := strings.LastIndexByte(line, '\r'); i >= 0 {
			line = line[i+1:]
		}
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// Section is a named fold of a log.
type Section struct {
	Name  string
	Lines []string
}

// Sections splits a raw log at travis_fold markers. Lines outside any fold
// belong to sections with an empty name. Line text is cleaned and empty
// sections are dropped.
func Sections(raw string) []Section {
	raw = strings.ReplaceAll(StripANSI(raw), "\r\n", "\n")

	sections := []Section{{}}
	for _, line := range strings.Split(raw, "\n") {
		for _, part := range strings.Split(line, "\r") {
			if m := foldMarker.FindStringSubmatch(part); m != nil {
				name := m[2]
				if m[1] == "end" {
					name = ""
				}
				sections = append(sections, Section{Name: name})
			}
		}
		cleaned := Clean(line)
		if cleaned == "" {
			continue
		}
		cur := &sections[len(sections)-1]
		cur.Lines = append(cur.Lines, cleaned)
	}

	out := sections[:0]
	for _, sec := range sections {
		if len(sec.Lines) > 0 {
			out = append(out, sec)
		}
	}
	return out
}
