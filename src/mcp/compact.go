package mcp

import (
	"regexp"
	"strings"
)

var (
	// 2015-01-02T03:04:05.123Z, 2015-01-02 03:04:05,123, [03:04:05]
	timestampPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[.,]?\d*Z?([+-]\d{2}:?\d{2})?|\[\d{2}:\d{2}:\d{2}(\.\d+)?\])\s*`)

	// Absolute paths with 3+ directories; keeps the file name and line.
	longPathPattern = regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`)

	whitespacePattern = regexp.MustCompile(`[ \t]+`)
)

// minPrefixLength is the shortest shared prefix worth replacing with "...".
const minPrefixLength = 20

// compact shrinks log lines for a model's context window: leading
// timestamps go, deep paths become .../file, runs of blanks collapse, and a
// long prefix shared by every line is elided.
func compact(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = timestampPattern.ReplaceAllString(line, "")
		line = longPathPattern.ReplaceAllString(line, ".../$1")
		line = strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
		out = append(out, line)
	}

	prefix := commonPrefix(out)
	if len(prefix) < minPrefixLength {
		return out
	}
	for i, line := range out {
		out[i] = "... " + line[len(prefix):]
	}
	return out
}

func commonPrefix(lines []string) string {
	if len(lines) < 2 {
		return ""
	}

	prefix := lines[0]
	for _, line := range lines[1:] {
		for !strings.HasPrefix(line, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
		if prefix == "" {
			break
		}
	}
	return prefix
}
