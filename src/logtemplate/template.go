// Package logtemplate implements the filename template used to store job
// logs. A template is used in both directions: Format builds the path of a
// log to write, Parse recovers the placeholder values from an existing path.
//
// # Grammar
//
//	template    = { literal | placeholder }
//	placeholder = "{slug}" | "{number}" | "{state}"
//	literal     = any run of text without "{" or "}"
//
// The long forms "{job.repository.slug}", "{job.number}" and "{job.state}"
// are accepted as aliases.
//
// # Token classes
//
// When parsing, each placeholder only matches its own token class:
//
//   - slug: two non-empty segments joined by a single "/" ("user/project")
//   - number: digits, optionally followed by "." digits ("build" or the
//     job's "build.ordinal")
//   - state: a non-empty run of letters, digits or "_"
//
// Literals must match exactly. Matching is anchored at both ends and tries
// the shortest token first, backtracking when the rest does not match.
//
// Two placeholders may not be adjacent, and each may appear at most once,
// so that every path has at most one reading.
package logtemplate

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultTemplate stores logs as <slug>/<build.job>-<state>.txt.
const DefaultTemplate = "{slug}/{number}-{state}.txt"

// ErrTemplate reports a malformed template.
var ErrTemplate = errors.New("invalid log filename template")

// Placeholder is one of the typed template variables.
type Placeholder int

const (
	Slug Placeholder = iota + 1
	Number
	State
)

func (p Placeholder) String() string {
	switch p {
	case Slug:
		return "{slug}"
	case Number:
		return "{number}"
	case State:
		return "{state}"
	default:
		return "{?}"
	}
}

var placeholderNames = map[string]Placeholder{
	"slug":                Slug,
	"number":              Number,
	"state":               State,
	"job.repository.slug": Slug,
	"job.number":          Number,
	"job.state":           State,
}

// Values holds the placeholder values of one path.
type Values struct {
	Slug   string
	Number string
	State  string
}

func (v Values) get(p Placeholder) string {
	switch p {
	case Slug:
		return v.Slug
	case Number:
		return v.Number
	case State:
		return v.State
	}
	return ""
}

func (v *Values) set(p Placeholder, s string) {
	switch p {
	case Slug:
		v.Slug = s
	case Number:
		v.Number = s
	case State:
		v.State = s
	}
}

// segment is either a literal (placeholder == 0) or a placeholder.
type segment struct {
	literal     string
	placeholder Placeholder
}

// Template is a compiled filename template.
type Template struct {
	source   string
	segments []segment
}

// Compile parses a template string.
func Compile(source string) (*Template, error) {
	t := &Template{source: source}
	seen := map[Placeholder]bool{}

	rest := source
	for rest != "" {
		open := strings.IndexAny(rest, "{}")
		if open < 0 {
			t.segments = append(t.segments, segment{literal: rest})
			break
		}
		if rest[open] == '}' {
			return nil, fmt.Errorf("%w: unexpected '}' in %q", ErrTemplate, source)
		}
		if open > 0 {
			t.segments = append(t.segments, segment{literal: rest[:open]})
		}

		closeIdx := strings.IndexAny(rest[open+1:], "{}")
		if closeIdx < 0 || rest[open+1+closeIdx] != '}' {
			return nil, fmt.Errorf("%w: unterminated placeholder in %q", ErrTemplate, source)
		}
		name := rest[open+1 : open+1+closeIdx]
		p, ok := placeholderNames[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown placeholder {%s} in %q", ErrTemplate, name, source)
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: placeholder %s repeated in %q", ErrTemplate, p, source)
		}
		seen[p] = true

		if n := len(t.segments); n > 0 && t.segments[n-1].placeholder != 0 {
			return nil, fmt.Errorf("%w: adjacent placeholders in %q", ErrTemplate, source)
		}
		t.segments = append(t.segments, segment{placeholder: p})
		rest = rest[open+1+closeIdx+1:]
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: %q has no placeholder", ErrTemplate, source)
	}
	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(source string) *Template {
	t, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) String() string {
	return t.source
}

// Has reports whether the template contains the placeholder.
func (t *Template) Has(p Placeholder) bool {
	for _, s := range t.segments {
		if s.placeholder == p {
			return true
		}
	}
	return false
}

// SlugDirectoryPrefix reports whether the template starts with the slug
// placeholder immediately followed by "/", so the first two directory
// levels of the storage root are the stored slugs.
func (t *Template) SlugDirectoryPrefix() bool {
	return len(t.segments) >= 2 &&
		t.segments[0].placeholder == Slug &&
		strings.HasPrefix(t.segments[1].literal, "/")
}

// Format substitutes the values into the template.
func (t *Template) Format(v Values) string {
	var b strings.Builder
	for _, s := range t.segments {
		if s.placeholder == 0 {
			b.WriteString(s.literal)
		} else {
			b.WriteString(v.get(s.placeholder))
		}
	}
	return b.String()
}

// Parse matches path against the template and returns the placeholder
// values. Paths use "/" as separator.
func (t *Template) Parse(path string) (Values, bool) {
	var v Values
	if !t.match(path, 0, &v) {
		return Values{}, false
	}
	return v, true
}

func (t *Template) match(s string, i int, v *Values) bool {
	if i == len(t.segments) {
		return s == ""
	}

	seg := t.segments[i]
	if seg.placeholder == 0 {
		if !strings.HasPrefix(s, seg.literal) {
			return false
		}
		return t.match(s[len(seg.literal):], i+1, v)
	}

	for _, n := range candidateLengths(seg.placeholder, s) {
		if t.match(s[n:], i+1, v) {
			v.set(seg.placeholder, s[:n])
			return true
		}
	}
	return false
}

// candidateLengths returns, shortest first, the lengths of the prefixes of s
// that are valid tokens for p.
func candidateLengths(p Placeholder, s string) []int {
	var lengths []int
	switch p {
	case Slug:
		user := strings.IndexByte(s, '/')
		if user <= 0 {
			return nil
		}
		for n := user + 2; n <= len(s); n++ {
			if s[n-1] == '/' {
				break
			}
			lengths = append(lengths, n)
		}

	case Number:
		n := digitRun(s)
		if n == 0 {
			return nil
		}
		lengths = append(lengths, n)
		if n < len(s) && s[n] == '.' {
			frac := digitRun(s[n+1:])
			for k := 1; k <= frac; k++ {
				lengths = append(lengths, n+1+k)
			}
		}

	case State:
		for n := 1; n <= len(s) && isWordByte(s[n-1]); n++ {
			lengths = append(lengths, n)
		}
	}
	return lengths
}

func digitRun(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
