package sanitize

import (
	"reflect"
	"testing"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "color codes",
			input:    "\x1b[31;1mThe command \"make\" exited with 2.\x1b[0m",
			expected: "The command \"make\" exited with 2.",
		},
		{
			name:     "no ANSI",
			input:    "plain text message",
			expected: "plain text message",
		},
		{
			name:     "erase line",
			input:    "travis_fold:start:install\r\x1b[0K$ npm install",
			expected: "travis_fold:start:install\r$ npm install",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripANSI(tt.input)
			if result != tt.expected {
				t.Errorf("StripANSI(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStripMarkers(t *testing.T) {
	input := "travis_time:start:0a1b\r$ make\ntravis_time:end:0a1b:start=1,finish=2,duration=1\nok"
	if got := StripMarkers(input); got != "$ make\n\nok" {
		t.Errorf("StripMarkers() = %q", got)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name: "full cleanup",
			input: "travis_fold:start:install\r\x1b[0K\x1b[33;1m$ npm install\x1b[0m\r\n" +
				"added 3 packages\r\n" +
				"travis_fold:end:install\r\x1b[0K\r\n" +
				"\x1b[31;1mdone\x1b[0m\r\n",
			expected: "$ npm install\nadded 3 packages\ndone",
		},
		{
			name:     "carriage return overwrites",
			input:    "Downloading 10%\rDownloading 100%\nnext",
			expected: "Downloading 100%\nnext",
		},
		{
			name:     "trailing whitespace",
			input:    "line1   \nline2\t\n\n",
			expected: "line1\nline2",
		},
		{
			name:     "already clean",
			input:    "clean text",
			expected: "clean text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clean(tt.input)
			if result != tt.expected {
				t.Errorf("Clean(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSections(t *testing.T) {
	raw := "Worker information\n" +
		"travis_fold:start:git.checkout\r\x1b[0K$ git clone foo/bar\n" +
		"Cloning into 'foo/bar'...\n" +
		"travis_fold:end:git.checkout\r\x1b[0K\n" +
		"$ make test\n" +
		"FAIL\n"

	want := []Section{
		{Name: "", Lines: []string{"Worker information"}},
		{Name: "git.checkout", Lines: []string{"$ git clone foo/bar", "Cloning into 'foo/bar'..."}},
		{Name: "", Lines: []string{"$ make test", "FAIL"}},
	}
	if got := Sections(raw); !reflect.DeepEqual(got, want) {
		t.Errorf("Sections() = %+v, want %+v", got, want)
	}

	folded := Sections("travis_fold:start:a\rone\ntravis_fold:start:b\rtwo\n")
	if len(folded) != 2 || folded[0].Name != "a" || folded[1].Lines[0] != "two" {
		t.Errorf("Sections() without a preamble = %+v", folded)
	}
}
