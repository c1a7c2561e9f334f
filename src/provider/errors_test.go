package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapError_Nil(t *testing.T) {
	if err := WrapError(nil); err != nil {
		t.Errorf("WrapError(nil) = %v, want nil", err)
	}
}

func TestWrapError_Kinds(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantMessage  string
		wantHint     string
		wantSentinel error
	}{
		{
			name:         "format error",
			err:          fmt.Errorf("%w: %q", ErrFormat, "foo"),
			wantMessage:  "Invalid target",
			wantHint:     "user/project#10.1",
			wantSentinel: ErrFormat,
		},
		{
			name:         "auth failed",
			err:          fmt.Errorf("request failed: %w", ErrAuthFailed),
			wantMessage:  "Authentication failed",
			wantHint:     "GITHUB_ACCESS_TOKEN",
			wantSentinel: ErrAuthFailed,
		},
		{
			name:         "rate limited",
			err:          ErrRateLimited,
			wantMessage:  "Rate limited",
			wantHint:     "--access-token",
			wantSentinel: ErrRateLimited,
		},
		{
			name:         "repo not found",
			err:          fmt.Errorf("foo/bar: %w", ErrRepoNotFound),
			wantMessage:  "Repository not found",
			wantHint:     "slug",
			wantSentinel: ErrNotFound,
		},
		{
			name:         "ambiguous",
			err:          fmt.Errorf("build 80: %w", ErrAmbiguous),
			wantMessage:  "Build number is ambiguous",
			wantHint:     "@<build id>",
			wantSentinel: ErrAmbiguous,
		},
		{
			name:         "not found",
			err:          fmt.Errorf("build 7: %w", ErrNotFound),
			wantMessage:  "Build or job not found",
			wantHint:     "number",
			wantSentinel: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			userErr, ok := wrapped.(*UserError)
			if !ok {
				t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
			}
			if userErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", userErr.Message, tt.wantMessage)
			}
			if !strings.Contains(userErr.Hint, tt.wantHint) {
				t.Errorf("Hint should contain %q, got %q", tt.wantHint, userErr.Hint)
			}
			if !errors.Is(wrapped, tt.wantSentinel) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", tt.wantSentinel)
			}
		})
	}
}

func TestWrapError_PassThrough(t *testing.T) {
	original := errors.New("connection reset")
	if got := WrapError(original); got != original {
		t.Errorf("WrapError() = %v, want original error", got)
	}
}

func TestUserError_Error(t *testing.T) {
	err := &UserError{
		Message: "Invalid target",
		Hint:    "use user/project",
		Err:     errors.New("bad"),
	}

	got := err.Error()
	for _, want := range []string{"Invalid target", "Hint: use user/project", "Details: bad"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}

func TestRepoNotFoundIsNotFound(t *testing.T) {
	if !errors.Is(ErrRepoNotFound, ErrNotFound) {
		t.Error("ErrRepoNotFound should match ErrNotFound")
	}
}
