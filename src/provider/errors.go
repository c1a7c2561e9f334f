package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat reports malformed identifier text.
	ErrFormat = errors.New("invalid target format")
	// ErrUnsupportedType reports a value that is not a Repo, Build or Job.
	ErrUnsupportedType = errors.New("unsupported entity type")

	ErrNotFound           = errors.New("not found")
	ErrRepoNotFound       = fmt.Errorf("repository %w", ErrNotFound)
	ErrAmbiguous          = errors.New("ambiguous result")
	ErrRepositoryMismatch = errors.New("resource belongs to another repository")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrRateLimited        = errors.New("rate limited")
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts resolution and API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrFormat):
		return &UserError{
			Message: "Invalid target",
			Hint:    "Supported formats:\n  - user/project\n  - user/project/10.1 or user/project#10.1\n  - user/project@<build id>\n  - user/project:<job id>\n  - https://travis-ci.org/user/project[/builds/<id>|/jobs/<id>]",
			Err:     err,
		}

	case errors.Is(err, ErrAuthFailed):
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that your access token is valid.\n  - Set GITHUB_ACCESS_TOKEN or pass --access-token",
			Err:     err,
		}

	case errors.Is(err, ErrRateLimited):
		return &UserError{
			Message: "Rate limited",
			Hint:    "Wait before retrying, or authenticate with --access-token for a higher limit.",
			Err:     err,
		}

	case errors.Is(err, ErrRepoNotFound):
		return &UserError{
			Message: "Repository not found",
			Hint:    "Check the slug and that the repository is enabled on Travis CI.",
			Err:     err,
		}

	case errors.Is(err, ErrAmbiguous):
		return &UserError{
			Message: "Build number is ambiguous",
			Hint:    "Travis reported the same build number twice; address the build by id (user/project@<build id>).",
			Err:     err,
		}

	case errors.Is(err, ErrNotFound):
		return &UserError{
			Message: "Build or job not found",
			Hint:    "Check that the build or job number is correct.",
			Err:     err,
		}
	}

	return err
}
