// Package target models identifiers of CI resources supplied by users,
// reconstructed from stored filenames, or derived from remote entities.
//
// A Target addresses a repository by slug ("user/project") and optionally one
// build or job within it. The supported textual encodings are:
//
//	foo/bar                     repository (latest build)
//	foo/bar/10.1, foo/bar#10.1  build number 10, job number 1
//	foo/bar/10                  build number 10, all jobs
//	foo/bar@9999                build by remote id
//	foo/bar:10000               job by remote id
//	https://host/foo/bar[/builds/9999|/jobs/10000]
//
// Every Target has one canonical encoding, its extended slug.
package target

import (
	"fmt"
	"strconv"
	"strings"

	"travis-log-fetch/src/provider"
)

var (
	// ErrFormat reports malformed identifier text.
	ErrFormat = provider.ErrFormat
	// ErrUnsupportedType reports an entity that is not a Repo, Build or Job.
	ErrUnsupportedType = provider.ErrUnsupportedType
)

// Target identifies a repository, build or job. Zero values mean unset.
type Target struct {
	User    string
	Project string

	// BuildID and JobID are the remote identifiers.
	BuildID int64
	JobID   int64

	// BuildNumber and JobNumber are the 1-based logical numbering of a build
	// within its repository and a job within its build.
	BuildNumber int
	JobNumber   int

	// State is only populated from stored filenames.
	State string
}

// HasSlug reports whether both user and project are set.
func (t Target) HasSlug() bool {
	return t.User != "" && t.Project != ""
}

// Slug returns "user/project", or "" when the slug is not set.
func (t Target) Slug() string {
	if !t.HasSlug() {
		return ""
	}
	return t.User + "/" + t.Project
}

// SetSlug sets user and project from "user/project".
func (t *Target) SetSlug(slug string) error {
	user, project, ok := strings.Cut(slug, "/")
	if !ok || user == "" || project == "" || strings.Contains(project, "/") {
		return fmt.Errorf("%w: slug %q", ErrFormat, slug)
	}
	t.User = user
	t.Project = project
	return nil
}

// Number returns the logical number "build.job", or "" unless both are set.
func (t Target) Number() string {
	if t.BuildNumber == 0 || t.JobNumber == 0 {
		return ""
	}
	return fmt.Sprintf("%d.%d", t.BuildNumber, t.JobNumber)
}

// SetNumber sets build and job number from "build.job".
func (t *Target) SetNumber(number string) error {
	buildPart, jobPart, ok := strings.Cut(number, ".")
	if !ok || strings.Contains(number, "/") {
		return fmt.Errorf("%w: job number %q", ErrFormat, number)
	}
	build, err := parseCount(buildPart)
	if err != nil {
		return fmt.Errorf("%w: job number %q", ErrFormat, number)
	}
	job, err := parseCount(jobPart)
	if err != nil {
		return fmt.Errorf("%w: job number %q", ErrFormat, number)
	}
	t.BuildNumber = build
	t.JobNumber = job
	return nil
}

// SetLogicalID sets the build number, and the job number if present, from
// "build" or "build.job".
func (t *Target) SetLogicalID(id string) error {
	buildPart, jobPart, _ := strings.Cut(id, ".")
	build, err := parseCount(buildPart)
	if err != nil {
		return fmt.Errorf("%w: build number in %q: %v", ErrFormat, id, err)
	}
	job := 0
	if jobPart != "" {
		job, err = parseCount(jobPart)
		if err != nil {
			return fmt.Errorf("%w: job number in %q: %v", ErrFormat, id, err)
		}
	}
	t.BuildNumber = build
	t.JobNumber = job
	return nil
}

// ExtendedSlug returns the canonical encoding. Fields are consulted in a
// fixed priority: build and job number, build number, job id, build id.
func (t Target) ExtendedSlug() string {
	switch {
	case t.BuildNumber != 0 && t.JobNumber != 0:
		return t.Slug() + "/" + t.Number()
	case t.BuildNumber != 0:
		return fmt.Sprintf("%s/%d", t.Slug(), t.BuildNumber)
	case t.JobID != 0:
		return fmt.Sprintf("%s:%d", t.Slug(), t.JobID)
	case t.BuildID != 0:
		return fmt.Sprintf("%s@%d", t.Slug(), t.BuildID)
	default:
		return t.Slug()
	}
}

func (t Target) String() string {
	if !t.HasSlug() {
		return "<invalid>"
	}
	return t.ExtendedSlug()
}

// Equal reports whether both targets have the same extended slug.
func (t Target) Equal(other Target) bool {
	return t.ExtendedSlug() == other.ExtendedSlug()
}

// MatchesString reports whether s is the extended slug of t.
func (t Target) MatchesString(s string) bool {
	return t.ExtendedSlug() == s
}

// Build returns the reduced (slug, build number) target.
func (t Target) Build() Target {
	return Target{User: t.User, Project: t.Project, BuildNumber: t.BuildNumber}
}

// parseCount parses a positive decimal number.
func parseCount(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("zero is not a valid number")
	}
	return n, nil
}

// parseID parses a positive remote identifier.
func parseID(s string) (int64, error) {
	if _, err := parseCount(s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}
