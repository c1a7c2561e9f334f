package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EntityKind discriminates the remote entity variants.
type EntityKind int

const (
	KindRepo EntityKind = iota + 1
	KindBuild
	KindJob
)

func (k EntityKind) String() string {
	switch k {
	case KindRepo:
		return "repo"
	case KindBuild:
		return "build"
	case KindJob:
		return "job"
	default:
		return "unknown"
	}
}

// Entity is a remote CI resource: a *Repo, *Build or *Job.
type Entity interface {
	Kind() EntityKind
}

// Repo is a CI repository.
type Repo struct {
	ID              int64
	Slug            string
	LastBuildID     int64
	LastBuildNumber string
}

// Build is one CI run of a repository. Number is the per-repository
// ordinal and is not guaranteed to be unique.
type Build struct {
	ID           int64
	Number       string
	RepositoryID int64
	Slug         string
	State        string
	JobIDs       []int64
	StartedAt    *time.Time
	FinishedAt   *time.Time

	// Jobs is nil until the build's jobs have been attached.
	Jobs []*Job
}

// Job is one unit of work within a build. Number has the form "build.ordinal".
type Job struct {
	ID           int64
	Number       string
	RepositoryID int64
	Slug         string
	State        string
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

func (*Repo) Kind() EntityKind  { return KindRepo }
func (*Build) Kind() EntityKind { return KindBuild }
func (*Job) Kind() EntityKind   { return KindJob }

// NumberInt returns the build number as an integer, or 0 if it is malformed.
func (b *Build) NumberInt() int {
	n, err := b.ParseNumber()
	if err != nil {
		return 0
	}
	return n
}

// ParseNumber returns the build number as a positive integer. A malformed
// number is an ErrFormat error.
func (b *Build) ParseNumber() (int, error) {
	n, err := strconv.Atoi(b.Number)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: build %d has number %q", ErrFormat, b.ID, b.Number)
	}
	return n, nil
}

// Ordinal returns the job's position within its build (the part after the
// dot), or 0 if the number is malformed.
func (j *Job) Ordinal() int {
	_, ordinal, ok := strings.Cut(j.Number, ".")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(ordinal)
	if err != nil {
		return 0
	}
	return n
}

// Pending reports whether the job has not finished yet.
func (j *Job) Pending() bool {
	switch j.State {
	case "", "created", "queued", "received", "started":
		return true
	default:
		return false
	}
}
