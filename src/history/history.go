// Package history pages through the build history of a repository, newest
// first, and resolves builds and jobs by their logical number.
//
// Travis occasionally reports two distinct builds with the same number
// (travis-ci/travis-ci#2582). Both are yielded; exact lookups of such a
// number fail with provider.ErrAmbiguous.
package history

import (
	"context"
	"fmt"

	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/provider"
)

// Client is the part of the CI service needed to page through history.
type Client interface {
	ListBuilds(ctx context.Context, slug string, afterNumber int) ([]*provider.Build, error)
	GetJob(ctx context.Context, id int64) (*provider.Job, error)
}

// Options configures an Iterator.
type Options struct {
	// After is the exclusive upper bound of the first page. Zero starts at
	// the newest build.
	After int

	// LoadJobs attaches the jobs of every build before it is yielded.
	LoadJobs bool
}

// Duplicate records two consecutive builds reporting the same number.
type Duplicate struct {
	Number   int
	FirstID  int64
	SecondID int64
}

// Iterator yields the builds of one repository in descending number order.
// It holds at most one page and fetches the next one only when the current
// page is exhausted, so callers may stop at any point.
//
//	it := history.New(client, "foo/bar", history.Options{}, log)
//	for it.Next(ctx) {
//		build := it.Build()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	client Client
	slug   string
	opts   Options
	log    logger.Logger

	after      int
	page       []*provider.Build
	pos        int
	current    *provider.Build
	previous   *provider.Build
	duplicates []Duplicate
	done       bool
	err        error
}

// New returns an iterator over the builds of slug.
func New(client Client, slug string, opts Options, log logger.Logger) *Iterator {
	return &Iterator{
		client: client,
		slug:   slug,
		opts:   opts,
		log:    log,
		after:  opts.After,
	}
}

// Next advances to the next build. It returns false when the history is
// exhausted or an error occurred; see Err.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}

	for it.pos >= len(it.page) {
		if it.page != nil {
			last, err := it.page[len(it.page)-1].ParseNumber()
			if err != nil {
				return it.fail(fmt.Errorf("cannot page past builds of %s: %w", it.slug, err))
			}
			it.after = last
		}
		page, err := it.client.ListBuilds(ctx, it.slug, it.after)
		if err != nil {
			return it.fail(fmt.Errorf("failed to list builds of %s after %d: %w", it.slug, it.after, err))
		}
		it.log.Debug("fetched %d builds after %d", len(page), it.after)
		if len(page) == 0 {
			it.done = true
			it.current = nil
			return false
		}
		it.page = page
		it.pos = 0
	}

	build := it.page[it.pos]
	it.pos++

	if it.opts.LoadJobs {
		if err := AttachJobs(ctx, it.client, build); err != nil {
			return it.fail(err)
		}
	}

	if it.previous != nil && build.NumberInt() == it.previous.NumberInt() {
		it.log.Warn("Duplicate build %s detected: %d & %d", build.Number, build.ID, it.previous.ID)
		it.duplicates = append(it.duplicates, Duplicate{
			Number:   build.NumberInt(),
			FirstID:  it.previous.ID,
			SecondID: build.ID,
		})
	}

	it.previous = build
	it.current = build
	return true
}

func (it *Iterator) fail(err error) bool {
	it.err = err
	it.done = true
	it.current = nil
	return false
}

// Build returns the build Next advanced to.
func (it *Iterator) Build() *provider.Build {
	return it.current
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Duplicates returns the duplicate build numbers seen so far.
func (it *Iterator) Duplicates() []Duplicate {
	return it.duplicates
}

// Take collects at most n builds from it. n <= 0 collects the whole history.
func Take(ctx context.Context, it *Iterator, n int) ([]*provider.Build, error) {
	var builds []*provider.Build
	for (n <= 0 || len(builds) < n) && it.Next(ctx) {
		builds = append(builds, it.Build())
	}
	return builds, it.Err()
}

// AttachJobs fetches the jobs of a build one by one when the build was
// listed without them.
func AttachJobs(ctx context.Context, client Client, build *provider.Build) error {
	if build.Jobs != nil {
		return nil
	}

	jobs := make([]*provider.Job, 0, len(build.JobIDs))
	for _, id := range build.JobIDs {
		job, err := client.GetJob(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load job %d of build %d: %w", id, build.ID, err)
		}
		jobs = append(jobs, job)
	}
	build.Jobs = jobs
	return nil
}
