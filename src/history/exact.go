package history

import (
	"context"
	"fmt"

	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/provider"
	"travis-log-fetch/src/target"
)

// Resolver finds builds and jobs by their logical number.
type Resolver struct {
	client Client
	log    logger.Logger
}

// NewResolver creates a resolver backed by client.
func NewResolver(client Client, log logger.Logger) *Resolver {
	return &Resolver{client: client, log: log}
}

// ResolveBuild returns the build of slug numbered number. The scan starts
// just above number and continues one build past it, so a duplicate
// reported right after the match is detected.
func (r *Resolver) ResolveBuild(ctx context.Context, slug string, number int) (*provider.Build, error) {
	it := New(r.client, slug, Options{After: number + 1}, r.log)

	var found *provider.Build
	for it.Next(ctx) {
		build := it.Build()
		n := build.NumberInt()

		if n == number {
			if found != nil {
				return nil, fmt.Errorf("%w: duplicate build %s/%d detected (ids %d and %d)",
					provider.ErrAmbiguous, slug, number, found.ID, build.ID)
			}
			found = build
		}

		if n < number {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	if found == nil {
		return nil, fmt.Errorf("could not find build %s/%d: %w", slug, number, provider.ErrNotFound)
	}
	return found, nil
}

// ResolveJob returns the job of build whose ordinal is jobNumber. When
// jobNumber is zero and the build has exactly one job, that job is returned.
func (r *Resolver) ResolveJob(ctx context.Context, build *provider.Build, jobNumber int) (*provider.Job, error) {
	if err := AttachJobs(ctx, r.client, build); err != nil {
		return nil, err
	}

	if jobNumber == 0 && len(build.Jobs) == 1 {
		return build.Jobs[0], nil
	}

	maxOrdinal := 0
	for _, job := range build.Jobs {
		ordinal := job.Ordinal()
		if ordinal == jobNumber {
			return job, nil
		}
		if ordinal > maxOrdinal {
			maxOrdinal = ordinal
		}
	}

	return nil, fmt.Errorf("build %d: could not find job %d; max %d: %w",
		build.ID, jobNumber, maxOrdinal, provider.ErrNotFound)
}

// ResolveHistoricalJob resolves a target carrying a build and job number.
func (r *Resolver) ResolveHistoricalJob(ctx context.Context, t target.Target) (*provider.Job, error) {
	if t.BuildNumber == 0 || t.JobNumber == 0 {
		return nil, fmt.Errorf("%w: %s has no job number", target.ErrFormat, t)
	}
	build, err := r.ResolveBuild(ctx, t.Slug(), t.BuildNumber)
	if err != nil {
		return nil, err
	}
	return r.ResolveJob(ctx, build, t.JobNumber)
}
