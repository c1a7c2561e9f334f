// Package resolve turns targets into the concrete jobs whose logs are fetched.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"travis-log-fetch/src/history"
	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/provider"
	"travis-log-fetch/src/target"
)

// Resolver dispatches targets to the lookup their fields call for.
type Resolver struct {
	client provider.CIClient
	exact  *history.Resolver
	log    logger.Logger
}

// New creates a resolver backed by client.
func New(client provider.CIClient, log logger.Logger) *Resolver {
	return &Resolver{
		client: client,
		exact:  history.NewResolver(client, log),
		log:    log,
	}
}

// ResolveJobs resolves every target to jobs, concatenated in input order.
// Fields are consulted in a fixed priority: job id, build id, build number
// (with optional job number), and finally the repository's latest build.
//
// A repository that does not exist or has no builds is logged and its target
// skipped. Any other failure aborts the batch.
func (r *Resolver) ResolveJobs(ctx context.Context, targets []target.Target) ([]*provider.Job, error) {
	var jobs []*provider.Job
	for _, t := range targets {
		resolved, err := r.resolveTarget(ctx, t)
		if err != nil {
			if errors.Is(err, errSkip) {
				continue
			}
			return nil, fmt.Errorf("failed to resolve %s: %w", t, err)
		}
		jobs = append(jobs, resolved...)
	}
	return jobs, nil
}

var errSkip = errors.New("target skipped")

func (r *Resolver) resolveTarget(ctx context.Context, t target.Target) ([]*provider.Job, error) {
	repo, err := r.client.GetRepo(ctx, t.Slug())
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			r.log.Error("slug %s not found on Travis: %v", t.Slug(), err)
			return nil, errSkip
		}
		return nil, err
	}

	switch {
	case t.JobID != 0:
		jobs, err := r.client.ListJobsByIDs(ctx, repo.Slug, []int64{t.JobID})
		if err != nil {
			return nil, err
		}
		if len(jobs) != 1 {
			return nil, fmt.Errorf("job %d: expected 1 job, got %d: %w", t.JobID, len(jobs), provider.ErrNotFound)
		}
		if jobs[0].RepositoryID != repo.ID {
			return nil, fmt.Errorf("job %d of repository %d: %w", t.JobID, jobs[0].RepositoryID, provider.ErrRepositoryMismatch)
		}
		return jobs, nil

	case t.BuildID != 0:
		build, err := r.client.GetBuild(ctx, t.BuildID)
		if err != nil {
			return nil, err
		}
		if build.RepositoryID != repo.ID {
			return nil, fmt.Errorf("build %d of repository %d: %w", t.BuildID, build.RepositoryID, provider.ErrRepositoryMismatch)
		}
		return r.buildJobs(ctx, build)

	case t.BuildNumber != 0:
		build, err := r.exact.ResolveBuild(ctx, repo.Slug, t.BuildNumber)
		if err != nil {
			return nil, err
		}
		if t.JobNumber == 0 {
			return r.buildJobs(ctx, build)
		}
		job, err := r.exact.ResolveJob(ctx, build, t.JobNumber)
		if err != nil {
			return nil, err
		}
		return []*provider.Job{job}, nil
	}

	if repo.LastBuildID == 0 {
		r.log.Error("No builds for %s", repo.Slug)
		return nil, errSkip
	}
	build, err := r.client.GetBuild(ctx, repo.LastBuildID)
	if err != nil {
		return nil, err
	}
	return r.buildJobs(ctx, build)
}

func (r *Resolver) buildJobs(ctx context.Context, build *provider.Build) ([]*provider.Job, error) {
	if err := history.AttachJobs(ctx, r.client, build); err != nil {
		return nil, err
	}
	return build.Jobs, nil
}

// Repos looks up each slug on the CI service. Slugs without a repository
// are logged and omitted.
func (r *Resolver) Repos(ctx context.Context, slugs []string) ([]*provider.Repo, error) {
	repos := make([]*provider.Repo, 0, len(slugs))
	for _, slug := range slugs {
		repo, err := r.client.GetRepo(ctx, slug)
		if err != nil {
			if errors.Is(err, provider.ErrNotFound) {
				r.log.Error("slug %s not found on Travis: %v", slug, err)
				continue
			}
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}
