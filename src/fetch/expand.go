package fetch

import (
	"context"
	"errors"
	"fmt"

	"travis-log-fetch/src/history"
	"travis-log-fetch/src/provider"
	"travis-log-fetch/src/resolve"
	"travis-log-fetch/src/target"
)

// Expand builds the list of targets a run will resolve, before the stored
// filter is applied.
func Expand(ctx context.Context, env *Env, opts Options) ([]target.Target, error) {
	targets, err := target.ParseAll(opts.Targets)
	if err != nil {
		return nil, err
	}

	if opts.Refresh {
		slugs, err := env.Index.StoredRepoSlugs()
		if err != nil {
			return nil, fmt.Errorf("failed to list stored repositories: %w", err)
		}
		for _, slug := range slugs {
			t, err := target.ParseSimpleSlug(slug)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
	}

	if opts.Self {
		user, err := env.CI.CurrentUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to identify the authenticated user: %w", err)
		}
		repos, err := env.CI.ListReposForMember(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories of %s: %w", user, err)
		}
		own, err := target.FromEntities(repos)
		if err != nil {
			return nil, err
		}
		targets = append(targets, own...)
	}

	if opts.Forks {
		forks, err := expandForks(ctx, env, targets)
		if err != nil {
			return nil, err
		}
		targets = append(targets, forks...)
	}

	if opts.All || opts.Old {
		count := opts.Count
		if opts.All {
			count = 0
		}
		return expandHistory(ctx, env, targets, count)
	}

	return targets, nil
}

// expandForks returns the forks of every distinct slug in targets that have
// a CI repository.
func expandForks(ctx context.Context, env *Env, targets []target.Target) ([]target.Target, error) {
	if env.Forge == nil {
		return nil, fmt.Errorf("fork expansion needs a forge client")
	}

	resolver := resolve.New(env.CI, env.Log)
	var forks []target.Target
	for _, slug := range distinctSlugs(targets) {
		names, err := env.Forge.GetForks(ctx, slug)
		if err != nil {
			if errors.Is(err, provider.ErrNotFound) {
				env.Log.Error("slug %s not found on GitHub: %v", slug, err)
				continue
			}
			return nil, fmt.Errorf("failed to list forks of %s: %w", slug, err)
		}
		repos, err := resolver.Repos(ctx, names)
		if err != nil {
			return nil, err
		}
		converted, err := target.FromEntities(repos)
		if err != nil {
			return nil, err
		}
		forks = append(forks, converted...)
	}
	return forks, nil
}

// expandHistory replaces targets by the builds of their repositories, newest
// first, at most count per repository. count <= 0 takes every build.
func expandHistory(ctx context.Context, env *Env, targets []target.Target, count int) ([]target.Target, error) {
	var builds []target.Target
	for _, slug := range distinctSlugs(targets) {
		it := history.New(env.CI, slug, history.Options{}, env.Log)
		page, err := history.Take(ctx, it, count)
		if err != nil {
			return nil, err
		}
		converted, err := target.FromEntities(page)
		if err != nil {
			return nil, err
		}
		builds = append(builds, converted...)
	}
	return builds, nil
}

func distinctSlugs(targets []target.Target) []string {
	seen := make(map[string]bool)
	var slugs []string
	for _, t := range targets {
		if !t.HasSlug() || seen[t.Slug()] {
			continue
		}
		seen[t.Slug()] = true
		slugs = append(slugs, t.Slug())
	}
	return slugs
}
