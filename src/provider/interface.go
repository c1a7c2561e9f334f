package provider

import (
	"context"
	"io"
)

// CIClient is the CI service as seen by the resolvers.
type CIClient interface {
	// GetRepo returns the repository, or an error wrapping ErrRepoNotFound.
	GetRepo(ctx context.Context, slug string) (*Repo, error)

	// ListBuilds returns the next page of builds with a number below
	// afterNumber, newest first. afterNumber 0 starts at the newest build.
	// An empty page means the history is exhausted.
	ListBuilds(ctx context.Context, slug string, afterNumber int) ([]*Build, error)

	// GetBuild returns a build with its jobs attached.
	GetBuild(ctx context.Context, id int64) (*Build, error)

	// GetJob returns the current state of a job.
	GetJob(ctx context.Context, id int64) (*Job, error)

	// ListJobsByIDs returns the jobs of a repository with the given ids.
	ListJobsByIDs(ctx context.Context, slug string, ids []int64) ([]*Job, error)

	// ListReposForMember returns the repositories a user is a member of.
	ListReposForMember(ctx context.Context, user string) ([]*Repo, error)

	// CurrentUser returns the login of the authenticated user.
	CurrentUser(ctx context.Context) (string, error)

	// OpenLog streams the raw log text of a job.
	OpenLog(ctx context.Context, jobID int64) (io.ReadCloser, error)
}

// ForgeClient is the source-forge service used to discover forks.
type ForgeClient interface {
	// GetForks returns the full names ("user/project") of the forks of a
	// repository, or an error wrapping ErrNotFound.
	GetForks(ctx context.Context, ownerSlug string) ([]string, error)
}
