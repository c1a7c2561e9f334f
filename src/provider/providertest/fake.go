// Package providertest provides in-memory CI and forge services for tests.
package providertest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"travis-log-fetch/src/provider"
)

// PageSize is the number of builds FakeCI returns per ListBuilds page.
const PageSize = 25

// FakeCI is an in-memory provider.CIClient. Builds are listed newest first
// in pages of PageSize, in the order they were added within equal numbers.
type FakeCI struct {
	mu sync.Mutex

	User    string
	Repos   map[string]*provider.Repo
	Builds  map[int64]*provider.Build
	Jobs    map[int64]*provider.Job
	Logs    map[int64]string
	Members map[string][]string

	// order holds build ids per slug in insertion order.
	order map[string][]int64

	// OmitJobs makes ListBuilds return builds without attached jobs.
	OmitJobs bool

	// JobStates, when set, replaces a job's state on each GetJob call with
	// the next entry of its list.
	JobStates map[int64][]string

	Calls []string
}

// NewFakeCI returns an empty fake.
func NewFakeCI() *FakeCI {
	return &FakeCI{
		Repos:   make(map[string]*provider.Repo),
		Builds:  make(map[int64]*provider.Build),
		Jobs:    make(map[int64]*provider.Job),
		Logs:    make(map[int64]string),
		Members: make(map[string][]string),
		order:   make(map[string][]int64),
	}
}

// AddRepo registers a repository.
func (f *FakeCI) AddRepo(id int64, slug string) *provider.Repo {
	f.mu.Lock()
	defer f.mu.Unlock()

	repo := &provider.Repo{ID: id, Slug: slug}
	f.Repos[slug] = repo
	return repo
}

// AddBuild registers a build of slug with one job per state. Job ids are
// id*100+ordinal. The repository's last build is updated.
func (f *FakeCI) AddBuild(slug string, id int64, number int, states ...string) *provider.Build {
	f.mu.Lock()
	defer f.mu.Unlock()

	repo := f.Repos[slug]
	build := &provider.Build{
		ID:           id,
		Number:       fmt.Sprint(number),
		RepositoryID: repo.ID,
		Slug:         slug,
		State:        "passed",
	}
	for i, state := range states {
		job := &provider.Job{
			ID:           id*100 + int64(i+1),
			Number:       fmt.Sprintf("%d.%d", number, i+1),
			RepositoryID: repo.ID,
			Slug:         slug,
			State:        state,
		}
		f.Jobs[job.ID] = job
		f.Logs[job.ID] = fmt.Sprintf("log of %s %s\n", slug, job.Number)
		build.JobIDs = append(build.JobIDs, job.ID)
	}
	f.Builds[id] = build
	f.order[slug] = append(f.order[slug], id)

	if repo.LastBuildID == 0 || number >= mustAtoi(repo.LastBuildNumber) {
		repo.LastBuildID = id
		repo.LastBuildNumber = build.Number
	}
	return build
}

func mustAtoi(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}

func (f *FakeCI) record(format string, args ...interface{}) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// CallCount returns the number of recorded calls starting with prefix.
func (f *FakeCI) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *FakeCI) GetRepo(ctx context.Context, slug string) (*provider.Repo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRepo %s", slug)

	repo, ok := f.Repos[slug]
	if !ok {
		return nil, fmt.Errorf("%s: %w", slug, provider.ErrRepoNotFound)
	}
	copied := *repo
	return &copied, nil
}

func (f *FakeCI) ListBuilds(ctx context.Context, slug string, afterNumber int) ([]*provider.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListBuilds %s %d", slug, afterNumber)

	var builds []*provider.Build
	for _, id := range f.order[slug] {
		b := f.Builds[id]
		if afterNumber == 0 || b.NumberInt() < afterNumber {
			builds = append(builds, b)
		}
	}
	sort.SliceStable(builds, func(i, j int) bool {
		return builds[i].NumberInt() > builds[j].NumberInt()
	})
	if len(builds) > PageSize {
		builds = builds[:PageSize]
	}

	page := make([]*provider.Build, 0, len(builds))
	for _, b := range builds {
		page = append(page, f.copyBuild(b, !f.OmitJobs))
	}
	return page, nil
}

func (f *FakeCI) copyBuild(b *provider.Build, withJobs bool) *provider.Build {
	copied := *b
	copied.Jobs = nil
	if withJobs {
		copied.Jobs = make([]*provider.Job, 0, len(b.JobIDs))
		for _, id := range b.JobIDs {
			job := *f.Jobs[id]
			copied.Jobs = append(copied.Jobs, &job)
		}
	}
	return &copied
}

func (f *FakeCI) GetBuild(ctx context.Context, id int64) (*provider.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetBuild %d", id)

	b, ok := f.Builds[id]
	if !ok {
		return nil, fmt.Errorf("build %d: %w", id, provider.ErrNotFound)
	}
	return f.copyBuild(b, true), nil
}

func (f *FakeCI) GetJob(ctx context.Context, id int64) (*provider.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetJob %d", id)

	job, ok := f.Jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", id, provider.ErrNotFound)
	}
	if states := f.JobStates[id]; len(states) > 0 {
		job.State = states[0]
		f.JobStates[id] = states[1:]
	}
	copied := *job
	return &copied, nil
}

func (f *FakeCI) ListJobsByIDs(ctx context.Context, slug string, ids []int64) ([]*provider.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListJobsByIDs %s %v", slug, ids)

	var jobs []*provider.Job
	for _, id := range ids {
		if job, ok := f.Jobs[id]; ok {
			copied := *job
			jobs = append(jobs, &copied)
		}
	}
	return jobs, nil
}

func (f *FakeCI) ListReposForMember(ctx context.Context, user string) ([]*provider.Repo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListReposForMember %s", user)

	var repos []*provider.Repo
	for _, slug := range f.Members[user] {
		if repo, ok := f.Repos[slug]; ok {
			copied := *repo
			repos = append(repos, &copied)
		}
	}
	return repos, nil
}

func (f *FakeCI) CurrentUser(ctx context.Context) (string, error) {
	if f.User == "" {
		return "", provider.ErrAuthFailed
	}
	return f.User, nil
}

func (f *FakeCI) OpenLog(ctx context.Context, jobID int64) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("OpenLog %d", jobID)

	text, ok := f.Logs[jobID]
	if !ok {
		return nil, fmt.Errorf("log of job %d: %w", jobID, provider.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

// FakeForge is an in-memory provider.ForgeClient.
type FakeForge struct {
	Forks map[string][]string
}

func (f *FakeForge) GetForks(ctx context.Context, ownerSlug string) ([]string, error) {
	forks, ok := f.Forks[ownerSlug]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ownerSlug, provider.ErrNotFound)
	}
	return forks, nil
}
