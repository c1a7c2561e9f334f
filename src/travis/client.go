// Package travis provides a client for the Travis CI API (version 2).
package travis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"travis-log-fetch/src/provider"
)

const (
	// OrgAPI is the API of travis-ci.org.
	OrgAPI = "https://api.travis-ci.org"
	// ProAPI is the API of travis-ci.com.
	ProAPI = "https://api.travis-ci.com"

	mediaType = "application/vnd.travis-ci.2.1+json"
)

// APIURL maps the short names "org" and "pro" to their API and returns any
// other value unchanged. An empty name selects OrgAPI.
func APIURL(name string) string {
	switch name {
	case "", "org":
		return OrgAPI
	case "pro", "com":
		return ProAPI
	}
	return strings.TrimRight(name, "/")
}

var _ provider.CIClient = (*Client)(nil)

// Client is a Travis CI API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL. token may be empty for
// public repositories.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: APIURL(baseURL),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type repoJSON struct {
	ID              int64  `json:"id"`
	Slug            string `json:"slug"`
	LastBuildID     int64  `json:"last_build_id"`
	LastBuildNumber string `json:"last_build_number"`
}

func (r repoJSON) toRepo() *provider.Repo {
	return &provider.Repo{
		ID:              r.ID,
		Slug:            r.Slug,
		LastBuildID:     r.LastBuildID,
		LastBuildNumber: r.LastBuildNumber,
	}
}

type buildJSON struct {
	ID           int64      `json:"id"`
	Number       string     `json:"number"`
	RepositoryID int64      `json:"repository_id"`
	State        string     `json:"state"`
	JobIDs       []int64    `json:"job_ids"`
	StartedAt    *time.Time `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

func (b buildJSON) toBuild(slug string) *provider.Build {
	return &provider.Build{
		ID:           b.ID,
		Number:       b.Number,
		RepositoryID: b.RepositoryID,
		Slug:         slug,
		State:        b.State,
		JobIDs:       b.JobIDs,
		StartedAt:    b.StartedAt,
		FinishedAt:   b.FinishedAt,
	}
}

type jobJSON struct {
	ID             int64      `json:"id"`
	Number         string     `json:"number"`
	RepositoryID   int64      `json:"repository_id"`
	RepositorySlug string     `json:"repository_slug"`
	State          string     `json:"state"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
}

func (j jobJSON) toJob() *provider.Job {
	return &provider.Job{
		ID:           j.ID,
		Number:       j.Number,
		RepositoryID: j.RepositoryID,
		Slug:         j.RepositorySlug,
		State:        j.State,
		StartedAt:    j.StartedAt,
		FinishedAt:   j.FinishedAt,
	}
}

func toJobs(in []jobJSON) []*provider.Job {
	jobs := make([]*provider.Job, 0, len(in))
	for _, j := range in {
		jobs = append(jobs, j.toJob())
	}
	return jobs
}

// GetRepo fetches a repository by slug.
func (c *Client) GetRepo(ctx context.Context, slug string) (*provider.Repo, error) {
	var resp struct {
		Repo repoJSON `json:"repo"`
	}
	if err := c.getJSON(ctx, "/repos/"+slug, nil, &resp); err != nil {
		return nil, repoError(slug, err)
	}
	return resp.Repo.toRepo(), nil
}

func (c *Client) getRepoByID(ctx context.Context, id int64) (*provider.Repo, error) {
	var resp struct {
		Repo repoJSON `json:"repo"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%d", id), nil, &resp); err != nil {
		return nil, repoError(strconv.FormatInt(id, 10), err)
	}
	return resp.Repo.toRepo(), nil
}

func repoError(name string, err error) error {
	if statusOf(err) == http.StatusNotFound {
		return fmt.Errorf("%s: %w", name, provider.ErrRepoNotFound)
	}
	return err
}

// ListBuilds returns one page of builds of slug, newest first, numbered
// below afterNumber. Zero starts at the newest build. Jobs are not attached.
func (c *Client) ListBuilds(ctx context.Context, slug string, afterNumber int) ([]*provider.Build, error) {
	query := url.Values{"slug": {slug}}
	if afterNumber > 0 {
		query.Set("after_number", strconv.Itoa(afterNumber))
	}

	var resp struct {
		Builds []buildJSON `json:"builds"`
	}
	if err := c.getJSON(ctx, "/builds", query, &resp); err != nil {
		return nil, repoError(slug, err)
	}

	builds := make([]*provider.Build, 0, len(resp.Builds))
	for _, b := range resp.Builds {
		builds = append(builds, b.toBuild(slug))
	}
	return builds, nil
}

// GetBuild fetches a build with its jobs attached.
func (c *Client) GetBuild(ctx context.Context, id int64) (*provider.Build, error) {
	var resp struct {
		Build buildJSON `json:"build"`
		Jobs  []jobJSON `json:"jobs"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/builds/%d", id), nil, &resp); err != nil {
		return nil, fmt.Errorf("build %d: %w", id, err)
	}

	jobs := toJobs(resp.Jobs)
	slug := ""
	if len(jobs) > 0 {
		slug = jobs[0].Slug
	} else {
		repo, err := c.getRepoByID(ctx, resp.Build.RepositoryID)
		if err != nil {
			return nil, err
		}
		slug = repo.Slug
	}

	build := resp.Build.toBuild(slug)
	build.Jobs = jobs
	return build, nil
}

// GetJob fetches a job by id.
func (c *Client) GetJob(ctx context.Context, id int64) (*provider.Job, error) {
	var resp struct {
		Job jobJSON `json:"job"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/jobs/%d", id), nil, &resp); err != nil {
		return nil, fmt.Errorf("job %d: %w", id, err)
	}
	return resp.Job.toJob(), nil
}

// ListJobsByIDs fetches several jobs of slug at once.
func (c *Client) ListJobsByIDs(ctx context.Context, slug string, ids []int64) ([]*provider.Job, error) {
	query := url.Values{}
	for _, id := range ids {
		query.Add("ids[]", strconv.FormatInt(id, 10))
	}

	var resp struct {
		Jobs []jobJSON `json:"jobs"`
	}
	if err := c.getJSON(ctx, "/jobs", query, &resp); err != nil {
		return nil, fmt.Errorf("jobs of %s: %w", slug, err)
	}

	jobs := toJobs(resp.Jobs)
	for _, job := range jobs {
		if job.Slug == "" {
			job.Slug = slug
		}
	}
	return jobs, nil
}

// ListReposForMember lists the repositories user is a member of.
func (c *Client) ListReposForMember(ctx context.Context, user string) ([]*provider.Repo, error) {
	var resp struct {
		Repos []repoJSON `json:"repos"`
	}
	if err := c.getJSON(ctx, "/repos", url.Values{"member": {user}}, &resp); err != nil {
		return nil, fmt.Errorf("repositories of %s: %w", user, err)
	}

	repos := make([]*provider.Repo, 0, len(resp.Repos))
	for _, r := range resp.Repos {
		repos = append(repos, r.toRepo())
	}
	return repos, nil
}

// CurrentUser returns the login of the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	if c.token == "" {
		return "", fmt.Errorf("no access token configured: %w", provider.ErrAuthFailed)
	}

	var resp struct {
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	}
	if err := c.getJSON(ctx, "/users", nil, &resp); err != nil {
		return "", err
	}
	return resp.User.Login, nil
}

// OpenLog streams the plain text log of a job. The caller closes it.
func (c *Client) OpenLog(ctx context.Context, jobID int64) (io.ReadCloser, error) {
	resp, err := c.do(ctx, fmt.Sprintf("/jobs/%d/log", jobID), nil, "text/plain")
	if err != nil {
		return nil, fmt.Errorf("log of job %d: %w", jobID, err)
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.do(ctx, path, query, mediaType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}
	return nil
}

// do performs a GET and returns the response when its status is 200.
func (c *Client) do(ctx context.Context, path string, query url.Values, accept string) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "travis-log-fetch")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// StatusError is a non-200 API response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.Code, e.Body)
}

// Unwrap maps the status to a provider sentinel.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return provider.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return provider.ErrAuthFailed
	case http.StatusTooManyRequests:
		return provider.ErrRateLimited
	}
	return nil
}

func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
