// Package github lists repository forks through the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"travis-log-fetch/src/provider"
)

// APIBaseURL is the public GitHub API.
const APIBaseURL = "https://api.github.com"

const perPage = 100 // GitHub's max per page

var _ provider.ForgeClient = (*Client)(nil)

// Client is a GitHub API client. The token is optional; anonymous clients
// are rate limited harder.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new GitHub client.
func NewClient(token string) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: APIBaseURL,
	}
}

// WithBaseURL points the client at another API, such as GitHub Enterprise.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type forkJSON struct {
	FullName string `json:"full_name"`
}

// GetForks returns the full names of all forks of ownerSlug ("owner/repo"),
// following pages until a short one.
func (c *Client) GetForks(ctx context.Context, ownerSlug string) ([]string, error) {
	owner, repo, ok := strings.Cut(ownerSlug, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: slug %q", provider.ErrFormat, ownerSlug)
	}

	var forks []string
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/forks?per_page=%d&page=%d", c.baseURL, owner, repo, perPage, page)

		var batch []forkJSON
		if err := c.getJSON(ctx, url, &batch); err != nil {
			return nil, fmt.Errorf("forks of %s: %w", ownerSlug, err)
		}
		for _, f := range batch {
			forks = append(forks, f.FullName)
		}

		if len(batch) < perPage {
			break
		}
	}
	return forks, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return provider.ErrNotFound
	case http.StatusUnauthorized:
		return provider.ErrAuthFailed
	case http.StatusForbidden, http.StatusTooManyRequests:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.StatusCode == http.StatusTooManyRequests {
			return provider.ErrRateLimited
		}
		return provider.ErrAuthFailed
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GitHub API error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
