//go:build integration

package travis

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"travis-log-fetch/src/history"
	"travis-log-fetch/src/logger"
)

// TestLiveHistory pages through the real build history of a public
// repository. Run with: TRAVIS_TEST_SLUG=user/project go test -tags integration
func TestLiveHistory(t *testing.T) {
	slug := os.Getenv("TRAVIS_TEST_SLUG")
	if slug == "" {
		t.Skip("TRAVIS_TEST_SLUG not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := NewClient(os.Getenv("TRAVIS_API"), os.Getenv("TRAVIS_TOKEN"))
	repo, err := client.GetRepo(ctx, slug)
	if err != nil {
		t.Fatalf("GetRepo failed: %v", err)
	}
	t.Logf("repository %s (id %d), last build %s", repo.Slug, repo.ID, repo.LastBuildNumber)

	it := history.New(client, slug, history.Options{LoadJobs: true}, logger.NewSilentLogger())
	builds, err := history.Take(ctx, it, 3)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	prev := 0
	for _, b := range builds {
		if b.RepositoryID != repo.ID {
			t.Errorf("build %d belongs to repository %d", b.ID, b.RepositoryID)
		}
		n, err := strconv.Atoi(b.Number)
		if err != nil {
			t.Errorf("build %d has number %q", b.ID, b.Number)
		}
		if prev != 0 && n >= prev {
			t.Errorf("builds not in descending order: %d after %d", n, prev)
		}
		prev = n
		if len(b.Jobs) == 0 {
			t.Errorf("build %s has no jobs", b.Number)
		}
	}
}
