// Package storage keeps track of the job logs already written under a root
// directory, and writes new ones.
package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/logtemplate"
	"travis-log-fetch/src/target"
)

// Index reconstructs stored targets from the file names under a root
// directory, using the filename template in reverse.
type Index struct {
	root     string
	template *logtemplate.Template
	log      logger.Logger

	mu        sync.Mutex
	unmatched []string
}

// NewIndex creates an index over root.
func NewIndex(root string, template *logtemplate.Template, log logger.Logger) *Index {
	return &Index{root: root, template: template, log: log}
}

// Root returns the storage directory.
func (ix *Index) Root() string {
	return ix.root
}

// Template returns the filename template.
func (ix *Index) Template() *logtemplate.Template {
	return ix.template
}

// Unmatched returns the relative paths that did not match the template
// during the last scan. The slice is a copy.
func (ix *Index) Unmatched() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]string(nil), ix.unmatched...)
}

// Entry is one stored log file.
type Entry struct {
	Target target.Target
	// Path is relative to the root, with forward slashes.
	Path string
}

// Entries walks every file under the root and returns an Entry for each
// path matching the template. A missing root yields no entries.
func (ix *Index) Entries() ([]Entry, error) {
	var (
		entries   []Entry
		unmatched []string
	)
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == ix.root && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(ix.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		values, ok := ix.template.Parse(rel)
		if !ok {
			ix.log.Warn("Unexpected filename %s", rel)
			unmatched = append(unmatched, rel)
			return nil
		}

		t, err := targetFromValues(values, ix.template)
		if err != nil {
			ix.log.Warn("Unexpected filename %s: %v", rel, err)
			unmatched = append(unmatched, rel)
			return nil
		}
		entries = append(entries, Entry{Target: t, Path: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", ix.root, err)
	}

	ix.mu.Lock()
	ix.unmatched = unmatched
	ix.mu.Unlock()
	return entries, nil
}

// StoredTargets returns the target of every stored log, populated from
// whichever placeholders the template contains.
func (ix *Index) StoredTargets() ([]target.Target, error) {
	entries, err := ix.Entries()
	if err != nil {
		return nil, err
	}

	targets := make([]target.Target, 0, len(entries))
	for _, e := range entries {
		targets = append(targets, e.Target)
	}
	return targets, nil
}

// Find returns the stored logs of slug whose build matches buildNumber and,
// when jobNumber is non-zero, whose job matches it too.
func (ix *Index) Find(slug string, buildNumber, jobNumber int) ([]Entry, error) {
	entries, err := ix.Entries()
	if err != nil {
		return nil, err
	}

	var found []Entry
	for _, e := range entries {
		if e.Target.Slug() != slug || e.Target.BuildNumber != buildNumber {
			continue
		}
		if jobNumber != 0 && e.Target.JobNumber != jobNumber {
			continue
		}
		found = append(found, e)
	}
	return found, nil
}

func targetFromValues(values logtemplate.Values, tmpl *logtemplate.Template) (target.Target, error) {
	var t target.Target
	if tmpl.Has(logtemplate.Slug) {
		if err := t.SetSlug(values.Slug); err != nil {
			return target.Target{}, err
		}
	}
	if tmpl.Has(logtemplate.Number) {
		if err := t.SetLogicalID(values.Number); err != nil {
			return target.Target{}, err
		}
	}
	if tmpl.Has(logtemplate.State) {
		t.State = values.State
	}
	return t, nil
}

// StoredRepoSlugs returns the sorted, distinct slugs with stored logs.
// When the template starts with "{slug}/" the directories two levels below
// the root are listed instead of walking every file.
func (ix *Index) StoredRepoSlugs() ([]string, error) {
	if ix.template.SlugDirectoryPrefix() {
		return ix.slugDirectories()
	}

	targets, err := ix.StoredTargets()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var slugs []string
	for _, t := range targets {
		slug := t.Slug()
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (ix *Index) slugDirectories() ([]string, error) {
	users, err := os.ReadDir(ix.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", ix.root, err)
	}

	var slugs []string
	for _, user := range users {
		if !user.IsDir() {
			continue
		}
		projects, err := os.ReadDir(filepath.Join(ix.root, user.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", user.Name(), err)
		}
		for _, project := range projects {
			if project.IsDir() {
				slugs = append(slugs, user.Name()+"/"+project.Name())
			}
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// StoredBuildsForRepo returns the distinct (slug, build number) targets
// stored for one repository, ordered by build number.
func (ix *Index) StoredBuildsForRepo(slug string) ([]target.Target, error) {
	builds, err := ix.storedBuilds()
	if err != nil {
		return nil, err
	}
	return builds.forRepo(slug), nil
}

// SkipAlreadyStored returns the candidates whose (slug, build number) has
// no stored log. Candidates without a build number are always kept. Remote
// entities are converted with target.FromEntities beforehand.
func (ix *Index) SkipAlreadyStored(candidates []target.Target) ([]target.Target, error) {
	builds, err := ix.storedBuilds()
	if err != nil {
		return nil, err
	}

	kept := make([]target.Target, 0, len(candidates))
	for _, c := range candidates {
		if c.BuildNumber != 0 && builds.contains(c.Slug(), c.BuildNumber) {
			ix.log.Info("skipping existing %s", c)
			continue
		}
		ix.log.Debug("target %s not found in stored builds", c)
		kept = append(kept, c)
	}
	return kept, nil
}

// buildSet maps slug to the stored build numbers.
type buildSet map[string]map[int]bool

func (ix *Index) storedBuilds() (buildSet, error) {
	targets, err := ix.StoredTargets()
	if err != nil {
		return nil, err
	}

	set := make(buildSet)
	for _, t := range targets {
		slug := t.Slug()
		if slug == "" || t.BuildNumber == 0 {
			continue
		}
		if set[slug] == nil {
			set[slug] = make(map[int]bool)
		}
		set[slug][t.BuildNumber] = true
	}
	return set, nil
}

func (s buildSet) contains(slug string, number int) bool {
	return s[slug][number]
}

func (s buildSet) forRepo(slug string) []target.Target {
	numbers := make([]int, 0, len(s[slug]))
	for n := range s[slug] {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	user, project, _ := strings.Cut(slug, "/")
	builds := make([]target.Target, 0, len(numbers))
	for _, n := range numbers {
		builds = append(builds, target.Target{User: user, Project: project, BuildNumber: n})
	}
	return builds
}

// Describe renders a stored build set for logs, e.g. "a/b: 10, 11".
func Describe(builds []target.Target) string {
	if len(builds) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(builds))
	for _, b := range builds {
		parts = append(parts, strconv.Itoa(b.BuildNumber))
	}
	return builds[0].Slug() + ": " + strings.Join(parts, ", ")
}
