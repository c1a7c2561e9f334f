package target

import (
	"fmt"
	"net/url"
	"strings"

	"travis-log-fetch/src/provider"
)

// Parse parses any supported encoding: URLs when the text carries a scheme
// or starts with "//", extended slugs otherwise.
func Parse(text string) (Target, error) {
	if strings.Contains(text, "://") || strings.HasPrefix(text, "//") {
		return ParseURL(text)
	}
	return ParseExtendedSlug(text)
}

// ParseAll parses every text, stopping at the first malformed one.
func ParseAll(texts []string) ([]Target, error) {
	targets := make([]Target, 0, len(texts))
	for _, text := range texts {
		t, err := Parse(text)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// ParseSimpleSlug parses "user/project", splitting on the last slash.
func ParseSimpleSlug(text string) (Target, error) {
	i := strings.LastIndex(text, "/")
	if i <= 0 || i == len(text)-1 {
		return Target{}, fmt.Errorf("%w: slug %q", ErrFormat, text)
	}
	return Target{User: text[:i], Project: text[i+1:]}, nil
}

// ParseExtendedSlug parses "user/project" with an optional "#build.job",
// "@build_id" or ":job_id" suffix, or "user/project/build[.job]".
func ParseExtendedSlug(text string) (Target, error) {
	parts := strings.Split(text, "/")
	if len(parts) != 2 && len(parts) != 3 {
		return Target{}, fmt.Errorf("%w: %q has %d path segments", ErrFormat, text, len(parts))
	}

	t := Target{User: parts[0]}

	if len(parts) == 3 {
		t.Project = parts[1]
		if err := t.SetLogicalID(parts[2]); err != nil {
			return Target{}, fmt.Errorf("%q: %w", text, err)
		}
		return t.checkSlug(text)
	}

	rest := parts[1]
	if i := strings.IndexAny(rest, "#@:"); i >= 0 {
		t.Project = rest[:i]
		suffix := rest[i+1:]

		var err error
		switch rest[i] {
		case '#':
			err = t.SetLogicalID(suffix)
		case '@':
			t.BuildID, err = parseID(suffix)
		case ':':
			t.JobID, err = parseID(suffix)
		}
		if err != nil {
			return Target{}, fmt.Errorf("%w: %q: %v", ErrFormat, text, err)
		}
	} else {
		t.Project = rest
	}

	return t.checkSlug(text)
}

func (t Target) checkSlug(text string) (Target, error) {
	if !t.HasSlug() {
		return Target{}, fmt.Errorf("%w: %q is missing user or project", ErrFormat, text)
	}
	return t, nil
}

// ParseURL parses a web URL of a repository, build or job.
func ParseURL(text string) (Target, error) {
	u, err := url.Parse(text)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return Target{}, fmt.Errorf("%w: url %q has no path", ErrFormat, text)
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 2:
		return Target{User: parts[0], Project: parts[1]}.checkSlug(text)

	case len(parts) == 4 && parts[2] == "jobs":
		id, err := parseID(parts[3])
		if err != nil {
			return Target{}, fmt.Errorf("%w: url %q: job id: %v", ErrFormat, text, err)
		}
		return Target{User: parts[0], Project: parts[1], JobID: id}.checkSlug(text)

	case len(parts) == 4 && parts[2] == "builds":
		id, err := parseID(parts[3])
		if err != nil {
			return Target{}, fmt.Errorf("%w: url %q: build id: %v", ErrFormat, text, err)
		}
		return Target{User: parts[0], Project: parts[1], BuildID: id}.checkSlug(text)
	}

	return Target{}, fmt.Errorf("%w: unknown url %q", ErrFormat, text)
}

// FromEntity converts a remote repository, build or job to its canonical
// target.
func FromEntity(e provider.Entity) (Target, error) {
	switch obj := e.(type) {
	case *provider.Repo:
		return ParseSimpleSlug(obj.Slug)

	case *provider.Build:
		var t Target
		if err := t.SetSlug(obj.Slug); err != nil {
			return Target{}, err
		}
		number, err := parseCount(obj.Number)
		if err != nil {
			return Target{}, fmt.Errorf("%w: build %d number %q", ErrFormat, obj.ID, obj.Number)
		}
		t.BuildID = obj.ID
		t.BuildNumber = number
		return t, nil

	case *provider.Job:
		t := Target{JobID: obj.ID}
		if err := t.SetSlug(obj.Slug); err != nil {
			return Target{}, err
		}
		if err := t.SetNumber(obj.Number); err != nil {
			return Target{}, err
		}
		return t, nil
	}

	return Target{}, fmt.Errorf("%w: %T", ErrUnsupportedType, e)
}

// FromEntities converts every entity, stopping at the first failure.
func FromEntities[E provider.Entity](entities []E) ([]Target, error) {
	targets := make([]Target, 0, len(entities))
	for _, e := range entities {
		t, err := FromEntity(e)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}
