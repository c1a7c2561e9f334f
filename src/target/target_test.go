package target

import (
	"errors"
	"testing"

	"travis-log-fetch/src/provider"
)

func TestParseSimpleSlug(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantUser    string
		wantProject string
		wantErr     bool
	}{
		{name: "user and project", text: "foo/bar", wantUser: "foo", wantProject: "bar"},
		{name: "split on last slash", text: "a/b/c", wantUser: "a/b", wantProject: "c"},
		{name: "no slash", text: "foobar", wantErr: true},
		{name: "empty user", text: "/bar", wantErr: true},
		{name: "empty project", text: "foo/", wantErr: true},
		{name: "empty", text: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSimpleSlug(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSimpleSlug(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrFormat) {
					t.Errorf("error %v should wrap ErrFormat", err)
				}
				return
			}
			if got.User != tt.wantUser || got.Project != tt.wantProject {
				t.Errorf("ParseSimpleSlug(%q) = %q/%q, want %q/%q", tt.text, got.User, got.Project, tt.wantUser, tt.wantProject)
			}
		})
	}
}

func TestParseSimpleSlug_CanonicalSlug(t *testing.T) {
	got, err := ParseSimpleSlug("foo/bar")
	if err != nil {
		t.Fatalf("ParseSimpleSlug() error = %v", err)
	}
	if got.Slug() != "foo/bar" {
		t.Errorf("Slug() = %q, want foo/bar", got.Slug())
	}
	if got.String() != "foo/bar" {
		t.Errorf("String() = %q, want foo/bar", got.String())
	}
}

func TestParseExtendedSlug(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Target
		wantErr bool
	}{
		{
			name: "bare slug",
			text: "foo/bar",
			want: Target{User: "foo", Project: "bar"},
		},
		{
			name: "slash logical id",
			text: "foo/bar/10.1",
			want: Target{User: "foo", Project: "bar", BuildNumber: 10, JobNumber: 1},
		},
		{
			name: "hash logical id",
			text: "foo/bar#10.1",
			want: Target{User: "foo", Project: "bar", BuildNumber: 10, JobNumber: 1},
		},
		{
			name: "build number only",
			text: "foo/bar/10",
			want: Target{User: "foo", Project: "bar", BuildNumber: 10},
		},
		{
			name: "trailing dot leaves job unset",
			text: "foo/bar#10.",
			want: Target{User: "foo", Project: "bar", BuildNumber: 10},
		},
		{
			name: "build id",
			text: "foo/bar@9999",
			want: Target{User: "foo", Project: "bar", BuildID: 9999},
		},
		{
			name: "job id",
			text: "foo/bar:10000",
			want: Target{User: "foo", Project: "bar", JobID: 10000},
		},
		{name: "one segment", text: "foo", wantErr: true},
		{name: "four segments", text: "foo/bar/10/1", wantErr: true},
		{name: "empty logical id", text: "foo/bar/", wantErr: true},
		{name: "non-numeric build", text: "foo/bar/x.1", wantErr: true},
		{name: "non-numeric job", text: "foo/bar#10.y", wantErr: true},
		{name: "empty build part", text: "foo/bar#.1", wantErr: true},
		{name: "non-numeric build id", text: "foo/bar@abc", wantErr: true},
		{name: "non-numeric job id", text: "foo/bar:", wantErr: true},
		{name: "missing project", text: "foo/#10.1", wantErr: true},
		{name: "missing user", text: "/bar", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExtendedSlug(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseExtendedSlug(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrFormat) {
					t.Errorf("error %v should wrap ErrFormat", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseExtendedSlug(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseExtendedSlug_CanonicalForm(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "foo/bar", want: "foo/bar"},
		{text: "foo/bar/10.1", want: "foo/bar/10.1"},
		{text: "foo/bar#10.1", want: "foo/bar/10.1"},
		{text: "foo/bar#10", want: "foo/bar/10"},
		{text: "foo/bar@9999", want: "foo/bar@9999"},
		{text: "foo/bar:10000", want: "foo/bar:10000"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseExtendedSlug(tt.text)
			if err != nil {
				t.Fatalf("ParseExtendedSlug(%q) error = %v", tt.text, err)
			}
			if got.ExtendedSlug() != tt.want {
				t.Errorf("ExtendedSlug() = %q, want %q", got.ExtendedSlug(), tt.want)
			}

			again, err := ParseExtendedSlug(got.ExtendedSlug())
			if err != nil {
				t.Fatalf("reparse %q error = %v", got.ExtendedSlug(), err)
			}
			if again != got {
				t.Errorf("reparse = %+v, want %+v", again, got)
			}
		})
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Target
		wantErr bool
	}{
		{
			name: "repository",
			text: "https://travis-ci.org/foo/bar",
			want: Target{User: "foo", Project: "bar"},
		},
		{
			name: "repository trailing slash",
			text: "https://travis-ci.org/foo/bar/",
			want: Target{User: "foo", Project: "bar"},
		},
		{
			name: "build",
			text: "https://travis-ci.org/foo/bar/builds/9999",
			want: Target{User: "foo", Project: "bar", BuildID: 9999},
		},
		{
			name: "job",
			text: "https://travis-ci.org/foo/bar/jobs/10000",
			want: Target{User: "foo", Project: "bar", JobID: 10000},
		},
		{
			name: "scheme-relative job",
			text: "//host/foo/bar/jobs/10000",
			want: Target{User: "foo", Project: "bar", JobID: 10000},
		},
		{name: "no path", text: "https://travis-ci.org", wantErr: true},
		{name: "root path", text: "https://travis-ci.org/", wantErr: true},
		{name: "one segment", text: "https://travis-ci.org/foo", wantErr: true},
		{name: "unknown kind", text: "https://travis-ci.org/foo/bar/pulls/1", wantErr: true},
		{name: "non-numeric id", text: "https://travis-ci.org/foo/bar/jobs/abc", wantErr: true},
		{name: "three segments", text: "https://travis-ci.org/foo/bar/builds", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrFormat) {
					t.Errorf("error %v should wrap ErrFormat", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseURL(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParse_Dispatch(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "foo/bar#3.2", want: "foo/bar/3.2"},
		{text: "https://travis-ci.org/foo/bar/builds/12", want: "foo/bar@12"},
		{text: "//travis-ci.org/foo/bar/jobs/13", want: "foo/bar:13"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.text, err)
			}
			if got.String() != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.text, got.String(), tt.want)
			}
		})
	}
}

func TestParseAll(t *testing.T) {
	targets, err := ParseAll([]string{"foo/bar", "a/b@1"})
	if err != nil {
		t.Fatalf("ParseAll() error = %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("ParseAll() returned %d targets, want 2", len(targets))
	}

	if _, err := ParseAll([]string{"foo/bar", "nope"}); !errors.Is(err, ErrFormat) {
		t.Errorf("ParseAll() error = %v, want ErrFormat", err)
	}
}

func TestExtendedSlug_Priority(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{
			name:   "numbers win over ids",
			target: Target{User: "a", Project: "b", BuildID: 5, JobID: 6, BuildNumber: 10, JobNumber: 2},
			want:   "a/b/10.2",
		},
		{
			name:   "build number wins over ids",
			target: Target{User: "a", Project: "b", BuildID: 5, BuildNumber: 10},
			want:   "a/b/10",
		},
		{
			name:   "job id wins over build id",
			target: Target{User: "a", Project: "b", BuildID: 5, JobID: 6},
			want:   "a/b:6",
		},
		{
			name:   "job number without build number is ignored",
			target: Target{User: "a", Project: "b", JobNumber: 2},
			want:   "a/b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.ExtendedSlug(); got != tt.want {
				t.Errorf("ExtendedSlug() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTarget_InvalidString(t *testing.T) {
	if got := (Target{User: "a"}).String(); got != "<invalid>" {
		t.Errorf("String() = %q, want <invalid>", got)
	}
	if (Target{Project: "b"}).HasSlug() {
		t.Error("HasSlug() = true with only project set")
	}
}

func TestTarget_Equality(t *testing.T) {
	slash, _ := ParseExtendedSlug("foo/bar/10.1")
	hash, _ := ParseExtendedSlug("foo/bar#10.1")
	other, _ := ParseExtendedSlug("foo/bar#10.2")

	if !slash.Equal(hash) {
		t.Error("foo/bar/10.1 should equal foo/bar#10.1")
	}
	if slash.Equal(other) {
		t.Error("foo/bar/10.1 should not equal foo/bar#10.2")
	}
	if !hash.MatchesString("foo/bar/10.1") {
		t.Error("MatchesString(foo/bar/10.1) = false")
	}
	if hash.MatchesString("foo/bar#10.1") {
		t.Error("MatchesString compares canonical forms only")
	}
}

func TestTarget_SetSlug(t *testing.T) {
	var tgt Target
	if err := tgt.SetSlug("foo/bar"); err != nil {
		t.Fatalf("SetSlug() error = %v", err)
	}
	if tgt.User != "foo" || tgt.Project != "bar" {
		t.Errorf("SetSlug() = %q/%q", tgt.User, tgt.Project)
	}

	for _, bad := range []string{"foo", "foo/bar/baz", "/bar", "foo/"} {
		if err := tgt.SetSlug(bad); !errors.Is(err, ErrFormat) {
			t.Errorf("SetSlug(%q) error = %v, want ErrFormat", bad, err)
		}
	}
}

func TestTarget_SetNumber(t *testing.T) {
	var tgt Target
	if err := tgt.SetNumber("10.3"); err != nil {
		t.Fatalf("SetNumber() error = %v", err)
	}
	if tgt.BuildNumber != 10 || tgt.JobNumber != 3 {
		t.Errorf("SetNumber() = %d.%d, want 10.3", tgt.BuildNumber, tgt.JobNumber)
	}
	if tgt.Number() != "10.3" {
		t.Errorf("Number() = %q, want 10.3", tgt.Number())
	}

	for _, bad := range []string{"10", "10.", ".3", "10.3.1", "a.b", "1/2.3"} {
		if err := tgt.SetNumber(bad); !errors.Is(err, ErrFormat) {
			t.Errorf("SetNumber(%q) error = %v, want ErrFormat", bad, err)
		}
	}
}

func TestFromEntity(t *testing.T) {
	tests := []struct {
		name    string
		entity  provider.Entity
		want    Target
		wantErr error
	}{
		{
			name:   "repo",
			entity: &provider.Repo{ID: 1, Slug: "foo/bar"},
			want:   Target{User: "foo", Project: "bar"},
		},
		{
			name:   "build",
			entity: &provider.Build{ID: 42, Number: "80", Slug: "foo/bar"},
			want:   Target{User: "foo", Project: "bar", BuildID: 42, BuildNumber: 80},
		},
		{
			name:   "job",
			entity: &provider.Job{ID: 7, Number: "80.2", Slug: "foo/bar"},
			want:   Target{User: "foo", Project: "bar", JobID: 7, BuildNumber: 80, JobNumber: 2},
		},
		{
			name:    "build with bad number",
			entity:  &provider.Build{ID: 42, Number: "x", Slug: "foo/bar"},
			wantErr: ErrFormat,
		},
		{
			name:    "nil entity",
			entity:  nil,
			wantErr: ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromEntity(tt.entity)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FromEntity() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromEntity() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FromEntity() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type fakeEntity struct{}

func (fakeEntity) Kind() provider.EntityKind { return provider.EntityKind(99) }

func TestFromEntity_Unsupported(t *testing.T) {
	if _, err := FromEntity(fakeEntity{}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("FromEntity() error = %v, want ErrUnsupportedType", err)
	}
}

func TestFromEntities(t *testing.T) {
	repos := []*provider.Repo{{Slug: "a/b"}, {Slug: "c/d"}}
	targets, err := FromEntities(repos)
	if err != nil {
		t.Fatalf("FromEntities() error = %v", err)
	}
	if len(targets) != 2 || targets[1].Slug() != "c/d" {
		t.Errorf("FromEntities() = %v", targets)
	}
}
