package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"travis-log-fetch/src/broker"
	"travis-log-fetch/src/contracts"
	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/logtemplate"
	"travis-log-fetch/src/provider/providertest"
	"travis-log-fetch/src/storage"
	"travis-log-fetch/src/store"
	"travis-log-fetch/src/target"
)

type testEnv struct {
	*Env
	ci     *providertest.FakeCI
	forge  *providertest.FakeForge
	ledger *store.MemoryStore
	log    *logger.RecordingLogger
	root   string
	events []Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ci := providertest.NewFakeCI()
	ci.AddRepo(1, "foo/bar")
	ci.AddRepo(2, "fork/bar")
	ci.AddRepo(3, "foo/other")
	for n := 1; n <= 5; n++ {
		ci.AddBuild("foo/bar", int64(10+n), n, "passed", "failed")
	}
	ci.AddBuild("fork/bar", 30, 1, "passed")
	ci.AddBuild("foo/other", 40, 7, "errored")

	root := t.TempDir()
	tmpl := logtemplate.MustCompile(logtemplate.DefaultTemplate)
	log := logger.NewRecordingLogger()
	te := &testEnv{
		ci:     ci,
		forge:  &providertest.FakeForge{Forks: map[string][]string{"foo/bar": {"fork/bar", "gone/bar"}}},
		ledger: store.NewMemoryStore(),
		log:    log,
		root:   root,
	}
	te.Env = &Env{
		CI:       ci,
		Forge:    te.forge,
		Index:    storage.NewIndex(root, tmpl, log),
		Writer:   storage.NewWriter(root, tmpl, log),
		Log:      log,
		Ledger:   te.ledger,
		Progress: func(ev Event) { te.events = append(te.events, ev) },
		NewRunID: func() string { return "run-1" },
	}
	return te
}

func (te *testEnv) store(t *testing.T, rel string) {
	t.Helper()
	path := filepath.Join(te.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("stored"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func targetStrings(targets []target.Target) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.String())
	}
	return out
}

func TestRun_WritesLogs(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()

	summary, err := Run(ctx, te.Env, Options{Targets: []string{"foo/bar/2"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Jobs != 2 || summary.Written != 2 || summary.Skipped != 0 {
		t.Errorf("summary = %+v", summary)
	}

	data, err := os.ReadFile(filepath.Join(te.root, "foo", "bar", "2.2-failed.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "log of foo/bar 2.2\n" {
		t.Errorf("log content = %q", data)
	}

	run, err := te.ledger.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != contracts.RunCompleted || run.JobsWritten != 2 {
		t.Errorf("ledger run = %+v", run)
	}
	records, _ := te.ledger.GetRecords(ctx, "run-1")
	if len(records) != 2 || records[0].JobNumber != "2.1" {
		t.Errorf("ledger records = %+v", records)
	}

	var kinds []EventKind
	for _, ev := range te.events {
		kinds = append(kinds, ev.Kind)
	}
	want := []EventKind{EventExpanded, EventResolved, EventWritten, EventWritten, EventDone}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("events = %v, want %v", kinds, want)
	}
}

func TestRun_SkipsStoredBuilds(t *testing.T) {
	tests := []struct {
		name     string
		force    bool
		wantJobs int
	}{
		{name: "stored build skipped", force: false, wantJobs: 0},
		{name: "force fetches anyway", force: true, wantJobs: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEnv(t)
			te.store(t, "foo/bar/2.1-passed.txt")

			summary, err := Run(context.Background(), te.Env, Options{Targets: []string{"foo/bar#2"}, Force: tt.force})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if summary.Jobs != tt.wantJobs {
				t.Errorf("Jobs = %d, want %d", summary.Jobs, tt.wantJobs)
			}
		})
	}
}

func TestRun_Failure(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()

	_, err := Run(ctx, te.Env, Options{Targets: []string{"not-a-slug"}})
	if !errors.Is(err, target.ErrFormat) {
		t.Fatalf("Run() error = %v, want ErrFormat", err)
	}

	run, _ := te.ledger.GetRun(ctx, "run-1")
	if run.Status != contracts.RunFailed || run.Error == "" {
		t.Errorf("ledger run = %+v", run)
	}
	last := te.events[len(te.events)-1]
	if last.Kind != EventDone || last.Err == nil {
		t.Errorf("last event = %+v", last)
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		setup func(t *testing.T, te *testEnv)
		want  []string
	}{
		{
			name: "targets only",
			opts: Options{Targets: []string{"foo/bar", "https://travis-ci.org/foo/other/builds/40"}},
			want: []string{"foo/bar", "foo/other@40"},
		},
		{
			name: "old caps history per repository",
			opts: Options{Targets: []string{"foo/bar"}, Old: true, Count: 2},
			want: []string{"foo/bar/5", "foo/bar/4"},
		},
		{
			name: "all takes the whole history",
			opts: Options{Targets: []string{"foo/bar", "foo/bar/3"}, All: true, Count: 2},
			want: []string{"foo/bar/5", "foo/bar/4", "foo/bar/3", "foo/bar/2", "foo/bar/1"},
		},
		{
			name: "forks missing on the CI side are omitted",
			opts: Options{Targets: []string{"foo/bar"}, Forks: true},
			want: []string{"foo/bar", "fork/bar"},
		},
		{
			name:  "self adds the user's repositories",
			opts:  Options{Self: true},
			setup: func(t *testing.T, te *testEnv) { te.ci.User = "me"; te.ci.Members["me"] = []string{"foo/other"} },
			want:  []string{"foo/other"},
		},
		{
			name: "refresh adds stored repositories",
			opts: Options{Targets: []string{"foo/bar"}, Refresh: true},
			setup: func(t *testing.T, te *testEnv) {
				te.store(t, "foo/other/7.1-errored.txt")
			},
			want: []string{"foo/bar", "foo/other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(t, te)
			}

			targets, err := Expand(context.Background(), te.Env, tt.opts)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if got := targetStrings(targets); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpand_ForksWithoutForge(t *testing.T) {
	te := newTestEnv(t)
	te.Forge = nil

	if _, err := Expand(context.Background(), te.Env, Options{Targets: []string{"foo/bar"}, Forks: true}); err == nil {
		t.Error("Expand() should fail without a forge client")
	}
}

func TestRun_WaitsForPendingJobs(t *testing.T) {
	te := newTestEnv(t)
	te.ci.AddBuild("foo/bar", 99, 6, "started", "passed")
	te.ci.JobStates = map[int64][]string{9901: {"failed"}}

	var slept []time.Duration
	te.Sleeper = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	summary, err := Run(context.Background(), te.Env, Options{Targets: []string{"foo/bar/6"}, Wait: true, Sleep: time.Minute})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var order []string
	for _, r := range summary.Records {
		order = append(order, r.JobNumber+"-"+r.State)
	}
	if want := []string{"6.2-passed", "6.1-failed"}; !reflect.DeepEqual(order, want) {
		t.Errorf("records = %v, want %v", order, want)
	}
	if !reflect.DeepEqual(slept, []time.Duration{time.Minute}) {
		t.Errorf("slept %v", slept)
	}
	if _, err := os.Stat(filepath.Join(te.root, "foo", "bar", "6.1-failed.txt")); err != nil {
		t.Errorf("final log should be stored under its finished state: %v", err)
	}
}

func TestRun_PublishesEvents(t *testing.T) {
	te := newTestEnv(t)
	b := broker.NewInMemoryBroker()
	defer b.Close()
	te.Events = broker.NewPublisher(b, "")

	ctx := context.Background()
	msgs, err := b.Subscribe(ctx, contracts.TopicLogsFetched, "test")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Run(ctx, te.Env, Options{Targets: []string{"foo/other"}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Key != "foo/other" {
			t.Errorf("Key = %q, want foo/other", msg.Key)
		}
	case <-time.After(time.Second):
		t.Fatal("no record published")
	}
}
