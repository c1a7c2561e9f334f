package fetch

import (
	"context"
	"fmt"
	"time"

	"travis-log-fetch/src/contracts"
	"travis-log-fetch/src/provider"
	"travis-log-fetch/src/resolve"
	"travis-log-fetch/src/target"
)

// DefaultSleep is the wait between completion polls.
const DefaultSleep = 30 * time.Second

// DefaultCount is the number of historical builds per repository fetched by
// Old.
const DefaultCount = 10

// Options selects what a run fetches.
type Options struct {
	// Targets are raw target strings: slugs, extended slugs or URLs.
	Targets []string

	Refresh bool // add every repository already stored
	Self    bool // add the repositories of the authenticated user
	Forks   bool // add the forks of every target
	All     bool // replace targets by their whole build history
	Old     bool // replace targets by their Count newest builds
	Count   int
	Force   bool // fetch even when the build is already stored
	Wait    bool // wait for pending jobs to finish
	Sleep   time.Duration
}

// Summary describes a finished run.
type Summary struct {
	RunID   string
	Targets []target.Target
	Jobs    int
	Written int
	Skipped int
	Records []contracts.FetchRecord
}

// Run fetches the logs selected by opts.
func Run(ctx context.Context, env *Env, opts Options) (*Summary, error) {
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}
	if opts.Sleep <= 0 {
		opts.Sleep = DefaultSleep
	}

	summary := &Summary{RunID: env.runID()}
	run := &contracts.FetchRun{
		RunID:     summary.RunID,
		Targets:   opts.Targets,
		Status:    contracts.RunRunning,
		StartedAt: env.timestamp(),
	}
	if env.Ledger != nil {
		if err := env.Ledger.CreateRun(ctx, run.RunID, opts.Targets); err != nil {
			env.Log.Warn("failed to create run %s: %v", run.RunID, err)
		}
	}
	env.recordRun(ctx, run)

	err := execute(ctx, env, opts, summary)

	run.JobsTotal = summary.Jobs
	run.JobsWritten = summary.Written
	run.JobsSkipped = summary.Skipped
	run.Status = contracts.RunCompleted
	if err != nil {
		run.Status = contracts.RunFailed
		run.Error = err.Error()
	}
	run.FinishedAt = env.timestamp()
	env.recordRun(ctx, run)
	env.emit(Event{Kind: EventDone, RunID: summary.RunID, Err: err, Summary: summary})

	return summary, err
}

func execute(ctx context.Context, env *Env, opts Options, summary *Summary) error {
	env.Log.Debug("fetch options %+v", opts)

	targets, err := Expand(ctx, env, opts)
	if err != nil {
		return err
	}

	if !opts.Force {
		targets, err = env.Index.SkipAlreadyStored(targets)
		if err != nil {
			return fmt.Errorf("failed to read stored logs: %w", err)
		}
	}
	summary.Targets = targets
	env.emit(Event{Kind: EventExpanded, RunID: summary.RunID, Count: len(targets)})

	resolver := resolve.New(env.CI, env.Log)
	jobs, err := resolver.ResolveJobs(ctx, targets)
	if err != nil {
		return err
	}
	summary.Jobs = len(jobs)
	env.emit(Event{Kind: EventResolved, RunID: summary.RunID, Count: len(jobs)})

	if !opts.Wait {
		for _, job := range jobs {
			if err := write(ctx, env, summary, job); err != nil {
				return err
			}
		}
		return nil
	}

	poller := resolver.PollUntilComplete(jobs, opts.Sleep)
	if env.Sleeper != nil {
		poller.WithSleeper(env.Sleeper)
	}
	for poller.Next(ctx) {
		if err := write(ctx, env, summary, poller.Job()); err != nil {
			return err
		}
	}
	return poller.Err()
}

func write(ctx context.Context, env *Env, summary *Summary, job *provider.Job) error {
	result, err := env.Writer.WriteJobLog(ctx, job, env.CI.OpenLog)
	if err != nil {
		return fmt.Errorf("failed to write log of job %d: %w", job.ID, err)
	}

	if result.Skipped {
		summary.Skipped++
	} else {
		summary.Written++
	}

	record := contracts.FetchRecord{
		RunID:     summary.RunID,
		Slug:      job.Slug,
		JobID:     job.ID,
		JobNumber: job.Number,
		State:     job.State,
		Path:      result.Path,
		Bytes:     result.Bytes,
		Skipped:   result.Skipped,
		FetchedAt: env.timestamp(),
	}
	summary.Records = append(summary.Records, record)
	env.recordLog(ctx, &record)
	env.emit(Event{Kind: EventWritten, RunID: summary.RunID, Record: &record})
	return nil
}
