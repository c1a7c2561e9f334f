package resolve

import (
	"context"
	"fmt"
	"time"

	"travis-log-fetch/src/provider"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the Sleeper backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller yields jobs as they finish. Jobs that are still pending are
// re-fetched one by one after each interval. There is no upper bound on the
// number of rounds; cancel ctx to stop waiting.
//
//	p := r.PollUntilComplete(jobs, 30*time.Second)
//	for p.Next(ctx) {
//		job := p.Job()
//	}
//	if err := p.Err(); err != nil { ... }
type Poller struct {
	client   provider.CIClient
	interval time.Duration
	sleep    Sleeper
	log      func(format string, args ...interface{})

	pending []*provider.Job
	ready   []*provider.Job
	current *provider.Job
	started bool
	err     error
}

// PollUntilComplete returns a Poller over jobs waiting interval between rounds.
func (r *Resolver) PollUntilComplete(jobs []*provider.Job, interval time.Duration) *Poller {
	return &Poller{
		client:   r.client,
		interval: interval,
		sleep:    Sleep,
		log:      r.log.Info,
		pending:  append([]*provider.Job(nil), jobs...),
	}
}

// WithSleeper replaces the wait between rounds.
func (p *Poller) WithSleeper(s Sleeper) *Poller {
	p.sleep = s
	return p
}

// Next advances to the next finished job.
func (p *Poller) Next(ctx context.Context) bool {
	if p.err != nil {
		return false
	}

	for len(p.ready) == 0 {
		if p.started {
			if len(p.pending) == 0 {
				p.current = nil
				return false
			}
			if err := p.refresh(ctx); err != nil {
				p.err = err
				p.current = nil
				return false
			}
		}
		p.started = true
		p.partition()
		if len(p.ready) == 0 && len(p.pending) == 0 {
			p.current = nil
			return false
		}
	}

	p.current = p.ready[0]
	p.ready = p.ready[1:]
	return true
}

func (p *Poller) partition() {
	var still []*provider.Job
	for _, job := range p.pending {
		if job.Pending() {
			still = append(still, job)
		} else {
			p.ready = append(p.ready, job)
		}
	}
	p.pending = still
}

func (p *Poller) refresh(ctx context.Context) error {
	ids := make([]int64, 0, len(p.pending))
	for _, job := range p.pending {
		ids = append(ids, job.ID)
	}
	p.log("waiting %s for pending %v", p.interval, ids)

	if err := p.sleep(ctx, p.interval); err != nil {
		return err
	}

	fresh := make([]*provider.Job, 0, len(p.pending))
	for _, id := range ids {
		job, err := p.client.GetJob(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to refresh job %d: %w", id, err)
		}
		fresh = append(fresh, job)
	}
	p.pending = fresh
	return nil
}

// Job returns the job Next advanced to.
func (p *Poller) Job() *provider.Job {
	return p.current
}

// Err returns the error that stopped polling, if any.
func (p *Poller) Err() error {
	return p.err
}
