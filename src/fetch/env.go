// Package fetch runs the whole log fetch: it expands the requested targets,
// drops the ones already stored, resolves the rest to jobs and writes their
// logs.
package fetch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"travis-log-fetch/src/broker"
	"travis-log-fetch/src/contracts"
	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/provider"
	"travis-log-fetch/src/resolve"
	"travis-log-fetch/src/storage"
	"travis-log-fetch/src/store"
)

// Env holds the collaborators of a fetch. It is built once by the caller
// and passed to every run.
type Env struct {
	CI     provider.CIClient
	Forge  provider.ForgeClient // nil disables fork expansion
	Index  *storage.Index
	Writer *storage.Writer
	Log    logger.Logger

	// Ledger and Events are optional.
	Ledger store.Store
	Events *broker.Publisher

	// Progress receives an Event for every step of a run.
	Progress func(Event)

	// Sleeper overrides the wait between completion polls.
	Sleeper resolve.Sleeper

	// NewRunID overrides run id generation.
	NewRunID func() string

	now func() time.Time
}

func (e *Env) runID() string {
	if e.NewRunID != nil {
		return e.NewRunID()
	}
	return uuid.Must(uuid.NewV7()).String()
}

func (e *Env) timestamp() string {
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	return now().UTC().Format(time.RFC3339)
}

func (e *Env) emit(ev Event) {
	if e.Progress != nil {
		e.Progress(ev)
	}
}

// EventKind identifies a progress event.
type EventKind int

const (
	EventExpanded EventKind = iota // targets expanded and filtered
	EventResolved                  // jobs resolved
	EventWritten                   // one job log handled
	EventDone                      // run finished
)

func (k EventKind) String() string {
	switch k {
	case EventExpanded:
		return "expanded"
	case EventResolved:
		return "resolved"
	case EventWritten:
		return "written"
	case EventDone:
		return "done"
	}
	return "unknown"
}

// Event reports progress of a run.
type Event struct {
	Kind    EventKind
	RunID   string
	Count   int
	Record  *contracts.FetchRecord
	Err     error
	Summary *Summary
}

func (e *Env) recordRun(ctx context.Context, run *contracts.FetchRun) {
	if e.Ledger != nil {
		if err := e.Ledger.UpdateRun(ctx, run); err != nil {
			e.Log.Warn("failed to update run %s: %v", run.RunID, err)
		}
	}
	if e.Events != nil {
		if err := e.Events.PublishRun(ctx, run); err != nil {
			e.Log.Warn("failed to publish run %s: %v", run.RunID, err)
		}
	}
}

func (e *Env) recordLog(ctx context.Context, record *contracts.FetchRecord) {
	if e.Ledger != nil {
		if err := e.Ledger.SaveRecord(ctx, record); err != nil {
			e.Log.Warn("failed to save record of job %d: %v", record.JobID, err)
		}
	}
	if e.Events != nil {
		if err := e.Events.PublishRecord(ctx, record); err != nil {
			e.Log.Warn("failed to publish record of job %d: %v", record.JobID, err)
		}
	}
}
