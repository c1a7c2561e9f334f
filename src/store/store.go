// Package store defines the fetch ledger: a record of every run and of every
// job log a run handled.
package store

import (
	"context"
	"errors"

	"travis-log-fetch/src/contracts"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Store persists fetch runs and the job logs they handled.
type Store interface {
	// CreateRun records a new pending run.
	CreateRun(ctx context.Context, runID string, targets []string) error

	// GetRun returns the current state of a run.
	GetRun(ctx context.Context, runID string) (*contracts.FetchRun, error)

	// UpdateRun replaces the counters and status of a run.
	UpdateRun(ctx context.Context, run *contracts.FetchRun) error

	// SaveRecord appends a handled job log to its run.
	SaveRecord(ctx context.Context, record *contracts.FetchRecord) error

	// GetRecords returns the records of a run in insertion order.
	GetRecords(ctx context.Context, runID string) ([]contracts.FetchRecord, error)

	// RecordsForSlug returns the most recent records of a repository across
	// runs, newest first, at most limit of them.
	RecordsForSlug(ctx context.Context, slug string, limit int) ([]contracts.FetchRecord, error)

	Close() error
}
