package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"travis-log-fetch/src/contracts"
)

// MemoryStore is an in-memory Store, used when no ledger database is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*contracts.FetchRun
	records map[string][]contracts.FetchRecord // runID -> records
	order   []contracts.FetchRecord
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]*contracts.FetchRun),
		records: make(map[string][]contracts.FetchRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) CreateRun(ctx context.Context, runID string, targets []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; exists {
		return nil
	}
	s.runs[runID] = &contracts.FetchRun{
		RunID:     runID,
		Targets:   append([]string(nil), targets...),
		Status:    contracts.RunPending,
		StartedAt: s.now().UTC().Format(time.RFC3339),
	}
	return nil
}

func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*contracts.FetchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	runCopy := *run
	return &runCopy, nil
}

func (s *MemoryStore) UpdateRun(ctx context.Context, run *contracts.FetchRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.runs[run.RunID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.RunID)
	}

	updated := *run
	updated.Targets = existing.Targets
	updated.StartedAt = existing.StartedAt
	if updated.Status == contracts.RunCompleted || updated.Status == contracts.RunFailed {
		updated.FinishedAt = s.now().UTC().Format(time.RFC3339)
	}
	s.runs[run.RunID] = &updated
	return nil
}

func (s *MemoryStore) SaveRecord(ctx context.Context, record *contracts.FetchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.RunID] = append(s.records[record.RunID], *record)
	s.order = append(s.order, *record)
	return nil
}

func (s *MemoryStore) GetRecords(ctx context.Context, runID string) ([]contracts.FetchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[runID]
	result := make([]contracts.FetchRecord, len(records))
	copy(result, records)
	return result, nil
}

func (s *MemoryStore) RecordsForSlug(ctx context.Context, slug string, limit int) ([]contracts.FetchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []contracts.FetchRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		if s.order[i].Slug == slug {
			result = append(result, s.order[i])
		}
	}
	return result, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
