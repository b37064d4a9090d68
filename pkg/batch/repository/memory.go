package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// MemoryStateRepository keeps execution states in process memory.
type MemoryStateRepository struct {
	mu      sync.RWMutex
	records map[string]StateRecord
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{records: make(map[string]StateRecord)}
}

func (r *MemoryStateRepository) Save(_ context.Context, rec StateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.ID]; exists {
		return exception.NewBatchErrorf("state_repository", "execution state %s already exists", rec.ID)
	}
	now := time.Now()
	if rec.CreateTime.IsZero() {
		rec.CreateTime = now
	}
	rec.LastUpdated = now
	rec.Variables = rec.Variables.Clone()
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryStateRepository) Update(_ context.Context, rec StateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, exists := r.records[rec.ID]
	if !exists {
		return exception.NewBatchErrorf("state_repository", "execution state %s not found", rec.ID)
	}
	rec.CreateTime = prev.CreateTime
	rec.LastUpdated = time.Now()
	rec.Variables = rec.Variables.Clone()
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryStateRepository) FindByID(_ context.Context, id string) (*StateRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, exception.NewBatchErrorf("state_repository", "execution state %s not found", id)
	}
	return &rec, nil
}

func (r *MemoryStateRepository) FindByLocator(_ context.Context, locator core.Locator) ([]StateRecord, error) {
	return r.filter(func(rec StateRecord) bool { return rec.Locator == locator }), nil
}

func (r *MemoryStateRepository) FindChildren(_ context.Context, parentID string) ([]StateRecord, error) {
	return r.filter(func(rec StateRecord) bool { return rec.ParentID == parentID }), nil
}

func (r *MemoryStateRepository) filter(keep func(StateRecord) bool) []StateRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []StateRecord
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreateTime.Equal(out[j].CreateTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreateTime.Before(out[j].CreateTime)
	})
	return out
}

func (r *MemoryStateRepository) Close() error { return nil }

var _ StateRepository = (*MemoryStateRepository)(nil)
