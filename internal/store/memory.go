package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"resumeforge/internal/types"
)

// MemoryStore keeps records in a map. Callers always receive copies.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.ApplicationRecord
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*types.ApplicationRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(ctx context.Context, app NewApplication) (*types.ApplicationRecord, error) {
	now := s.now()
	rec := &types.ApplicationRecord{
		ID:                     uuid.NewString(),
		CompanyName:            app.Job.CompanyName,
		RoleTitle:              app.Job.RoleTitle,
		JobDescription:         app.Job.JobDescription,
		OriginalResumeText:     app.ResumeText,
		OriginalResumeFilename: app.Filename,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return rec.Clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*types.ApplicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, update ResultUpdate) (*types.ApplicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	if !update.IsEmpty() {
		applyUpdate(rec, update, s.now())
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close() error { return nil }
