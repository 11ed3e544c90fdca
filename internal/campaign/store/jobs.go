package store

import (
	"context"
	"sync"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgerror"
)

// InMemoryJobStore keeps insight jobs for the lifetime of the process.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[int64]*entity.InsightJob
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[int64]*entity.InsightJob),
	}
}

func (s *InMemoryJobStore) CreateJob(ctx context.Context, job entity.InsightJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return pkgerror.NewBusiness("insight already exists", pkgerror.CodeConflict)
	}

	s.jobs[job.ID] = &job

	return nil
}

func (s *InMemoryJobStore) UpdateJob(ctx context.Context, jobID int64, fn func(job *entity.InsightJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return pkgerror.ErrNotFound
	}

	fn(job)
	job.ID = jobID

	return nil
}

// GetJob returns a copy of the job. Result slices are shared and must be
// treated as read-only.
func (s *InMemoryJobStore) GetJob(ctx context.Context, jobID int64) (entity.InsightJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return entity.InsightJob{}, pkgerror.ErrNotFound
	}

	return *job, nil
}
