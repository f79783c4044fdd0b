package jobs

import (
	"context"
	"sync"
	"time"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/models"
)

// MemoryStore is the default in-process job registry: a map guarded by a
// RWMutex. Suited to a single-instance deployment; the Redis store covers
// multi-instance setups.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.IngestionJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.IngestionJob)}
}

func (s *MemoryStore) Create(_ context.Context, kind models.JobKind, initial models.Stage, message string) (models.IngestionJob, error) {
	job := models.IngestionJob{
		ID:        models.NewJobID(kind),
		Kind:      kind,
		Stage:     initial,
		Message:   message,
		StartTime: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = &job
	s.mu.Unlock()
	return job, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.IngestionJob{}, apperr.Newf(apperr.KindNotFound, "job %s not found", id)
	}
	return *job, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, upd models.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "job %s not found", id)
	}
	applyUpdate(job, upd)
	return nil
}

func (s *MemoryStore) Cancel(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Stage.Terminal() {
		return false, nil
	}
	job.Cancelled = true
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return apperr.Newf(apperr.KindNotFound, "job %s not found", id)
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.StartTime.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}
