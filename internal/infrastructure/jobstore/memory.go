package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

type entry struct {
	mu  sync.Mutex
	job *domain.Job
}

// MemoryStore keeps all job state in process memory. Reads return deep
// snapshots; writes run the caller's mutate function under the job's
// own lock so concurrent status reads never observe a half-written job.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*entry
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: map[string]*entry{},
		now:  time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = &entry{job: job.Clone()}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "job store", fmt.Errorf("job %s", id))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, mutate func(*domain.Job) error) error {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return domain.WrapError(domain.ErrJobNotFound, "job store", fmt.Errorf("job %s", id))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return mutate(e.job)
}

// StartJanitor evicts terminal jobs older than retention. It runs until
// ctx is cancelled, sweeping at a quarter of the retention period.
func (s *MemoryStore) StartJanitor(ctx context.Context, retention time.Duration) {
	if retention <= 0 {
		return
	}
	interval := retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(retention)
			}
		}
	}()
}

func (s *MemoryStore) sweep(retention time.Duration) int {
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.jobs {
		e.mu.Lock()
		expired := e.job.Status.Terminal() && !e.job.CompletedAt.IsZero() && e.job.CompletedAt.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of retained jobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
