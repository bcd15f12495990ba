package jobstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

func TestCreateAndGetReturnsSnapshot(t *testing.T) {
	store := NewMemoryStore()
	job := domain.NewJob("job-1", "a.pdf", domain.JobOptions{Validation: true})
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Filename = "mutated.pdf"

	again, _ := store.Get(context.Background(), "job-1")
	if again.Filename != "a.pdf" {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	store := NewMemoryStore()
	job := domain.NewJob("job-1", "a.pdf", domain.JobOptions{})
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(context.Background(), job); err == nil {
		t.Fatal("expected duplicate id rejection")
	}
}

func TestGetUnknownJob(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "nope")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("err = %v, want job not found", err)
	}
}

func TestUpdateAppliesMutationAtomically(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Create(context.Background(), domain.NewJob("job-1", "a.pdf", domain.JobOptions{})); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(context.Background(), "job-1", func(job *domain.Job) error {
				job.PageCount++
				return nil
			})
		}()
	}
	wg.Wait()

	job, _ := store.Get(context.Background(), "job-1")
	if job.PageCount != 50 {
		t.Errorf("page count = %d, want 50 after concurrent updates", job.PageCount)
	}
}

func TestUpdatePropagatesMutateError(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Create(context.Background(), domain.NewJob("job-1", "a.pdf", domain.JobOptions{})); err != nil {
		t.Fatal(err)
	}
	job, _ := store.Get(context.Background(), "job-1")

	err := store.Update(context.Background(), "job-1", func(j *domain.Job) error {
		return j.Transition(domain.StatusCompleted, "cannot skip ahead")
	})
	if err == nil {
		t.Fatal("expected transition error")
	}
	after, _ := store.Get(context.Background(), "job-1")
	if after.Status != job.Status {
		t.Errorf("status changed to %s despite failed mutate", after.Status)
	}
}

func TestSweepEvictsOnlyExpiredTerminalJobs(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	fresh := domain.NewJob("fresh", "a.pdf", domain.JobOptions{})
	running := domain.NewJob("running", "b.pdf", domain.JobOptions{})

	old := domain.NewJob("old", "c.pdf", domain.JobOptions{})
	old.Status = domain.StatusCompleted
	old.CompletedAt = now.Add(-48 * time.Hour)

	recent := domain.NewJob("recent", "d.pdf", domain.JobOptions{})
	recent.Status = domain.StatusFailed
	recent.CompletedAt = now.Add(-time.Hour)

	for _, job := range []*domain.Job{fresh, running, old, recent} {
		if err := store.Create(context.Background(), job); err != nil {
			t.Fatal(err)
		}
	}

	removed := store.sweep(24 * time.Hour)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if store.Len() != 3 {
		t.Errorf("len = %d, want 3", store.Len())
	}
	if _, err := store.Get(context.Background(), "old"); !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Error("expired job still retrievable")
	}
	if _, err := store.Get(context.Background(), "recent"); err != nil {
		t.Error("recent terminal job evicted early")
	}
}
