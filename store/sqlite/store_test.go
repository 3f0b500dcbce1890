package sqlite_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anvorisk/queuectl/job"
	"github.com/anvorisk/queuectl/store"
)

func TestEnqueueAndLease(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	j, err := s.Enqueue(ctx, "a", "exit 0", store.EnqueueOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != job.Pending {
		t.Fatalf("expected Pending, got %v", j.Status)
	}
	if j.MaxRetries != 3 {
		t.Fatalf("expected default max_retries 3, got %d", j.MaxRetries)
	}
	if j.Timeout != job.DefaultTimeout {
		t.Fatalf("expected default timeout, got %v", j.Timeout)
	}

	leased, err := s.Lease(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if leased == nil {
		t.Fatal("expected a job")
	}
	if leased.Status != job.Processing {
		t.Fatalf("expected Processing, got %v", leased.Status)
	}

	none, err := s.Lease(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatal("expected no job to be eligible")
	}
}

func TestEnqueueDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Enqueue(ctx, "dup", "true", store.EnqueueOptions{}); err != nil {
		t.Fatal(err)
	}
	_, err := s.Enqueue(ctx, "dup", "true", store.EnqueueOptions{})
	if err != store.ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestEnqueueFutureRunAtIsScheduled(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UTC()
	j, err := s.Enqueue(ctx, "future", "true", store.EnqueueOptions{RunAt: &future})
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != job.Scheduled {
		t.Fatalf("expected Scheduled, got %v", j.Status)
	}

	leased, err := s.Lease(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if leased != nil {
		t.Fatal("scheduled job in the future must not be eligible")
	}
}

func TestFinalizeSuccess(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Enqueue(ctx, "ok", "exit 0", store.EnqueueOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Lease(ctx); err != nil {
		t.Fatal(err)
	}
	result, err := s.Finalize(ctx, "ok", true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != job.Completed {
		t.Fatalf("expected Completed, got %v", result.Status)
	}
	if result.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
	if result.Attempts != 0 {
		t.Fatalf("success must not increment attempts, got %d", result.Attempts)
	}
}

func TestFinalizeFailureRetriesThenDies(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	mr := uint32(3)
	if _, err := s.Enqueue(ctx, "b", "exit 1", store.EnqueueOptions{MaxRetries: &mr}); err != nil {
		t.Fatal(err)
	}

	for attempt := uint32(1); attempt <= 2; attempt++ {
		if _, err := s.Lease(ctx); err != nil {
			t.Fatal(err)
		}
		result, err := s.Finalize(ctx, "b", false)
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != job.Failed {
			t.Fatalf("attempt %d: expected Failed, got %v", attempt, result.Status)
		}
		if result.Attempts != attempt {
			t.Fatalf("attempt %d: expected attempts=%d, got %d", attempt, attempt, result.Attempts)
		}
		// Fast-forward run_at into the past directly through the
		// underlying bun.DB so the test doesn't have to sleep out the
		// real exponential backoff window to re-lease the job.
		past := time.Now().Add(-time.Second).UTC()
		if _, err := db.NewUpdate().Table("jobs").Set("run_at = ?", past).Where("id = ?", "b").Exec(ctx); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := s.Lease(ctx); err != nil {
		t.Fatal(err)
	}
	result, err := s.Finalize(ctx, "b", false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != job.Dead {
		t.Fatalf("expected Dead after exhausting retries, got %v", result.Status)
	}
	if result.Attempts != 3 {
		t.Fatalf("expected attempts=3, got %d", result.Attempts)
	}
}

func TestFinalizeFailureBackoffDelay(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mr := uint32(5)
	if _, err := s.Enqueue(ctx, "c", "exit 1", store.EnqueueOptions{MaxRetries: &mr}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConfig(ctx, "backoff_base", "2"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Lease(ctx); err != nil {
		t.Fatal(err)
	}
	result, err := s.Finalize(ctx, "c", false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != job.Failed {
		t.Fatalf("expected Failed, got %v", result.Status)
	}
	wantDelay := 2 * time.Second // base=2, attempts=1 -> 2^1
	gotDelay := result.RunAt.Sub(result.UpdatedAt)
	if gotDelay < wantDelay-time.Second || gotDelay > wantDelay+time.Second {
		t.Fatalf("expected backoff ~%v, got %v", wantDelay, gotDelay)
	}
	// not yet eligible for lease until run_at elapses.
	again, err := s.Lease(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again != nil {
		t.Fatal("job still in backoff window must not be leasable")
	}
}

func TestReleaseIsNoOpForNonProcessing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Enqueue(ctx, "p", "true", store.EnqueueOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Release(ctx, "p"); err != nil {
		t.Fatal(err)
	}
	jobs, err := s.GetByState(ctx, job.Pending)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected job to remain pending, got %d pending jobs", len(jobs))
	}
}

func TestReleaseFromProcessing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Enqueue(ctx, "r", "true", store.EnqueueOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Lease(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Release(ctx, "r"); err != nil {
		t.Fatal(err)
	}
	jobs, err := s.GetByState(ctx, job.Pending)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].Id != "r" {
		t.Fatalf("expected r to be back in pending, got %+v", jobs)
	}
}

func TestRecoverOrphans(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"x", "y"} {
		if _, err := s.Enqueue(ctx, id, "true", store.EnqueueOptions{}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Lease(ctx); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.RecoverOrphans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 recovered, got %d", n)
	}
	pending, err := s.GetByState(ctx, job.Pending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected both jobs pending after recovery, got %d", len(pending))
	}
}

func TestRequeueAndRetryDlq(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mr := uint32(1)
	if _, err := s.Enqueue(ctx, "d", "exit 1", store.EnqueueOptions{MaxRetries: &mr}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Lease(ctx); err != nil {
		t.Fatal(err)
	}
	result, err := s.Finalize(ctx, "d", false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != job.Dead {
		t.Fatalf("expected Dead, got %v", result.Status)
	}

	if err := s.RetryDlq(ctx, "d"); err != nil {
		t.Fatal(err)
	}
	dead, err := s.GetByState(ctx, job.Dead)
	if err != nil {
		t.Fatal(err)
	}
	if len(dead) != 0 {
		t.Fatal("expected dlq to be empty after retry")
	}
	pending, err := s.GetByState(ctx, job.Pending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Attempts != 0 {
		t.Fatalf("expected requeued job with attempts reset, got %+v", pending)
	}

	if err := s.RetryDlq(ctx, "missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUnconditional(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Enqueue(ctx, "del", "true", store.EnqueueOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "del"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "del"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := s.Enqueue(ctx, id, "true", store.EnqueueOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Lease(ctx); err != nil {
		t.Fatal(err)
	}
	summary, err := s.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary[job.Pending] != 2 {
		t.Fatalf("expected 2 pending, got %d", summary[job.Pending])
	}
	if summary[job.Processing] != 1 {
		t.Fatalf("expected 1 processing, got %d", summary[job.Processing])
	}
	if summary.Total() != 3 {
		t.Fatalf("expected total 3, got %d", summary.Total())
	}
}

func TestConfigDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	all, err := s.GetAllConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if all["max_retries"] != "3" || all["backoff_base"] != "2" {
		t.Fatalf("expected seeded defaults, got %+v", all)
	}
	if err := s.SetConfig(ctx, "backoff_base", "5"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.GetConfig(ctx, "backoff_base")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "5" {
		t.Fatalf("expected updated backoff_base=5, got %q %v", v, ok)
	}
}

// TestConcurrentLeaseNoDoubleLease exercises the core leasing invariant:
// across many concurrent Lease callers, each pending job is handed to
// exactly one caller.
func TestConcurrentLeaseNoDoubleLease(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	const n = 50
	for i := 0; i < n; i++ {
		id := string(rune('a')) + itoa(i)
		if _, err := s.Enqueue(ctx, id, "true", store.EnqueueOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	var leased int64
	var wg sync.WaitGroup
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j, err := s.Lease(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			if j != nil {
				atomic.AddInt64(&leased, 1)
			}
		}()
	}
	wg.Wait()

	if leased != n {
		t.Fatalf("expected exactly %d leases (no double-lease, no lost jobs), got %d", n, leased)
	}
	processing, err := s.GetByState(ctx, job.Processing)
	if err != nil {
		t.Fatal(err)
	}
	if len(processing) != n {
		t.Fatalf("expected %d processing rows, got %d", n, len(processing))
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
