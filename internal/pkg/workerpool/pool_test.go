package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWorkerPoolRunsQueuedJobs(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(ctx, zap.NewNop(), 3, 2)

	var count atomic.Int32
	for range 10 {
		if err := pool.SubmitWait(ctx, func(ctx context.Context) { count.Add(1) }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool.Shutdown(shutdownCtx)

	if got := count.Load(); got != 10 {
		t.Errorf("expected 10 jobs to run, got %d", got)
	}
}

func TestSubmitWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewWorkerPool(ctx, zap.NewNop(), 1, 0)
	block := make(chan struct{})
	started := make(chan struct{})

	if err := pool.SubmitWait(ctx, func(ctx context.Context) {
		close(started)
		<-block
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	if err := pool.SubmitWait(waitCtx, func(ctx context.Context) {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while the only worker is busy, got %v", err)
	}
	close(block)
}

func TestWithRetry(t *testing.T) {
	var attempts int
	job := WithRetry(zap.NewNop(), 3, time.Millisecond, func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("flaky")
		}
		return nil
	})

	job(context.Background())

	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}
