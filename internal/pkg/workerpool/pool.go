package workerpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Job func(ctx context.Context)

type WorkerPool struct {
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewWorkerPool(ctx context.Context, logger *zap.Logger, workerCount int, queueSize int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	pool := &WorkerPool{
		queue:  make(chan Job, queueSize),
		logger: logger,
	}

	pool.wg.Add(workerCount)
	for range workerCount {
		go pool.worker(ctx)
	}

	return pool
}

func (p *WorkerPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("worker received shutdown signal")
			return
		case job, ok := <-p.queue:
			if !ok {
				// queue closed
				return
			}
			job(ctx)
		}
	}
}

// SubmitWait enqueues job, waiting for room in the queue.
func (p *WorkerPool) SubmitWait(ctx context.Context, job Job) error {
	select {
	case p.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the queued ones to finish.
func (p *WorkerPool) Shutdown(ctx context.Context) {
	close(p.queue)

	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out")
	case <-done:
		p.logger.Debug("worker pool shutdown complete")
	}
}

// WithRetry runs job until it succeeds, up to retries attempts.
func WithRetry(logger *zap.Logger, retries int, delay time.Duration, job func(ctx context.Context) error) Job {
	return func(ctx context.Context) {
		for i := range retries {
			if ctx.Err() != nil {
				logger.Debug("job canceled before execution")
				return
			}

			err := job(ctx)

			if err == nil {
				return // success
			}
			logger.Warn("job failed", zap.Int("attempt", i+1), zap.Int("retries", retries), zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		logger.Error("job failed after max retries", zap.Int("retries", retries))
	}
}
