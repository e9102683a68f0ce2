package generation

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/complyforge/complyforge/errors"
)

const (
	// MaxOrphanedJobsToRecover limits how many orphaned jobs are re-queued
	// on startup to prevent overwhelming the system after a crash
	MaxOrphanedJobsToRecover = 1000

	// stopTimeout bounds how long Stop waits for in-flight jobs
	stopTimeout = 30 * time.Second
)

// WorkerPool consumes the job queue and drives each job's state machine.
// Jobs run to completion or failure; shutdown cancels the worker context
// and in-flight jobs are re-queued so the next start picks them up.
type WorkerPool struct {
	queue         *Queue
	db            *sql.DB
	poolConfig    WorkerPoolConfig
	workers       int
	parentCtx     context.Context
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	executor      JobExecutor
	activeWorkers int
	logger        *zap.SugaredLogger
	mu            sync.Mutex
}

// WorkerPoolConfig contains configuration for the worker pool
type WorkerPoolConfig struct {
	Workers      int           `json:"workers"`       // Number of concurrent workers
	PollInterval time.Duration `json:"poll_interval"` // How often to check for new jobs
}

// DefaultWorkerPoolConfig returns sensible defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:      2,
		PollInterval: time.Second,
	}
}

// NewWorkerPool creates a worker pool backed by a handler registry.
// Callers must register handlers before calling Start. The parent context
// coordinates shutdown: cancelling it stops all workers.
func NewWorkerPool(ctx context.Context, db *sql.DB, poolCfg WorkerPoolConfig, registry *HandlerRegistry, logger *zap.SugaredLogger) *WorkerPool {
	if poolCfg.Workers <= 0 {
		poolCfg.Workers = DefaultWorkerPoolConfig().Workers
	}
	if poolCfg.PollInterval <= 0 {
		poolCfg.PollInterval = DefaultWorkerPoolConfig().PollInterval
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	workerCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		queue:      NewQueue(db),
		db:         db,
		poolConfig: poolCfg,
		workers:    poolCfg.Workers,
		parentCtx:  ctx,
		ctx:        workerCtx,
		cancel:     cancel,
		executor:   NewRegistryExecutor(registry),
		logger:     logger.Named("workers"),
	}
}

// Start recovers orphaned jobs and begins processing the queue.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	// A pool stopped and restarted needs a fresh context.
	select {
	case <-wp.ctx.Done():
		wp.ctx, wp.cancel = context.WithCancel(wp.parentCtx)
		wp.logger.Infow("Recreated worker context after previous shutdown")
	default:
	}
	wp.mu.Unlock()

	if err := wp.recoverOrphanedJobs(); err != nil {
		wp.logger.Warnw("Failed to recover orphaned jobs", "error", err)
		// Continue starting workers even if recovery fails
	}

	if warning := wp.checkMemoryPressure(); warning != "" {
		wp.logger.Warnw("Memory pressure warning", "warning", warning, "workers", wp.workers)
	}

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Infow("Worker pool started", "workers", wp.workers, "poll_interval", wp.poolConfig.PollInterval)
}

// recoverOrphanedJobs re-queues jobs stuck in "running" from an
// ungraceful shutdown. They restart from the beginning; already persisted
// documents for the previous attempt remain in the store.
func (wp *WorkerPool) recoverOrphanedJobs() error {
	runningStatus := JobStatusRunning
	orphaned, err := wp.queue.ListJobs(&runningStatus, MaxOrphanedJobsToRecover)
	if err != nil {
		return errors.Wrap(err, "failed to list running jobs")
	}
	if len(orphaned) == 0 {
		return nil
	}

	wp.logger.Infow("Found orphaned jobs from previous shutdown", "count", len(orphaned))

	for _, job := range orphaned {
		job.Status = JobStatusQueued
		job.Error = "" // Clear any stale error message
		job.UpdatedAt = time.Now()
		if err := wp.queue.UpdateJob(job); err != nil {
			wp.logger.Warnw("Failed to re-queue orphaned job", "job_id", job.ID, "error", err)
			continue
		}
		wp.logger.Infow("Recovered orphaned job", "job_id", job.ID, "handler", job.HandlerName)
	}
	return nil
}

// Stop gracefully stops the worker pool, waiting up to stopTimeout for
// in-flight jobs to finish or re-queue.
func (wp *WorkerPool) Stop() {
	wp.cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Infow("Worker pool stopped, all workers exited cleanly")
	case <-time.After(stopTimeout):
		wp.logger.Warnw("Worker pool stop timeout, workers may still be finishing", "timeout", stopTimeout)
	}
}

// worker polls the queue for jobs until the context is cancelled
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	ticker := time.NewTicker(wp.poolConfig.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case <-ticker.C:
			if err := wp.processNextJob(); err != nil {
				select {
				case <-wp.ctx.Done():
					return
				default:
				}
				if errors.Is(err, sql.ErrConnDone) {
					// Database closed during shutdown
					return
				}
				wp.logger.Errorw("Worker error processing job", "worker_id", id, "error", err)
			}
		}
	}
}

// processNextJob dequeues one job and runs it through the executor
func (wp *WorkerPool) processNextJob() error {
	select {
	case <-wp.ctx.Done():
		return nil
	default:
	}

	job, err := wp.queue.Dequeue()
	if err != nil {
		return errors.Wrap(err, "failed to dequeue job")
	}
	if job == nil {
		return nil
	}

	wp.mu.Lock()
	wp.activeWorkers++
	wp.mu.Unlock()
	defer func() {
		wp.mu.Lock()
		wp.activeWorkers--
		wp.mu.Unlock()
	}()

	if err := wp.executor.Execute(wp.ctx, job); err != nil {
		select {
		case <-wp.ctx.Done():
			// Shutdown interrupted the job; re-queue so the next start
			// runs it again rather than failing it.
			wp.logger.Infow("Job interrupted by shutdown, re-queuing", "job_id", job.ID)
			job.Status = JobStatusQueued
			if updateErr := wp.queue.UpdateJob(job); updateErr != nil {
				wp.logger.Errorw("Failed to re-queue interrupted job", "job_id", job.ID, "error", updateErr)
			}
			return nil
		default:
			return wp.queue.FailJob(job.ID, err)
		}
	}

	return wp.queue.CompleteJob(job.ID)
}

// GetQueue returns the job queue (useful for enqueuing jobs)
func (wp *WorkerPool) GetQueue() *Queue {
	return wp.queue
}

// Workers returns the number of concurrent workers configured for this pool
func (wp *WorkerPool) Workers() int {
	return wp.workers
}
