package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyforge/complyforge/errors"
	complyforgetest "github.com/complyforge/complyforge/internal/testing"
)

func waitForStatus(t *testing.T, queue *Queue, jobID string, want JobStatus) *Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := queue.GetJob(jobID)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestWorkerPoolProcessesJob(t *testing.T) {
	db := complyforgetest.CreateTestDB(t)
	registry := NewHandlerRegistry()
	handler := &stubHandler{name: HandlerGenerateDocuments}
	require.NoError(t, registry.Register(handler))

	pool := NewWorkerPool(context.Background(), db, WorkerPoolConfig{
		Workers:      1,
		PollInterval: 10 * time.Millisecond,
	}, registry, nil)
	pool.Start()
	defer pool.Stop()

	job := newQueuedJob(t, "acme")
	require.NoError(t, pool.GetQueue().Enqueue(job))

	done := waitForStatus(t, pool.GetQueue(), job.ID, JobStatusCompleted)
	assert.Equal(t, 1, handler.executedCount())
	assert.NotNil(t, done.CompletedAt)
}

func TestWorkerPoolFailsJobOnHandlerError(t *testing.T) {
	db := complyforgetest.CreateTestDB(t)
	registry := NewHandlerRegistry()
	handler := &stubHandler{name: HandlerGenerateDocuments, err: errors.New("all 3 document units failed")}
	require.NoError(t, registry.Register(handler))

	pool := NewWorkerPool(context.Background(), db, WorkerPoolConfig{
		Workers:      1,
		PollInterval: 10 * time.Millisecond,
	}, registry, nil)
	pool.Start()
	defer pool.Stop()

	job := newQueuedJob(t, "acme")
	require.NoError(t, pool.GetQueue().Enqueue(job))

	failed := waitForStatus(t, pool.GetQueue(), job.ID, JobStatusFailed)
	assert.Contains(t, failed.Error, "all 3 document units failed")
}

func TestWorkerPoolRecoversOrphanedJobs(t *testing.T) {
	db := complyforgetest.CreateTestDB(t)
	queue := NewQueue(db)

	// Simulate a crash: a job left in running state with a stale error.
	orphan := newQueuedJob(t, "acme")
	require.NoError(t, queue.Enqueue(orphan))
	running, err := queue.Dequeue()
	require.NoError(t, err)
	running.Error = "interrupted"
	require.NoError(t, queue.UpdateJob(running))

	registry := NewHandlerRegistry()
	handler := &stubHandler{name: HandlerGenerateDocuments}
	require.NoError(t, registry.Register(handler))

	pool := NewWorkerPool(context.Background(), db, WorkerPoolConfig{
		Workers:      1,
		PollInterval: 10 * time.Millisecond,
	}, registry, nil)
	pool.Start()
	defer pool.Stop()

	done := waitForStatus(t, pool.GetQueue(), orphan.ID, JobStatusCompleted)
	assert.Equal(t, 1, handler.executedCount())
	assert.Empty(t, done.Error)
}

func TestWorkerPoolStopAndRestart(t *testing.T) {
	db := complyforgetest.CreateTestDB(t)
	registry := NewHandlerRegistry()
	handler := &stubHandler{name: HandlerGenerateDocuments}
	require.NoError(t, registry.Register(handler))

	pool := NewWorkerPool(context.Background(), db, WorkerPoolConfig{
		Workers:      1,
		PollInterval: 10 * time.Millisecond,
	}, registry, nil)

	pool.Start()
	pool.Stop()

	// A stopped pool restarts with a fresh worker context.
	pool.Start()
	defer pool.Stop()

	job := newQueuedJob(t, "acme")
	require.NoError(t, pool.GetQueue().Enqueue(job))
	waitForStatus(t, pool.GetQueue(), job.ID, JobStatusCompleted)
}

func TestGetSystemMetrics(t *testing.T) {
	db := complyforgetest.CreateTestDB(t)
	pool := NewWorkerPool(context.Background(), db, DefaultWorkerPoolConfig(), NewHandlerRegistry(), nil)

	metrics := pool.GetSystemMetrics()

	assert.Equal(t, 2, metrics.WorkersTotal)
	assert.Equal(t, 0, metrics.WorkersActive)
	assert.Equal(t, 0, metrics.JobsQueued)
	assert.Equal(t, 0, metrics.JobsRunning)
}

func TestCalculateSafeWorkerCount(t *testing.T) {
	assert.Equal(t, 1, calculateSafeWorkerCount(0.5))
	assert.Equal(t, 1, calculateSafeWorkerCount(1.4))
	assert.Equal(t, 2, calculateSafeWorkerCount(2.0))
	assert.Equal(t, 16, calculateSafeWorkerCount(64.0))
}
