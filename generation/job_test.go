package generation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyforge/complyforge/errors"
)

func TestNewJob(t *testing.T) {
	payload := json.RawMessage(`{"options":{}}`)
	job, err := NewJob(HandlerGenerateDocuments, "acme", []string{"SOC2"}, 3, payload)

	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, 0, job.DocumentsGenerated)
	assert.Equal(t, 3, job.TotalDocuments)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestNewJobValidation(t *testing.T) {
	_, err := NewJob("", "acme", []string{"SOC2"}, 3, nil)
	assert.Error(t, err)

	_, err = NewJob(HandlerGenerateDocuments, "", []string{"SOC2"}, 3, nil)
	assert.Error(t, err)

	_, err = NewJob(HandlerGenerateDocuments, "acme", nil, 0, nil)
	assert.Error(t, err)
}

func TestJobLifecycleTimestamps(t *testing.T) {
	job, err := NewJob(HandlerGenerateDocuments, "acme", []string{"SOC2"}, 3, nil)
	require.NoError(t, err)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Complete()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
}

func TestProgressCappedWhileRunning(t *testing.T) {
	job, err := NewJob(HandlerGenerateDocuments, "acme", []string{"SOC2"}, 3, nil)
	require.NoError(t, err)
	job.Start()

	job.RecordUnitDone()
	assert.Equal(t, 33, job.Progress)
	job.RecordUnitDone()
	assert.Equal(t, 67, job.Progress)
	job.RecordUnitDone()
	// All units done but the job is still running: capped below 100.
	assert.Equal(t, 99, job.Progress)
	assert.Equal(t, 3, job.DocumentsGenerated)
}

func TestProgressIsMonotonic(t *testing.T) {
	job, err := NewJob(HandlerGenerateDocuments, "acme", []string{"SOC2", "ISO27001"}, 7, nil)
	require.NoError(t, err)
	job.Start()

	last := 0
	for i := 0; i < 7; i++ {
		job.RecordUnitDone()
		assert.GreaterOrEqual(t, job.Progress, last)
		last = job.Progress
	}
}

func TestCompleteReaches100OnlyWhenAllUnitsDone(t *testing.T) {
	job, err := NewJob(HandlerGenerateDocuments, "acme", []string{"SOC2"}, 3, nil)
	require.NoError(t, err)
	job.Start()

	job.RecordUnitDone()
	job.RecordUnitDone()
	job.RecordUnitDone()
	job.Complete()

	assert.Equal(t, 100, job.Progress)
}

func TestCompleteWithFailedUnitsKeepsLastProgress(t *testing.T) {
	job, err := NewJob(HandlerGenerateDocuments, "acme", []string{"SOC2"}, 3, nil)
	require.NoError(t, err)
	job.Start()

	// One unit never produced a persisted result.
	job.RecordUnitDone()
	job.RecordUnitDone()
	job.Complete()

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 67, job.Progress)
}

func TestFailKeepsProgress(t *testing.T) {
	job, err := NewJob(HandlerGenerateDocuments, "acme", []string{"SOC2"}, 3, nil)
	require.NoError(t, err)
	job.Start()
	job.RecordUnitDone()

	job.Fail(errors.New("all providers exhausted"))

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "all providers exhausted", job.Error)
	assert.Equal(t, 33, job.Progress)
	require.NotNil(t, job.CompletedAt)
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []string{"queued", "running", "completed", "failed"} {
		assert.True(t, IsValidStatus(s), s)
	}
	assert.False(t, IsValidStatus("paused"))
	assert.False(t, IsValidStatus(""))
}

func TestFrameworksRoundTrip(t *testing.T) {
	stored, err := MarshalFrameworks([]string{"SOC2", "HIPAA"})
	require.NoError(t, err)

	got, err := UnmarshalFrameworks(stored)
	require.NoError(t, err)
	assert.Equal(t, []string{"SOC2", "HIPAA"}, got)

	empty, err := UnmarshalFrameworks("")
	require.NoError(t, err)
	assert.Nil(t, empty)
}
