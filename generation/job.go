// Package generation runs compliance document generation as tracked
// background jobs. A caller enqueues a job and gets an id back
// immediately; a worker pool drives the per-job state machine and
// pollers read status and progress at any time.
package generation

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/complyforge/complyforge/errors"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsValidStatus returns true if the status string is a valid JobStatus
func IsValidStatus(s string) bool {
	switch JobStatus(s) {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Job represents one tracked generation run. It is owned exclusively by
// the job manager: only the background task driving the job mutates it,
// everyone else reads through the store.
type Job struct {
	ID                 string          `json:"id"`
	HandlerName        string          `json:"handler_name"`
	CompanyProfileID   string          `json:"company_profile_id"`
	Frameworks         []string        `json:"frameworks"`
	Status             JobStatus       `json:"status"`
	Progress           int             `json:"progress"` // 0-100, monotonically non-decreasing while running
	DocumentsGenerated int             `json:"documents_generated"`
	TotalDocuments     int             `json:"total_documents"`
	Payload            json.RawMessage `json:"payload,omitempty"`
	Error              string          `json:"error,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewJob creates a queued job for a handler with a typed payload.
func NewJob(handlerName, companyProfileID string, frameworks []string, totalDocuments int, payload json.RawMessage) (*Job, error) {
	if handlerName == "" {
		return nil, errors.New("handlerName cannot be empty")
	}
	if companyProfileID == "" {
		return nil, errors.New("companyProfileID cannot be empty")
	}
	if len(frameworks) == 0 {
		return nil, errors.New("at least one framework is required")
	}

	now := time.Now()
	return &Job{
		ID:               uuid.NewString(),
		HandlerName:      handlerName,
		CompanyProfileID: companyProfileID,
		Frameworks:       frameworks,
		Status:           JobStatusQueued,
		TotalDocuments:   totalDocuments,
		Payload:          payload,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// Complete marks the job as completed. Progress reaches exactly 100 only
// when every unit produced a persisted result; a completed job with
// provider-exhausted units keeps its last valid progress value.
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusCompleted
	if j.TotalDocuments > 0 && j.DocumentsGenerated == j.TotalDocuments {
		j.Progress = 100
	}
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Fail marks the job as failed with an error message. Progress keeps its
// last valid value; a failed job never reports 100.
func (j *Job) Fail(err error) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = err.Error()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// RecordUnitDone bumps the generated-document count and recomputes
// progress. Progress never decreases and is capped at 99 while the job is
// still running; only Complete sets 100.
func (j *Job) RecordUnitDone() {
	j.DocumentsGenerated++
	j.recomputeProgress()
}

func (j *Job) recomputeProgress() {
	if j.TotalDocuments <= 0 {
		return
	}
	pct := int(math.Round(float64(j.DocumentsGenerated) / float64(j.TotalDocuments) * 100))
	if pct > 99 {
		pct = 99
	}
	if pct > j.Progress {
		j.Progress = pct
	}
	j.UpdatedAt = time.Now()
}

// MarshalFrameworks converts the framework list to its stored JSON form.
func MarshalFrameworks(frameworks []string) (string, error) {
	data, err := json.Marshal(frameworks)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal frameworks")
	}
	return string(data), nil
}

// UnmarshalFrameworks converts the stored JSON form back to a list.
func UnmarshalFrameworks(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var frameworks []string
	if err := json.Unmarshal([]byte(data), &frameworks); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal frameworks")
	}
	return frameworks, nil
}
