package generation

import (
	"database/sql"
	"time"

	"github.com/complyforge/complyforge/errors"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

// Store handles persistence of generation jobs
type Store struct {
	db *sql.DB
}

// NewStore creates a new job store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateJob inserts a new job into the database
func (s *Store) CreateJob(job *Job) error {
	frameworksJSON, err := MarshalFrameworks(job.Frameworks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO generation_jobs (
			id, handler_name, company_profile_id, frameworks, status,
			progress, documents_generated, total_documents,
			error, payload,
			created_at, started_at, completed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	payload := sql.NullString{String: string(job.Payload), Valid: len(job.Payload) > 0}

	_, err = s.db.Exec(query,
		job.ID,
		job.HandlerName,
		job.CompanyProfileID,
		frameworksJSON,
		job.Status,
		job.Progress,
		job.DocumentsGenerated,
		job.TotalDocuments,
		job.Error,
		payload,
		job.CreatedAt,
		job.StartedAt,
		job.CompletedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create job")
	}
	return nil
}

// GetJob retrieves a job by ID
func (s *Store) GetJob(id string) (*Job, error) {
	query := `SELECT ` + standardJobSelectColumns + ` FROM generation_jobs WHERE id = ?`

	var job Job
	args := &jobScanArgs{}

	err := s.db.QueryRow(query, id).Scan(jobScanTargets(&job, args)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrJobNotFound, "job %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get job")
	}

	if err := processJobScanArgs(&job, args); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob updates an existing job in the database
func (s *Store) UpdateJob(job *Job) error {
	frameworksJSON, err := MarshalFrameworks(job.Frameworks)
	if err != nil {
		return err
	}

	query := `
		UPDATE generation_jobs
		SET status = ?,
		    progress = ?,
		    documents_generated = ?,
		    total_documents = ?,
		    frameworks = ?,
		    error = ?,
		    payload = ?,
		    started_at = ?,
		    completed_at = ?,
		    updated_at = ?
		WHERE id = ?`

	payload := sql.NullString{String: string(job.Payload), Valid: len(job.Payload) > 0}

	result, err := s.db.Exec(query,
		job.Status,
		job.Progress,
		job.DocumentsGenerated,
		job.TotalDocuments,
		frameworksJSON,
		job.Error,
		payload,
		job.StartedAt,
		job.CompletedAt,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update job")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(ErrJobNotFound, "job %s", job.ID)
	}
	return nil
}

// ListJobs returns jobs newest first, optionally filtered by status
func (s *Store) ListJobs(status *JobStatus, limit int) ([]*Job, error) {
	var query string
	var args []interface{}

	baseQuery := `SELECT ` + standardJobSelectColumns + ` FROM generation_jobs`
	if status != nil {
		query = baseQuery + ` WHERE status = ? ORDER BY created_at DESC LIMIT ?`
		args = []interface{}{*status, limit}
	} else {
		query = baseQuery + ` ORDER BY created_at DESC LIMIT ?`
		args = []interface{}{limit}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()

	return scanJobs(rows)
}

// OldestQueuedJob returns the oldest queued job, or nil when the queue is
// empty. Dequeue order is creation order.
func (s *Store) OldestQueuedJob() (*Job, error) {
	query := `SELECT ` + standardJobSelectColumns + `
		FROM generation_jobs
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT 1`

	var job Job
	args := &jobScanArgs{}

	err := s.db.QueryRow(query, JobStatusQueued).Scan(jobScanTargets(&job, args)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get oldest queued job")
	}

	if err := processJobScanArgs(&job, args); err != nil {
		return nil, err
	}
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		var job Job
		if err := scanJobFromRows(rows, &job); err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating jobs")
	}
	return jobs, nil
}

// CleanupOldJobs removes completed/failed jobs older than the specified duration
func (s *Store) CleanupOldJobs(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	query := `
		DELETE FROM generation_jobs
		WHERE status IN ('completed', 'failed')
		  AND updated_at < ?`

	result, err := s.db.Exec(query, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old jobs")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(rows), nil
}
