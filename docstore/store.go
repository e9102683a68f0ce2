// Package docstore persists generated documents. Every attempted unit of
// work ends up here with either content or an explicit failure reason;
// nothing is silently dropped.
package docstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/complyforge/complyforge/errors"
)

// Document statuses.
const (
	StatusGenerated = "generated"
	StatusBlocked   = "blocked"
	StatusFailed    = "failed"
)

// ProviderBlocked is the sentinel stored in ProviderUsed when guardrails
// blocked the unit before any provider was contacted.
const ProviderBlocked = "blocked"

// Document is one persisted generation result.
type Document struct {
	ID               string    `json:"id"`
	JobID            string    `json:"jobId"`
	CompanyProfileID string    `json:"companyProfileId"`
	Framework        string    `json:"framework"`
	TemplateID       string    `json:"templateId"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Content          string    `json:"content,omitempty"`
	ProviderUsed     string    `json:"providerUsed"`
	FinishReason     string    `json:"finishReason,omitempty"`
	QualityScore     *float64  `json:"qualityScore,omitempty"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// SQLStore persists documents to the documents table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store backed by the given database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// CreateDocument inserts a document. ID and timestamps are filled in when
// empty.
func (s *SQLStore) CreateDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	query := `
		INSERT INTO documents (
			id, job_id, company_profile_id, framework, template_id,
			title, category, content, provider_used, finish_reason,
			quality_score, status, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID, doc.JobID, doc.CompanyProfileID, doc.Framework, doc.TemplateID,
		doc.Title, doc.Category, doc.Content, doc.ProviderUsed, doc.FinishReason,
		nullFloat(doc.QualityScore), doc.Status, doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create document %s", doc.ID)
	}
	return nil
}

// UpdateQualityScore sets the score for an already persisted document.
// Scoring runs after generation and never blocks job completion.
func (s *SQLStore) UpdateQualityScore(ctx context.Context, documentID string, score float64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET quality_score = ?, updated_at = ? WHERE id = ?`,
		score, time.Now(), documentID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update quality score for document %s", documentID)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(ErrNotFound, "document %s", documentID)
	}
	return nil
}

// GetDocument returns one document by id.
func (s *SQLStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "document %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get document %s", id)
	}
	return doc, nil
}

// ListByJob returns all documents for a job in creation order, which is
// the template order the job generated them in.
func (s *SQLStore) ListByJob(ctx context.Context, jobID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE job_id = ? ORDER BY created_at ASC, id ASC`, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list documents for job %s", jobID)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan document row")
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

const selectColumns = `
	SELECT id, job_id, company_profile_id, framework, template_id,
	       title, category, content, provider_used, finish_reason,
	       quality_score, status, error, created_at, updated_at
	FROM documents`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var score sql.NullFloat64
	err := row.Scan(
		&doc.ID, &doc.JobID, &doc.CompanyProfileID, &doc.Framework, &doc.TemplateID,
		&doc.Title, &doc.Category, &doc.Content, &doc.ProviderUsed, &doc.FinishReason,
		&score, &doc.Status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		doc.QualityScore = &score.Float64
	}
	return &doc, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
