package db

import (
	"database/sql"

	"github.com/complyforge/complyforge/errors"
)

// schema holds the table definitions for the generation engine. Statements
// are idempotent so EnsureSchema can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS generation_jobs (
		id                  TEXT PRIMARY KEY,
		handler_name        TEXT NOT NULL,
		company_profile_id  TEXT NOT NULL,
		frameworks          TEXT NOT NULL,
		status              TEXT NOT NULL,
		progress            INTEGER NOT NULL DEFAULT 0,
		documents_generated INTEGER NOT NULL DEFAULT 0,
		total_documents     INTEGER NOT NULL DEFAULT 0,
		error               TEXT,
		payload             TEXT,
		created_at          TIMESTAMP NOT NULL,
		started_at          TIMESTAMP,
		completed_at        TIMESTAMP,
		updated_at          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generation_jobs_status
		ON generation_jobs(status, created_at)`,

	`CREATE TABLE IF NOT EXISTS documents (
		id                 TEXT PRIMARY KEY,
		job_id             TEXT NOT NULL REFERENCES generation_jobs(id),
		company_profile_id TEXT NOT NULL,
		framework          TEXT NOT NULL,
		template_id        TEXT NOT NULL,
		title              TEXT NOT NULL,
		category           TEXT NOT NULL,
		content            TEXT NOT NULL DEFAULT '',
		provider_used      TEXT NOT NULL,
		finish_reason      TEXT,
		quality_score      REAL,
		status             TEXT NOT NULL,
		error              TEXT,
		created_at         TIMESTAMP NOT NULL,
		updated_at         TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_job
		ON documents(job_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		id          TEXT PRIMARY KEY,
		action      TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		metadata    TEXT,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_action
		ON audit_log(action, created_at)`,
}

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(conn *sql.DB) error {
	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			return errors.Wrap(err, "failed to apply schema statement")
		}
	}
	return nil
}
